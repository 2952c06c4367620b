package handler

import (
	"context"
	"fmt"
	"strings"

	"timebank/internal/models"
	"timebank/pkg/duration"

	"github.com/sirupsen/logrus"
)

// manual: /manual <user> <date> <HH:MM> <HH:MM> [break] [reason...]
func (h *Handler) manual(ctx context.Context, admin *models.User, args []string) Reply {
	if len(args) < 4 {
		return textReply("❌ Usage: /manual <user> <YYYY-MM-DD> <HH:MM> <HH:MM> [break] [reason]")
	}

	userID, err := parseUserID(args[0])
	if err != nil {
		return textReply("❌ " + err.Error())
	}
	day, err := h.parseDate(args[1])
	if err != nil {
		return textReply("❌ " + err.Error())
	}
	entrada, err := h.clockOn(day, args[2])
	if err != nil {
		return textReply("❌ " + err.Error())
	}
	saida, err := h.clockOn(day, args[3])
	if err != nil {
		return textReply("❌ " + err.Error())
	}

	breakDuration := duration.FormatMinutes(0)
	rest := args[4:]
	if len(rest) > 0 {
		if m, err := parseMinutesArg(rest[0]); err == nil {
			breakDuration = duration.FormatMinutes(m)
			rest = rest[1:]
		}
	}

	record, err := h.services.Clock.ManualCreate(ctx, userID, day.Format(models.DateLayout), entrada, saida, breakDuration, strings.Join(rest, " "))
	if err != nil {
		return h.errorReply(admin, "manual", err)
	}

	h.audit(admin, "manual", userID, record.Date)
	return textReply("✍️ Manual entry created, pending approval.\n\n" + h.formatRecord(record))
}

// approve: /approve <user> <date> [entry=HH:MM] [exit=HH:MM] [break=45m] [abono=1h0m] [note...]
func (h *Handler) approve(ctx context.Context, admin *models.User, args []string) Reply {
	if len(args) < 2 {
		return textReply("❌ Usage: /approve <user> <YYYY-MM-DD> [entry=HH:MM] [exit=HH:MM] [break=45m] [abono=1h0m] [note]")
	}

	userID, err := parseUserID(args[0])
	if err != nil {
		return textReply("❌ " + err.Error())
	}
	day, err := h.parseDate(args[1])
	if err != nil {
		return textReply("❌ " + err.Error())
	}

	opts, note := splitOptions(args[2:])
	overrides, err := h.overridesFrom(day, opts)
	if err != nil {
		return textReply("❌ " + err.Error())
	}
	overrides.AdminNote = note

	record, err := h.services.Clock.ApproveJustification(ctx, userID, day.Format(models.DateLayout), overrides)
	if err != nil {
		return h.errorReply(admin, "approve", err)
	}

	h.audit(admin, "approve", userID, record.Date)
	return textReply("✅ Justification approved.\n\n" + h.formatRecord(record))
}

// reject: /reject <user> <date> [note...]
func (h *Handler) reject(ctx context.Context, admin *models.User, args []string) Reply {
	if len(args) < 2 {
		return textReply("❌ Usage: /reject <user> <YYYY-MM-DD> [note]")
	}

	userID, err := parseUserID(args[0])
	if err != nil {
		return textReply("❌ " + err.Error())
	}
	day, err := h.parseDate(args[1])
	if err != nil {
		return textReply("❌ " + err.Error())
	}

	record, err := h.services.Clock.RejectJustification(ctx, userID, day.Format(models.DateLayout), strings.Join(args[2:], " "))
	if err != nil {
		return h.errorReply(admin, "reject", err)
	}

	h.audit(admin, "reject", userID, record.Date)
	return textReply("🚫 Justification rejected.\n\n" + h.formatRecord(record))
}

// goal: /goal <user> <YYYY-MM> <minutes|XhYm> [note...]
func (h *Handler) goal(ctx context.Context, admin *models.User, args []string) Reply {
	if len(args) < 3 {
		return textReply("❌ Usage: /goal <user> <YYYY-MM> <minutes|XhYm> [note]")
	}

	userID, err := parseUserID(args[0])
	if err != nil {
		return textReply("❌ " + err.Error())
	}
	year, month, err := parseMonth(args[1])
	if err != nil {
		return textReply("❌ " + err.Error())
	}
	minutes, err := parseMinutesArg(args[2])
	if err != nil {
		return textReply("❌ " + err.Error())
	}

	override, err := h.services.Goals.SetGoalOverride(ctx, userID, year, month, minutes, strings.Join(args[3:], " "))
	if err != nil {
		return h.errorReply(admin, "goal", err)
	}

	h.audit(admin, "goal", userID, models.MonthKey(year, month))
	return textReply(fmt.Sprintf("🎯 Goal for user %d in %04d-%02d set to %s.",
		override.UserID, override.Year, override.Month, duration.FormatMinutes(override.ExpectedMinutes)))
}

// holiday: /holiday <date> [description...]
func (h *Handler) holiday(ctx context.Context, admin *models.User, args []string) Reply {
	if len(args) < 1 {
		return textReply("❌ Usage: /holiday <YYYY-MM-DD> [description]")
	}

	day, err := h.parseDate(args[0])
	if err != nil {
		return textReply("❌ " + err.Error())
	}

	date, err := h.services.Dates.AddSpecialDate(ctx, day, strings.Join(args[1:], " "), nil)
	if err != nil {
		return h.errorReply(admin, "holiday", err)
	}

	return textReply(fmt.Sprintf("🎉 %s added as a holiday for everyone.", date.Date))
}

// closeMonth: /closemonth [YYYY-MM]. Without an argument the previous month is closed.
func (h *Handler) closeMonth(ctx context.Context, admin *models.User, args []string) Reply {
	var year, month int
	if len(args) == 0 {
		prev := h.now().In(h.loc).AddDate(0, -1, 0)
		year, month = prev.Year(), int(prev.Month())
	} else {
		var err error
		if year, month, err = parseMonth(args[0]); err != nil {
			return textReply("❌ " + err.Error())
		}
	}

	batch, err := h.services.Bank.CloseMonthForAllUsers(ctx, year, month)
	if err != nil {
		return h.errorReply(admin, "close_month", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🏦 Month %04d-%02d closed: %d ok, %d failed", year, month, batch.Succeeded, batch.Failed)
	for _, r := range batch.Results {
		if r.Err != nil {
			fmt.Fprintf(&b, "\n❌ user %d: %v", r.UserID, r.Err)
			continue
		}
		fmt.Fprintf(&b, "\n✅ user %d: %s (bank %s)", r.UserID, r.Result.Entry.Saldo, duration.FormatMinutes(r.Result.AccumulatedAfter))
	}
	return textReply(b.String())
}

func (h *Handler) users(ctx context.Context, admin *models.User) Reply {
	list, err := h.services.Users.FormatAllUsers(ctx)
	if err != nil {
		return h.errorReply(admin, "users", err)
	}
	return textReply(list)
}

func (h *Handler) audit(admin *models.User, action string, userID uint, date string) {
	h.logger.WithFields(logrus.Fields{
		"admin_id": admin.ID,
		"action":   action,
		"user_id":  userID,
		"date":     date,
	}).Info("Admin action")
}
