package handler

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"timebank/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	callbackClockIn    = "command_clock_in"
	callbackStartBreak = "command_start_break"
	callbackEndBreak   = "command_end_break"
	callbackClockOut   = "command_clock_out"

	defaultHistoryDays = 7
	maxHistoryDays     = 31
)

// nextActions offers the events valid from state.
func nextActions(state models.ClockState) *tgbotapi.InlineKeyboardMarkup {
	var row []tgbotapi.InlineKeyboardButton
	switch state {
	case models.StateAbsent:
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("▶️ Start", callbackClockIn))
	case models.StateOpenWorking:
		row = append(row,
			tgbotapi.NewInlineKeyboardButtonData("☕ Break", callbackStartBreak),
			tgbotapi.NewInlineKeyboardButtonData("⏹ Finish", callbackClockOut),
		)
	case models.StateOpenBreak:
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("↩️ Back to work", callbackEndBreak))
	default:
		return nil
	}

	markup := tgbotapi.NewInlineKeyboardMarkup(row)
	return &markup
}

var eventTitles = map[models.EventType]string{
	models.EventClockIn:    "✅ Working day started!",
	models.EventStartBreak: "☕ Break started.",
	models.EventEndBreak:   "↩️ Welcome back!",
	models.EventClockOut:   "🏁 Working day finished!",
}

func (h *Handler) clockEvent(ctx context.Context, user *models.User, event models.EventType) Reply {
	now := h.now()

	var (
		record *models.ClockRecord
		err    error
	)
	switch event {
	case models.EventClockIn:
		record, err = h.services.Clock.ClockIn(ctx, user.ID, now)
	case models.EventStartBreak:
		record, err = h.services.Clock.StartBreak(ctx, user.ID, now)
	case models.EventEndBreak:
		record, err = h.services.Clock.EndBreak(ctx, user.ID, now)
	case models.EventClockOut:
		record, err = h.services.Clock.ClockOut(ctx, user.ID, now)
	}
	if err != nil {
		return h.errorReply(user, string(event), err)
	}

	return Reply{
		Text:    eventTitles[event] + "\n\n" + h.formatRecord(record),
		Buttons: nextActions(record.State()),
	}
}

func (h *Handler) today(ctx context.Context, user *models.User) Reply {
	now := h.now()
	record, err := h.services.Clock.GetRecord(ctx, user.ID, h.services.Clock.DateOf(now))
	if err != nil {
		if reply, ok := h.missingDay(err); ok {
			return reply
		}
		return h.errorReply(user, "today", err)
	}

	return Reply{
		Text:    h.formatRecord(record),
		Buttons: nextActions(record.State()),
	}
}

func (h *Handler) history(ctx context.Context, user *models.User, args []string) Reply {
	limit := defaultHistoryDays
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return textReply("❌ Usage: /history [days]")
		}
		limit = min(n, maxHistoryDays)
	}

	records, err := h.services.Clock.History(ctx, user.ID, limit)
	if err != nil {
		return h.errorReply(user, "history", err)
	}
	if len(records) == 0 {
		return textReply("📭 No records yet.")
	}

	parts := make([]string, 0, len(records))
	for _, r := range records {
		parts = append(parts, h.formatRecord(r))
	}
	return textReply(fmt.Sprintf("🗂 Last %d days:\n\n%s", len(records), strings.Join(parts, "\n\n")))
}

// justify: /justify <date> <reason...> [entry=HH:MM] [exit=HH:MM] [break=45m]
func (h *Handler) justify(ctx context.Context, user *models.User, args []string) Reply {
	if len(args) < 2 {
		return textReply("❌ Usage: /justify <YYYY-MM-DD> <reason> [entry=HH:MM] [exit=HH:MM] [break=45m]")
	}

	day, err := h.parseDate(args[0])
	if err != nil {
		return textReply("❌ " + err.Error())
	}

	opts, reason := splitOptions(args[1:])
	overrides, err := h.overridesFrom(day, opts)
	if err != nil {
		return textReply("❌ " + err.Error())
	}
	// abono is granted by admins only
	overrides.AbonoHoras = nil

	record, err := h.services.Clock.SubmitJustification(ctx, user.ID, day.Format(models.DateLayout), reason, overrides, opts["attachment"])
	if err != nil {
		return h.errorReply(user, "justify", err)
	}

	return textReply("📝 Justification sent for review.\n\n" + h.formatRecord(record))
}

func (h *Handler) missingDay(err error) (Reply, bool) {
	if isNotFound(err) {
		return Reply{
			Text:    "⚪ Nothing recorded today yet.",
			Buttons: nextActions(models.StateAbsent),
		}, true
	}
	return Reply{}, false
}
