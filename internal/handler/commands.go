package handler

import (
	"context"
	"fmt"

	"timebank/internal/models"

	"github.com/sirupsen/logrus"
)

const helpText = `📖 Commands:

⏰ Time clock
/in - start the working day
/break - start a break
/back - end the break
/out - finish the working day
/today - today's record
/history [n] - last days

📊 Balance
/summary [YYYY-MM] - monthly summary
/balance [YYYY-MM] - banked hours

📝 Corrections
/justify <date> <reason> [entry=HH:MM] [exit=HH:MM] [break=45m]

👑 Admin
/manual <user> <date> <HH:MM> <HH:MM> [break] [reason]
/approve <user> <date> [entry=HH:MM] [exit=HH:MM] [break=45m] [abono=1h0m]
/reject <user> <date> [note]
/goal <user> <YYYY-MM> <minutes|XhYm>
/holiday <date> [description]
/closemonth [YYYY-MM]
/users - all users`

func (h *Handler) dispatch(ctx context.Context, user *models.User, cmd Command) Reply {
	h.logger.WithFields(logrus.Fields{
		"user_id": user.ID,
		"intent":  cmd.Intent,
	}).Debug("Dispatching command")

	if event, ok := cmd.Intent.ClockEvent(); ok {
		return h.clockEvent(ctx, user, event)
	}

	switch cmd.Intent {
	case IntentToday:
		return h.today(ctx, user)
	case IntentHistory:
		return h.history(ctx, user, cmd.Args)
	case IntentJustify:
		return h.justify(ctx, user, cmd.Args)
	case IntentSummary:
		return h.summary(ctx, user, cmd.Args)
	case IntentBalance:
		return h.balance(ctx, user, cmd.Args)
	case IntentManual:
		return h.manual(ctx, user, cmd.Args)
	case IntentApprove:
		return h.approve(ctx, user, cmd.Args)
	case IntentReject:
		return h.reject(ctx, user, cmd.Args)
	case IntentGoal:
		return h.goal(ctx, user, cmd.Args)
	case IntentHoliday:
		return h.holiday(ctx, user, cmd.Args)
	case IntentCloseMonth:
		return h.closeMonth(ctx, user, cmd.Args)
	case IntentUsers:
		return h.users(ctx, user)
	}

	return textReply("🤔 Unknown command. Use /help to see what I can do.")
}

func (h *Handler) start(ctx context.Context, from From) Reply {
	user, err := h.services.Users.RegisterUser(ctx, from.ChatID, from.Username, from.FirstName, from.LastName)
	if err != nil {
		h.logger.WithError(err).WithField("chat_id", from.ChatID).Error("Failed to register user")
		return textReply("❌ Registration failed: " + err.Error())
	}

	return textReply(fmt.Sprintf("👋 Hi, %s!\n\n🆔 Your user id: %d\n\nUse /in to start your day and /help for every command.",
		user.FullName(), user.ID))
}
