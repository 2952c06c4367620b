package handler

import (
	"context"
	"errors"
	"time"

	"timebank/internal/logging"
	"timebank/internal/models"
	"timebank/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// Sender is satisfied by *telegram.Client.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Services struct {
	Users     *service.UserService
	Clock     *service.ClockService
	Summaries *service.SummaryService
	Bank      *service.BankedHoursService
	Goals     *service.GoalOverrideService
	Dates     *service.SpecialDateService
}

// From identifies who wrote a message.
type From struct {
	ChatID    int64
	Username  string
	FirstName string
	LastName  string
}

type Handler struct {
	sender     Sender
	classifier EventClassifier
	services   Services
	loc        *time.Location
	now        func() time.Time
	logger     *logrus.Logger
}

func NewHandler(sender Sender, classifier EventClassifier, services Services, loc *time.Location) *Handler {
	if classifier == nil {
		classifier = NewCommandClassifier()
	}
	if loc == nil {
		loc = time.UTC
	}

	return &Handler{
		sender:     sender,
		classifier: classifier,
		services:   services,
		loc:        loc,
		now:        time.Now,
		logger:     logging.New(),
	}
}

func (h *Handler) HandleUpdates(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}

			if update.CallbackQuery != nil {
				h.handleCallbackQuery(ctx, update.CallbackQuery)
				continue
			}

			if update.Message == nil || update.Message.From == nil {
				continue
			}

			h.handleMessage(ctx, update.Message)
		}
	}
}

// handleCallbackQuery serves the inline buttons attached to clock replies.
func (h *Handler) handleCallbackQuery(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	if callback.Message == nil {
		return
	}
	chatID := callback.Message.Chat.ID

	editMsg := tgbotapi.NewEditMessageReplyMarkup(chatID, callback.Message.MessageID, tgbotapi.NewInlineKeyboardMarkup())
	h.send(editMsg)

	command := ""
	switch callback.Data {
	case callbackClockIn:
		command = "/in"
	case callbackStartBreak:
		command = "/break"
	case callbackEndBreak:
		command = "/back"
	case callbackClockOut:
		command = "/out"
	}

	if command != "" {
		from := From{ChatID: chatID}
		if callback.From != nil {
			from.Username = callback.From.UserName
			from.FirstName = callback.From.FirstName
			from.LastName = callback.From.LastName
		}
		h.reply(chatID, h.Respond(ctx, from, command))
	}

	h.send(tgbotapi.NewCallback(callback.ID, ""))
}

func (h *Handler) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	h.logger.WithFields(logrus.Fields{
		"chat_id":  message.Chat.ID,
		"username": message.From.UserName,
	}).Infof("Message: %s", message.Text)

	from := From{
		ChatID:    message.Chat.ID,
		Username:  message.From.UserName,
		FirstName: message.From.FirstName,
		LastName:  message.From.LastName,
	}

	h.reply(message.Chat.ID, h.Respond(ctx, from, message.Text))
}

// Reply is the answer to one message. Buttons is optional.
type Reply struct {
	Text    string
	Buttons *tgbotapi.InlineKeyboardMarkup
}

func textReply(s string) Reply {
	return Reply{Text: s}
}

// Respond classifies text, runs it against the services and returns the reply.
func (h *Handler) Respond(ctx context.Context, from From, message string) Reply {
	cmd, ok := h.classifier.Classify(message)
	if !ok {
		return textReply("🤔 Unknown command. Use /help to see what I can do.")
	}

	if cmd.Intent == IntentStart {
		return h.start(ctx, from)
	}
	if cmd.Intent == IntentHelp {
		return textReply(helpText)
	}

	user, err := h.services.Users.ResolveByChatID(ctx, from.ChatID)
	if errors.Is(err, service.ErrRecordNotFound) {
		return textReply("❌ Profile not found.\nUse /start to register.")
	}
	if err != nil {
		h.logger.WithError(err).WithField("chat_id", from.ChatID).Error("Failed to resolve user")
		return textReply("❌ Failed to load your profile, try again later.")
	}

	if cmd.Intent.AdminOnly() && !user.IsAdmin() {
		return textReply("❌ This command is for administrators only.")
	}

	return h.dispatch(ctx, user, cmd)
}

func (h *Handler) reply(chatID int64, r Reply) {
	msg := tgbotapi.NewMessage(chatID, r.Text)
	if r.Buttons != nil {
		msg.ReplyMarkup = *r.Buttons
	}
	h.send(msg)
}

func (h *Handler) send(c tgbotapi.Chattable) {
	if h.sender == nil {
		return
	}
	if _, err := h.sender.Send(c); err != nil {
		h.logger.WithError(err).Warn("Failed to send telegram message")
	}
}

// errorText maps engine errors to replies. Rejections carry their own message.
func (h *Handler) errorReply(user *models.User, action string, err error) Reply {
	switch {
	case errors.Is(err, service.ErrInvalidStateTransition):
		return textReply("⚠️ Not allowed right now: " + err.Error())
	case errors.Is(err, service.ErrInvalidInput):
		return textReply("❌ " + err.Error())
	case errors.Is(err, service.ErrRecordNotFound):
		return textReply("❌ Nothing found for that day.")
	}

	h.logger.WithError(err).WithFields(logrus.Fields{
		"user_id": user.ID,
		"action":  action,
	}).Error("Command failed")
	return textReply("❌ Something went wrong, try again later.")
}

func isNotFound(err error) bool {
	return errors.Is(err, service.ErrRecordNotFound)
}
