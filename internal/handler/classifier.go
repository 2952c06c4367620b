package handler

import (
	"strings"

	"timebank/internal/models"
)

type Intent string

const (
	IntentUnknown Intent = ""
	IntentStart   Intent = "start"
	IntentHelp    Intent = "help"

	IntentClockIn    Intent = "clock_in"
	IntentStartBreak Intent = "start_break"
	IntentEndBreak   Intent = "end_break"
	IntentClockOut   Intent = "clock_out"
	IntentToday      Intent = "today"
	IntentHistory    Intent = "history"
	IntentSummary    Intent = "summary"
	IntentBalance    Intent = "balance"
	IntentJustify    Intent = "justify"

	IntentManual     Intent = "manual"
	IntentApprove    Intent = "approve"
	IntentReject     Intent = "reject"
	IntentGoal       Intent = "goal"
	IntentHoliday    Intent = "holiday"
	IntentCloseMonth Intent = "close_month"
	IntentUsers      Intent = "users"
)

// ClockEvent maps the intents that drive the clock state machine.
func (i Intent) ClockEvent() (models.EventType, bool) {
	switch i {
	case IntentClockIn:
		return models.EventClockIn, true
	case IntentStartBreak:
		return models.EventStartBreak, true
	case IntentEndBreak:
		return models.EventEndBreak, true
	case IntentClockOut:
		return models.EventClockOut, true
	}
	return "", false
}

// AdminOnly reports whether the intent needs the admin role.
func (i Intent) AdminOnly() bool {
	switch i {
	case IntentManual, IntentApprove, IntentReject, IntentGoal, IntentHoliday, IntentCloseMonth, IntentUsers:
		return true
	}
	return false
}

// Command is a classified message.
type Command struct {
	Intent Intent
	Args   []string
}

// EventClassifier turns a chat message into a Command. ok=false means the message
// could not be classified.
type EventClassifier interface {
	Classify(text string) (Command, bool)
}

var defaultAliases = map[string]Intent{
	"start":      IntentStart,
	"help":       IntentHelp,
	"in":         IntentClockIn,
	"entrada":    IntentClockIn,
	"startwork":  IntentClockIn,
	"break":      IntentStartBreak,
	"pausa":      IntentStartBreak,
	"back":       IntentEndBreak,
	"volta":      IntentEndBreak,
	"out":        IntentClockOut,
	"saida":      IntentClockOut,
	"endwork":    IntentClockOut,
	"today":      IntentToday,
	"status":     IntentToday,
	"history":    IntentHistory,
	"summary":    IntentSummary,
	"mystats":    IntentSummary,
	"balance":    IntentBalance,
	"banco":      IntentBalance,
	"justify":    IntentJustify,
	"manual":     IntentManual,
	"approve":    IntentApprove,
	"reject":     IntentReject,
	"goal":       IntentGoal,
	"holiday":    IntentHoliday,
	"closemonth": IntentCloseMonth,
	"users":      IntentUsers,
	"allusers":   IntentUsers,
}

// CommandClassifier understands slash commands only.
type CommandClassifier struct {
	aliases map[string]Intent
}

func NewCommandClassifier() *CommandClassifier {
	return &CommandClassifier{aliases: defaultAliases}
}

func (c *CommandClassifier) Classify(text string) (Command, bool) {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return Command{}, false
	}

	name := strings.ToLower(strings.TrimPrefix(fields[0], "/"))
	// "/in@my_bot" in group chats
	if at := strings.IndexByte(name, '@'); at >= 0 {
		name = name[:at]
	}

	intent, ok := c.aliases[name]
	if !ok {
		return Command{}, false
	}
	return Command{Intent: intent, Args: fields[1:]}, true
}
