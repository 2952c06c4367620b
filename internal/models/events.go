package models

// EventType is an already-classified clock event coming from a front end.
type EventType string

const (
	EventClockIn       EventType = "clock_in"
	EventStartBreak    EventType = "start_break"
	EventEndBreak      EventType = "end_break"
	EventClockOut      EventType = "clock_out"
	EventManualCreate  EventType = "manual_create"
	EventJustification EventType = "justification_approved"
)

const (
	EventJustificationSubmitted EventType = "justification_submitted"
	EventJustificationRejected  EventType = "justification_rejected"
)
