// Package notify delivers record-updated events to external observers after a
// mutation has been committed.
package notify

import (
	"context"
	"encoding/json"
	"time"

	"timebank/internal/models"

	"github.com/google/uuid"
)

const TypeRecordUpdated = "record_updated"

type Event struct {
	ID         uuid.UUID          `json:"id"`
	Type       string             `json:"type"`
	Action     models.EventType   `json:"action"`
	UserID     uint               `json:"user_id"`
	Date       string             `json:"date"`
	Record     models.ClockRecord `json:"record"`
	OccurredAt time.Time          `json:"occurred_at"`
}

func NewRecordUpdated(action models.EventType, record models.ClockRecord) Event {
	return Event{
		ID:         uuid.New(),
		Type:       TypeRecordUpdated,
		Action:     action,
		UserID:     record.UserID,
		Date:       record.Date,
		Record:     record,
		OccurredAt: time.Now().UTC(),
	}
}

func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// Sink is one destination of events.
type Sink interface {
	Name() string
	Send(ctx context.Context, event Event) error
}
