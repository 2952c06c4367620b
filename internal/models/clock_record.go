package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"timebank/pkg/duration"
)

// DateLayout is the storage format of ClockRecord.Date and SpecialDate.Date.
const DateLayout = "2006-01-02"

// PauseInterval is one break of a ClockRecord; Fim is nil while the break is open.
type PauseInterval = duration.Pause

// PauseList is stored as a JSON document column.
type PauseList []PauseInterval

func (p PauseList) Value() (driver.Value, error) {
	if p == nil {
		return "[]", nil
	}
	data, err := json.Marshal([]PauseInterval(p))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (p *PauseList) Scan(src interface{}) error {
	data, err := jsonBytes(src)
	if err != nil || data == nil {
		*p = nil
		return err
	}
	return json.Unmarshal(data, (*[]PauseInterval)(p))
}

// Open returns the index of the open pause, or -1.
func (p PauseList) Open() int {
	for i := len(p) - 1; i >= 0; i-- {
		if p[i].IsOpen() {
			return i
		}
	}
	return -1
}

// ClockState is the derived state of a daily record.
type ClockState string

const (
	StateAbsent      ClockState = "absent"
	StateOpenWorking ClockState = "open_working"
	StateOpenBreak   ClockState = "open_break"
	StateClosed      ClockState = "closed"
)

// ClockRecord is the daily time-tracking document of one user.
type ClockRecord struct {
	ID     string `gorm:"primaryKey;size:64" json:"id"`
	UserID uint   `gorm:"not null;uniqueIndex:idx_clock_user_date" json:"user_id"`
	Date   string `gorm:"type:varchar(10);not null;uniqueIndex:idx_clock_user_date;index" json:"date"`

	Entrada *time.Time `json:"entrada"`
	Saida   *time.Time `json:"saida"`
	Pausas  PauseList  `gorm:"type:text" json:"pausas"`

	// Derived, always in duration.FormatMinutes form
	TotalHoras  string `gorm:"type:varchar(16);not null;default:'0h 0m'" json:"total_horas"`
	TotalPausas string `gorm:"type:varchar(16);not null;default:'0h 0m'" json:"total_pausas"`

	Manual        bool           `gorm:"not null;default:false" json:"manual"`
	Justification *Justification `gorm:"type:text" json:"justification,omitempty"`

	Version   int       `gorm:"not null;default:1" json:"version"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (ClockRecord) TableName() string {
	return "clock_records"
}

// RecordKey builds the "{user}_{date}" identifier of a ClockRecord.
func RecordKey(userID uint, date string) string {
	return fmt.Sprintf("%d_%s", userID, date)
}

// NewClockRecord returns an empty record for the user and date.
func NewClockRecord(userID uint, date string) *ClockRecord {
	return &ClockRecord{
		ID:          RecordKey(userID, date),
		UserID:      userID,
		Date:        date,
		TotalHoras:  duration.FormatMinutes(0),
		TotalPausas: duration.FormatMinutes(0),
		Version:     1,
	}
}

// State derives the state machine position from the stored fields.
func (r *ClockRecord) State() ClockState {
	switch {
	case r == nil:
		return StateAbsent
	case r.Saida != nil:
		return StateClosed
	case r.Pausas.Open() >= 0:
		return StateOpenBreak
	case r.Entrada != nil:
		return StateOpenWorking
	default:
		return StateAbsent
	}
}

// HasJustification treats a zero-valued document the same as a missing one.
func (r *ClockRecord) HasJustification() bool {
	return r.Justification != nil && r.Justification.Status != ""
}

// WorkedMinutes parses TotalHoras.
func (r *ClockRecord) WorkedMinutes() int {
	return duration.ParseMinutes(r.TotalHoras)
}

// Day parses Date in loc.
func (r *ClockRecord) Day(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout, r.Date, loc)
}

// IsValid checks the fields every stored record must carry.
func (r *ClockRecord) IsValid() bool {
	if r.UserID == 0 || r.ID != RecordKey(r.UserID, r.Date) {
		return false
	}
	if _, err := time.Parse(DateLayout, r.Date); err != nil {
		return false
	}
	open := 0
	for _, p := range r.Pausas {
		if p.IsOpen() {
			open++
		}
	}
	return open <= 1
}

func jsonBytes(src interface{}) ([]byte, error) {
	switch v := src.(type) {
	case nil:
		return nil, nil
	case []byte:
		if len(v) == 0 || string(v) == "null" {
			return nil, nil
		}
		return v, nil
	case string:
		if v == "" || v == "null" {
			return nil, nil
		}
		return []byte(v), nil
	default:
		return nil, errors.New("unsupported document column type")
	}
}

// Clone returns a deep copy safe to hand to another goroutine.
func (r *ClockRecord) Clone() ClockRecord {
	c := *r
	c.Entrada = cloneTime(r.Entrada)
	c.Saida = cloneTime(r.Saida)
	if r.Pausas != nil {
		c.Pausas = make(PauseList, len(r.Pausas))
		for i, p := range r.Pausas {
			c.Pausas[i] = PauseInterval{Inicio: cloneTime(p.Inicio), Fim: cloneTime(p.Fim)}
		}
	}
	if r.Justification != nil {
		j := *r.Justification
		j.NewEntry = cloneTime(j.NewEntry)
		j.NewExit = cloneTime(j.NewExit)
		c.Justification = &j
	}
	return c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
