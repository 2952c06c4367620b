package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

type JustificationStatus string

const (
	JustificationPending  JustificationStatus = "pending"
	JustificationApproved JustificationStatus = "approved"
	JustificationRejected JustificationStatus = "rejected"
)

// Justification is a correction request attached to a ClockRecord. Only an approved
// justification changes the totals of its record.
type Justification struct {
	Reason      string              `json:"reason"`
	Status      JustificationStatus `json:"status"`
	NewEntry    *time.Time          `json:"new_entry,omitempty"`
	NewExit     *time.Time          `json:"new_exit,omitempty"`
	AbonoHoras  *string             `json:"abono_horas,omitempty"`
	ManualBreak *string             `json:"manual_break,omitempty"`
	AdminNote   string              `json:"admin_note,omitempty"`
	Attachment  string              `json:"attachment,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

func (j Justification) Value() (driver.Value, error) {
	data, err := json.Marshal(j)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (j *Justification) Scan(src interface{}) error {
	data, err := jsonBytes(src)
	if err != nil {
		return err
	}
	if data == nil {
		*j = Justification{}
		return nil
	}
	return json.Unmarshal(data, j)
}

func (j *Justification) IsPending() bool {
	return j != nil && j.Status == JustificationPending
}

func (j *Justification) IsApproved() bool {
	return j != nil && j.Status == JustificationApproved
}

func (j *Justification) IsRejected() bool {
	return j != nil && j.Status == JustificationRejected
}

// Overrides carries the optional correction values of a justification request.
type Overrides struct {
	NewEntry    *time.Time
	NewExit     *time.Time
	ManualBreak *string
	AbonoHoras  *string
	AdminNote   string
}

// Apply copies every set override onto j.
func (o Overrides) Apply(j *Justification) {
	if o.NewEntry != nil {
		j.NewEntry = o.NewEntry
	}
	if o.NewExit != nil {
		j.NewExit = o.NewExit
	}
	if o.ManualBreak != nil {
		j.ManualBreak = o.ManualBreak
	}
	if o.AbonoHoras != nil {
		j.AbonoHoras = o.AbonoHoras
	}
	if o.AdminNote != "" {
		j.AdminNote = o.AdminNote
	}
}
