package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// UserScope lists the users a SpecialDate applies to. Empty means everyone.
type UserScope []uint

func (s UserScope) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	data, err := json.Marshal([]uint(s))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (s *UserScope) Scan(src interface{}) error {
	data, err := jsonBytes(src)
	if err != nil || data == nil {
		*s = nil
		return err
	}
	return json.Unmarshal(data, (*[]uint)(s))
}

// SpecialDate marks a holiday, optionally only for some users.
type SpecialDate struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Date        string    `gorm:"type:varchar(10);not null;index" json:"date"`
	Year        int       `gorm:"index" json:"year"`
	Month       int       `gorm:"index" json:"month"`
	Day         int       `json:"day"`
	Description string    `json:"description"`
	Scope       UserScope `gorm:"type:text" json:"scope"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (SpecialDate) TableName() string {
	return "special_dates"
}

// AppliesTo reports whether the date is a holiday for userID.
func (d SpecialDate) AppliesTo(userID uint) bool {
	if len(d.Scope) == 0 {
		return true
	}
	for _, id := range d.Scope {
		if id == userID {
			return true
		}
	}
	return false
}

// NewSpecialDate fills the denormalized year/month/day columns from date.
func NewSpecialDate(date time.Time, description string, scope []uint) SpecialDate {
	return SpecialDate{
		Date:        date.Format(DateLayout),
		Year:        date.Year(),
		Month:       int(date.Month()),
		Day:         date.Day(),
		Description: description,
		Scope:       scope,
	}
}
