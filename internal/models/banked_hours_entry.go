package models

import (
	"fmt"
	"time"
)

// BankedHoursEntry is the closed saldo of one user for one month. The accumulated
// balance is derived from these rows and never stored on them.
type BankedHoursEntry struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	UserID       uint      `gorm:"not null;uniqueIndex:idx_bank_user_month" json:"user_id"`
	YearMonth    string    `gorm:"type:varchar(7);not null;uniqueIndex:idx_bank_user_month" json:"year_month"`
	Year         int       `gorm:"not null" json:"year"`
	Month        int       `gorm:"not null;check:month >= 1 AND month <= 12" json:"month"`
	SaldoMinutes int       `gorm:"not null;default:0" json:"saldo_minutes"`
	Saldo        string    `gorm:"type:varchar(16);not null" json:"saldo"`
	ClosedAt     time.Time `gorm:"not null" json:"closed_at"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (BankedHoursEntry) TableName() string {
	return "banked_hours_entries"
}

// MonthKey formats the "{year}-{month:02d}" key used for ordering and lookups.
func MonthKey(year, month int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}

func (e *BankedHoursEntry) IsValid() bool {
	if e.UserID == 0 {
		return false
	}
	if e.Month < 1 || e.Month > 12 {
		return false
	}
	return e.YearMonth == MonthKey(e.Year, e.Month)
}
