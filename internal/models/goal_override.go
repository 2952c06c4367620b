package models

import "time"

// MonthlyGoalOverride replaces the default "workdays x daily goal" meta of one user/month.
type MonthlyGoalOverride struct {
	ID              uint      `gorm:"primarykey" json:"id"`
	UserID          uint      `gorm:"not null;uniqueIndex:idx_goal_user_month" json:"user_id"`
	Year            int       `gorm:"not null;uniqueIndex:idx_goal_user_month" json:"year"`
	Month           int       `gorm:"not null;check:month >= 1 AND month <= 12;uniqueIndex:idx_goal_user_month" json:"month"`
	ExpectedMinutes int       `gorm:"not null;default:0" json:"expected_minutes"`
	Note            string    `json:"note"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (MonthlyGoalOverride) TableName() string {
	return "monthly_goal_overrides"
}

// IsValid checks ranges before the override is stored.
func (o *MonthlyGoalOverride) IsValid() bool {
	if o.UserID == 0 {
		return false
	}
	if o.Year < 2000 || o.Year > 2100 {
		return false
	}
	if o.Month < 1 || o.Month > 12 {
		return false
	}
	// 31 days * 24h
	if o.ExpectedMinutes < 0 || o.ExpectedMinutes > 44640 {
		return false
	}
	return true
}
