package service

import (
	"context"
	"time"

	"timebank/internal/logging"
	"timebank/internal/models"
	"timebank/internal/repository"
	"timebank/pkg/duration"

	"github.com/sirupsen/logrus"
)

const DefaultDailyGoalMinutes = 8 * 60

type DayType string

const (
	DayWeekday         DayType = "weekday"
	DaySaturday        DayType = "saturday"
	DaySundayOrHoliday DayType = "sunday_or_holiday"
)

// ClassifyDay buckets a calendar date. holidays holds DateLayout keys.
func ClassifyDay(day time.Time, holidays map[string]bool) DayType {
	if day.Weekday() == time.Sunday || holidays[day.Format(models.DateLayout)] {
		return DaySundayOrHoliday
	}
	if day.Weekday() == time.Saturday {
		return DaySaturday
	}
	return DayWeekday
}

// CountWorkdays counts Monday to Friday dates of the month that are not holidays.
func CountWorkdays(year, month int, holidays map[string]bool) int {
	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	count := 0
	for day := first; day.Month() == first.Month(); day = day.AddDate(0, 0, 1) {
		if ClassifyDay(day, holidays) == DayWeekday {
			count++
		}
	}
	return count
}

type MonthlySummary struct {
	UserID uint `json:"user_id"`
	Year   int  `json:"year"`
	Month  int  `json:"month"`

	Workdays       int  `json:"workdays"`
	DaysWorked     int  `json:"days_worked"`
	GoalOverridden bool `json:"goal_overridden"`

	TotalMinutes         int `json:"total_minutes"`
	MetaMinutes          int `json:"meta_minutes"`
	SaldoMinutes         int `json:"saldo_minutes"`
	WeekdayMinutes       int `json:"weekday_minutes"`
	SaturdayMinutes      int `json:"saturday_minutes"`
	SundayHolidayMinutes int `json:"sunday_holiday_minutes"`
	CreditedMinutes      int `json:"credited_minutes"`

	PendingJustifications  int `json:"pending_justifications"`
	ApprovedJustifications int `json:"approved_justifications"`

	Total         string `json:"total"`
	Meta          string `json:"meta"`
	Saldo         string `json:"saldo"`
	Weekday       string `json:"weekday"`
	Saturday      string `json:"saturday"`
	SundayHoliday string `json:"sunday_holiday"`
	Credited      string `json:"credited"`
}

func (m *MonthlySummary) format() {
	m.Total = duration.FormatMinutes(m.TotalMinutes)
	m.Meta = duration.FormatMinutes(m.MetaMinutes)
	m.Saldo = duration.FormatMinutes(m.SaldoMinutes)
	m.Weekday = duration.FormatMinutes(m.WeekdayMinutes)
	m.Saturday = duration.FormatMinutes(m.SaturdayMinutes)
	m.SundayHoliday = duration.FormatMinutes(m.SundayHolidayMinutes)
	m.Credited = duration.FormatMinutes(m.CreditedMinutes)
}

// SummaryService aggregates the ClockRecords of one user and month against the goal.
type SummaryService struct {
	records          repository.ClockRecordRepository
	specialDates     repository.SpecialDateRepository
	goals            repository.GoalOverrideRepository
	dailyGoalMinutes int
	logger           *logrus.Logger
}

func NewSummaryService(
	records repository.ClockRecordRepository,
	specialDates repository.SpecialDateRepository,
	goals repository.GoalOverrideRepository,
	dailyGoalMinutes int,
) *SummaryService {
	if dailyGoalMinutes <= 0 {
		dailyGoalMinutes = DefaultDailyGoalMinutes
	}

	return &SummaryService{
		records:          records,
		specialDates:     specialDates,
		goals:            goals,
		dailyGoalMinutes: dailyGoalMinutes,
		logger:           logging.New(),
	}
}

// countsTowardTotals drops manual days whose justification was rejected. Every other
// day counts with its stored totals, pending or not.
func countsTowardTotals(r *models.ClockRecord) bool {
	if r.Manual && r.HasJustification() && r.Justification.IsRejected() {
		return false
	}
	return true
}

// holidaysFor returns the special dates of the month that apply to userID.
func (s *SummaryService) holidaysFor(ctx context.Context, userID uint, year, month int) (map[string]bool, error) {
	dates, err := s.specialDates.GetByYearMonth(ctx, year, month)
	if err != nil {
		return nil, err
	}

	holidays := make(map[string]bool, len(dates))
	for _, d := range dates {
		if d.AppliesTo(userID) {
			holidays[d.Date] = true
		}
	}
	return holidays, nil
}

func (s *SummaryService) MonthlySummary(ctx context.Context, userID uint, year, month int) (*MonthlySummary, error) {
	if userID == 0 {
		return nil, invalidInput("user is required")
	}
	if month < 1 || month > 12 || year < 1 {
		return nil, invalidInput("invalid month %d-%d", year, month)
	}

	fields := logrus.Fields{
		"user_id": userID,
		"year":    year,
		"month":   month,
	}

	holidays, err := s.holidaysFor(ctx, userID, year, month)
	if err != nil {
		s.logger.WithError(err).WithFields(fields).Error("Failed to load special dates")
		return nil, storageError("load special dates", err)
	}

	records, err := s.records.GetByUserIDAndMonth(ctx, userID, year, month)
	if err != nil {
		s.logger.WithError(err).WithFields(fields).Error("Failed to load clock records")
		return nil, storageError("load records", err)
	}

	summary := &MonthlySummary{
		UserID:   userID,
		Year:     year,
		Month:    month,
		Workdays: CountWorkdays(year, month, holidays),
	}

	for _, r := range records {
		if r.HasJustification() {
			switch {
			case r.Justification.IsPending():
				summary.PendingJustifications++
			case r.Justification.IsApproved():
				summary.ApprovedJustifications++
				if r.Justification.AbonoHoras != nil {
					summary.CreditedMinutes += duration.ParseMinutes(*r.Justification.AbonoHoras)
				}
			}
		}

		if !countsTowardTotals(r) {
			continue
		}

		day, err := time.Parse(models.DateLayout, r.Date)
		if err != nil {
			s.logger.WithFields(logrus.Fields{
				"id":   r.ID,
				"date": r.Date,
			}).Warn("Skipping clock record with malformed date")
			continue
		}

		worked := r.WorkedMinutes()
		if worked > 0 {
			summary.DaysWorked++
		}
		summary.TotalMinutes += worked

		switch ClassifyDay(day, holidays) {
		case DaySundayOrHoliday:
			summary.SundayHolidayMinutes += worked
		case DaySaturday:
			summary.SaturdayMinutes += worked
		default:
			summary.WeekdayMinutes += worked
		}
	}

	override, err := s.goals.GetByUserAndMonth(ctx, userID, year, month)
	if err != nil {
		s.logger.WithError(err).WithFields(fields).Error("Failed to load goal override")
		return nil, storageError("load goal override", err)
	}

	summary.MetaMinutes = summary.Workdays * s.dailyGoalMinutes
	if override != nil {
		summary.MetaMinutes = override.ExpectedMinutes
		summary.GoalOverridden = true
	}

	summary.SaldoMinutes = summary.TotalMinutes - summary.MetaMinutes
	summary.format()

	s.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"year":    year,
		"month":   month,
		"total":   summary.Total,
		"meta":    summary.Meta,
		"saldo":   summary.Saldo,
	}).Debug("Monthly summary computed")

	return summary, nil
}
