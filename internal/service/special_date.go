package service

import (
	"context"
	"strings"
	"time"

	"timebank/internal/logging"
	"timebank/internal/models"
	"timebank/internal/repository"
	"timebank/pkg/holidays"

	"github.com/sirupsen/logrus"
)

type SpecialDateService struct {
	repo   repository.SpecialDateRepository
	logger *logrus.Logger
}

func NewSpecialDateService(repo repository.SpecialDateRepository) *SpecialDateService {
	return &SpecialDateService{
		repo:   repo,
		logger: logging.New(),
	}
}

// AddSpecialDate marks date as a holiday for scope, or for everyone when scope is empty.
func (s *SpecialDateService) AddSpecialDate(ctx context.Context, date time.Time, description string, scope []uint) (*models.SpecialDate, error) {
	if date.IsZero() {
		return nil, invalidInput("date is required")
	}

	day := models.NewSpecialDate(date, strings.TrimSpace(description), scope)
	if err := s.repo.Create(ctx, &day); err != nil {
		s.logger.WithError(err).WithField("date", day.Date).Error("Failed to create special date")
		return nil, storageError("create special date", err)
	}

	s.logger.WithFields(logrus.Fields{
		"date":  day.Date,
		"scope": len(scope),
	}).Info("Special date added")

	return &day, nil
}

// LoadFromJSON replaces every stored special date with the calendar file content.
func (s *SpecialDateService) LoadFromJSON(ctx context.Context, filePath string) (int, error) {
	parsed, err := holidays.ParseFile(filePath)
	if err != nil {
		return 0, invalidInput("%v", err)
	}

	days := make([]models.SpecialDate, 0, len(parsed))
	for _, h := range parsed {
		days = append(days, models.NewSpecialDate(h.Date, h.Description, h.Scope))
	}

	if err := s.repo.DeleteAll(ctx); err != nil {
		s.logger.WithError(err).Warn("Failed to delete old special dates")
	}

	if err := s.repo.BulkCreate(ctx, days); err != nil {
		s.logger.WithError(err).Error("Failed to store special dates")
		return 0, storageError("store special dates", err)
	}

	s.logger.WithFields(logrus.Fields{
		"file":  filePath,
		"count": len(days),
	}).Info("Special dates loaded")

	return len(days), nil
}

func (s *SpecialDateService) ListForMonth(ctx context.Context, year, month int) ([]models.SpecialDate, error) {
	days, err := s.repo.GetByYearMonth(ctx, year, month)
	if err != nil {
		return nil, storageError("list special dates", err)
	}
	return days, nil
}

func (s *SpecialDateService) ListAll(ctx context.Context) ([]models.SpecialDate, error) {
	days, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, storageError("list special dates", err)
	}
	return days, nil
}

// IsHolidayFor reports whether any special date on date applies to userID.
func (s *SpecialDateService) IsHolidayFor(ctx context.Context, userID uint, date time.Time) (bool, error) {
	days, err := s.repo.GetByDate(ctx, date)
	if err != nil {
		return false, storageError("load special dates", err)
	}

	for _, d := range days {
		if d.AppliesTo(userID) {
			return true, nil
		}
	}
	return false, nil
}

func (s *SpecialDateService) Delete(ctx context.Context, id uint) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return storageError("delete special date", err)
	}
	return nil
}
