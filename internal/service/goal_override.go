package service

import (
	"context"
	"errors"

	"timebank/internal/logging"
	"timebank/internal/models"
	"timebank/internal/repository"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type GoalOverrideService struct {
	repo   repository.GoalOverrideRepository
	logger *logrus.Logger
}

func NewGoalOverrideService(repo repository.GoalOverrideRepository) *GoalOverrideService {
	return &GoalOverrideService{
		repo:   repo,
		logger: logging.New(),
	}
}

// SetGoalOverride replaces the default meta of the user for one month.
func (s *GoalOverrideService) SetGoalOverride(ctx context.Context, userID uint, year, month, expectedMinutes int, note string) (*models.MonthlyGoalOverride, error) {
	s.logger.WithFields(logrus.Fields{
		"user_id":          userID,
		"year":             year,
		"month":            month,
		"expected_minutes": expectedMinutes,
	}).Info("Setting monthly goal override")

	override := &models.MonthlyGoalOverride{
		UserID:          userID,
		Year:            year,
		Month:           month,
		ExpectedMinutes: expectedMinutes,
		Note:            note,
	}

	if !override.IsValid() {
		s.logger.Warn("Invalid goal override data provided")
		return nil, invalidInput("year 2000-2100, month 1-12, minutes 0-44640")
	}

	if err := s.repo.Upsert(ctx, override); err != nil {
		s.logger.WithError(err).Error("Failed to store goal override")
		return nil, storageError("store goal override", err)
	}

	return s.GetGoalOverride(ctx, userID, year, month)
}

func (s *GoalOverrideService) GetGoalOverride(ctx context.Context, userID uint, year, month int) (*models.MonthlyGoalOverride, error) {
	override, err := s.repo.GetByUserAndMonth(ctx, userID, year, month)
	if err != nil {
		return nil, storageError("load goal override", err)
	}
	if override == nil {
		return nil, ErrRecordNotFound
	}
	return override, nil
}

func (s *GoalOverrideService) ListForUser(ctx context.Context, userID uint) ([]*models.MonthlyGoalOverride, error) {
	overrides, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, storageError("list goal overrides", err)
	}
	return overrides, nil
}

func (s *GoalOverrideService) DeleteGoalOverride(ctx context.Context, userID uint, year, month int) error {
	err := s.repo.Delete(ctx, userID, year, month)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrRecordNotFound
	}
	if err != nil {
		return storageError("delete goal override", err)
	}

	s.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"year":    year,
		"month":   month,
	}).Info("Monthly goal override deleted")
	return nil
}
