package repository

import (
	"context"
	"errors"

	"timebank/internal/logging"
	"timebank/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GoalOverrideRepository interface {
	Upsert(ctx context.Context, override *models.MonthlyGoalOverride) error
	GetByUserAndMonth(ctx context.Context, userID uint, year, month int) (*models.MonthlyGoalOverride, error)
	GetByUserID(ctx context.Context, userID uint) ([]*models.MonthlyGoalOverride, error)
	Delete(ctx context.Context, userID uint, year, month int) error
}

type GormGoalOverrideRepository struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewGormGoalOverrideRepository(db *gorm.DB) (*GormGoalOverrideRepository, error) {
	logger := logging.New()

	if err := db.AutoMigrate(&models.MonthlyGoalOverride{}); err != nil {
		logger.WithError(err).Error("Failed to auto-migrate monthly_goal_overrides table")
		return nil, err
	}

	return &GormGoalOverrideRepository{
		db:     db,
		logger: logger,
	}, nil
}

func (r *GormGoalOverrideRepository) Upsert(ctx context.Context, override *models.MonthlyGoalOverride) error {
	fields := logrus.Fields{
		"user_id":          override.UserID,
		"year":             override.Year,
		"month":            override.Month,
		"expected_minutes": override.ExpectedMinutes,
	}

	if !override.IsValid() {
		r.logger.WithFields(fields).Warn("Invalid goal override data")
		return errors.New("invalid goal override data")
	}

	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "year"}, {Name: "month"}},
		DoUpdates: clause.AssignmentColumns([]string{"expected_minutes", "note", "updated_at"}),
	}).Create(override)
	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to upsert goal override")
		return result.Error
	}

	r.logger.WithFields(fields).Info("Goal override stored")
	return nil
}

func (r *GormGoalOverrideRepository) GetByUserAndMonth(ctx context.Context, userID uint, year, month int) (*models.MonthlyGoalOverride, error) {
	var override models.MonthlyGoalOverride
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND year = ? AND month = ?", userID, year, month).
		First(&override)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to get goal override by user and month")
		return nil, result.Error
	}

	return &override, nil
}

func (r *GormGoalOverrideRepository) GetByUserID(ctx context.Context, userID uint) ([]*models.MonthlyGoalOverride, error) {
	var overrides []*models.MonthlyGoalOverride
	result := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("year ASC, month ASC").
		Find(&overrides)

	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to get goal overrides by user ID")
		return nil, result.Error
	}

	return overrides, nil
}

func (r *GormGoalOverrideRepository) Delete(ctx context.Context, userID uint, year, month int) error {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND year = ? AND month = ?", userID, year, month).
		Delete(&models.MonthlyGoalOverride{})
	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to delete goal override")
		return result.Error
	}

	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	r.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"year":    year,
		"month":   month,
	}).Info("Goal override deleted")
	return nil
}
