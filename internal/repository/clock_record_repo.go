package repository

import (
	"context"
	"errors"
	"time"

	"timebank/internal/logging"
	"timebank/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type ClockRecordRepository interface {
	Create(ctx context.Context, record *models.ClockRecord) error
	Update(ctx context.Context, record *models.ClockRecord) error
	GetByID(ctx context.Context, id string) (*models.ClockRecord, error)
	GetByUserAndDate(ctx context.Context, userID uint, date string) (*models.ClockRecord, error)
	GetByUserID(ctx context.Context, userID uint, limit int) ([]*models.ClockRecord, error)
	GetByUserIDAndMonth(ctx context.Context, userID uint, year, month int) ([]*models.ClockRecord, error)
	DeleteByID(ctx context.Context, id string) error
}

type GormClockRecordRepository struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewGormClockRecordRepository(db *gorm.DB) (*GormClockRecordRepository, error) {
	logger := logging.New()

	if err := db.AutoMigrate(&models.ClockRecord{}); err != nil {
		logger.WithError(err).Error("Failed to auto-migrate clock_records table")
		return nil, err
	}

	logger.Debug("Clock record repository initialized")

	return &GormClockRecordRepository{
		db:     db,
		logger: logger,
	}, nil
}

func (r *GormClockRecordRepository) Create(ctx context.Context, record *models.ClockRecord) error {
	r.logger.WithFields(logrus.Fields{
		"id":      record.ID,
		"user_id": record.UserID,
		"date":    record.Date,
	}).Debug("Creating clock record")

	if !record.IsValid() {
		r.logger.WithField("id", record.ID).Warn("Invalid clock record data")
		return errors.New("invalid clock record data")
	}

	if record.Version == 0 {
		record.Version = 1
	}

	result := r.db.WithContext(ctx).Create(record)
	if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
		r.logger.WithField("id", record.ID).Warn("Clock record already exists")
		return ErrOptimisticLock
	}
	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to create clock record")
		return result.Error
	}

	return nil
}

// Update writes the record only if its stored version still matches record.Version,
// then bumps the version.
func (r *GormClockRecordRepository) Update(ctx context.Context, record *models.ClockRecord) error {
	if !record.IsValid() {
		r.logger.WithField("id", record.ID).Warn("Invalid clock record data for update")
		return errors.New("invalid clock record data")
	}

	oldVersion := record.Version
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&models.ClockRecord{}).
		Where("id = ? AND version = ?", record.ID, oldVersion).
		Updates(map[string]interface{}{
			"entrada":       record.Entrada,
			"saida":         record.Saida,
			"pausas":        record.Pausas,
			"total_horas":   record.TotalHoras,
			"total_pausas":  record.TotalPausas,
			"manual":        record.Manual,
			"justification": record.Justification,
			"version":       oldVersion + 1,
			"updated_at":    now,
		})
	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to update clock record")
		return result.Error
	}
	if result.RowsAffected == 0 {
		r.logger.WithFields(logrus.Fields{
			"id":      record.ID,
			"version": oldVersion,
		}).Warn("Clock record version conflict")
		return ErrOptimisticLock
	}

	record.Version = oldVersion + 1
	record.UpdatedAt = now
	return nil
}

func (r *GormClockRecordRepository) GetByID(ctx context.Context, id string) (*models.ClockRecord, error) {
	var record models.ClockRecord
	result := r.db.WithContext(ctx).Where("id = ?", id).First(&record)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		r.logger.WithField("id", id).Debug("Clock record not found")
		return nil, nil
	}

	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to get clock record by ID")
		return nil, result.Error
	}

	return &record, nil
}

func (r *GormClockRecordRepository) GetByUserAndDate(ctx context.Context, userID uint, date string) (*models.ClockRecord, error) {
	return r.GetByID(ctx, models.RecordKey(userID, date))
}

func (r *GormClockRecordRepository) GetByUserID(ctx context.Context, userID uint, limit int) ([]*models.ClockRecord, error) {
	var records []*models.ClockRecord

	query := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("date DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&records).Error; err != nil {
		r.logger.WithError(err).Error("Failed to get clock records by user ID")
		return nil, err
	}

	return records, nil
}

func (r *GormClockRecordRepository) GetByUserIDAndMonth(ctx context.Context, userID uint, year, month int) ([]*models.ClockRecord, error) {
	var records []*models.ClockRecord

	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	result := r.db.WithContext(ctx).
		Where("user_id = ? AND date >= ? AND date < ?",
			userID,
			start.Format(models.DateLayout),
			end.Format(models.DateLayout)).
		Order("date ASC").
		Find(&records)

	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to get clock records by user and month")
		return nil, result.Error
	}

	r.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"year":    year,
		"month":   month,
		"count":   len(records),
	}).Debug("Retrieved clock records by user and month")

	return records, nil
}

func (r *GormClockRecordRepository) DeleteByID(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.ClockRecord{})
	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to delete clock record")
		return result.Error
	}

	if result.RowsAffected == 0 {
		r.logger.WithField("id", id).Warn("Clock record not found for deletion")
		return gorm.ErrRecordNotFound
	}

	return nil
}
