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

type BankedHoursRepository interface {
	Upsert(ctx context.Context, entry *models.BankedHoursEntry) error
	GetByUserAndMonth(ctx context.Context, userID uint, yearMonth string) (*models.BankedHoursEntry, error)
	GetByUserID(ctx context.Context, userID uint) ([]*models.BankedHoursEntry, error)
	GetLatestBefore(ctx context.Context, userID uint, yearMonth string, limit int) ([]*models.BankedHoursEntry, error)
	DeleteBefore(ctx context.Context, userID uint, yearMonth string) (int64, error)
	GetUserIDs(ctx context.Context) ([]uint, error)
	DeleteByUserID(ctx context.Context, userID uint) error
}

type GormBankedHoursRepository struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewGormBankedHoursRepository(db *gorm.DB) (*GormBankedHoursRepository, error) {
	logger := logging.New()

	if err := db.AutoMigrate(&models.BankedHoursEntry{}); err != nil {
		logger.WithError(err).Error("Failed to auto-migrate banked_hours_entries table")
		return nil, err
	}

	logger.Debug("Banked hours repository initialized")

	return &GormBankedHoursRepository{
		db:     db,
		logger: logger,
	}, nil
}

// Upsert inserts the entry or overwrites the saldo of the existing (user, month) row.
func (r *GormBankedHoursRepository) Upsert(ctx context.Context, entry *models.BankedHoursEntry) error {
	fields := logrus.Fields{
		"user_id":       entry.UserID,
		"year_month":    entry.YearMonth,
		"saldo_minutes": entry.SaldoMinutes,
	}

	if !entry.IsValid() {
		r.logger.WithFields(fields).Warn("Invalid banked hours entry")
		return errors.New("invalid banked hours entry")
	}

	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "year_month"}},
		DoUpdates: clause.AssignmentColumns([]string{"saldo_minutes", "saldo", "closed_at", "updated_at"}),
	}).Create(entry)
	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to upsert banked hours entry")
		return result.Error
	}

	r.logger.WithFields(fields).Debug("Banked hours entry stored")
	return nil
}

func (r *GormBankedHoursRepository) GetByUserAndMonth(ctx context.Context, userID uint, yearMonth string) (*models.BankedHoursEntry, error) {
	var entry models.BankedHoursEntry
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND year_month = ?", userID, yearMonth).
		First(&entry)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		r.logger.WithFields(logrus.Fields{
			"user_id":    userID,
			"year_month": yearMonth,
		}).Debug("Banked hours entry not found")
		return nil, nil
	}

	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to get banked hours entry")
		return nil, result.Error
	}

	return &entry, nil
}

func (r *GormBankedHoursRepository) GetByUserID(ctx context.Context, userID uint) ([]*models.BankedHoursEntry, error) {
	var entries []*models.BankedHoursEntry
	result := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("year_month ASC").
		Find(&entries)

	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to get banked hours entries by user ID")
		return nil, result.Error
	}

	return entries, nil
}

// GetLatestBefore returns up to limit entries strictly before yearMonth, oldest first.
func (r *GormBankedHoursRepository) GetLatestBefore(ctx context.Context, userID uint, yearMonth string, limit int) ([]*models.BankedHoursEntry, error) {
	var entries []*models.BankedHoursEntry
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND year_month < ?", userID, yearMonth).
		Order("year_month DESC").
		Limit(limit).
		Find(&entries)

	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to get banked hours window")
		return nil, result.Error
	}

	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}

	r.logger.WithFields(logrus.Fields{
		"user_id":    userID,
		"year_month": yearMonth,
		"count":      len(entries),
	}).Debug("Retrieved banked hours window")

	return entries, nil
}

// DeleteBefore removes every entry of the user strictly before yearMonth.
func (r *GormBankedHoursRepository) DeleteBefore(ctx context.Context, userID uint, yearMonth string) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND year_month < ?", userID, yearMonth).
		Delete(&models.BankedHoursEntry{})
	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to prune banked hours entries")
		return 0, result.Error
	}

	if result.RowsAffected > 0 {
		r.logger.WithFields(logrus.Fields{
			"user_id":       userID,
			"before":        yearMonth,
			"rows_affected": result.RowsAffected,
		}).Info("Banked hours entries pruned")
	}

	return result.RowsAffected, nil
}

// GetUserIDs lists every user that owns at least one entry.
func (r *GormBankedHoursRepository) GetUserIDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.BankedHoursEntry{}).
		Distinct("user_id").
		Order("user_id ASC").
		Pluck("user_id", &ids).Error
	return ids, err
}

func (r *GormBankedHoursRepository) DeleteByUserID(ctx context.Context, userID uint) error {
	result := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.BankedHoursEntry{})
	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to delete banked hours entries")
		return result.Error
	}

	r.logger.WithFields(logrus.Fields{
		"user_id":       userID,
		"rows_affected": result.RowsAffected,
	}).Info("Banked hours entries deleted")
	return nil
}
