package repository

import (
	"context"
	"time"

	"timebank/internal/models"

	"gorm.io/gorm"
)

type SpecialDateRepository interface {
	Create(ctx context.Context, day *models.SpecialDate) error
	BulkCreate(ctx context.Context, days []models.SpecialDate) error
	GetByDate(ctx context.Context, date time.Time) ([]models.SpecialDate, error)
	GetByYearMonth(ctx context.Context, year, month int) ([]models.SpecialDate, error)
	GetAll(ctx context.Context) ([]models.SpecialDate, error)
	Delete(ctx context.Context, id uint) error
	DeleteAll(ctx context.Context) error
}

type GormSpecialDateRepository struct {
	db *gorm.DB
}

func NewGormSpecialDateRepository(db *gorm.DB) (*GormSpecialDateRepository, error) {
	if err := db.AutoMigrate(&models.SpecialDate{}); err != nil {
		return nil, err
	}

	return &GormSpecialDateRepository{db: db}, nil
}

func (r *GormSpecialDateRepository) Create(ctx context.Context, day *models.SpecialDate) error {
	return r.db.WithContext(ctx).Create(day).Error
}

func (r *GormSpecialDateRepository) BulkCreate(ctx context.Context, days []models.SpecialDate) error {
	if len(days) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&days).Error
}

func (r *GormSpecialDateRepository) GetByDate(ctx context.Context, date time.Time) ([]models.SpecialDate, error) {
	var days []models.SpecialDate
	err := r.db.WithContext(ctx).Where("date = ?", date.Format(models.DateLayout)).Find(&days).Error
	return days, err
}

func (r *GormSpecialDateRepository) GetByYearMonth(ctx context.Context, year, month int) ([]models.SpecialDate, error) {
	var days []models.SpecialDate
	err := r.db.WithContext(ctx).
		Where("year = ? AND month = ?", year, month).
		Order("date ASC").
		Find(&days).Error
	return days, err
}

func (r *GormSpecialDateRepository) GetAll(ctx context.Context) ([]models.SpecialDate, error) {
	var days []models.SpecialDate
	err := r.db.WithContext(ctx).Order("date ASC").Find(&days).Error
	return days, err
}

func (r *GormSpecialDateRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.SpecialDate{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *GormSpecialDateRepository) DeleteAll(ctx context.Context) error {
	return r.db.WithContext(ctx).Exec("DELETE FROM special_dates").Error
}
