package repository

import (
	"context"
	"errors"

	"timebank/internal/models"

	"gorm.io/gorm"
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByChatID(ctx context.Context, chatID int64) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	UpdateRole(ctx context.Context, chatID int64, role models.Role) error
	GetAll(ctx context.Context) ([]*models.User, error)
	GetActive(ctx context.Context) ([]*models.User, error)
}

type GormUserRepository struct {
	db *gorm.DB
}

func NewGormUserRepository(db *gorm.DB) (*GormUserRepository, error) {
	if err := db.AutoMigrate(&models.User{}); err != nil {
		return nil, err
	}

	return &GormUserRepository{db: db}, nil
}

func (r *GormUserRepository) Create(ctx context.Context, user *models.User) error {
	var existing models.User
	result := r.db.WithContext(ctx).Where("chat_id = ?", user.ChatID).First(&existing)
	if result.Error == nil {
		return errors.New("user already exists")
	}

	return r.db.WithContext(ctx).Create(user).Error
}

func (r *GormUserRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	result := r.db.WithContext(ctx).First(&user, id)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if result.Error != nil {
		return nil, result.Error
	}

	return &user, nil
}

func (r *GormUserRepository) GetByChatID(ctx context.Context, chatID int64) (*models.User, error) {
	var user models.User
	result := r.db.WithContext(ctx).Where("chat_id = ?", chatID).First(&user)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if result.Error != nil {
		return nil, result.Error
	}

	return &user, nil
}

func (r *GormUserRepository) Update(ctx context.Context, user *models.User) error {
	var existing models.User
	result := r.db.WithContext(ctx).Where("chat_id = ?", user.ChatID).First(&existing)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return errors.New("user not found")
	}

	return r.db.WithContext(ctx).Save(user).Error
}

func (r *GormUserRepository) UpdateRole(ctx context.Context, chatID int64, role models.Role) error {
	result := r.db.WithContext(ctx).Model(&models.User{}).
		Where("chat_id = ?", chatID).
		Update("role", role)

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return errors.New("user not found")
	}

	return nil
}

func (r *GormUserRepository) GetAll(ctx context.Context) ([]*models.User, error) {
	var users []*models.User
	result := r.db.WithContext(ctx).Order("id ASC").Find(&users)

	if result.Error != nil {
		return nil, result.Error
	}

	return users, nil
}

func (r *GormUserRepository) GetActive(ctx context.Context) ([]*models.User, error) {
	var users []*models.User
	result := r.db.WithContext(ctx).Where("active = ?", true).Order("id ASC").Find(&users)

	if result.Error != nil {
		return nil, result.Error
	}

	return users, nil
}
