package service

import (
	"context"
	"fmt"
	"strings"

	"timebank/internal/models"
	"timebank/internal/repository"
)

type UserService struct {
	repo repository.UserRepository
}

func NewUserService(repo repository.UserRepository) *UserService {
	return &UserService{repo: repo}
}

// RegisterUser creates an employee for a chat, or returns the existing one.
func (s *UserService) RegisterUser(ctx context.Context, chatID int64, username, firstName, lastName string) (*models.User, error) {
	if chatID == 0 {
		return nil, invalidInput("chat id is required")
	}
	if firstName == "" {
		firstName = username
	}
	if firstName == "" {
		return nil, invalidInput("name cannot be empty")
	}

	existing, err := s.repo.GetByChatID(ctx, chatID)
	if err != nil {
		return nil, storageError("load user", err)
	}
	if existing != nil {
		return existing, nil
	}

	user := &models.User{
		ChatID:    chatID,
		Username:  username,
		FirstName: firstName,
		LastName:  lastName,
		Role:      models.RoleEmployee,
		Active:    true,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, storageError("create user", err)
	}

	return user, nil
}

// ResolveByChatID maps a messaging identity to the internal user.
func (s *UserService) ResolveByChatID(ctx context.Context, chatID int64) (*models.User, error) {
	user, err := s.repo.GetByChatID(ctx, chatID)
	if err != nil {
		return nil, storageError("load user", err)
	}
	if user == nil {
		return nil, ErrRecordNotFound
	}
	return user, nil
}

func (s *UserService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, storageError("load user", err)
	}
	if user == nil {
		return nil, ErrRecordNotFound
	}
	return user, nil
}

func (s *UserService) GetAllUsers(ctx context.Context) ([]*models.User, error) {
	users, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, storageError("list users", err)
	}
	return users, nil
}

func (s *UserService) IsAdmin(ctx context.Context, chatID int64) (bool, error) {
	user, err := s.repo.GetByChatID(ctx, chatID)
	if err != nil {
		return false, storageError("load user", err)
	}

	return user != nil && user.IsAdmin(), nil
}

// InitializeAdmin promotes or creates the admin configured for the deployment.
func (s *UserService) InitializeAdmin(ctx context.Context, adminChatID int64) error {
	if adminChatID == 0 {
		return nil
	}

	existing, err := s.repo.GetByChatID(ctx, adminChatID)
	if err != nil {
		return storageError("load user", err)
	}

	if existing != nil {
		if existing.IsAdmin() {
			return nil
		}
		return s.repo.UpdateRole(ctx, adminChatID, models.RoleAdmin)
	}

	admin := &models.User{
		ChatID:    adminChatID,
		Username:  "admin",
		FirstName: "Administrator",
		Role:      models.RoleAdmin,
		Active:    true,
	}

	return s.repo.Create(ctx, admin)
}

// FormatAllUsers renders the user list for admins.
func (s *UserService) FormatAllUsers(ctx context.Context) (string, error) {
	users, err := s.GetAllUsers(ctx)
	if err != nil {
		return "", err
	}

	if len(users) == 0 {
		return "📭 No users yet.", nil
	}

	lines := []string{"📋 Users:", ""}
	admins := 0
	for i, user := range users {
		roleEmoji := "👤"
		if user.IsAdmin() {
			roleEmoji = "👑"
			admins++
		}

		info := fmt.Sprintf("%d. %s %s", i+1, roleEmoji, user.FullName())
		if user.Username != "" {
			info += fmt.Sprintf(" (@%s)", user.Username)
		}
		info += fmt.Sprintf(" - id %d", user.ID)
		lines = append(lines, info)
	}

	lines = append(lines, "", fmt.Sprintf("📊 Total: %d, admins: %d", len(users), admins))
	return strings.Join(lines, "\n"), nil
}
