package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"tg-task-tracker/internal/models"
	"tg-task-tracker/internal/repositories"
)

// UserService manages Telegram-backed users.
type UserService struct {
	db       *gorm.DB
	userRepo *repositories.UserRepository
	taskRepo *repositories.TaskRepository
}

// NewUserService creates a new UserService.
func NewUserService(db *gorm.DB, userRepo *repositories.UserRepository, taskRepo *repositories.TaskRepository) *UserService {
	return &UserService{db: db, userRepo: userRepo, taskRepo: taskRepo}
}

// GetByTelegramID returns the user or repositories.ErrUserNotFound.
func (s *UserService) GetByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	return s.userRepo.FindByTelegramID(ctx, telegramID)
}

// EnsureUser looks the Telegram user up and creates it on first contact.
// created reports whether a new row was inserted.
func (s *UserService) EnsureUser(ctx context.Context, tg models.TelegramUser) (u *models.User, created bool, err error) {
	u, err = s.userRepo.FindByTelegramID(ctx, tg.ID)
	if err == nil {
		return u, false, nil
	}
	if !errors.Is(err, repositories.ErrUserNotFound) {
		return nil, false, err
	}

	p := tg.Profile()
	u, err = s.userRepo.Create(ctx, &models.User{
		TelegramID: tg.ID,
		Username:   p.Username,
		FirstName:  p.FirstName,
		LastName:   p.LastName,
	})
	if errors.Is(err, repositories.ErrDuplicateTelegramID) {
		// Another update for the same account won the insert.
		u, err = s.userRepo.FindByTelegramID(ctx, tg.ID)
		return u, false, err
	}
	if err != nil {
		return nil, false, err
	}
	return u, true, nil
}

// SyncProfile ensures the user exists and refreshes its display attributes.
func (s *UserService) SyncProfile(ctx context.Context, tg models.TelegramUser) (*models.User, bool, error) {
	u, created, err := s.EnsureUser(ctx, tg)
	if err != nil || created {
		return u, created, err
	}

	p := tg.Profile()
	if sameString(u.Username, p.Username) && sameString(u.FirstName, p.FirstName) && sameString(u.LastName, p.LastName) {
		return u, false, nil
	}
	if err := s.userRepo.UpdateProfile(ctx, u.ID, p); err != nil {
		return nil, false, err
	}
	u.Username, u.FirstName, u.LastName = p.Username, p.FirstName, p.LastName
	return u, false, nil
}

// DeleteUser removes the user and all of its tasks in one transaction.
func (s *UserService) DeleteUser(ctx context.Context, userID int) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.taskRepo.WithTx(tx).DeleteByUserID(ctx, userID); err != nil {
			return err
		}
		if err := s.userRepo.WithTx(tx).Delete(ctx, userID); err != nil {
			return fmt.Errorf("delete user %d: %w", userID, err)
		}
		return nil
	})
}

func sameString(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
