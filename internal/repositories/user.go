package repositories

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"tg-task-tracker/internal/database"
	"tg-task-tracker/internal/models"
)

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrDuplicateTelegramID = errors.New("duplicate telegram id")
)

// UserRepository reads and writes users.
type UserRepository struct {
	DB *gorm.DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

// WithTx returns a repository bound to the given transaction.
func (r *UserRepository) WithTx(tx *gorm.DB) *UserRepository {
	return &UserRepository{DB: tx}
}

// Create inserts a new user.
func (r *UserRepository) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if err := r.DB.WithContext(ctx).Create(u).Error; err != nil {
		if database.IsDuplicateKey(err) {
			return nil, ErrDuplicateTelegramID
		}
		return nil, fmt.Errorf("could not insert user: %w", err)
	}
	return u, nil
}

// FindByTelegramID looks a user up by the Telegram-issued id.
func (r *UserRepository) FindByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	var u models.User
	err := r.DB.WithContext(ctx).Where("telegram_id = ?", telegramID).Take(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("could not query user: %w", err)
	}
	return &u, nil
}

// FindByID looks a user up by primary key.
func (r *UserRepository) FindByID(ctx context.Context, id int) (*models.User, error) {
	var u models.User
	err := r.DB.WithContext(ctx).Where("id = ?", id).Take(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("could not query user: %w", err)
	}
	return &u, nil
}

// UpdateProfile overwrites the display attributes of a user.
func (r *UserRepository) UpdateProfile(ctx context.Context, id int, p models.UserProfile) error {
	result := r.DB.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"username":   p.Username,
			"first_name": p.FirstName,
			"last_name":  p.LastName,
		})
	if result.Error != nil {
		return fmt.Errorf("could not update user: %w", result.Error)
	}
	return nil
}

// Delete removes a user row. Tasks must be removed first or by the FK cascade.
func (r *UserRepository) Delete(ctx context.Context, id int) error {
	result := r.DB.WithContext(ctx).Where("id = ?", id).Delete(&models.User{})
	if result.Error != nil {
		return fmt.Errorf("could not delete user: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}
