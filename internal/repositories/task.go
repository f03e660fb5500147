// Package repositories provides the gorm-backed data access layer.
package repositories

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"tg-task-tracker/internal/models"
)

// ErrTaskNotFound is returned when a task does not exist or belongs to another user.
var ErrTaskNotFound = errors.New("task not found")

// TaskRepository reads and writes tasks. Every query is scoped to an owner.
type TaskRepository struct {
	DB *gorm.DB
}

// NewTaskRepository creates a new TaskRepository.
func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{DB: db}
}

// WithTx returns a repository bound to the given transaction.
func (r *TaskRepository) WithTx(tx *gorm.DB) *TaskRepository {
	return &TaskRepository{DB: tx}
}

// Create inserts a new task.
func (r *TaskRepository) Create(ctx context.Context, t *models.Task) (*models.Task, error) {
	if err := r.DB.WithContext(ctx).Create(t).Error; err != nil {
		return nil, fmt.Errorf("could not insert task: %w", err)
	}
	return t, nil
}

// FindByUserID lists a user's tasks, newest first.
func (r *TaskRepository) FindByUserID(ctx context.Context, userID int, filter models.TaskFilter) ([]*models.Task, error) {
	q := r.DB.WithContext(ctx).Where("user_id = ?", userID)
	if filter.Status != nil {
		q = q.Where("status = ?", *filter.Status)
	}
	if filter.Priority != nil {
		q = q.Where("priority = ?", *filter.Priority)
	}

	tasks := make([]*models.Task, 0)
	if err := q.Order("created_at DESC").Order("id DESC").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("could not query tasks: %w", err)
	}
	return tasks, nil
}

// FindByIDForUser fetches one task owned by userID.
func (r *TaskRepository) FindByIDForUser(ctx context.Context, id, userID int) (*models.Task, error) {
	var t models.Task
	err := r.DB.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Take(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("could not query task: %w", err)
	}
	return &t, nil
}

// Update applies the column assignments to a task owned by userID.
// The caller is expected to have checked ownership in the same transaction.
func (r *TaskRepository) Update(ctx context.Context, id, userID int, changes map[string]any) (*models.Task, error) {
	err := r.DB.WithContext(ctx).
		Model(&models.Task{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(changes).Error
	if err != nil {
		return nil, fmt.Errorf("could not update task: %w", err)
	}
	return r.FindByIDForUser(ctx, id, userID)
}

// Delete removes a task owned by userID.
func (r *TaskRepository) Delete(ctx context.Context, id, userID int) error {
	result := r.DB.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&models.Task{})
	if result.Error != nil {
		return fmt.Errorf("could not delete task: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// DeleteByUserID removes every task of a user and returns how many were deleted.
func (r *TaskRepository) DeleteByUserID(ctx context.Context, userID int) (int64, error) {
	result := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.Task{})
	if result.Error != nil {
		return 0, fmt.Errorf("could not delete tasks of user: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// CountByUserID counts the tasks of a user.
func (r *TaskRepository) CountByUserID(ctx context.Context, userID int) (int64, error) {
	var n int64
	if err := r.DB.WithContext(ctx).Model(&models.Task{}).Where("user_id = ?", userID).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("could not count tasks: %w", err)
	}
	return n, nil
}

// Stats aggregates a user's tasks by status and priority in one query.
func (r *TaskRepository) Stats(ctx context.Context, userID int) (*models.TaskStats, error) {
	var stats models.TaskStats
	err := r.DB.WithContext(ctx).
		Model(&models.Task{}).
		Select(`COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS todo,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS in_progress,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS done,
			COALESCE(SUM(CASE WHEN priority = ? THEN 1 ELSE 0 END), 0) AS high_priority,
			COALESCE(SUM(CASE WHEN priority = ? THEN 1 ELSE 0 END), 0) AS medium_priority,
			COALESCE(SUM(CASE WHEN priority = ? THEN 1 ELSE 0 END), 0) AS low_priority`,
			models.StatusTodo, models.StatusInProgress, models.StatusDone,
			models.PriorityHigh, models.PriorityMedium, models.PriorityLow,
		).
		Where("user_id = ?", userID).
		Scan(&stats).Error
	if err != nil {
		return nil, fmt.Errorf("could not aggregate tasks: %w", err)
	}
	return &stats, nil
}
