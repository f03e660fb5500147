// Package services holds the business logic shared by the API and the bot.
package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"tg-task-tracker/internal/models"
	"tg-task-tracker/internal/repositories"
)

// TaskService implements the task operations for a resolved user.
// Writes run in a single transaction each.
type TaskService struct {
	db       *gorm.DB
	taskRepo *repositories.TaskRepository
	now      func() time.Time
}

// NewTaskService creates a new TaskService.
func NewTaskService(db *gorm.DB, taskRepo *repositories.TaskRepository) *TaskService {
	return &TaskService{db: db, taskRepo: taskRepo, now: time.Now}
}

// SetClock replaces the time source used for created_at and updated_at.
func (s *TaskService) SetClock(now func() time.Time) {
	s.now = now
}

func (s *TaskService) timestamp() time.Time {
	return s.now().UTC()
}

// ListTasks returns the user's tasks matching filter, newest first.
func (s *TaskService) ListTasks(ctx context.Context, userID int, filter models.TaskFilter) ([]*models.Task, error) {
	return s.taskRepo.FindByUserID(ctx, userID, filter)
}

// GetTask returns one of the user's tasks.
func (s *TaskService) GetTask(ctx context.Context, userID, id int) (*models.Task, error) {
	return s.taskRepo.FindByIDForUser(ctx, id, userID)
}

// CreateTask creates a task in the todo state.
func (s *TaskService) CreateTask(ctx context.Context, userID int, req models.TaskCreateRequest) (*models.Task, error) {
	if err := models.ValidateTitle(req.Title); err != nil {
		return nil, err
	}
	priority := req.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	if !priority.Valid() {
		return nil, &models.ValidationError{Field: "priority", Message: "priority must be one of low, medium, high"}
	}

	now := s.timestamp()
	task := &models.Task{
		UserID:      userID,
		Title:       req.Title,
		Description: req.Description,
		Status:      models.StatusTodo,
		Priority:    priority,
		Deadline:    req.Deadline.Time(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	var created *models.Task
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.taskRepo.WithTx(tx)
		if _, err := repo.Create(ctx, task); err != nil {
			return err
		}
		var err error
		created, err = repo.FindByIDForUser(ctx, task.ID, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// UpdateTask applies a partial update. updated_at is refreshed even when no
// content field is supplied.
func (s *TaskService) UpdateTask(ctx context.Context, userID, id int, req models.TaskUpdateRequest) (*models.Task, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return s.update(ctx, userID, id, req.Changes())
}

// SetStatus moves a task to status.
func (s *TaskService) SetStatus(ctx context.Context, userID, id int, status models.TaskStatus) (*models.Task, error) {
	return s.UpdateTask(ctx, userID, id, models.TaskUpdateRequest{Status: models.Some(status)})
}

func (s *TaskService) update(ctx context.Context, userID, id int, changes map[string]any) (*models.Task, error) {
	changes["updated_at"] = s.timestamp()

	var updated *models.Task
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.taskRepo.WithTx(tx)
		if _, err := repo.FindByIDForUser(ctx, id, userID); err != nil {
			return err
		}
		var err error
		updated, err = repo.Update(ctx, id, userID, changes)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteTask physically removes a task and returns it as it was.
func (s *TaskService) DeleteTask(ctx context.Context, userID, id int) (*models.Task, error) {
	var deleted *models.Task
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.taskRepo.WithTx(tx)
		t, err := repo.FindByIDForUser(ctx, id, userID)
		if err != nil {
			return err
		}
		if err := repo.Delete(ctx, id, userID); err != nil {
			return err
		}
		deleted = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

// Stats aggregates the user's tasks.
func (s *TaskService) Stats(ctx context.Context, userID int) (*models.TaskStats, error) {
	return s.taskRepo.Stats(ctx, userID)
}
