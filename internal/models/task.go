// Package models defines the persisted entities and their API shapes.
package models

import (
	"time"
)

// TaskStatus is the workflow state of a task.
type TaskStatus string

const (
	StatusTodo       TaskStatus = "todo"
	StatusInProgress TaskStatus = "in_progress"
	StatusDone       TaskStatus = "done"
)

// Valid reports whether s is a known status.
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// TaskPriority ranks a task.
type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
)

// Valid reports whether p is a known priority.
func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// TitleMaxLength is the maximum task title length in characters.
const TitleMaxLength = 500

// Task is a user-owned to-do item.
type Task struct {
	ID          int          `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID      int          `json:"user_id" gorm:"not null;index"`
	Title       string       `json:"title" gorm:"size:500;not null"`
	Description *string      `json:"description" gorm:"type:text"`
	Status      TaskStatus   `json:"status" gorm:"size:20;not null;default:todo;index"`
	Priority    TaskPriority `json:"priority" gorm:"size:20;not null;default:medium"`
	Deadline    *time.Time   `json:"deadline"`
	CreatedAt   time.Time    `json:"created_at" gorm:"not null;index"`
	UpdatedAt   time.Time    `json:"updated_at" gorm:"not null"`

	// Owner carries the foreign key; deleting the user removes its tasks.
	Owner *User `json:"-" gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TaskFilter narrows a task listing. Nil fields do not filter.
type TaskFilter struct {
	Status   *TaskStatus
	Priority *TaskPriority
}

// TaskCreateRequest is the body of POST /api/tasks.
type TaskCreateRequest struct {
	Title       string       `json:"title" binding:"required,min=1,max=500"`
	Description *string      `json:"description"`
	Priority    TaskPriority `json:"priority" binding:"omitempty,oneof=low medium high"`
	Deadline    *Deadline    `json:"deadline"`
}

// TaskStats aggregates a user's tasks by status and priority.
type TaskStats struct {
	Total          int64 `json:"total"`
	Todo           int64 `json:"todo"`
	InProgress     int64 `json:"in_progress"`
	Done           int64 `json:"done"`
	HighPriority   int64 `json:"high_priority"`
	MediumPriority int64 `json:"medium_priority"`
	LowPriority    int64 `json:"low_priority"`
}
