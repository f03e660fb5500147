package models

import (
	"encoding/json"
	"strings"
	"unicode/utf8"
)

// Optional distinguishes an absent JSON field from an explicit null.
type Optional[T any] struct {
	Set   bool
	Value *T
}

// Some returns a set Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: &v}
}

// Null returns a set Optional holding no value.
func Null[T any]() Optional[T] {
	return Optional[T]{Set: true}
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if o.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*o.Value)
}

// TaskUpdateRequest is the partial body of PUT /api/tasks/:id.
// Only fields present in the JSON document are changed.
type TaskUpdateRequest struct {
	Title       Optional[string]       `json:"title"`
	Description Optional[string]       `json:"description"`
	Status      Optional[TaskStatus]   `json:"status"`
	Priority    Optional[TaskPriority] `json:"priority"`
	Deadline    Optional[Deadline]     `json:"deadline"`
}

// Validate checks every supplied field.
func (r TaskUpdateRequest) Validate() error {
	if r.Title.Set {
		if r.Title.Value == nil {
			return &ValidationError{Field: "title", Message: "title cannot be null"}
		}
		if err := ValidateTitle(*r.Title.Value); err != nil {
			return err
		}
	}
	if r.Status.Set && (r.Status.Value == nil || !r.Status.Value.Valid()) {
		return &ValidationError{Field: "status", Message: "status must be one of todo, in_progress, done"}
	}
	if r.Priority.Set && (r.Priority.Value == nil || !r.Priority.Value.Valid()) {
		return &ValidationError{Field: "priority", Message: "priority must be one of low, medium, high"}
	}
	return nil
}

// Changes returns the column assignments for the supplied fields.
func (r TaskUpdateRequest) Changes() map[string]any {
	changes := make(map[string]any)
	if r.Title.Set && r.Title.Value != nil {
		changes["title"] = *r.Title.Value
	}
	if r.Description.Set {
		changes["description"] = r.Description.Value
	}
	if r.Status.Set && r.Status.Value != nil {
		changes["status"] = *r.Status.Value
	}
	if r.Priority.Set && r.Priority.Value != nil {
		changes["priority"] = *r.Priority.Value
	}
	if r.Deadline.Set {
		changes["deadline"] = r.Deadline.Value.Time()
	}
	return changes
}

// ValidateTitle enforces the 1..TitleMaxLength character rule.
func ValidateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return &ValidationError{Field: "title", Message: "title must not be empty"}
	}
	if utf8.RuneCountInString(title) > TitleMaxLength {
		return &ValidationError{Field: "title", Message: "title must be at most 500 characters"}
	}
	return nil
}

// ValidationError reports a malformed input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
