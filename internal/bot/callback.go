package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// CallbackAction is the verb carried by an inline button.
type CallbackAction string

const (
	ActionView     CallbackAction = "task_view"
	ActionDone     CallbackAction = "task_done"
	ActionProgress CallbackAction = "task_progress"
	ActionTodo     CallbackAction = "task_todo"
	ActionDelete   CallbackAction = "task_delete"
)

var ErrMalformedCallback = errors.New("malformed callback data")

func (a CallbackAction) valid() bool {
	switch a {
	case ActionView, ActionDone, ActionProgress, ActionTodo, ActionDelete:
		return true
	}
	return false
}

// EncodeCallback formats callback data as "<action>:<task_id>".
func EncodeCallback(action CallbackAction, taskID int) string {
	return string(action) + ":" + strconv.Itoa(taskID)
}

// ParseCallback is the inverse of EncodeCallback.
func ParseCallback(data string) (CallbackAction, int, error) {
	action, rawID, ok := strings.Cut(data, ":")
	if !ok {
		return "", 0, fmt.Errorf("%w: %q", ErrMalformedCallback, data)
	}
	a := CallbackAction(action)
	if !a.valid() {
		return "", 0, fmt.Errorf("%w: unknown action %q", ErrMalformedCallback, action)
	}
	id, err := strconv.Atoi(rawID)
	if err != nil || id <= 0 {
		return "", 0, fmt.Errorf("%w: bad task id %q", ErrMalformedCallback, rawID)
	}
	return a, id, nil
}
