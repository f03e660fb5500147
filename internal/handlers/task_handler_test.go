package handlers_test

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tg-task-tracker/internal/models"
	"tg-task-tracker/testutil"
)

func decodeTasks(t *testing.T, body []byte) []models.Task {
	t.Helper()
	var tasks []models.Task
	require.NoError(t, json.Unmarshal(body, &tasks))
	return tasks
}

func decodeDetail(t *testing.T, body []byte) string {
	t.Helper()
	var response map[string]any
	require.NoError(t, json.Unmarshal(body, &response))
	detail, _ := response["detail"].(string)
	return detail
}

func TestCreateTask_Defaults(t *testing.T) {
	env := testutil.SetupTestDB(t)
	auth := testutil.AuthHeader(t, testutil.NormalTelegramID)

	task := testutil.CreateTestTask(t, env.Router, auth, map[string]any{"title": "Buy milk"})

	assert.NotZero(t, task.ID)
	assert.Equal(t, env.NormalUser.ID, task.UserID)
	assert.Equal(t, "Buy milk", task.Title)
	assert.Equal(t, models.StatusTodo, task.Status)
	assert.Equal(t, models.PriorityMedium, task.Priority)
	assert.Nil(t, task.Description)
	assert.Nil(t, task.Deadline)
	assert.WithinDuration(t, time.Now(), task.CreatedAt, 5*time.Second)
	assert.Equal(t, task.CreatedAt, task.UpdatedAt)
}

func TestCreateTask_AllFields(t *testing.T) {
	env := testutil.SetupTestDB(t)
	auth := testutil.AuthHeader(t, testutil.NormalTelegramID)

	deadline := time.Date(2030, 1, 2, 15, 4, 0, 0, time.UTC)
	task := testutil.CreateTestTask(t, env.Router, auth, map[string]any{
		"title":       "Write report",
		"description": "Quarterly numbers",
		"priority":    "high",
		"deadline":    deadline.Format(time.RFC3339),
		"status":      "done",
	})

	require.NotNil(t, task.Description)
	assert.Equal(t, "Quarterly numbers", *task.Description)
	assert.Equal(t, models.PriorityHigh, task.Priority)
	require.NotNil(t, task.Deadline)
	assert.True(t, deadline.Equal(*task.Deadline))
	assert.Equal(t, models.StatusTodo, task.Status, "status is not settable on create")
}

func TestCreateTask_NaiveDeadline(t *testing.T) {
	env := testutil.SetupTestDB(t)
	auth := testutil.AuthHeader(t, testutil.NormalTelegramID)

	for _, in := range []string{"2025-06-01T12:00:00", "2025-06-01T12:00"} {
		task := testutil.CreateTestTask(t, env.Router, auth, map[string]any{"title": "Naive", "deadline": in})
		require.NotNil(t, task.Deadline, in)
		assert.True(t, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC).Equal(*task.Deadline), in)
	}

	w := testutil.DoRequest(t, env.Router, http.MethodPost, "/api/tasks", auth, map[string]any{"title": "Bad", "deadline": "next week"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.JSONEq(t, `{"detail":"deadline is invalid"}`, w.Body.String())

	task := testutil.CreateTestTask(t, env.Router, auth, map[string]any{"title": "Later"})
	w = testutil.DoRequest(t, env.Router, http.MethodPut, "/api/tasks/"+strconv.Itoa(task.ID), auth, map[string]any{"deadline": "2025-07-01T09:30"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var got models.Task
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.NotNil(t, got.Deadline)
	assert.True(t, time.Date(2025, 7, 1, 9, 30, 0, 0, time.UTC).Equal(*got.Deadline))

	w = testutil.DoRequest(t, env.Router, http.MethodPut, "/api/tasks/"+strconv.Itoa(task.ID), auth, map[string]any{"deadline": "soon"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.JSONEq(t, `{"detail":"deadline is invalid"}`, w.Body.String())
}

func TestCreateTask_Validation(t *testing.T) {
	env := testutil.SetupTestDB(t)
	auth := testutil.AuthHeader(t, testutil.NormalTelegramID)

	cases := []struct {
		name    string
		payload map[string]any
	}{
		{"missing title", map[string]any{"description": "x"}},
		{"empty title", map[string]any{"title": ""}},
		{"blank title", map[string]any{"title": "   "}},
		{"title too long", map[string]any{"title": strings.Repeat("a", 501)}},
		{"bad priority", map[string]any{"title": "x", "priority": "urgent"}},
		{"bad deadline", map[string]any{"title": "x", "deadline": "tomorrow"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := testutil.DoRequest(t, env.Router, http.MethodPost, "/api/tasks", auth, tc.payload)
			assert.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
			assert.NotEmpty(t, decodeDetail(t, w.Body.Bytes()))
		})
	}

	t.Run("title of exactly 500 characters", func(t *testing.T) {
		task := testutil.CreateTestTask(t, env.Router, auth, map[string]any{"title": strings.Repeat("я", 500)})
		assert.Equal(t, 500, len([]rune(task.Title)))
	})
}

func TestListTasks(t *testing.T) {
	env := testutil.SetupTestDB(t)
	auth := testutil.AuthHeader(t, testutil.NormalTelegramID)
	otherAuth := testutil.AuthHeader(t, testutil.OtherTelegramID)

	first := testutil.CreateTestTask(t, env.Router, auth, map[string]any{"title": "First", "priority": "low"})
	second := testutil.CreateTestTask(t, env.Router, auth, map[string]any{"title": "Second", "priority": "high"})
	testutil.CreateTestTask(t, env.Router, otherAuth, map[string]any{"title": "Not mine"})

	w := testutil.DoRequest(t, env.Router, http.MethodPut, "/api/tasks/"+strconv.Itoa(second.ID), auth, map[string]any{"status": "done"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	t.Run("only own tasks, newest first", func(t *testing.T) {
		w := testutil.DoRequest(t, env.Router, http.MethodGet, "/api/tasks", auth, nil)
		require.Equal(t, http.StatusOK, w.Code)
		tasks := decodeTasks(t, w.Body.Bytes())
		require.Len(t, tasks, 2)
		assert.Equal(t, second.ID, tasks[0].ID)
		assert.Equal(t, first.ID, tasks[1].ID)
	})

	t.Run("status filter", func(t *testing.T) {
		w := testutil.DoRequest(t, env.Router, http.MethodGet, "/api/tasks?status=done", auth, nil)
		require.Equal(t, http.StatusOK, w.Code)
		tasks := decodeTasks(t, w.Body.Bytes())
		require.Len(t, tasks, 1)
		assert.Equal(t, second.ID, tasks[0].ID)
	})

	t.Run("priority filter", func(t *testing.T) {
		w := testutil.DoRequest(t, env.Router, http.MethodGet, "/api/tasks?priority=low", auth, nil)
		require.Equal(t, http.StatusOK, w.Code)
		tasks := decodeTasks(t, w.Body.Bytes())
		require.Len(t, tasks, 1)
		assert.Equal(t, first.ID, tasks[0].ID)
	})

	t.Run("combined filters with no match", func(t *testing.T) {
		w := testutil.DoRequest(t, env.Router, http.MethodGet, "/api/tasks?status=done&priority=low", auth, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, "[]", w.Body.String())
	})

	t.Run("invalid filter", func(t *testing.T) {
		w := testutil.DoRequest(t, env.Router, http.MethodGet, "/api/tasks?status=finished", auth, nil)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestGetTask(t *testing.T) {
	env := testutil.SetupTestDB(t)
	auth := testutil.AuthHeader(t, testutil.NormalTelegramID)
	task := testutil.CreateTestTask(t, env.Router, auth, map[string]any{"title": "Read"})

	w := testutil.DoRequest(t, env.Router, http.MethodGet, "/api/tasks/"+strconv.Itoa(task.ID), auth, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got models.Task
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, task.ID, got.ID)

	w = testutil.DoRequest(t, env.Router, http.MethodGet, "/api/tasks/"+strconv.Itoa(task.ID), testutil.AuthHeader(t, testutil.OtherTelegramID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Task not found", decodeDetail(t, w.Body.Bytes()))

	w = testutil.DoRequest(t, env.Router, http.MethodGet, "/api/tasks/abc", auth, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestUpdateTask(t *testing.T) {
	env := testutil.SetupTestDB(t)
	auth := testutil.AuthHeader(t, testutil.NormalTelegramID)
	task := testutil.CreateTestTask(t, env.Router, auth, map[string]any{
		"title":       "Original",
		"description": "keep me",
		"deadline":    "2030-01-01T00:00:00Z",
	})
	path := "/api/tasks/" + strconv.Itoa(task.ID)

	t.Run("partial update keeps other fields", func(t *testing.T) {
		w := testutil.DoRequest(t, env.Router, http.MethodPut, path, auth, map[string]any{"status": "in_progress", "priority": "high"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var got models.Task
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, "Original", got.Title)
		assert.Equal(t, models.StatusInProgress, got.Status)
		assert.Equal(t, models.PriorityHigh, got.Priority)
		require.NotNil(t, got.Description)
		assert.Equal(t, "keep me", *got.Description)
		assert.NotNil(t, got.Deadline)
		assert.True(t, task.CreatedAt.Equal(got.CreatedAt))
	})

	t.Run("explicit null clears optional fields", func(t *testing.T) {
		w := testutil.DoRequest(t, env.Router, http.MethodPut, path, auth, map[string]any{"description": nil, "deadline": nil})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var got models.Task
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Nil(t, got.Description)
		assert.Nil(t, got.Deadline)
		assert.Equal(t, "Original", got.Title)
	})

	t.Run("invalid fields", func(t *testing.T) {
		for _, payload := range []map[string]any{
			{"title": ""},
			{"title": nil},
			{"status": "archived"},
			{"priority": nil},
		} {
			w := testutil.DoRequest(t, env.Router, http.MethodPut, path, auth, payload)
			assert.Equal(t, http.StatusUnprocessableEntity, w.Code, "payload %v", payload)
		}
	})

	t.Run("foreign task", func(t *testing.T) {
		w := testutil.DoRequest(t, env.Router, http.MethodPut, path, testutil.AuthHeader(t, testutil.OtherTelegramID), map[string]any{"title": "Hijacked"})
		assert.Equal(t, http.StatusNotFound, w.Code)

		got, err := env.Services.Tasks.GetTask(t.Context(), env.NormalUser.ID, task.ID)
		require.NoError(t, err)
		assert.Equal(t, "Original", got.Title)
	})

	t.Run("missing task", func(t *testing.T) {
		w := testutil.DoRequest(t, env.Router, http.MethodPut, "/api/tasks/999999", auth, map[string]any{"title": "x"})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestDeleteTask(t *testing.T) {
	env := testutil.SetupTestDB(t)
	auth := testutil.AuthHeader(t, testutil.NormalTelegramID)
	task := testutil.CreateTestTask(t, env.Router, auth, map[string]any{"title": "Temporary"})
	path := "/api/tasks/" + strconv.Itoa(task.ID)

	w := testutil.DoRequest(t, env.Router, http.MethodDelete, path, testutil.AuthHeader(t, testutil.OtherTelegramID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = testutil.DoRequest(t, env.Router, http.MethodDelete, path, auth, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"success","message":"Task deleted"}`, w.Body.String())

	w = testutil.DoRequest(t, env.Router, http.MethodDelete, path, auth, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = testutil.DoRequest(t, env.Router, http.MethodGet, path, auth, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTaskStats(t *testing.T) {
	env := testutil.SetupTestDB(t)
	auth := testutil.AuthHeader(t, testutil.NormalTelegramID)

	w := testutil.DoRequest(t, env.Router, http.MethodGet, "/api/tasks/stats", auth, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"total":0,"todo":0,"in_progress":0,"done":0,"high_priority":0,"medium_priority":0,"low_priority":0}`, w.Body.String())

	testutil.CreateTestTask(t, env.Router, auth, map[string]any{"title": "a", "priority": "high"})
	b := testutil.CreateTestTask(t, env.Router, auth, map[string]any{"title": "b", "priority": "high"})
	c := testutil.CreateTestTask(t, env.Router, auth, map[string]any{"title": "c", "priority": "low"})
	testutil.CreateTestTask(t, env.Router, testutil.AuthHeader(t, testutil.OtherTelegramID), map[string]any{"title": "other"})

	testutil.DoRequest(t, env.Router, http.MethodPut, "/api/tasks/"+strconv.Itoa(b.ID), auth, map[string]any{"status": "in_progress"})
	testutil.DoRequest(t, env.Router, http.MethodPut, "/api/tasks/"+strconv.Itoa(c.ID), auth, map[string]any{"status": "done"})

	w = testutil.DoRequest(t, env.Router, http.MethodGet, "/api/tasks/stats", auth, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var stats models.TaskStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, models.TaskStats{
		Total: 3, Todo: 1, InProgress: 1, Done: 1,
		HighPriority: 2, MediumPriority: 0, LowPriority: 1,
	}, stats)
	assert.Equal(t, stats.Total, stats.Todo+stats.InProgress+stats.Done)
	assert.Equal(t, stats.Total, stats.HighPriority+stats.MediumPriority+stats.LowPriority)
}
