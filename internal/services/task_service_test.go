package services_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tg-task-tracker/internal/models"
	"tg-task-tracker/internal/repositories"
	"tg-task-tracker/internal/services"
	"tg-task-tracker/testutil"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func setupTaskService(t *testing.T) (*services.Services, *models.User, *models.User, *fakeClock) {
	t.Helper()
	db := testutil.OpenTestDB(t)
	svc := services.New(db, testutil.TestConfig())

	clock := &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	svc.Tasks.SetClock(clock.Now)

	owner := testutil.CreateTestUser(t, svc, testutil.NormalTelegramID, "owner")
	other := testutil.CreateTestUser(t, svc, testutil.OtherTelegramID, "other")
	return svc, owner, other, clock
}

func TestTaskService_CreateDefaults(t *testing.T) {
	svc, owner, _, clock := setupTaskService(t)

	task, err := svc.Tasks.CreateTask(t.Context(), owner.ID, models.TaskCreateRequest{Title: "Buy milk"})
	require.NoError(t, err)

	assert.NotZero(t, task.ID)
	assert.Equal(t, owner.ID, task.UserID)
	assert.Equal(t, models.StatusTodo, task.Status)
	assert.Equal(t, models.PriorityMedium, task.Priority)
	assert.True(t, clock.now.Equal(task.CreatedAt))
	assert.True(t, clock.now.Equal(task.UpdatedAt))
}

func TestTaskService_CreateRejectsBadInput(t *testing.T) {
	svc, owner, _, _ := setupTaskService(t)

	for _, req := range []models.TaskCreateRequest{
		{Title: ""},
		{Title: " \t"},
		{Title: strings.Repeat("x", models.TitleMaxLength+1)},
		{Title: "ok", Priority: "urgent"},
	} {
		_, err := svc.Tasks.CreateTask(t.Context(), owner.ID, req)
		var verr *models.ValidationError
		assert.ErrorAs(t, err, &verr, "request %+v", req)
	}
}

func TestTaskService_EmptyUpdateRefreshesUpdatedAt(t *testing.T) {
	svc, owner, _, clock := setupTaskService(t)

	task, err := svc.Tasks.CreateTask(t.Context(), owner.ID, models.TaskCreateRequest{Title: "Stay the same"})
	require.NoError(t, err)

	clock.Advance(time.Minute)
	updated, err := svc.Tasks.UpdateTask(t.Context(), owner.ID, task.ID, models.TaskUpdateRequest{})
	require.NoError(t, err)

	assert.Equal(t, task.Title, updated.Title)
	assert.Equal(t, task.Status, updated.Status)
	assert.True(t, task.CreatedAt.Equal(updated.CreatedAt))
	assert.True(t, updated.UpdatedAt.After(task.UpdatedAt))
	assert.True(t, clock.now.Equal(updated.UpdatedAt))
}

func TestTaskService_SetStatus(t *testing.T) {
	svc, owner, other, _ := setupTaskService(t)

	task, err := svc.Tasks.CreateTask(t.Context(), owner.ID, models.TaskCreateRequest{Title: "Ship it"})
	require.NoError(t, err)

	done, err := svc.Tasks.SetStatus(t.Context(), owner.ID, task.ID, models.StatusDone)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDone, done.Status)

	_, err = svc.Tasks.SetStatus(t.Context(), other.ID, task.ID, models.StatusTodo)
	assert.ErrorIs(t, err, repositories.ErrTaskNotFound)

	_, err = svc.Tasks.SetStatus(t.Context(), owner.ID, task.ID, models.TaskStatus("archived"))
	var verr *models.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestTaskService_ListFiltersAndOrder(t *testing.T) {
	svc, owner, other, clock := setupTaskService(t)
	ctx := t.Context()

	var ids []int
	for _, title := range []string{"one", "two", "three"} {
		task, err := svc.Tasks.CreateTask(ctx, owner.ID, models.TaskCreateRequest{Title: title})
		require.NoError(t, err)
		ids = append(ids, task.ID)
		clock.Advance(time.Second)
	}
	_, err := svc.Tasks.CreateTask(ctx, other.ID, models.TaskCreateRequest{Title: "foreign"})
	require.NoError(t, err)

	_, err = svc.Tasks.SetStatus(ctx, owner.ID, ids[1], models.StatusDone)
	require.NoError(t, err)

	all, err := svc.Tasks.ListTasks(ctx, owner.ID, models.TaskFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []int{ids[2], ids[1], ids[0]}, []int{all[0].ID, all[1].ID, all[2].ID})

	done := models.StatusDone
	filtered, err := svc.Tasks.ListTasks(ctx, owner.ID, models.TaskFilter{Status: &done})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, ids[1], filtered[0].ID)
	for _, task := range filtered {
		assert.Equal(t, models.StatusDone, task.Status)
	}

	none, err := svc.Tasks.ListTasks(ctx, 999999, models.TaskFilter{})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestTaskService_DeleteTwice(t *testing.T) {
	svc, owner, other, _ := setupTaskService(t)

	task, err := svc.Tasks.CreateTask(t.Context(), owner.ID, models.TaskCreateRequest{Title: "Gone soon"})
	require.NoError(t, err)

	_, err = svc.Tasks.DeleteTask(t.Context(), other.ID, task.ID)
	assert.ErrorIs(t, err, repositories.ErrTaskNotFound)

	deleted, err := svc.Tasks.DeleteTask(t.Context(), owner.ID, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Gone soon", deleted.Title)

	_, err = svc.Tasks.DeleteTask(t.Context(), owner.ID, task.ID)
	assert.ErrorIs(t, err, repositories.ErrTaskNotFound)
}

func TestTaskService_Stats(t *testing.T) {
	svc, owner, _, _ := setupTaskService(t)
	ctx := t.Context()

	specs := []struct {
		priority models.TaskPriority
		status   models.TaskStatus
	}{
		{models.PriorityHigh, models.StatusTodo},
		{models.PriorityHigh, models.StatusDone},
		{models.PriorityMedium, models.StatusInProgress},
		{models.PriorityLow, models.StatusInProgress},
		{models.PriorityLow, models.StatusTodo},
	}
	for _, s := range specs {
		task, err := svc.Tasks.CreateTask(ctx, owner.ID, models.TaskCreateRequest{Title: "t", Priority: s.priority})
		require.NoError(t, err)
		if s.status != models.StatusTodo {
			_, err = svc.Tasks.SetStatus(ctx, owner.ID, task.ID, s.status)
			require.NoError(t, err)
		}
	}

	stats, err := svc.Tasks.Stats(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, &models.TaskStats{
		Total: 5, Todo: 2, InProgress: 2, Done: 1,
		HighPriority: 2, MediumPriority: 1, LowPriority: 2,
	}, stats)
}
