package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"tg-task-tracker/internal/models"
	"tg-task-tracker/internal/services"
)

// TaskHandler serves the /api/tasks resource.
type TaskHandler struct {
	taskService *services.TaskService
	userService *services.UserService
	log         zerolog.Logger
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(taskService *services.TaskService, userService *services.UserService, log zerolog.Logger) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
		userService: userService,
		log:         log.With().Str("component", "task_handler").Logger(),
	}
}

// currentUser resolves the authenticated Telegram identity to a stored user.
// The API never creates users; that happens through the bot.
func (h *TaskHandler) currentUser(c *gin.Context) (*models.User, bool) {
	tgUser, ok := TelegramUserFrom(c)
	if !ok {
		detail(c, http.StatusUnauthorized, "Unauthorized")
		return nil, false
	}
	u, err := h.userService.GetByTelegramID(c.Request.Context(), tgUser.ID)
	if err != nil {
		respondError(c, h.log, err, "Error fetching user")
		return nil, false
	}
	return u, true
}

func taskID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		detail(c, http.StatusUnprocessableEntity, "Invalid task id")
		return 0, false
	}
	return id, true
}

// ListTasksHandler returns the user's tasks, optionally filtered by status and priority.
func (h *TaskHandler) ListTasksHandler(c *gin.Context) {
	var filter models.TaskFilter
	if v := c.Query("status"); v != "" {
		status := models.TaskStatus(v)
		if !status.Valid() {
			detail(c, http.StatusUnprocessableEntity, "status must be one of todo, in_progress, done")
			return
		}
		filter.Status = &status
	}
	if v := c.Query("priority"); v != "" {
		priority := models.TaskPriority(v)
		if !priority.Valid() {
			detail(c, http.StatusUnprocessableEntity, "priority must be one of low, medium, high")
			return
		}
		filter.Priority = &priority
	}

	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	tasks, err := h.taskService.ListTasks(c.Request.Context(), user.ID, filter)
	if err != nil {
		respondError(c, h.log, err, "Error fetching tasks")
		return
	}
	c.JSON(http.StatusOK, tasks)
}

// CreateTaskHandler creates a task for the user.
func (h *TaskHandler) CreateTaskHandler(c *gin.Context) {
	var req models.TaskCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindingError(c, err)
		return
	}

	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	task, err := h.taskService.CreateTask(c.Request.Context(), user.ID, req)
	if err != nil {
		respondError(c, h.log, err, "Error creating task")
		return
	}
	c.JSON(http.StatusOK, task)
}

// GetTaskHandler returns one task.
func (h *TaskHandler) GetTaskHandler(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	task, err := h.taskService.GetTask(c.Request.Context(), user.ID, id)
	if err != nil {
		respondError(c, h.log, err, "Error fetching task")
		return
	}
	c.JSON(http.StatusOK, task)
}

// UpdateTaskHandler applies a partial update to a task.
func (h *TaskHandler) UpdateTaskHandler(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}

	var req models.TaskUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindingError(c, err)
		return
	}

	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	task, err := h.taskService.UpdateTask(c.Request.Context(), user.ID, id, req)
	if err != nil {
		respondError(c, h.log, err, "Error updating task")
		return
	}
	c.JSON(http.StatusOK, task)
}

// DeleteTaskHandler removes a task.
func (h *TaskHandler) DeleteTaskHandler(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	if _, err := h.taskService.DeleteTask(c.Request.Context(), user.ID, id); err != nil {
		respondError(c, h.log, err, "Error deleting task")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Task deleted"})
}

// StatsHandler returns aggregate counts of the user's tasks.
func (h *TaskHandler) StatsHandler(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	stats, err := h.taskService.Stats(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, h.log, err, "Error fetching statistics")
		return
	}
	c.JSON(http.StatusOK, stats)
}
