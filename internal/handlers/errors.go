// Package handlers implements the gin handlers of the REST API.
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"tg-task-tracker/internal/models"
	"tg-task-tracker/internal/repositories"
	"tg-task-tracker/internal/services"
)

const (
	// ContextTelegramUser is the gin context key of the authenticated models.TelegramUser.
	ContextTelegramUser = "telegram_user"
	// ContextAuthMethod is the gin context key naming how the request was authenticated.
	ContextAuthMethod   = "auth_method"
)

// detail writes the uniform {"detail": ...} error body.
func detail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": message})
}

// respondError maps domain errors to status codes. Anything unexpected is
// logged and answered with fallback only.
func respondError(c *gin.Context, log zerolog.Logger, err error, fallback string) {
	var verr *models.ValidationError
	switch {
	case errors.Is(err, services.ErrUnauthorized):
		detail(c, http.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, repositories.ErrUserNotFound):
		detail(c, http.StatusNotFound, "User not found")
	case errors.Is(err, repositories.ErrTaskNotFound):
		detail(c, http.StatusNotFound, "Task not found")
	case errors.As(err, &verr):
		detail(c, http.StatusUnprocessableEntity, verr.Message)
	default:
		log.Error().
			Err(err).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Msg(fallback)
		detail(c, http.StatusInternalServerError, fallback)
	}
}

// bindingError answers a request body that could not be decoded or validated.
func bindingError(c *gin.Context, err error) {
	var ferr *models.ValidationError
	if errors.As(err, &ferr) {
		detail(c, http.StatusUnprocessableEntity, ferr.Message)
		return
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		detail(c, http.StatusUnprocessableEntity, fieldMessage(fe))
		return
	}
	detail(c, http.StatusUnprocessableEntity, "Invalid request payload")
}

func fieldMessage(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	}
	return fmt.Sprintf("%s is invalid", field)
}
