package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"tg-task-tracker/internal/models"
	"tg-task-tracker/internal/services"
)

// TelegramUserFrom returns the identity stored by the auth middleware.
func TelegramUserFrom(c *gin.Context) (models.TelegramUser, bool) {
	v, exists := c.Get(ContextTelegramUser)
	if !exists {
		return models.TelegramUser{}, false
	}
	u, ok := v.(models.TelegramUser)
	if !ok || u.ID == 0 {
		return models.TelegramUser{}, false
	}
	return u, true
}

// AuthHandler serves session and profile endpoints.
type AuthHandler struct {
	userService *services.UserService
	jwtService  *services.JWTService
	log         zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(userService *services.UserService, jwtService *services.JWTService, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		jwtService:  jwtService,
		log:         log.With().Str("component", "auth_handler").Logger(),
	}
}

// TokenHandler exchanges verified initData for a session token.
func (h *AuthHandler) TokenHandler(c *gin.Context) {
	tgUser, ok := TelegramUserFrom(c)
	if !ok {
		detail(c, http.StatusUnauthorized, "Unauthorized")
		return
	}
	u, err := h.userService.GetByTelegramID(c.Request.Context(), tgUser.ID)
	if err != nil {
		respondError(c, h.log, err, "Error fetching user")
		return
	}

	token, expiresAt, err := h.jwtService.GenerateToken(u)
	if err != nil {
		respondError(c, h.log, err, "Failed to generate token")
		return
	}
	c.JSON(http.StatusOK, models.SessionTokenResponse{Token: token, ExpiresAt: expiresAt})
}

// MeHandler returns the stored profile of the caller.
func (h *AuthHandler) MeHandler(c *gin.Context) {
	tgUser, ok := TelegramUserFrom(c)
	if !ok {
		detail(c, http.StatusUnauthorized, "Unauthorized")
		return
	}
	u, err := h.userService.GetByTelegramID(c.Request.Context(), tgUser.ID)
	if err != nil {
		respondError(c, h.log, err, "Error fetching user")
		return
	}
	c.JSON(http.StatusOK, u)
}
