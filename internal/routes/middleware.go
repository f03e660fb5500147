package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"tg-task-tracker/internal/handlers"
	"tg-task-tracker/internal/models"
	"tg-task-tracker/internal/services"
)

const (
	requestIDHeader = "X-Request-ID"
	bearerPrefix    = "Bearer "

	AuthMethodInitData = "init_data"
	AuthMethodSession  = "session"
)

// AuthMiddleware authenticates the caller from the Authorization header.
// The header carries either raw initData or a session token, each optionally
// prefixed with "Bearer ".
func AuthMiddleware(initData *services.InitDataService, jwtService *services.JWTService, log zerolog.Logger) gin.HandlerFunc {
	log = log.With().Str("component", "auth").Logger()
	return func(c *gin.Context) {
		credential := strings.TrimSpace(c.GetHeader("Authorization"))
		if len(credential) >= len(bearerPrefix) && strings.EqualFold(credential[:len(bearerPrefix)], bearerPrefix) {
			credential = strings.TrimSpace(credential[len(bearerPrefix):])
		}
		if credential == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Authorization header required"})
			return
		}

		// initData always carries "hash=..."; JWTs are unpadded base64url and never contain '='.
		if strings.Contains(credential, "=") {
			data, err := initData.Validate(credential)
			if err != nil || data.User == nil || data.User.ID == 0 {
				log.Warn().Err(err).Str("request_id", c.GetString(requestIDHeader)).Msg("rejected initData")
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Unauthorized"})
				return
			}
			c.Set(handlers.ContextTelegramUser, *data.User)
			c.Set(handlers.ContextAuthMethod, AuthMethodInitData)
			c.Next()
			return
		}

		claims, err := jwtService.ValidateToken(credential)
		if err != nil {
			log.Warn().Err(err).Str("request_id", c.GetString(requestIDHeader)).Msg("rejected session token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Unauthorized"})
			return
		}
		c.Set(handlers.ContextTelegramUser, models.TelegramUser{ID: claims.TelegramID})
		c.Set(handlers.ContextAuthMethod, AuthMethodSession)
		c.Next()
	}
}

// RequestID tags each request with an id, reusing the client's when given.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDHeader, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// RequestLogger writes one access log line per request.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	log = log.With().Str("component", "http").Logger()
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		ev := log.Info()
		if status >= http.StatusInternalServerError {
			ev = log.Error()
		}
		ev.Str("request_id", c.GetString(requestIDHeader)).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("request handled")
	}
}

// Recovery turns panics into a generic 500 answer.
func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		log.Error().
			Interface("panic", recovered).
			Str("request_id", c.GetString(requestIDHeader)).
			Str("path", c.Request.URL.Path).
			Msg("recovered from panic")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
	})
}
