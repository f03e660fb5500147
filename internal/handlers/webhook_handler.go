package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"tg-task-tracker/internal/services"
)

// UpdateHandler processes one Telegram update.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, update tgbotapi.Update) error
}

// WebhookHandler feeds Telegram webhook deliveries to the bot.
type WebhookHandler struct {
	updates UpdateHandler
	secret  string
	log     zerolog.Logger
}

// NewWebhookHandler creates a new WebhookHandler. Deliveries must carry secret
// in the X-Telegram-Bot-Api-Secret-Token header.
func NewWebhookHandler(updates UpdateHandler, secret string, log zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{
		updates: updates,
		secret:  secret,
		log:     log.With().Str("component", "webhook").Logger(),
	}
}

// ReceiveHandler accepts an update. Telegram retries non-2xx answers, so
// processing failures are logged and still acknowledged.
func (h *WebhookHandler) ReceiveHandler(c *gin.Context) {
	if !services.VerifyWebhookSecret(c.GetHeader(services.WebhookSecretHeader), h.secret) {
		h.log.Warn().Str("client_ip", c.ClientIP()).Msg("rejected webhook delivery with a bad secret token")
		detail(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var update tgbotapi.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		h.log.Warn().Err(err).Msg("failed to decode webhook update")
		c.JSON(http.StatusOK, gin.H{"status": "error", "message": "invalid update"})
		return
	}

	if err := h.updates.HandleUpdate(c.Request.Context(), update); err != nil {
		h.log.Error().Err(err).Int("update_id", update.UpdateID).Msg("failed to process webhook update")
		c.JSON(http.StatusOK, gin.H{"status": "error", "message": "update not processed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
