package bot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"tg-task-tracker/internal/config"
	"tg-task-tracker/internal/services"
)

const (
	pollTimeoutSeconds = 60
	updateTimeout      = 30 * time.Second
)

// Commands is the command list registered with Telegram.
var Commands = []tgbotapi.BotCommand{
	{Command: "start", Description: "Start working with the bot"},
	{Command: "mytasks", Description: "List your tasks"},
	{Command: "addtask", Description: "Create a task"},
	{Command: "cancel", Description: "Abort task creation"},
	{Command: "stats", Description: "Task statistics"},
	{Command: "help", Description: "Help"},
}

// Runner feeds updates from Telegram to a Dispatcher, either by long polling
// or through a webhook listener.
type Runner struct {
	api        *tgbotapi.BotAPI
	dispatcher *Dispatcher
	cfg        config.BotConfig
	log        zerolog.Logger

	sem chan struct{}
	wg  sync.WaitGroup

	// mu guards chats. A chat has an entry while one of its updates is being
	// handled; later updates for it wait in the slice, in arrival order.
	mu    sync.Mutex
	chats map[int64][]tgbotapi.Update
}

// NewRunner creates a new Runner.
func NewRunner(api *tgbotapi.BotAPI, dispatcher *Dispatcher, cfg config.BotConfig, log zerolog.Logger) *Runner {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	return &Runner{
		api:        api,
		dispatcher: dispatcher,
		cfg:        cfg,
		log:        log.With().Str("component", "bot_runner").Logger(),
		sem:        make(chan struct{}, workers),
		chats:      make(map[int64][]tgbotapi.Update),
	}
}

// Setup registers the command list and the Web App menu button.
func (r *Runner) Setup() error {
	if _, err := r.api.Request(tgbotapi.NewSetMyCommands(Commands...)); err != nil {
		return fmt.Errorf("set commands: %w", err)
	}
	if !strings.HasPrefix(r.cfg.WebAppURL, "https://") {
		r.log.Warn().Str("webapp_url", r.cfg.WebAppURL).Msg("menu button not set, Web App URL must be https")
		return nil
	}

	params := tgbotapi.Params{}
	if err := params.AddInterface("menu_button", map[string]any{
		"type":    "web_app",
		"text":    "Open",
		"web_app": map[string]string{"url": r.cfg.WebAppURL},
	}); err != nil {
		return fmt.Errorf("encode menu button: %w", err)
	}
	if _, err := r.api.MakeRequest("setChatMenuButton", params); err != nil {
		return fmt.Errorf("set menu button: %w", err)
	}
	return nil
}

// RegisterWebhook points Telegram at webhookURL. Telegram echoes secret in the
// X-Telegram-Bot-Api-Secret-Token header of every delivery.
func RegisterWebhook(api *tgbotapi.BotAPI, webhookURL, secret string) error {
	if secret == "" {
		return errors.New("set webhook: secret token is required")
	}
	params := webhookParams(webhookURL, secret)
	if _, err := api.MakeRequest("setWebhook", params); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}
	return nil
}

func webhookParams(webhookURL, secret string) tgbotapi.Params {
	params := tgbotapi.Params{}
	params["url"] = webhookURL
	params.AddNonEmpty("secret_token", secret)
	params.AddBool("drop_pending_updates", true)
	return params
}

// Run blocks until ctx is cancelled and all in-flight updates are handled.
func (r *Runner) Run(ctx context.Context) error {
	var err error
	if r.cfg.WebhookURL != "" {
		err = r.runWebhook(ctx)
	} else {
		err = r.runPolling(ctx)
	}
	r.wg.Wait()
	r.log.Info().Msg("bot stopped")
	return err
}

func (r *Runner) runPolling(ctx context.Context) error {
	if _, err := r.api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		return fmt.Errorf("delete webhook: %w", err)
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeoutSeconds
	updates := r.api.GetUpdatesChan(u)
	r.log.Info().Str("bot", r.api.Self.UserName).Msg("polling for updates")

	for {
		select {
		case <-ctx.Done():
			r.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			r.dispatch(ctx, update)
		}
	}
}

func (r *Runner) runWebhook(ctx context.Context) error {
	if err := RegisterWebhook(r.api, r.cfg.WebhookURL, r.cfg.WebhookSecret); err != nil {
		return err
	}
	u, err := url.Parse(r.cfg.WebhookURL)
	if err != nil {
		return fmt.Errorf("parse webhook url: %w", err)
	}
	path := u.Path
	if path == "" {
		path = "/"
	}

	mux := http.NewServeMux()
	mux.Handle(path, r.webhookHandler(ctx))

	srv := &http.Server{
		Addr:              r.cfg.WebhookListen,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		r.log.Info().Str("addr", srv.Addr).Str("path", path).Msg("listening for webhook updates")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("webhook listener: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (r *Runner) webhookHandler(ctx context.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if !services.VerifyWebhookSecret(req.Header.Get(services.WebhookSecretHeader), r.cfg.WebhookSecret) {
			r.log.Warn().Str("remote_addr", req.RemoteAddr).Msg("rejected webhook delivery with a bad secret token")
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		update, err := r.api.HandleUpdate(req)
		if err != nil {
			r.log.Warn().Err(err).Msg("failed to decode webhook update")
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		r.dispatch(ctx, *update)
		w.WriteHeader(http.StatusOK)
	}
}

// chatOf returns the chat an update belongs to. Updates of one chat are
// handled one at a time, in arrival order.
func chatOf(update tgbotapi.Update) int64 {
	switch {
	case update.Message != nil && update.Message.Chat != nil:
		return update.Message.Chat.ID
	case update.CallbackQuery != nil:
		cq := update.CallbackQuery
		if cq.Message != nil && cq.Message.Chat != nil {
			return cq.Message.Chat.ID
		}
		if cq.From != nil {
			return cq.From.ID
		}
	}
	return 0
}

// dispatch hands update to a worker, waiting while all workers are busy. If
// its chat already has an update in flight, update is queued behind it.
func (r *Runner) dispatch(ctx context.Context, update tgbotapi.Update) {
	chatID := chatOf(update)

	r.mu.Lock()
	if pending, busy := r.chats[chatID]; busy {
		r.chats[chatID] = append(pending, update)
		r.mu.Unlock()
		return
	}
	r.chats[chatID] = nil
	r.mu.Unlock()

	select {
	case r.sem <- struct{}{}:
	case <-ctx.Done():
		r.mu.Lock()
		dropped := len(r.chats[chatID])
		delete(r.chats, chatID)
		r.mu.Unlock()
		r.log.Warn().Int64("chat_id", chatID).Int("dropped", dropped+1).Msg("shutting down, updates not handled")
		return
	}

	r.wg.Add(1)
	go func() {
		defer func() {
			<-r.sem
			r.wg.Done()
		}()
		for {
			r.handle(ctx, update)

			r.mu.Lock()
			pending := r.chats[chatID]
			if len(pending) == 0 {
				delete(r.chats, chatID)
				r.mu.Unlock()
				return
			}
			update = pending[0]
			r.chats[chatID] = pending[1:]
			r.mu.Unlock()
		}
	}()
}

func (r *Runner) handle(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error().Interface("panic", rec).Int("update_id", update.UpdateID).Msg("recovered from panic in update handler")
		}
	}()

	// In-flight updates finish even after shutdown starts.
	uctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), updateTimeout)
	defer cancel()
	if err := r.dispatcher.HandleUpdate(uctx, update); err != nil {
		r.log.Error().Err(err).Int("update_id", update.UpdateID).Msg("failed to handle update")
	}
}
