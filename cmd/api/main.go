package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"tg-task-tracker/internal/bot"
	"tg-task-tracker/internal/config"
	"tg-task-tracker/internal/database"
	"tg-task-tracker/internal/handlers"
	"tg-task-tracker/internal/logger"
	"tg-task-tracker/internal/routes"
	"tg-task-tracker/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Env, cfg.LogLevel)

	if err := run(cfg, log); err != nil {
		log.Error().Err(err).Msg("api server exited")
		os.Exit(1)
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	if cfg.Env != config.EnvLocal {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Open(cfg.Database, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(db); err != nil {
			log.Error().Err(err).Msg("failed to close database")
		}
	}()
	if err := database.Migrate(db); err != nil {
		return err
	}

	svc := services.New(db, cfg)

	var updates handlers.UpdateHandler
	if cfg.Bot.UseWebhook {
		api, err := tgbotapi.NewBotAPI(cfg.BotToken)
		if err != nil {
			return fmt.Errorf("connect to telegram: %w", err)
		}
		updates = bot.NewDispatcher(api, svc.Tasks, svc.Users, cfg.Bot.WebAppURL, log)
		if cfg.Bot.WebhookURL != "" {
			if err := bot.RegisterWebhook(api, cfg.Bot.WebhookURL, cfg.Bot.WebhookSecret); err != nil {
				return err
			}
			log.Info().Str("url", cfg.Bot.WebhookURL).Msg("webhook registered")
		}
	}

	server := &http.Server{
		Addr:              cfg.HTTP.Addr(),
		Handler:           routes.SetupRouter(db, cfg, svc, log, updates),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("setting up http server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen and serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	log.Info().Msg("shut down http server")
	return nil
}
