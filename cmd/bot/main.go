package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"tg-task-tracker/internal/bot"
	"tg-task-tracker/internal/config"
	"tg-task-tracker/internal/database"
	"tg-task-tracker/internal/logger"
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
		log.Error().Err(err).Msg("bot exited")
		os.Exit(1)
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
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

	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return fmt.Errorf("connect to telegram: %w", err)
	}
	api.Debug = cfg.LogLevel == "debug" || cfg.LogLevel == "trace"
	log.Info().Str("bot", api.Self.UserName).Msg("authorized on telegram")

	svc := services.New(db, cfg)
	dispatcher := bot.NewDispatcher(api, svc.Tasks, svc.Users, cfg.Bot.WebAppURL, log)
	runner := bot.NewRunner(api, dispatcher, cfg.Bot, log)
	if err := runner.Setup(); err != nil {
		// The bot still works without the command list or the menu button.
		log.Warn().Err(err).Msg("failed to configure bot commands")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return runner.Run(ctx)
}
