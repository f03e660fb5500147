// Package config loads application settings from the environment.
package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds every setting shared by the API server and the bot.
type Config struct {
	Env      string
	LogLevel string

	BotToken       string
	SecretKey      string
	SessionTTL     time.Duration
	InitDataMaxAge time.Duration

	Database DatabaseConfig
	HTTP     HTTPConfig
	Bot      BotConfig
}

// DatabaseConfig describes how to reach the database.
type DatabaseConfig struct {
	Driver  string
	URL     string
	User    string
	Pass    string
	Host    string
	Port    string
	Name    string
	SSLMode string
}

// HTTPConfig holds the API server settings.
type HTTPConfig struct {
	Host            string
	Port            string
	FrontendURL     string
	ShutdownTimeout time.Duration
}

// Addr returns the listen address of the API server.
func (c HTTPConfig) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// BotConfig holds the Telegram bot settings.
type BotConfig struct {
	WebAppURL     string
	UseWebhook    bool
	WebhookURL    string
	WebhookListen string
	// WebhookSecret is registered as secret_token and must come back in the
	// X-Telegram-Bot-Api-Secret-Token header of every delivery.
	WebhookSecret string
	Workers       int
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvLocal)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("BOT_TOKEN", "")
	v.SetDefault("SECRET_KEY", "")
	v.SetDefault("SESSION_TTL", "24h")
	v.SetDefault("INIT_DATA_MAX_AGE", "0s")

	v.SetDefault("DB_DRIVER", DriverMySQL)
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_USER", "")
	v.SetDefault("DB_PASS", "")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "")
	v.SetDefault("DB_NAME", "tasktracker")
	v.SetDefault("DB_SSLMODE", "disable")

	v.SetDefault("API_HOST", "0.0.0.0")
	v.SetDefault("API_PORT", "8000")
	v.SetDefault("FRONTEND_URL", "http://localhost:3000")
	v.SetDefault("SHUTDOWN_TIMEOUT", "5s")

	v.SetDefault("WEBAPP_URL", "http://localhost")
	v.SetDefault("USE_WEBHOOK", false)
	v.SetDefault("WEBHOOK_URL", "")
	v.SetDefault("WEBHOOK_LISTEN", ":8443")
	v.SetDefault("WEBHOOK_SECRET", "")
	v.SetDefault("BOT_WORKERS", 16)
}

// Load reads .env (if present) and the process environment.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		// A missing .env is fine; the environment may already be populated.
		_ = godotenv.Load(f)
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Env:            strings.ToLower(v.GetString("ENV")),
		LogLevel:       strings.ToLower(v.GetString("LOG_LEVEL")),
		BotToken:       v.GetString("BOT_TOKEN"),
		SecretKey:      v.GetString("SECRET_KEY"),
		SessionTTL:     v.GetDuration("SESSION_TTL"),
		InitDataMaxAge: v.GetDuration("INIT_DATA_MAX_AGE"),
		Database: DatabaseConfig{
			Driver:  strings.ToLower(v.GetString("DB_DRIVER")),
			URL:     v.GetString("DATABASE_URL"),
			User:    v.GetString("DB_USER"),
			Pass:    v.GetString("DB_PASS"),
			Host:    v.GetString("DB_HOST"),
			Port:    v.GetString("DB_PORT"),
			Name:    v.GetString("DB_NAME"),
			SSLMode: v.GetString("DB_SSLMODE"),
		},
		HTTP: HTTPConfig{
			Host:            v.GetString("API_HOST"),
			Port:            v.GetString("API_PORT"),
			FrontendURL:     v.GetString("FRONTEND_URL"),
			ShutdownTimeout: v.GetDuration("SHUTDOWN_TIMEOUT"),
		},
		Bot: BotConfig{
			WebAppURL:     v.GetString("WEBAPP_URL"),
			UseWebhook:    v.GetBool("USE_WEBHOOK"),
			WebhookURL:    v.GetString("WEBHOOK_URL"),
			WebhookListen: v.GetString("WEBHOOK_LISTEN"),
			WebhookSecret: v.GetString("WEBHOOK_SECRET"),
			Workers:       v.GetInt("BOT_WORKERS"),
		},
	}

	if cfg.SecretKey == "" {
		// Session tokens fall back to the bot token so a single secret is enough locally.
		cfg.SecretKey = cfg.BotToken
	}
	if cfg.Bot.Workers <= 0 {
		cfg.Bot.Workers = 1
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports settings the application cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.BotToken == "" {
		errs = append(errs, errors.New("BOT_TOKEN is required"))
	}
	switch c.Env {
	case EnvLocal, EnvDev, EnvProd:
	default:
		errs = append(errs, fmt.Errorf("unknown ENV %q", c.Env))
	}
	switch c.Database.Driver {
	case DriverMySQL, DriverPostgres, DriverSQLite:
	default:
		errs = append(errs, fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver))
	}
	if (c.Bot.UseWebhook || c.Bot.WebhookURL != "") && c.Bot.WebhookSecret == "" {
		errs = append(errs, errors.New("WEBHOOK_SECRET is required when webhooks are enabled"))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}
	return errors.Join(errs...)
}
