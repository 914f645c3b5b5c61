package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Telegram update delivery modes.
const (
	TelegramModePolling = "polling"
	TelegramModeWebhook = "webhook"
)

// Config holds all configuration for the application.
type Config struct {
	AppEnv                string
	LogLevel              string
	SessionDefaultTimeout time.Duration

	Telegram TelegramConfig
	Postgres PostgresConfig
}

// TelegramConfig configures the Telegram event source. An empty token
// disables it.
type TelegramConfig struct {
	Token             string
	Mode              string
	WorkerPoolSize    int
	PollTimeout       int
	WebhookURL        string
	WebhookListenPort string
}

func (t TelegramConfig) Enabled() bool { return t.Token != "" }

// PostgresConfig configures the LISTEN/NOTIFY event source. An empty URL
// disables it.
type PostgresConfig struct {
	URL            string
	Channel        string
	WorkerPoolSize int
}

func (p PostgresConfig) Enabled() bool { return p.URL != "" }

var envBindings = map[string]string{
	"app.env":                      "APP_ENV",
	"log.level":                    "LOG_LEVEL",
	"session.default_timeout":      "SESSION_DEFAULT_TIMEOUT",
	"telegram.token":               "TELEGRAM_TOKEN",
	"telegram.mode":                "TELEGRAM_MODE",
	"telegram.worker_pool_size":    "TELEGRAM_WORKER_POOL_SIZE",
	"telegram.poll_timeout":        "TELEGRAM_POLL_TIMEOUT",
	"telegram.webhook_url":         "TELEGRAM_WEBHOOK_URL",
	"telegram.webhook_listen_port": "TELEGRAM_WEBHOOK_LISTEN_PORT",
	"postgres.url":                 "POSTGRES_URL",
	"postgres.channel":             "POSTGRES_CHANNEL",
	"postgres.worker_pool_size":    "POSTGRES_WORKER_POOL_SIZE",
}

// Load loads configuration from the environment and an optional .env file.
func Load() (*Config, error) {
	// A missing .env is fine, OS-set env vars are used instead.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("could not bind %s: %w", key, err)
		}
	}

	v.SetDefault("app.env", "dev")
	v.SetDefault("log.level", "info")
	v.SetDefault("session.default_timeout", "5m")
	v.SetDefault("telegram.mode", TelegramModePolling)
	v.SetDefault("telegram.worker_pool_size", 10)
	v.SetDefault("telegram.poll_timeout", 60)
	v.SetDefault("telegram.webhook_listen_port", "8080")
	v.SetDefault("postgres.channel", "simbot_events")
	v.SetDefault("postgres.worker_pool_size", 4)

	cfg := Config{
		AppEnv:                v.GetString("app.env"),
		LogLevel:              v.GetString("log.level"),
		SessionDefaultTimeout: v.GetDuration("session.default_timeout"),
		Telegram: TelegramConfig{
			Token:             v.GetString("telegram.token"),
			Mode:              v.GetString("telegram.mode"),
			WorkerPoolSize:    v.GetInt("telegram.worker_pool_size"),
			PollTimeout:       v.GetInt("telegram.poll_timeout"),
			WebhookURL:        v.GetString("telegram.webhook_url"),
			WebhookListenPort: v.GetString("telegram.webhook_listen_port"),
		},
		Postgres: PostgresConfig{
			URL:            v.GetString("postgres.url"),
			Channel:        v.GetString("postgres.channel"),
			WorkerPoolSize: v.GetInt("postgres.worker_pool_size"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.SessionDefaultTimeout < 0 {
		return fmt.Errorf("SESSION_DEFAULT_TIMEOUT must not be negative, got %s", c.SessionDefaultTimeout)
	}

	if c.Postgres.Enabled() && c.Postgres.WorkerPoolSize <= 0 {
		return fmt.Errorf("POSTGRES_WORKER_POOL_SIZE must be positive, got %d", c.Postgres.WorkerPoolSize)
	}

	if !c.Telegram.Enabled() {
		return nil
	}
	switch c.Telegram.Mode {
	case TelegramModePolling:
	case TelegramModeWebhook:
		if c.Telegram.WebhookURL == "" {
			return errors.New("TELEGRAM_WEBHOOK_URL is required when TELEGRAM_MODE is webhook")
		}
	default:
		return fmt.Errorf("TELEGRAM_MODE must be %q or %q, got %q", TelegramModePolling, TelegramModeWebhook, c.Telegram.Mode)
	}
	if c.Telegram.WorkerPoolSize <= 0 {
		return fmt.Errorf("TELEGRAM_WORKER_POOL_SIZE must be positive, got %d", c.Telegram.WorkerPoolSize)
	}
	return nil
}
