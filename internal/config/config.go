package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const namespace = "TASKTRACKER"

// Config keeps runtime settings for the tracker.
type Config struct {
	DatabaseURL      string        `envconfig:"DATABASE_URL" default:"task_tracker.db"`
	CheckInterval    time.Duration `envconfig:"CHECK_INTERVAL" default:"5m"`
	DueSoonThreshold time.Duration `envconfig:"DUE_SOON_THRESHOLD" default:"1h"`
	LogLevel         string        `envconfig:"LOG_LEVEL" default:"info"`

	// Telegram delivery is enabled when both are set.
	TelegramToken  string `envconfig:"TELEGRAM_TOKEN"`
	TelegramChatID int64  `envconfig:"TELEGRAM_CHAT_ID"`

	// Web-push delivery is enabled when the VAPID key pair is set.
	VAPIDPublicKey  string `envconfig:"VAPID_PUBLIC_KEY"`
	VAPIDPrivateKey string `envconfig:"VAPID_PRIVATE_KEY"`
	VAPIDContact    string `envconfig:"VAPID_CONTACT"`
}

// Load reads configuration from environment variables with sane defaults.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process(namespace, &cfg); err != nil {
		return cfg, fmt.Errorf("load env: %w", err)
	}
	if cfg.CheckInterval <= 0 {
		return cfg, fmt.Errorf("check interval must be positive")
	}
	if cfg.DueSoonThreshold <= 0 {
		return cfg, fmt.Errorf("due soon threshold must be positive")
	}
	return cfg, nil
}

// SlogLevel maps the configured level string onto slog, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}
