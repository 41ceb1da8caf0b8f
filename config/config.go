package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all the configuration for the application
type Config struct {
	BotToken        string        `env:"BOT_TOKEN"`
	DeepseekAPIKey  string        `env:"DEEPSEEK_API_KEY"`
	DatabasePath    string        `env:"DB_PATH" envDefault:"./data/quizbot.db"`
	CatalogPath     string        `env:"CATALOG_PATH" envDefault:"assets/quizzes.json"`
	Debug           bool          `env:"DEBUG"`
	LogMode         string        `env:"LOG_MODE" envDefault:"dev"`
	LogFile         string        `env:"LOG_FILE"`
	FeedbackTimeout time.Duration `env:"FEEDBACK_TIMEOUT" envDefault:"5s"`
}

// Load loads the configuration from environment variables
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if cfg.BotToken == "" {
		return nil, errors.New("BOT_TOKEN environment variable is required")
	}

	return &cfg, nil
}
