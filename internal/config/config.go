package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	AppEnv      string `env:"APP_ENV" default:"development"`
	Port        string `env:"PORT" default:"8080"`
	AppURL      string `env:"APP_URL" default:"http://localhost:8080"`
	DatabaseURL string `env:"DATABASE_URL"`
	RedisURL    string `env:"REDIS_URL"`
	LogLevel    string `env:"LOG_LEVEL" default:"info"`
	LogFormat   string `env:"LOG_FORMAT" default:"text"`

	MaxConnectionsPerForm int `env:"MAX_CONNECTIONS_PER_FORM" default:"200"`

	// SubmitRatePerSecond and SubmitBurst throttle response submissions per IP.
	SubmitRatePerSecond float64 `env:"SUBMIT_RATE_PER_SECOND" default:"5"`
	SubmitBurst         int     `env:"SUBMIT_BURST" default:"10"`

	// AnalyticsDebounce collapses analytics_updated broadcasts per form.
	AnalyticsDebounce time.Duration `env:"ANALYTICS_DEBOUNCE" default:"1s"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	required := map[string]string{
		"DATABASE_URL": cfg.DatabaseURL,
		"REDIS_URL":    cfg.RedisURL,
	}
	for name, value := range required {
		if value == "" {
			return fmt.Errorf("%s is required", name)
		}
	}

	if cfg.MaxConnectionsPerForm < 1 {
		return fmt.Errorf("MAX_CONNECTIONS_PER_FORM must be positive, got %d", cfg.MaxConnectionsPerForm)
	}
	if cfg.SubmitRatePerSecond <= 0 {
		return fmt.Errorf("SUBMIT_RATE_PER_SECOND must be positive, got %f", cfg.SubmitRatePerSecond)
	}

	return nil
}
