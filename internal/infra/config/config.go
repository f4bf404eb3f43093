package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	TelegramToken          string `env:"TELEGRAM_TOKEN"`
	DatabaseURL            string `env:"DATABASE_URL"`
	StoreDriver            string `env:"STORE_DRIVER" envDefault:"postgres"`
	MemorySeedFile         string `env:"MEMORY_SEED_FILE"` // YAML directory seed for the memory driver
	LogLevel               string `env:"LOG_LEVEL" envDefault:"info"`
	Environment            string `env:"ENVIRONMENT" envDefault:"development"`
	CronSpecAutoRemind     string `env:"CRON_SPEC_AUTO_REMIND" envDefault:"0 9 * * *"` // Daily at 09:00
	MetricsAddr            string `env:"METRICS_ADDR" envDefault:":9090"`
	PlanningBaseURL        string `env:"PLANNING_BASE_URL"`
	StatusFetchConcurrency int    `env:"STATUS_FETCH_CONCURRENCY" envDefault:"8"`
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// godotenv.Load will not override existing env variables; a missing .env is fine.
	_ = godotenv.Load()
	return parse(env.Options{})
}

func parse(opts env.Options) (*AppConfig, error) {
	cfg := &AppConfig{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.Environment = strings.ToLower(cfg.Environment)
	cfg.StoreDriver = strings.ToLower(cfg.StoreDriver)

	switch cfg.StoreDriver {
	case StoreDriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is not set")
		}
	case StoreDriverMemory:
	default:
		return nil, fmt.Errorf("invalid STORE_DRIVER %q, expected %s or %s", cfg.StoreDriver, StoreDriverPostgres, StoreDriverMemory)
	}

	if cfg.StatusFetchConcurrency <= 0 {
		return nil, fmt.Errorf("invalid STATUS_FETCH_CONCURRENCY: %d", cfg.StatusFetchConcurrency)
	}
	return cfg, nil
}

// RequireTelegram checks the settings only the bot needs.
func (c *AppConfig) RequireTelegram() error {
	if c.TelegramToken == "" {
		return fmt.Errorf("TELEGRAM_TOKEN is not set")
	}
	return nil
}
