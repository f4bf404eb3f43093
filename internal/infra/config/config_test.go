package config

import (
	"testing"

	"github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseEnv(vars map[string]string) (*AppConfig, error) {
	return parse(env.Options{Environment: vars})
}

func TestParseDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := parseEnv(map[string]string{"DATABASE_URL": "postgres://localhost/okr"})
	require.NoError(t, err)
	assert.Equal(t, StoreDriverPostgres, cfg.StoreDriver)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "0 9 * * *", cfg.CronSpecAutoRemind)
	assert.Equal(t, ":9090", cfg.MetricsAddr)
	assert.Equal(t, 8, cfg.StatusFetchConcurrency)
	assert.Error(t, cfg.RequireTelegram())
}

func TestParseNormalizesAndOverrides(t *testing.T) {
	t.Parallel()

	cfg, err := parseEnv(map[string]string{
		"STORE_DRIVER":             "Memory",
		"LOG_LEVEL":                "DEBUG",
		"ENVIRONMENT":              "Production",
		"TELEGRAM_TOKEN":           "123:abc",
		"STATUS_FETCH_CONCURRENCY": "3",
		"MEMORY_SEED_FILE":         "testdata/seed.yaml",
	})
	require.NoError(t, err)
	assert.Equal(t, StoreDriverMemory, cfg.StoreDriver)
	assert.Equal(t, "testdata/seed.yaml", cfg.MemorySeedFile)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, 3, cfg.StatusFetchConcurrency)
	assert.NoError(t, cfg.RequireTelegram())
}

func TestParseRejectsInvalid(t *testing.T) {
	t.Parallel()

	tests := map[string]map[string]string{
		"postgres without url":    {},
		"unknown driver":          {"STORE_DRIVER": "mysql"},
		"zero concurrency":        {"STORE_DRIVER": "memory", "STATUS_FETCH_CONCURRENCY": "0"},
		"non-numeric concurrency": {"STORE_DRIVER": "memory", "STATUS_FETCH_CONCURRENCY": "many"},
	}
	for name, vars := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := parseEnv(vars)
			assert.Error(t, err)
		})
	}
}
