package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30, cfg.Server.TimeoutSeconds)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
	assert.Equal(t, 100, cfg.Worker.OutboxBatchSize)
	assert.Equal(t, 5*time.Second, cfg.Worker.OutboxPollInterval)
	assert.Equal(t, time.Hour, cfg.Worker.ExpandInterval)
	assert.Equal(t, 60, cfg.Worker.ExpandHorizonDays)
	assert.False(t, cfg.Email.Enabled)
	assert.Equal(t, float64(20), cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("BOOKING_SERVER_PORT", "9090")
	t.Setenv("BOOKING_DATABASE_HOST", "db.internal")
	t.Setenv("BOOKING_DATABASE_SSLMODE", "require")
	t.Setenv("BOOKING_WORKER_EXPAND_HORIZON_DAYS", "14")
	t.Setenv("BOOKING_LOGGING_LEVEL", "debug")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "require", cfg.Database.SSLMode)
	assert.Equal(t, 14, cfg.Worker.ExpandHorizonDays)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// Untouched values keep their defaults.
	assert.Equal(t, 5432, cfg.Database.Port)
}
