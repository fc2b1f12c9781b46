package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_TIMEZONE", "UTC")
	t.Setenv("POSTGRES_DSN", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "opportunity-service", cfg.App.Name)
	assert.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
	assert.Equal(t, 30*time.Second, cfg.App.RequestTimeout())
	assert.Empty(t, cfg.Postgres.DSN)
	assert.Equal(t, "administrador@email.com", cfg.Bootstrap.AdminEmail)
	assert.Equal(t, 5, cfg.Assignment.MaxReserveAttempts)
	assert.Equal(t, 5*time.Second, cfg.Assignment.LockTTL())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_TIMEZONE", "UTC")
	t.Setenv("APP_PORT", "9090")
	t.Setenv("ASSIGNMENT_MAX_RESERVE_ATTEMPTS", "9")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("HTTP_REQUEST_TIMEOUT_SECONDS", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.App.Port)
	assert.Equal(t, 9, cfg.Assignment.MaxReserveAttempts)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, 30, cfg.App.RequestTimeoutSeconds)
}

func TestLoadRejectsUnknownTimeZone(t *testing.T) {
	t.Setenv("APP_TIMEZONE", "Mars/Olympus_Mons")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsBadRedisDB(t *testing.T) {
	t.Setenv("APP_TIMEZONE", "UTC")
	t.Setenv("REDIS_DB", "x")

	_, err := Load()
	assert.Error(t, err)
}
