package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("notification-service")
	require.NoError(t, err)

	assert.Equal(t, "notification-service", cfg.ServiceName)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 15*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 10*time.Minute, cfg.IdempotencyTTL)
	assert.Equal(t, "localhost:1025", cfg.SMTPAddr())
	assert.Equal(t, 10*time.Second, cfg.SMTPTimeout)
	assert.True(t, cfg.RunMigrations)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("REQUEST_TIMEOUT", "3s")
	t.Setenv("SMTP_PORT", "2525")
	t.Setenv("RUN_MIGRATIONS", "false")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "shop-service", cfg.ServiceName)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, 3*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 2525, cfg.SMTPPort)
	assert.False(t, cfg.RunMigrations)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shop.env")
	require.NoError(t, os.WriteFile(path, []byte("ORDER_EVENTS_TOPIC=orders.v2\nLOG_LEVEL=debug\n"), 0o600))
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "orders.v2", cfg.OrderTopic)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadRejectsNonPositiveTimeout(t *testing.T) {
	t.Setenv("REQUEST_TIMEOUT", "0s")
	_, err := Load("")
	require.Error(t, err)
}
