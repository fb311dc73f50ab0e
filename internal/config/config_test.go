package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMustLoadDefaults(t *testing.T) {
	for _, key := range []string{"DB_DRIVER", "DATABASE_URL", "SQLITE_PATH", "PORT", "JWT_SECRET",
		"JWT_EXPIRES_IN", "SEED_CATALOG", "TELEGRAM_BOT_TOKEN", "WEBHOOK_URL", "RENDER_EXTERNAL_URL", "LOG_LEVEL"} {
		t.Setenv(key, "")
	}

	cfg := MustLoad()
	assert.Equal(t, DriverSQLite, cfg.DBDriver)
	assert.Equal(t, "geekshop.db", cfg.SQLitePath)
	assert.Equal(t, ":8080", cfg.ServerPort)
	assert.Equal(t, 24*time.Hour, cfg.JWTExpiresIn)
	assert.True(t, cfg.SeedCatalog)
	assert.Empty(t, cfg.WebhookURL)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
}

func TestMustLoadOverrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "Postgres")
	t.Setenv("PORT", "9000")
	t.Setenv("JWT_EXPIRES_IN", "30m")
	t.Setenv("SEED_CATALOG", "false")
	t.Setenv("WEBHOOK_URL", "")
	t.Setenv("RENDER_EXTERNAL_URL", "https://shop.example.com")
	t.Setenv("LOG_LEVEL", "debug")

	cfg := MustLoad()
	assert.Equal(t, DriverPostgres, cfg.DBDriver)
	assert.Equal(t, ":9000", cfg.ServerPort)
	assert.Equal(t, 30*time.Minute, cfg.JWTExpiresIn)
	assert.False(t, cfg.SeedCatalog)
	assert.Equal(t, "https://shop.example.com/telegram", cfg.WebhookURL)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
}

func TestMustLoadIgnoresBadDuration(t *testing.T) {
	t.Setenv("JWT_EXPIRES_IN", "soon")
	assert.Equal(t, 24*time.Hour, MustLoad().JWTExpiresIn)
}
