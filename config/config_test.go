package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("JWT_KEY", "secret")
	t.Setenv("POSTGRES_URL", "postgres://u:p@localhost:5432/db")
	t.Setenv("ALLOWED_ORIGINS", "http://localhost:3000, https://popquiz.app")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":5000", cfg.Address())
	assert.Equal(t, []string{"http://localhost:3000", "https://popquiz.app"}, cfg.AllowedOrigins)
	assert.Equal(t, "localhost:6379", cfg.Valkey.Addr)
	assert.Equal(t, 24*time.Hour, cfg.Valkey.RoomTTL)
	assert.Equal(t, 2*time.Hour, cfg.Valkey.CoopTTL)
	assert.Equal(t, 5*time.Minute, cfg.Game.EmptyRoomGrace)
	assert.Equal(t, time.Hour, cfg.Game.ReapInterval)
	assert.Equal(t, 3, cfg.Game.CountdownFrom)
	assert.False(t, cfg.Debug)
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "8080")
	t.Setenv("VALKEY_DB", "2")
	t.Setenv("EMPTY_ROOM_GRACE", "30s")
	t.Setenv("LOG_PRETTY", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Address())
	assert.Equal(t, 2, cfg.Valkey.DB)
	assert.Equal(t, 30*time.Second, cfg.Game.EmptyRoomGrace)
	assert.True(t, cfg.LogPretty)
}

func TestLoadErrors(t *testing.T) {
	t.Setenv("JWT_KEY", "")
	t.Setenv("POSTGRES_URL", "postgres://localhost/db")
	t.Setenv("ALLOWED_ORIGINS", "http://localhost:3000")
	t.Setenv("REAP_INTERVAL", "every hour")

	_, err := Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingEnv)
	assert.Contains(t, err.Error(), "JWT_KEY")
	assert.Contains(t, err.Error(), "REAP_INTERVAL")
}
