package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigCreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	cfg, err := loadFile(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestLoadConfigReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg := DefaultConfig()
	cfg.Game.Rounds = 3
	cfg.Game.Seed = 42
	cfg.Server.Port = "9090"
	require.NoError(t, SaveConfig(cfg, path))

	loaded, err := loadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.Game.Rounds)
	assert.Equal(t, int64(42), loaded.Game.Seed)
	assert.Equal(t, "9090", loaded.Server.Port)
	assert.Equal(t, 4, loaded.Game.PlayerCount)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("CFO_PORT", "7000")
	t.Setenv("CFO_LOG_LEVEL", "debug")
	t.Setenv("CFO_DB_DRIVER", "sqlite3")
	t.Setenv("DATABASE_URL", "file:test.db")
	t.Setenv("CFO_SEED", "7")
	t.Setenv("CFO_WHATSAPP_GROUP", "12345@g.us")

	cfg := DefaultConfig()
	ApplyEnv(&cfg)

	assert.Equal(t, "7000", cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, "file:test.db", cfg.Database.DSN)
	assert.Equal(t, int64(7), cfg.Game.Seed)
	assert.Equal(t, "12345@g.us", cfg.WhatsApp.GroupJID)
	assert.True(t, cfg.WhatsApp.Enabled)
}

func TestApplyEnvIgnoresBadSeed(t *testing.T) {
	t.Setenv("CFO_SEED", "not-a-number")

	cfg := DefaultConfig()
	ApplyEnv(&cfg)
	assert.Equal(t, int64(0), cfg.Game.Seed)
}
