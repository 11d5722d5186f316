package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("HOME", "/home/keeper")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "/home/keeper/.keeper/keeper.db", cfg.Database.Path)
	assert.Equal(t, 28, cfg.Moderation.MaxTimeoutDays)
	assert.Equal(t, 0x57F287, cfg.Notifications.EmbedColors.Success)
	assert.Error(t, cfg.Validate())
}

func TestLoadFileThenEnvironment(t *testing.T) {
	path := writeConfig(t, `
discord_token: from-file
log_level: debug
default_language: FR
database:
  path: ":memory:"
moderation:
  purge_max: 50
  guard:
    max_actions: 3
http:
  enabled: true
  addr: ":9000"
`)
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("DISCORD_TOKEN", "from-env")
	t.Setenv("MODERATION_GUARD_WINDOW_SECONDS", "15")
	t.Setenv("NOTIFY_COLOR_ERROR", "255")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.DiscordToken)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "fr", cfg.DefaultLanguage)
	assert.Equal(t, ":memory:", cfg.Database.Path)
	assert.Equal(t, 50, cfg.Moderation.PurgeMax)
	assert.Equal(t, 3, cfg.Moderation.Guard.MaxActions)
	assert.Equal(t, 15, cfg.Moderation.Guard.WindowSeconds)
	assert.Equal(t, 255, cfg.Notifications.EmbedColors.Error)
	assert.True(t, cfg.HTTP.Enabled)
	assert.Equal(t, ":9000", cfg.HTTP.Addr)
	assert.NoError(t, cfg.Validate())
}

func TestLoadClampsLimits(t *testing.T) {
	path := writeConfig(t, `
database:
  path: ":memory:"
moderation:
  max_timeout_days: 90
  max_slowmode_seconds: -1
  purge_max: 500
  default_reasons: []
`)
	t.Setenv("CONFIG_PATH", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 28, cfg.Moderation.MaxTimeoutDays)
	assert.Equal(t, 21600, cfg.Moderation.MaxSlowmodeSeconds)
	assert.Equal(t, 100, cfg.Moderation.PurgeMax)
	assert.Equal(t, []string{"No reason provided"}, cfg.Moderation.DefaultReasons)
}

func TestLoadRejectsBadDatabase(t *testing.T) {
	t.Setenv("CONFIG_PATH", writeConfig(t, "database:\n  driver: mysql\n"))
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("CONFIG_PATH", writeConfig(t, "database:\n  driver: postgres\n"))
	_, err = Load()
	assert.Error(t, err)

	t.Setenv("CONFIG_PATH", writeConfig(t, "database:\n  driver: Postgres\n  url: postgres://localhost/keeper\n"))
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/keeper", cfg.Database.DSN())
}

func TestBuildLogger(t *testing.T) {
	logger, err := BuildLogger("not-a-level")
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(0))

	logger, err = BuildLogger("ERROR")
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(0))
}
