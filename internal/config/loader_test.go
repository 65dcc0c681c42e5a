package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := writeConfig(t, `
log_level = "debug"

[app]
app_id = "test-exchange"

[wallet]
settle_delay = "50ms"

[server]
port = 9999
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "test-exchange", cfg.App.AppID)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, 50*time.Millisecond, cfg.Wallet.SettleDelay.Duration)

	// Untouched sections keep their defaults.
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "gemini-1.5-flash", cfg.Assist.Model)
	assert.True(t, cfg.Database.RunMigrations)
}

func TestEnvOverridesBeatFileValues(t *testing.T) {
	path := writeConfig(t, `
[app]
app_id = "from-file"

[database]
host = "filehost"
port = 5433
`)

	t.Setenv("BRANDLAB_APP_ID", "from-env")
	t.Setenv("BRANDLAB_DATABASE_HOST", "envhost")
	t.Setenv("BRANDLAB_DATABASE_PORT", "6000")
	t.Setenv("BRANDLAB_REDIS_TLS_ENABLED", "true")
	t.Setenv("BRANDLAB_WALLET_SETTLE_DELAY", "2s")
	t.Setenv("BRANDLAB_SERVER_CORS_ORIGINS", "https://a.test, https://b.test")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.App.AppID)
	assert.Equal(t, "envhost", cfg.Database.Host)
	assert.Equal(t, 6000, cfg.Database.Port)
	assert.True(t, cfg.Redis.TLSEnabled)
	assert.Equal(t, 2*time.Second, cfg.Wallet.SettleDelay.Duration)
	assert.Equal(t, []string{"https://a.test", "https://b.test"}, cfg.Server.CORSOrigins)
}

func TestGeminiKeyAlias(t *testing.T) {
	path := writeConfig(t, "")
	t.Setenv("GEMINI_API_KEY", "alias-key")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "alias-key", cfg.Assist.APIKey)
}

func TestValidate(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())

	cfg = Defaults()
	cfg.App.AppID = " "
	assert.Error(t, cfg.Validate())

	cfg = Defaults()
	cfg.Redis.Addr = ""
	assert.Error(t, cfg.Validate())

	cfg = Defaults()
	cfg.Assist.Enabled = true
	assert.Error(t, cfg.Validate())
	cfg.Assist.APIKey = "k"
	require.NoError(t, cfg.Validate())

	cfg = Defaults()
	cfg.Sweep.Interval.Duration = 0
	assert.Error(t, cfg.Validate())
	cfg.Sweep.Enabled = false
	require.NoError(t, cfg.Validate())

	cfg = Defaults()
	cfg.Server.Port = 0
	assert.Error(t, cfg.Validate())

	cfg = Defaults()
	cfg.LogLevel = "verbose"
	assert.Error(t, cfg.Validate())
}
