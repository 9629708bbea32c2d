package platform

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
endpoint: https://notes.example.com/api
credential_file: /tmp/quire-test/credential
timeout: 5s
autosave:
  quiet_period: 1500ms
  discard_on_switch: true
log:
  level: debug
`

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "https://notes.example.com/api", cfg.Endpoint)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, 1500*time.Millisecond, cfg.Autosave.QuietPeriod)
	assert.True(t, cfg.Autosave.DiscardOnSwitch)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel())
	assert.NoError(t, cfg.Validate())
	assert.Len(t, cfg.Options(), 5)

	t.Run("Empty document", func(t *testing.T) {
		cfg, err := ParseConfig(nil)
		require.NoError(t, err)
		assert.Equal(t, Config{}, cfg)
		assert.Equal(t, slog.LevelInfo, cfg.LogLevel())
	})

	t.Run("Unknown keys are rejected", func(t *testing.T) {
		_, err := ParseConfig([]byte("endpiont: x\n"))
		assert.Error(t, err)
	})
}

func TestConfig_Validate(t *testing.T) {
	cfg := Config{
		Endpoint: "ftp://nope",
		Timeout:  -time.Second,
		Autosave: AutosaveConfig{QuietPeriod: -1},
		Log:      LogConfig{Level: "loud"},
	}

	err := cfg.Validate()
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Len(t, ve.Errors, 4, "every problem is reported at once")
	assert.Contains(t, err.Error(), "configuration validation failed")
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0644))

	t.Run("Explicit path", func(t *testing.T) {
		t.Setenv(EnvEndpoint, "")
		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, path, cfg.Source)
		assert.Equal(t, "https://notes.example.com/api", cfg.Endpoint)
	})

	t.Run("Environment", func(t *testing.T) {
		t.Setenv(EnvConfig, path)
		t.Setenv(EnvEndpoint, "http://localhost:8080")
		cfg, err := LoadConfig("")
		require.NoError(t, err)
		assert.Equal(t, path, cfg.Source)
		assert.Equal(t, "http://localhost:8080", cfg.Endpoint, "QUIRE_ENDPOINT wins")
	})

	t.Run("Missing explicit file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(dir, "missing.yaml"))
		assert.Error(t, err)
	})
}
