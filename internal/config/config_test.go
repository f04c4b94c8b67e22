package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"CONFIG_PATH", "ENV", "API_URL", "API_TIMEOUT", "FORM_STATUS_TTL",
	"HEALTH_ENABLED", "HEALTH_ADDRESS", "LOG_LEVEL", "LOG_FORMAT",
}

// clearEnv unsets every variable the config reads and restores them after
// the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		if old, ok := os.LookupEnv(key); ok {
			require.NoError(t, os.Unsetenv(key))
			t.Cleanup(func() { os.Setenv(key, old) })
		}
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
env: dev
api:
  url: http://sensors.local/api/v1/sensor-metadata
  timeout: 10s
form:
  status_ttl: 2s
health:
  enabled: true
  address: ":9090"
log:
  level: debug
  format: text
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, "http://sensors.local/api/v1/sensor-metadata", cfg.API.URL)
	assert.Equal(t, 10*time.Second, cfg.API.Timeout)
	assert.Equal(t, 2*time.Second, cfg.Form.StatusTTL)
	assert.True(t, cfg.Health.Enabled)
	assert.Equal(t, ":9090", cfg.Health.Address)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
api:
  url: http://localhost:8080/api/v1/sensor-metadata
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "prod", cfg.Env)
	assert.Equal(t, 30*time.Second, cfg.API.Timeout)
	assert.Equal(t, 5*time.Second, cfg.Form.StatusTTL)
	assert.False(t, cfg.Health.Enabled)
	assert.Equal(t, ":8081", cfg.Health.Address)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
api:
  url: http://file.local/sensors
`)
	t.Setenv("API_URL", "http://env.local/sensors")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://env.local/sensors", cfg.API.URL)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoad_ConfigPathEnv(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
api:
  url: http://from-config-path.local/sensors
`)
	t.Setenv("CONFIG_PATH", path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://from-config-path.local/sensors", cfg.API.URL)
}

func TestLoad_EnvOnlyWhenDefaultMissing(t *testing.T) {
	clearEnv(t)
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { os.Chdir(wd) })
	t.Setenv("API_URL", "http://env-only.local/sensors")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "http://env-only.local/sensors", cfg.API.URL)
	assert.Equal(t, 5*time.Second, cfg.Form.StatusTTL)
}

func TestLoad_MissingURL(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
log:
  level: info
`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_ExplicitPathMissing(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file not found")
}

func TestMustLoad_Panics(t *testing.T) {
	clearEnv(t)

	assert.Panics(t, func() {
		MustLoad(filepath.Join(t.TempDir(), "nope.yaml"))
	})
}
