package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnvDefaults(t *testing.T) {
	t.Setenv("CHARCHAT_HOME", t.TempDir())
	t.Setenv("CHARCHAT_API_URL", "http://api.local:9000/")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)

	assert.Equal(t, "http://api.local:9000", cfg.API.BaseURL)
	assert.Equal(t, "ws://api.local:9000/notifications", cfg.API.WebSocketURL())
	assert.Equal(t, 5, cfg.Notifications.ReconnectAttempts)
	assert.Equal(t, time.Second, cfg.Notifications.ReconnectDelay)
	assert.Equal(t, time.Duration(0), cfg.API.Timeout)
	assert.Equal(t, "file", cfg.Session.Backend)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	yml := `
api:
  base_url: https://chat.example.com
notifications:
  reconnect_attempts: 2
  reconnect_delay: 250ms
session:
  dir: ` + dir + `
  backend: file
  profile: work
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "wss://chat.example.com/notifications", cfg.API.WebSocketURL())
	assert.Equal(t, 2, cfg.Notifications.ReconnectAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.Notifications.ReconnectDelay)
	assert.Equal(t, "work", cfg.Session.Profile)
}

func TestLoadRejectsRedisWithoutURL(t *testing.T) {
	t.Setenv("CHARCHAT_HOME", t.TempDir())
	t.Setenv("CHARCHAT_SESSION_BACKEND", "redis")
	t.Setenv("CHARCHAT_REDIS_URL", "")

	_, err := Load("")
	assert.Error(t, err)
}

func TestExplicitSocketURLWins(t *testing.T) {
	c := APIConfig{BaseURL: "http://a", SocketURL: "ws://b/notifications"}
	assert.Equal(t, "ws://b/notifications", c.WebSocketURL())
}
