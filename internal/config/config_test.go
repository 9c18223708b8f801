package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GUARD_API_URL", "")
	t.Setenv("GUARD_WS_URL", "")
	t.Setenv("GUARD_API_TOKEN", "")
	t.Setenv("GUARD_TIMEOUT_SEC", "")
	t.Setenv("GUARD_PROJECT_ID", "")
	t.Setenv("GUARD_LISTEN_ADDR", "")

	cfg, err := Load()
	assert.NoError(t, err)

	assert.Equal(t, "http://localhost:8000", cfg.API.BaseURL)
	assert.Equal(t, "ws://localhost:8000/api/v1/ws/scan", cfg.API.WSURL)
	assert.Equal(t, "demo-project", cfg.API.ProjectID)
	assert.Equal(t, 30, cfg.API.TimeoutSec)
	assert.Equal(t, ":8000", cfg.Server.ListenAddr)
}

func TestWSURLDerivedFromHTTPS(t *testing.T) {
	t.Setenv("GUARD_API_URL", "https://api.sentinelnexus.io/")
	t.Setenv("GUARD_WS_URL", "")

	cfg, err := Load()
	assert.NoError(t, err)
	assert.Equal(t, "wss://api.sentinelnexus.io/api/v1/ws/scan", cfg.API.WSURL)
}

func TestExplicitWSURLWins(t *testing.T) {
	t.Setenv("GUARD_API_URL", "http://localhost:8000")
	t.Setenv("GUARD_WS_URL", "ws://other:9000/ws")

	cfg, err := Load()
	assert.NoError(t, err)
	assert.Equal(t, "ws://other:9000/ws", cfg.API.WSURL)
}

func TestBadTimeout(t *testing.T) {
	t.Setenv("GUARD_TIMEOUT_SEC", "not-a-number")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadFileOverlaysEnvironment(t *testing.T) {
	t.Setenv("GUARD_API_URL", "http://from-env:8000")
	t.Setenv("GUARD_WS_URL", "")
	t.Setenv("GUARD_API_TOKEN", "env-token")

	path := filepath.Join(t.TempDir(), "guard.yaml")
	data := []byte("api:\n  base_url: http://from-file:9000\n  ws_url: \"\"\n  timeout_sec: 5\n")
	assert.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := LoadFile(path)
	assert.NoError(t, err)

	// файл важнее окружения, но не стирает незаданные поля
	assert.Equal(t, "http://from-file:9000", cfg.API.BaseURL)
	assert.Equal(t, "env-token", cfg.API.Token)
	assert.Equal(t, 5, cfg.API.TimeoutSec)
	assert.Equal(t, "ws://from-file:9000/api/v1/ws/scan", cfg.API.WSURL)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
