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
	t.Setenv("SCRUM_CONFIG_FILE", "")
	t.Setenv("SCRUM_MODE", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, BackendSQLite, cfg.ContextBackend)
	assert.Equal(t, 60*time.Second, cfg.LLMTimeout)
	assert.Equal(t, 500, cfg.SummaryMaxRunes)
	assert.False(t, cfg.MockMode())
}

func TestLoadEnvironment(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("SCRUM_MODE", "mock")
	t.Setenv("SCRUM_CONTEXT_BACKEND", "memory")
	t.Setenv("SCRUM_WATCH", "true")
	t.Setenv("LLM_TIMEOUT_MS", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.HTTPPort)
	assert.True(t, cfg.MockMode())
	assert.Equal(t, BackendMemory, cfg.ContextBackend)
	assert.True(t, cfg.Watch)
	assert.Equal(t, 60*time.Second, cfg.LLMTimeout)
}

func TestLoadYAMLOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scrum.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http_port: 7070\nllm_model: local\ncontext_ttl: 30m\n"), 0o600))
	t.Setenv("SCRUM_CONFIG_FILE", path)
	t.Setenv("HTTP_PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.HTTPPort)
	assert.Equal(t, "local", cfg.LLMModel)
	assert.Equal(t, 30*time.Minute, cfg.ContextTTL)
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv("SCRUM_CONTEXT_BACKEND", "redis")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("SCRUM_CONTEXT_BACKEND", "")
	t.Setenv("SCRUM_CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err = Load()
	assert.Error(t, err)
}

func TestWebSocketSettings(t *testing.T) {
	t.Setenv("SCRUM_CONFIG_FILE", "")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.WSPingInterval)
	assert.Equal(t, 10*time.Second, cfg.WSWriteTimeout)
	assert.Equal(t, 60*time.Second, cfg.WSReadTimeout)
	assert.Equal(t, int64(65536), cfg.WSMaxMessageSize)

	t.Setenv("WS_READ_TIMEOUT_MS", "20000")
	_, err = Load()
	assert.Error(t, err, "read timeout shorter than ping interval must be rejected")
}
