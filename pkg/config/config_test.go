package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, ":8787", cfg.Server.HTTPAddr)
	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.Equal(t, 100_000, cfg.Store.MaxNodes)
	assert.Equal(t, 500_000, cfg.Store.MaxEdges)
	assert.Equal(t, 30*time.Second, cfg.LLM.Timeout)
	assert.Empty(t, cfg.LLM.Provider)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("TELAMENTIS_HTTP_ADDR", ":9999")
	t.Setenv("TELAMENTIS_STORE_BACKEND", "badger")
	t.Setenv("TELAMENTIS_STORE_DATA_DIR", "/var/lib/telamentis")
	t.Setenv("TELAMENTIS_STORE_MAX_NODES", "42")
	t.Setenv("TELAMENTIS_LLM_PROVIDER", "anthropic")
	t.Setenv("TELAMENTIS_LLM_MODEL", "claude-3-5-sonnet-latest")
	t.Setenv("TELAMENTIS_LLM_TEMPERATURE", "0.2")
	t.Setenv("TELAMENTIS_LLM_TIMEOUT", "45s")
	t.Setenv("TELAMENTIS_LOG_LEVEL", "debug")

	cfg := Load()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ":9999", cfg.Server.HTTPAddr)
	assert.Equal(t, "badger", cfg.Store.Backend)
	assert.Equal(t, "/var/lib/telamentis", cfg.Store.DataDir)
	assert.Equal(t, 42, cfg.Store.MaxNodes)
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, 0.2, cfg.LLM.Temperature)
	assert.Equal(t, 45*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
}

func TestValidateRejects(t *testing.T) {
	cfg := Load()
	cfg.Store.Backend = "cassandra"
	assert.Error(t, cfg.Validate())

	cfg = Load()
	cfg.LLM.Provider = "openai"
	cfg.LLM.Model = ""
	assert.Error(t, cfg.Validate())

	cfg = Load()
	cfg.LLM.Temperature = 1.5
	assert.Error(t, cfg.Validate())

	cfg = Load()
	cfg.Logging.Level = "verbose"
	assert.Error(t, cfg.Validate())

	cfg = Load()
	cfg.Store.MaxNodes = -1
	assert.Error(t, cfg.Validate())
}

func TestUnparsableEnvFallsBack(t *testing.T) {
	t.Setenv("TELAMENTIS_STORE_MAX_NODES", "lots")
	t.Setenv("TELAMENTIS_LLM_TIMEOUT", "soon")

	cfg := Load()
	assert.Equal(t, 100_000, cfg.Store.MaxNodes)
	assert.Equal(t, 30*time.Second, cfg.LLM.Timeout)
}
