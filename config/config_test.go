package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/poiesic/stanza/match"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "stanza.db", cfg.Storage.Path)
	assert.Equal(t, "http://localhost:11434/v1", cfg.AI.Host)
	assert.Equal(t, 0.7, *cfg.AI.AdapterTemperature)
	assert.Equal(t, match.DefaultAcceptThreshold, *cfg.Matching.AcceptThreshold)
	assert.Equal(t, match.DefaultAdaptLimit, *cfg.Matching.AdaptLimit)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, 10*time.Second, cfg.HTTP.ReadTimeout())
	assert.Equal(t, 120*time.Second, cfg.HTTP.WriteTimeout())
	assert.Equal(t, 10*time.Second, cfg.HTTP.ShutdownTimeout())
	assert.Equal(t, "info", cfg.Logging.Level)
	require.NoError(t, cfg.Validate())
}

func TestParse(t *testing.T) {
	t.Setenv("STANZA_TEST_KEY", "secret")

	cfg, err := Parse([]byte(`
storage:
  path: /var/lib/stanza
ai:
  host: http://gpu-box:8000
  api_key: ${STANZA_TEST_KEY}
  adapter_model: ${STANZA_TEST_MISSING:-llama3.1:8b}
  adapter_temperature: 0
matching:
  accept_threshold: 0.25
  display_limit: 10
  adapt_limit: 0
http:
  addr: 127.0.0.1:9000
logging:
  level: debug
`))
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/stanza", cfg.Storage.Path)
	assert.Equal(t, "secret", cfg.AI.APIKey)
	assert.Equal(t, "llama3.1:8b", cfg.AI.AdapterModel)
	assert.Equal(t, "qwen2.5:3b", cfg.AI.AnalyzerModel, "defaults fill the rest")
	assert.Equal(t, 0.0, *cfg.AI.AdapterTemperature, "explicit zero is kept")
	assert.Equal(t, 0, *cfg.Matching.AdaptLimit, "explicit zero is kept")
	assert.Equal(t, match.DefaultRhymeReasonThreshold, *cfg.Matching.RhymeReasonThreshold)
	assert.Equal(t, "127.0.0.1:9000", cfg.HTTP.Addr)

	aiCfg := cfg.AIConfig()
	require.NoError(t, aiCfg.Validate())
	assert.Equal(t, "http://gpu-box:8000/v1", aiCfg.Host)
	assert.Equal(t, 0.0, aiCfg.AdapterTemperature)

	engine, err := match.NewEngine(cfg.EngineOptions()...)
	require.NoError(t, err)
	assert.Equal(t, 0.25, engine.AcceptThreshold())
	assert.Equal(t, 10, engine.DisplayLimit())
	assert.Equal(t, 0, engine.AdaptLimit())
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"malformed yaml", "storage: [unclosed"},
		{"temperature out of range", "ai:\n  adapter_temperature: 3"},
		{"accept threshold out of range", "matching:\n  accept_threshold: 1.5"},
		{"rhyme threshold out of range", "matching:\n  rhyme_reason_threshold: -0.1"},
		{"negative adapt limit", "matching:\n  adapt_limit: -1"},
		{"unknown log level", "logging:\n  level: verbose"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	t.Run("empty path yields defaults", func(t *testing.T) {
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
	})

	t.Run("reads file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "stanza.yaml")
		require.NoError(t, os.WriteFile(path, []byte("storage:\n  in_memory: true\n"), 0o600))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.True(t, cfg.Storage.InMemory)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.Error(t, err)
	})
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}
