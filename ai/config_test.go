package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg)
	assert.Equal(t, "http://localhost:11434/v1", cfg.Host)
	assert.Equal(t, "none", cfg.APIKey)
	assert.Equal(t, "qwen2.5:3b", cfg.AnalyzerModel)
	assert.Equal(t, "qwen2.5:3b", cfg.AdapterModel)
	assert.Equal(t, 0.7, cfg.AdapterTemperature)
	assert.Equal(t, 3, cfg.MaxAttempts)
}

func TestNewConfig(t *testing.T) {
	t.Run("with no options", func(t *testing.T) {
		cfg := NewConfig()
		assert.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("with multiple options", func(t *testing.T) {
		cfg := NewConfig(
			WithHost("http://custom:8080/v1"),
			WithAPIKey("secret"),
			WithAnalyzerModel("gpt-4o-mini"),
			WithAdapterModel("gpt-4o"),
			WithAdapterTemperature(1.1),
			WithMaxAttempts(5),
		)

		assert.Equal(t, "http://custom:8080/v1", cfg.Host)
		assert.Equal(t, "secret", cfg.APIKey)
		assert.Equal(t, "gpt-4o-mini", cfg.AnalyzerModel)
		assert.Equal(t, "gpt-4o", cfg.AdapterModel)
		assert.Equal(t, 1.1, cfg.AdapterTemperature)
		assert.Equal(t, 5, cfg.MaxAttempts)
	})
}

func TestConfigNormalize(t *testing.T) {
	tests := []struct {
		name     string
		host     string
		expected string
	}{
		{name: "already has /v1", host: "http://localhost:11434/v1", expected: "http://localhost:11434/v1"},
		{name: "missing /v1", host: "http://localhost:11434", expected: "http://localhost:11434/v1"},
		{name: "has trailing slash", host: "http://localhost:11434/", expected: "http://localhost:11434/v1"},
		{name: "empty host", host: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Host: tt.host}
			cfg.Normalize()
			assert.Equal(t, tt.expected, cfg.Host)
			assert.Equal(t, "none", cfg.APIKey)
		})
	}
}

func TestConfigValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Host:               "http://localhost:11434",
			AnalyzerModel:      "qwen2.5:3b",
			AdapterModel:       "llama3.1:8b",
			AdapterTemperature: 0.7,
			MaxAttempts:        3,
		}
	}

	t.Run("valid config", func(t *testing.T) {
		cfg := valid()
		require.NoError(t, cfg.Validate())
		assert.Equal(t, "http://localhost:11434/v1", cfg.Host)
	})

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{name: "missing host", mutate: func(c *Config) { c.Host = "" }, field: "Host"},
		{name: "missing analyzer model", mutate: func(c *Config) { c.AnalyzerModel = "" }, field: "AnalyzerModel"},
		{name: "missing adapter model", mutate: func(c *Config) { c.AdapterModel = "" }, field: "AdapterModel"},
		{name: "negative temperature", mutate: func(c *Config) { c.AdapterTemperature = -0.1 }, field: "AdapterTemperature"},
		{name: "temperature too high", mutate: func(c *Config) { c.AdapterTemperature = 2.5 }, field: "AdapterTemperature"},
		{name: "zero attempts", mutate: func(c *Config) { c.MaxAttempts = 0 }, field: "MaxAttempts"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestConfigValidate_Integration(t *testing.T) {
	require.NoError(t, NewConfig().Validate())
	require.NoError(t, DefaultConfig().Validate())
}
