// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ai

import (
	"errors"
	"strings"
)

// Config holds configuration for AI service providers.
type Config struct {
	// Host is the base URL for the OpenAI-compatible API.
	// Example: "http://localhost:11434/v1" for a local server
	Host string

	// APIKey is sent as bearer token. Local servers usually accept any value.
	// Default: "none"
	APIKey string

	// AnalyzerModel is the model identifier used for fragment analysis.
	// Example: "qwen2.5:3b", "gpt-4o-mini"
	AnalyzerModel string

	// AdapterModel is the model identifier used to generate adaptations.
	// Example: "llama3.1:8b", "gpt-4o"
	AdapterModel string

	// AdapterTemperature is the sampling temperature for adaptations (0-2).
	// Analysis always runs at temperature 0.
	// Default: 0.7
	AdapterTemperature float64

	// MaxAttempts is how many times a malformed analysis response is retried.
	// Default: 3
	MaxAttempts int
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithHost sets the service host URL.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.Host = host
	}
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithAnalyzerModel sets the analysis model identifier.
func WithAnalyzerModel(model string) ConfigOption {
	return func(c *Config) {
		c.AnalyzerModel = model
	}
}

// WithAdapterModel sets the adaptation model identifier.
func WithAdapterModel(model string) ConfigOption {
	return func(c *Config) {
		c.AdapterModel = model
	}
}

// WithAdapterTemperature sets the adaptation sampling temperature.
func WithAdapterTemperature(temperature float64) ConfigOption {
	return func(c *Config) {
		c.AdapterTemperature = temperature
	}
}

// WithMaxAttempts sets how many times a malformed analysis response is retried.
func WithMaxAttempts(attempts int) ConfigOption {
	return func(c *Config) {
		c.MaxAttempts = attempts
	}
}

// DefaultConfig returns a Config with sensible defaults for a local OpenAI-compatible service.
func DefaultConfig() *Config {
	return &Config{
		Host:               "http://localhost:11434/v1",
		APIKey:             "none",
		AnalyzerModel:      "qwen2.5:3b",
		AdapterModel:       "qwen2.5:3b",
		AdapterTemperature: 0.7,
		MaxAttempts:        3,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithHost("http://localhost:11434"),
//	    WithAdapterModel("llama3.1:8b"),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in a canonical form.
// It adds the /v1 suffix to the host if missing, which is required
// by most OpenAI-compatible APIs (Ollama, LocalAI, vLLM, etc).
func (c *Config) Normalize() {
	if c.Host != "" && !strings.HasSuffix(c.Host, "/v1") {
		c.Host = strings.TrimSuffix(c.Host, "/") + "/v1"
	}
	if c.APIKey == "" {
		c.APIKey = "none"
	}
}

// Validate checks that the configuration is valid and complete.
// It normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	if c.Host == "" {
		return errors.New("ai config: Host is required")
	}
	if c.AnalyzerModel == "" {
		return errors.New("ai config: AnalyzerModel is required")
	}
	if c.AdapterModel == "" {
		return errors.New("ai config: AdapterModel is required")
	}
	if c.AdapterTemperature < 0 || c.AdapterTemperature > 2 {
		return errors.New("ai config: AdapterTemperature must be between 0 and 2")
	}
	if c.MaxAttempts < 1 {
		return errors.New("ai config: MaxAttempts must be at least 1")
	}
	return nil
}
