// Package config loads the stanza YAML configuration file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/poiesic/stanza/ai"
	"github.com/poiesic/stanza/match"
)

// Config holds the stanza configuration.
type Config struct {
	Storage   StorageConfig   `yaml:"storage"`
	AI        AIConfig        `yaml:"ai"`
	Matching  MatchingConfig  `yaml:"matching"`
	Ingestion IngestionConfig `yaml:"ingestion"`
	HTTP      HTTPConfig      `yaml:"http"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// StorageConfig holds database settings.
type StorageConfig struct {
	Path     string `yaml:"path"`
	InMemory bool   `yaml:"in_memory"`
}

// AIConfig holds analysis and adaptation service settings.
type AIConfig struct {
	Host               string   `yaml:"host"`
	APIKey             string   `yaml:"api_key"`
	AnalyzerModel      string   `yaml:"analyzer_model"`
	AdapterModel       string   `yaml:"adapter_model"`
	AdapterTemperature *float64 `yaml:"adapter_temperature"`
	MaxAttempts        int      `yaml:"max_attempts"`
}

// MatchingConfig holds scoring thresholds and result limits.
// Pointer fields distinguish an explicit zero from an absent value.
type MatchingConfig struct {
	AcceptThreshold      *float64 `yaml:"accept_threshold"`
	RhymeReasonThreshold *float64 `yaml:"rhyme_reason_threshold"`
	DisplayLimit         int      `yaml:"display_limit"`
	AdaptLimit           *int     `yaml:"adapt_limit"` // 0 disables adaptation
	PoolSize             int      `yaml:"pool_size"`
}

// IngestionConfig holds ingestion pipeline settings.
type IngestionConfig struct {
	PoolSize int `yaml:"pool_size"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Addr            string `yaml:"addr"`
	ReadTimeoutSec  int    `yaml:"read_timeout_sec"`
	WriteTimeoutSec int    `yaml:"write_timeout_sec"`
	ShutdownSec     int    `yaml:"shutdown_timeout_sec"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: info)
}

// Default returns a configuration with every default applied.
func Default() Config {
	var cfg Config
	cfg.ApplyDefaults()
	return cfg
}

// Load reads configuration from a YAML file. An empty path yields Default().
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration, applying defaults and validation.
// Environment variables of the form ${VAR} and ${VAR:-default} are expanded first.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.Storage.Path == "" {
		c.Storage.Path = "stanza.db"
	}

	aiDefaults := ai.DefaultConfig()
	if c.AI.Host == "" {
		c.AI.Host = aiDefaults.Host
	}
	if c.AI.APIKey == "" {
		c.AI.APIKey = aiDefaults.APIKey
	}
	if c.AI.AnalyzerModel == "" {
		c.AI.AnalyzerModel = aiDefaults.AnalyzerModel
	}
	if c.AI.AdapterModel == "" {
		c.AI.AdapterModel = aiDefaults.AdapterModel
	}
	if c.AI.AdapterTemperature == nil {
		c.AI.AdapterTemperature = ptr(aiDefaults.AdapterTemperature)
	}
	if c.AI.MaxAttempts <= 0 {
		c.AI.MaxAttempts = aiDefaults.MaxAttempts
	}

	if c.Matching.AcceptThreshold == nil {
		c.Matching.AcceptThreshold = ptr(match.DefaultAcceptThreshold)
	}
	if c.Matching.RhymeReasonThreshold == nil {
		c.Matching.RhymeReasonThreshold = ptr(match.DefaultRhymeReasonThreshold)
	}
	if c.Matching.DisplayLimit <= 0 {
		c.Matching.DisplayLimit = match.DefaultDisplayLimit
	}
	if c.Matching.AdaptLimit == nil {
		c.Matching.AdaptLimit = ptr(match.DefaultAdaptLimit)
	}
	if c.Matching.PoolSize <= 0 {
		c.Matching.PoolSize = match.DefaultAdaptLimit
	}

	if c.Ingestion.PoolSize <= 0 {
		c.Ingestion.PoolSize = 2
	}

	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		// Adaptation calls run inside the request.
		c.HTTP.WriteTimeoutSec = 120
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.AI.AdapterTemperature != nil && (*c.AI.AdapterTemperature < 0 || *c.AI.AdapterTemperature > 2) {
		return fmt.Errorf("ai.adapter_temperature must be between 0 and 2, got %v", *c.AI.AdapterTemperature)
	}
	if c.Matching.AcceptThreshold != nil && !inUnitRange(*c.Matching.AcceptThreshold) {
		return fmt.Errorf("matching.accept_threshold must be between 0 and 1, got %v", *c.Matching.AcceptThreshold)
	}
	if c.Matching.RhymeReasonThreshold != nil && !inUnitRange(*c.Matching.RhymeReasonThreshold) {
		return fmt.Errorf("matching.rhyme_reason_threshold must be between 0 and 1, got %v", *c.Matching.RhymeReasonThreshold)
	}
	if c.Matching.AdaptLimit != nil && *c.Matching.AdaptLimit < 0 {
		return fmt.Errorf("matching.adapt_limit must not be negative, got %d", *c.Matching.AdaptLimit)
	}
	if _, err := ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	return nil
}

// AIConfig returns the ai.Config described by the ai section.
func (c *Config) AIConfig() *ai.Config {
	opts := []ai.ConfigOption{
		ai.WithHost(c.AI.Host),
		ai.WithAPIKey(c.AI.APIKey),
		ai.WithAnalyzerModel(c.AI.AnalyzerModel),
		ai.WithAdapterModel(c.AI.AdapterModel),
	}
	if c.AI.AdapterTemperature != nil {
		opts = append(opts, ai.WithAdapterTemperature(*c.AI.AdapterTemperature))
	}
	if c.AI.MaxAttempts > 0 {
		opts = append(opts, ai.WithMaxAttempts(c.AI.MaxAttempts))
	}
	return ai.NewConfig(opts...)
}

// EngineOptions returns the match engine options described by the matching section.
func (c *Config) EngineOptions() []match.EngineOption {
	var opts []match.EngineOption
	if c.Matching.AcceptThreshold != nil {
		opts = append(opts, match.WithAcceptThreshold(*c.Matching.AcceptThreshold))
	}
	if c.Matching.RhymeReasonThreshold != nil {
		opts = append(opts, match.WithRhymeReasonThreshold(*c.Matching.RhymeReasonThreshold))
	}
	if c.Matching.DisplayLimit > 0 {
		opts = append(opts, match.WithDisplayLimit(c.Matching.DisplayLimit))
	}
	if c.Matching.AdaptLimit != nil {
		opts = append(opts, match.WithAdaptLimit(*c.Matching.AdaptLimit))
	}
	return opts
}

// ReadTimeout returns the HTTP read timeout.
func (h HTTPConfig) ReadTimeout() time.Duration {
	return time.Duration(h.ReadTimeoutSec) * time.Second
}

// WriteTimeout returns the HTTP write timeout.
func (h HTTPConfig) WriteTimeout() time.Duration {
	return time.Duration(h.WriteTimeoutSec) * time.Second
}

// ShutdownTimeout returns how long a server may take to drain on shutdown.
func (h HTTPConfig) ShutdownTimeout() time.Duration {
	return time.Duration(h.ShutdownSec) * time.Second
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q (use debug, info, warn or error)", level)
	}
}

func inUnitRange(v float64) bool {
	return v >= 0 && v <= 1
}

func ptr[T any](v T) *T {
	return &v
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(m []byte) []byte {
		expr := string(m[2 : len(m)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
