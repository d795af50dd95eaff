// Package config provides configuration loading for profiled.
//
// Configuration is loaded from environment variables with sensible defaults,
// optionally layered on top of a YAML config file. This package covers the
// LLM provider, the embedding provider, analysis engine thresholds, the
// result cache, the document store, and logging.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/fyrsmithlabs/profiled/internal/embeddings"
	"github.com/fyrsmithlabs/profiled/internal/llm"
	"github.com/fyrsmithlabs/profiled/internal/logging"
)

// Config holds the complete profiled configuration.
type Config struct {
	LLM        llm.Config        `koanf:"llm"`
	Embeddings embeddings.Config `koanf:"embeddings"`
	Engine     EngineConfig      `koanf:"engine"`
	Cache      CacheConfig       `koanf:"cache"`
	Store      StoreConfig       `koanf:"store"`
	Logging    logging.Config    `koanf:"logging"`
}

// EngineConfig holds analysis engine thresholds.
type EngineConfig struct {
	// MinConfidence filters extracted labels below this confidence.
	MinConfidence float64 `koanf:"min_confidence"`
	// MaxLabels caps how many labels a single analysis may emit.
	MaxLabels int `koanf:"max_labels"`
	// Eps is the DBSCAN neighborhood radius.
	Eps float64 `koanf:"eps"`
	// MinPoints is the DBSCAN core point threshold.
	MinPoints int `koanf:"min_points"`
}

// CacheConfig holds analysis result cache configuration.
type CacheConfig struct {
	// TTL controls how long a cached analysis stays valid.
	TTL time.Duration `koanf:"ttl"`
	// CleanupInterval controls how often expired entries are purged.
	CleanupInterval time.Duration `koanf:"cleanup_interval"`
}

// StoreConfig holds document store configuration.
type StoreConfig struct {
	// Path is the SQLite database file. Empty selects in-memory storage.
	Path string `koanf:"path"`
}

// Load loads configuration from environment variables with defaults.
//
// Environment variables:
//   - LLM_PROVIDER: LLM provider, "disabled", "anthropic" or "openai" (default: disabled)
//   - LLM_MODEL: model name (provider-specific default)
//   - LLM_API_KEY: API key for the provider
//   - LLM_BASE_URL: override the provider endpoint
//   - LLM_MAX_TOKENS: completion token limit (default: 2048)
//   - LLM_TIMEOUT: request timeout in seconds (default: 60)
//   - EMBEDDINGS_PROVIDER: "local" or "tei" (default: local)
//   - EMBEDDINGS_BASE_URL: TEI endpoint
//   - EMBEDDINGS_MODEL: embedding model name
//   - ENGINE_MIN_CONFIDENCE: label confidence floor (default: 0.6)
//   - ENGINE_MAX_LABELS: labels per analysis cap (default: 10)
//   - ENGINE_EPS: DBSCAN neighborhood radius (default: 0.5)
//   - ENGINE_MIN_POINTS: DBSCAN core threshold (default: 1)
//   - CACHE_TTL: analysis cache TTL (default: 1h)
//   - STORE_PATH: SQLite file path (default: in-memory)
//   - LOG_LEVEL: debug, info, warn, error (default: info)
//   - LOG_FORMAT: json or console (default: json)
func Load() *Config {
	cfg := &Config{
		LLM: llm.Config{
			Provider:  getEnvString("LLM_PROVIDER", "disabled"),
			Model:     getEnvString("LLM_MODEL", ""),
			APIKey:    getEnvString("LLM_API_KEY", ""),
			BaseURL:   getEnvString("LLM_BASE_URL", ""),
			MaxTokens: getEnvInt("LLM_MAX_TOKENS", 2048),
			Timeout:   getEnvInt("LLM_TIMEOUT", 60),
		},
		Embeddings: embeddings.Config{
			Provider:  getEnvString("EMBEDDINGS_PROVIDER", "local"),
			BaseURL:   getEnvString("EMBEDDINGS_BASE_URL", ""),
			Model:     getEnvString("EMBEDDINGS_MODEL", ""),
			Dimension: getEnvInt("EMBEDDINGS_DIMENSION", 0),
		},
		Engine: EngineConfig{
			MinConfidence: getEnvFloat("ENGINE_MIN_CONFIDENCE", 0.6),
			MaxLabels:     getEnvInt("ENGINE_MAX_LABELS", 10),
			Eps:           getEnvFloat("ENGINE_EPS", 0.5),
			MinPoints:     getEnvInt("ENGINE_MIN_POINTS", 1),
		},
		Cache: CacheConfig{
			TTL:             getEnvDuration("CACHE_TTL", time.Hour),
			CleanupInterval: getEnvDuration("CACHE_CLEANUP_INTERVAL", 10*time.Minute),
		},
		Store: StoreConfig{
			Path: getEnvString("STORE_PATH", ""),
		},
		Logging: logging.Config{
			Level:  getEnvString("LOG_LEVEL", "info"),
			Format: getEnvString("LOG_FORMAT", "json"),
		},
	}

	return cfg
}

// Validate validates the configuration.
//
// Returns an error if:
//   - Engine thresholds are out of range
//   - Cache TTL is not positive
//   - Logging configuration is invalid
func (c *Config) Validate() error {
	if c.Engine.MinConfidence < 0 || c.Engine.MinConfidence > 1 {
		return fmt.Errorf("invalid min_confidence: %v (must be 0-1)", c.Engine.MinConfidence)
	}

	if c.Engine.MaxLabels < 1 {
		return errors.New("max_labels must be at least 1")
	}

	if c.Engine.Eps <= 0 {
		return fmt.Errorf("invalid eps: %v (must be positive)", c.Engine.Eps)
	}

	if c.Engine.MinPoints < 1 {
		return errors.New("min_points must be at least 1")
	}

	if c.Cache.TTL <= 0 {
		return errors.New("cache TTL must be positive")
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}

	return nil
}

// Helper functions for environment variable parsing

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		parsed, err := time.ParseDuration(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}
