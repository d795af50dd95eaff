// Package embeddings provides embedding generation for label
// vectorization.
//
// Two providers are supported: a TEI-compatible HTTP service for real
// semantic embeddings, and a deterministic local provider used when no
// embedding service is configured. The local provider is not semantic;
// it only guarantees that identical text maps to identical vectors,
// which is the minimum the clusterer needs.
package embeddings

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrEmptyInput indicates empty or nil input texts.
	ErrEmptyInput = errors.New("empty or nil input texts")

	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmbeddingFailed indicates embedding generation failure.
	ErrEmbeddingFailed = errors.New("embedding generation failed")
)

// Embedder generates vector embeddings from text.
type Embedder interface {
	// EmbedDocuments generates embeddings for multiple texts.
	// Returns one embedding per input text.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float64, error)

	// EmbedQuery generates an embedding for a single text.
	EmbedQuery(ctx context.Context, text string) ([]float64, error)

	// Dimension returns the embedding dimension.
	Dimension() int
}

// Config holds configuration for creating an embedder.
type Config struct {
	// Provider is "tei" or "local".
	Provider string `koanf:"provider"`
	// BaseURL is the TEI endpoint (only used for TEI).
	BaseURL string `koanf:"base_url"`
	// Model is the embedding model name (only used for TEI).
	Model string `koanf:"model"`
	// Dimension overrides the local provider dimension. Default 8.
	Dimension int `koanf:"dimension"`
}

// NewEmbedder creates an embedder based on configuration.
func NewEmbedder(cfg Config) (Embedder, error) {
	switch cfg.Provider {
	case "", "local":
		return NewLocalEmbedder(cfg.Dimension), nil
	case "tei":
		return NewTEIEmbedder(cfg)
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, cfg.Provider)
	}
}
