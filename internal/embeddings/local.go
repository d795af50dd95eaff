package embeddings

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

// DefaultLocalDimension is used when no dimension is configured.
const DefaultLocalDimension = 8

// LocalEmbedder produces deterministic embeddings without any external
// service. Identical text always maps to the identical vector, so it is
// suitable for tests and for deployments where no embedding service is
// reachable. The vectors carry no semantic meaning beyond token overlap.
type LocalEmbedder struct {
	dimension int
}

// NewLocalEmbedder creates a local embedder with the given dimension.
func NewLocalEmbedder(dimension int) *LocalEmbedder {
	if dimension <= 0 {
		dimension = DefaultLocalDimension
	}
	return &LocalEmbedder{dimension: dimension}
}

// EmbedDocuments generates embeddings for multiple texts.
func (l *LocalEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: texts cannot be empty", ErrEmptyInput)
	}

	vectors := make([][]float64, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vectors[i] = l.embed(text)
	}
	return vectors, nil
}

// EmbedQuery generates an embedding for a single text.
func (l *LocalEmbedder) EmbedQuery(ctx context.Context, text string) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return l.embed(text), nil
}

// Dimension returns the configured embedding dimension.
func (l *LocalEmbedder) Dimension() int {
	return l.dimension
}

// embed hashes each whitespace token into the vector and normalizes to
// unit length so distances stay bounded regardless of text length.
func (l *LocalEmbedder) embed(text string) []float64 {
	vec := make([]float64, l.dimension)

	tokens := strings.Fields(strings.ToLower(text))
	if len(tokens) == 0 {
		tokens = []string{text}
	}

	for _, token := range tokens {
		sum := sha256.Sum256([]byte(token))
		for d := 0; d < l.dimension; d++ {
			bits := binary.BigEndian.Uint64(sum[(d*8)%24 : (d*8)%24+8])
			// Map to [-1, 1) with a per-dimension rotation so
			// dimensions decorrelate.
			v := float64(bits>>(d%16)) / float64(uint64(math.MaxUint64)>>(d%16))
			vec[d] += v*2 - 1
		}
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for d := range vec {
			vec[d] /= norm
		}
	}
	return vec
}

// Ensure interface compliance.
var _ Embedder = (*LocalEmbedder)(nil)
