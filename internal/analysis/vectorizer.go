package analysis

import (
	"context"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/profiled/internal/embeddings"
	"github.com/fyrsmithlabs/profiled/internal/profile"
)

// VectorizedLabel pairs a label with its numeric vector.
type VectorizedLabel struct {
	Label  profile.DynamicLabel
	Vector []float64
}

// Vectorizer maps label texts to fixed-length numeric vectors. The
// contract the clusterer depends on: every returned vector has the
// same length, and identical text should map to similar vectors.
type Vectorizer interface {
	Vectorize(ctx context.Context, labels []profile.DynamicLabel) (map[string]VectorizedLabel, error)
}

// EmbeddingVectorizer vectorizes labels through an embeddings provider.
// A failure on one label skips that label; it never fails the batch.
type EmbeddingVectorizer struct {
	embedder embeddings.Embedder
	logger   *zap.Logger
}

// NewEmbeddingVectorizer creates a vectorizer over the given embedder.
func NewEmbeddingVectorizer(embedder embeddings.Embedder, logger *zap.Logger) *EmbeddingVectorizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmbeddingVectorizer{embedder: embedder, logger: logger}
}

// Vectorize embeds each label text.
func (v *EmbeddingVectorizer) Vectorize(ctx context.Context, labels []profile.DynamicLabel) (map[string]VectorizedLabel, error) {
	vectorized := make(map[string]VectorizedLabel, len(labels))
	for _, label := range labels {
		vector, err := v.embedder.EmbedQuery(ctx, label.Text)
		if err != nil {
			v.logger.Error("vectorizing label failed",
				zap.String("label", label.Text),
				zap.Error(err))
			continue
		}
		vectorized[label.Text] = VectorizedLabel{Label: label, Vector: vector}
	}
	return vectorized, nil
}

// Ensure interface compliance.
var _ Vectorizer = (*EmbeddingVectorizer)(nil)
