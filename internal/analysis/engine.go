package analysis

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/profiled/internal/profile"
)

// Engine runs the dynamic analysis pipeline: label extraction,
// vectorization, clustering, and pattern synthesis. Strictly
// sequential; the stages feed each other.
type Engine struct {
	labels     *LabelExtractor
	vectorizer Vectorizer
	clusterer  *Clusterer
	logger     *zap.Logger
}

// NewEngine creates an analysis engine.
func NewEngine(labels *LabelExtractor, vectorizer Vectorizer, clusterer *Clusterer, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		labels:     labels,
		vectorizer: vectorizer,
		clusterer:  clusterer,
		logger:     logger,
	}
}

// Analyze runs the full pipeline over one piece of reflection content.
// It never returns an error: a pipeline fault produces a result with
// ErrorOccurred set and no patterns, which callers must treat as
// recoverable and skip profile mutation for.
func (e *Engine) Analyze(ctx context.Context, content string) (result profile.AnalysisResult) {
	result.Timestamp = time.Now().UTC()

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("analysis pipeline panic", zap.Any("panic", r))
			result = profile.AnalysisResult{
				Timestamp:     time.Now().UTC(),
				ErrorOccurred: true,
				ErrorMessage:  fmt.Sprintf("analysis panic: %v", r),
			}
		}
	}()

	labels := e.labels.Extract(ctx, content)

	var clusters []profile.LabelCluster
	if len(labels) > 0 {
		vectorized, err := e.vectorizer.Vectorize(ctx, labels)
		if err != nil {
			e.logger.Error("vectorization failed", zap.Error(err))
			return profile.AnalysisResult{
				Timestamp:     result.Timestamp,
				ErrorOccurred: true,
				ErrorMessage:  err.Error(),
			}
		}
		clusters = e.clusterer.Cluster(vectorized)
	}

	summary := content
	if runes := []rune(summary); len(runes) > 100 {
		summary = string(runes[:100])
	}
	patternContext := profile.NewContext(profile.PatternContext{
		SessionID: "dynamic",
		Title:     "Dynamic Pattern Analysis",
		Summary:   summary,
		Timestamp: result.Timestamp,
		Excerpt:   content,
		Metadata:  map[string]string{"source": "dynamic_analysis"},
	})

	// One synthesized pattern per label, cross-linked with every
	// other label from this pass.
	allTexts := make([]string, len(labels))
	for i, l := range labels {
		allTexts[i] = l.Text
	}

	patterns := make([]profile.Pattern, 0, len(labels))
	for _, label := range labels {
		related := make([]string, 0, len(labels)-1)
		for _, other := range allTexts {
			if other != label.Text {
				related = append(related, other)
			}
		}
		patterns = append(patterns, profile.Pattern{
			Name:            label.Text,
			Category:        profile.DynamicCategoryName,
			Confidence:      label.Confidence,
			Context:         patternContext,
			DetectedAt:      result.Timestamp,
			DetectionMethod: profile.DetectionDynamic,
			RelatedPatterns: related,
			SuggestedLabels: allTexts,
		})
	}

	result.Patterns = patterns
	result.Labels = labels
	result.Clusters = clusters
	return result
}
