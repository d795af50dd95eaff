package analysis

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/profiled/internal/llm"
	"github.com/fyrsmithlabs/profiled/internal/profile"
)

// labelResponse is the schema the label prompt asks the model to
// produce.
type labelResponse struct {
	Labels []struct {
		Text            string   `json:"text"`
		Confidence      float64  `json:"confidence"`
		Context         []string `json:"context"`
		OccurrenceCount int      `json:"occurrence_count"`
	} `json:"labels"`
}

const labelPromptTemplate = `You are an expert at extracting a person's distinctive traits and behavioral patterns from their reflection notes.
Express the person's individual characteristics as hashtag-style labels.

Important:
1. Avoid generic classifications and boilerplate; find concrete traits that show who this person is.
2. Look from multiple angles: behavior, thinking, and communication style.
3. Pay particular attention to:
   - distinctive problem-solving approaches
   - characteristic communication patterns
   - directions of interest
   - decision-making tendencies
   - learning and comprehension style

Respond with ONLY a JSON object in this exact form:

{
  "labels": [
    {
      "text": "#hashtag_style_label",
      "confidence": 0.8,
      "context": ["supporting excerpt"],
      "occurrence_count": 1
    }
  ]
}

Extract the person's traits from this reflection note:

%s`

// LabelExtractor extracts freeform hashtag labels from reflection
// text. Unlike pattern extraction there is no heuristic fallback; any
// failure yields an empty list.
type LabelExtractor struct {
	client llm.Client
	logger *zap.Logger
	cfg    Config
}

// NewLabelExtractor creates a label extractor.
func NewLabelExtractor(client llm.Client, cfg Config, logger *zap.Logger) *LabelExtractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LabelExtractor{client: client, logger: logger, cfg: cfg}
}

// Extract returns labels filtered by the confidence floor and capped
// at the configured maximum, preserving model order. Failures return
// an empty list, never an error.
func (e *LabelExtractor) Extract(ctx context.Context, content string) []profile.DynamicLabel {
	if e.client == nil || !e.client.Available() {
		return nil
	}

	raw, err := e.client.Complete(ctx, fmt.Sprintf(labelPromptTemplate, content))
	if err != nil {
		e.logger.Error("label extraction call failed", zap.Error(err))
		return nil
	}

	var resp labelResponse
	if err := llm.UnmarshalResponse(raw, &resp); err != nil {
		e.logger.Error("label extraction parse failed", zap.Error(err))
		return nil
	}

	now := time.Now().UTC()
	var labels []profile.DynamicLabel
	for _, l := range resp.Labels {
		if l.Text == "" {
			continue
		}
		if l.Confidence < e.cfg.MinConfidence {
			continue
		}
		count := l.OccurrenceCount
		if count < 1 {
			count = 1
		}
		labels = append(labels, profile.DynamicLabel{
			Text:            l.Text,
			Confidence:      profile.ClampConfidence(l.Confidence),
			Context:         l.Context,
			FirstSeen:       now,
			LastSeen:        now,
			OccurrenceCount: count,
		})
		if e.cfg.MaxLabels > 0 && len(labels) == e.cfg.MaxLabels {
			break
		}
	}
	return labels
}
