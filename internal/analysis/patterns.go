package analysis

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/profiled/internal/llm"
	"github.com/fyrsmithlabs/profiled/internal/profile"
)

// Pattern categories. The set below is the validated taxonomy; category
// remains an open string so unknown values can pass through where
// strict validation is not wanted.
const (
	// Learning style
	CategorySystematicLearning  = "systematic_learning"
	CategoryInteractiveLearning = "interactive_learning"
	CategoryPracticalLearning   = "practical_learning"

	// Creative process
	CategoryIdeation          = "ideation"
	CategoryProjectManagement = "project_management"
	CategoryProblemSolving    = "problem_solving"

	// Support needs
	CategoryQuickSolution    = "quick_solution"
	CategoryDetailedGuidance = "detailed_guidance"
	CategoryEfficiencyFocus  = "efficiency_focus"

	// Common skills
	CategoryOrganization  = "organization"
	CategoryCommunication = "communication"
	CategoryFeedback      = "feedback"
)

// KnownCategories is the validated category taxonomy.
var KnownCategories = map[string]struct{}{
	CategorySystematicLearning:  {},
	CategoryInteractiveLearning: {},
	CategoryPracticalLearning:   {},
	CategoryIdeation:            {},
	CategoryProjectManagement:   {},
	CategoryProblemSolving:      {},
	CategoryQuickSolution:       {},
	CategoryDetailedGuidance:    {},
	CategoryEfficiencyFocus:     {},
	CategoryOrganization:        {},
	CategoryCommunication:       {},
	CategoryFeedback:            {},
}

// NormalizeCategory lowercases a category and maps unknown values to
// the default category. The dynamic sentinel category passes through.
func NormalizeCategory(category string) string {
	c := strings.ToLower(strings.TrimSpace(category))
	if c == profile.DynamicCategoryName {
		return c
	}
	if _, ok := KnownCategories[c]; ok {
		return c
	}
	return profile.DefaultCategory
}

// heuristicTemplate is one keyword-triggered pattern rule used when LLM
// extraction yields nothing.
type heuristicTemplate struct {
	name       string
	category   string
	keywords   []string
	confidence float64
}

func defaultTemplates() []heuristicTemplate {
	return []heuristicTemplate{
		{
			name:       "systematic learning",
			category:   CategorySystematicLearning,
			keywords:   []string{"step by step", "in order", "sequence", "systematic", "structured", "one at a time"},
			confidence: 0.7,
		},
		{
			name:       "interactive learning",
			category:   CategoryInteractiveLearning,
			keywords:   []string{"discussed", "asked", "dialogue", "conversation", "back and forth"},
			confidence: 0.65,
		},
		{
			name:       "practical learning",
			category:   CategoryPracticalLearning,
			keywords:   []string{"hands-on", "tried it", "practice", "experiment", "prototype"},
			confidence: 0.65,
		},
		{
			name:       "problem solving",
			category:   CategoryProblemSolving,
			keywords:   []string{"root cause", "solved", "debug", "figured out", "workaround"},
			confidence: 0.7,
		},
		{
			name:       "quick solution",
			category:   CategoryQuickSolution,
			keywords:   []string{"quickly", "right away", "immediately", "as fast as"},
			confidence: 0.6,
		},
		{
			name:       "organization",
			category:   CategoryOrganization,
			keywords:   []string{"organized", "checklist", "categorize", "sorted", "outline"},
			confidence: 0.6,
		},
	}
}

// patternResponse is the schema the extraction prompt asks the model
// to produce.
type patternResponse struct {
	Patterns []struct {
		Pattern         string   `json:"pattern"`
		Category        string   `json:"category"`
		Confidence      float64  `json:"confidence"`
		Context         []string `json:"context"`
		RelatedPatterns []string `json:"related_patterns"`
	} `json:"patterns"`
}

const patternPromptTemplate = `You are an expert at analyzing a user's behavioral patterns.
Extract the user's concrete patterns from the reflection content below.
Respond with ONLY a JSON object in this exact form:

{
  "patterns": [
    {
      "pattern": "concrete pattern name",
      "category": "SYSTEMATIC_LEARNING/INTERACTIVE_LEARNING/PRACTICAL_LEARNING/IDEATION/PROJECT_MANAGEMENT/PROBLEM_SOLVING/QUICK_SOLUTION/DETAILED_GUIDANCE/EFFICIENCY_FOCUS/ORGANIZATION/COMMUNICATION/FEEDBACK",
      "confidence": 0.8,
      "context": ["concrete example or excerpt where this pattern appears"],
      "related_patterns": ["names of related patterns"]
    }
  ]
}

Category meanings:
- SYSTEMATIC_LEARNING: structured, ordered learning approach
- INTERACTIVE_LEARNING: dialogue-driven learning style
- PRACTICAL_LEARNING: hands-on learning methods
- IDEATION: idea generation
- PROJECT_MANAGEMENT: planning and managing work
- PROBLEM_SOLVING: approach to solving problems
- QUICK_SOLUTION: preference for immediate answers
- DETAILED_GUIDANCE: preference for thorough guidance
- EFFICIENCY_FOCUS: emphasis on efficiency
- ORGANIZATION: organizing information
- COMMUNICATION: communication habits
- FEEDBACK: use of feedback

Reflection content:
%s`

// PatternExtractor extracts fixed-category behavioral patterns from
// reflection text. It degrades through three stages and never returns
// an empty pattern list.
type PatternExtractor struct {
	client    llm.Client
	logger    *zap.Logger
	templates []heuristicTemplate
}

// NewPatternExtractor creates a pattern extractor.
func NewPatternExtractor(client llm.Client, logger *zap.Logger) *PatternExtractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PatternExtractor{
		client:    client,
		logger:    logger,
		templates: defaultTemplates(),
	}
}

// Analyze extracts patterns from content. It never fails: LLM
// extraction falls back to keyword heuristics, which fall back to one
// static pattern.
func (e *PatternExtractor) Analyze(ctx context.Context, content string) []profile.Pattern {
	patterns := e.llmAnalysis(ctx, content)
	if len(patterns) > 0 {
		return patterns
	}

	patterns = e.heuristicAnalysis(content)
	if len(patterns) > 0 {
		return patterns
	}

	e.logger.Warn("using minimum pattern fallback")
	return e.fallbackPatterns()
}

// llmAnalysis runs the LLM extraction path with one retry on an empty
// pattern list.
func (e *PatternExtractor) llmAnalysis(ctx context.Context, content string) []profile.Pattern {
	if e.client == nil || !e.client.Available() {
		return nil
	}

	prompt := fmt.Sprintf(patternPromptTemplate, content)

	// An empty pattern list from the model is treated as a retryable
	// outcome, once.
	for attempt := 0; attempt < 2; attempt++ {
		raw, err := e.client.Complete(ctx, prompt)
		if err != nil {
			e.logger.Error("pattern extraction call failed", zap.Error(err))
			return nil
		}

		var resp patternResponse
		if err := llm.UnmarshalResponse(raw, &resp); err != nil {
			e.logger.Error("pattern extraction parse failed", zap.Error(err))
			return nil
		}

		if len(resp.Patterns) == 0 {
			e.logger.Warn("no patterns detected, retrying", zap.Int("attempt", attempt+1))
			continue
		}

		now := time.Now().UTC()
		patterns := make([]profile.Pattern, 0, len(resp.Patterns))
		for _, p := range resp.Patterns {
			if p.Pattern == "" {
				continue
			}
			excerpts := p.Context
			if len(excerpts) == 0 {
				excerpts = []string{"no context"}
			}
			pattern := profile.Pattern{
				Name:            p.Pattern,
				Category:        NormalizeCategory(p.Category),
				Confidence:      p.Confidence,
				Context:         profile.NewLegacyContext(excerpts),
				DetectedAt:      now,
				DetectionMethod: profile.DetectionLLM,
				RelatedPatterns: p.RelatedPatterns,
			}
			if pattern.Confidence == 0 {
				pattern.Confidence = 0.5
			}
			pattern.Normalize()
			patterns = append(patterns, pattern)
		}
		if len(patterns) > 0 {
			return patterns
		}
	}
	return nil
}

// heuristicAnalysis matches keyword templates against normalized
// content and cross-links the results.
func (e *PatternExtractor) heuristicAnalysis(content string) []profile.Pattern {
	normalized := strings.Join(strings.Fields(strings.ToLower(content)), " ")
	now := time.Now().UTC()

	var patterns []profile.Pattern
	for _, tmpl := range e.templates {
		matched := false
		for _, kw := range tmpl.keywords {
			if strings.Contains(normalized, strings.ToLower(kw)) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}

		patterns = append(patterns, profile.Pattern{
			Name:            tmpl.name,
			Category:        tmpl.category,
			Confidence:      tmpl.confidence,
			Context:         profile.NewLegacyContext(extractContext(content, tmpl.keywords)),
			DetectedAt:      now,
			DetectionMethod: profile.DetectionHeuristic,
		})
		e.logger.Info("detected heuristic pattern",
			zap.String("pattern", tmpl.name),
			zap.String("category", tmpl.category))
	}

	// Cross-link each pattern with every other pattern from this pass.
	if len(patterns) > 1 {
		for i := range patterns {
			for j := range patterns {
				if i == j {
					continue
				}
				patterns[i].RelatedPatterns = append(patterns[i].RelatedPatterns, patterns[j].Name)
			}
		}
	}

	return patterns
}

var sentenceSplitter = regexp.MustCompile(`[.。!！?？\n]`)

// extractContext returns up to three sentences containing any of the
// keywords.
func extractContext(content string, keywords []string) []string {
	var found []string
	for _, sentence := range sentenceSplitter.Split(content, -1) {
		lower := strings.ToLower(sentence)
		for _, kw := range keywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				if cleaned := strings.TrimSpace(sentence); cleaned != "" {
					found = append(found, cleaned)
				}
				break
			}
		}
		if len(found) == 3 {
			break
		}
	}
	return found
}

// fallbackPatterns returns the single static pattern emitted when both
// extraction stages come up empty.
func (e *PatternExtractor) fallbackPatterns() []profile.Pattern {
	return []profile.Pattern{
		{
			Name:            "systematic learning",
			Category:        CategorySystematicLearning,
			Confidence:      0.6,
			Context:         profile.NewLegacyContext([]string{"default pattern"}),
			DetectedAt:      time.Now().UTC(),
			DetectionMethod: profile.DetectionFallback,
		},
	}
}
