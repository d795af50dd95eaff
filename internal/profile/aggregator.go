package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/profiled/internal/llm"
)

// Analyzer runs one analysis pass over reflection content. Satisfied
// by the analysis engine.
type Analyzer interface {
	Analyze(ctx context.Context, content string) AnalysisResult
}

// ProfileAnalysis is the persisted analysis view of a profile.
type ProfileAnalysis struct {
	Patterns []Pattern      `json:"patterns"`
	Labels   []DynamicLabel `json:"labels"`
	Clusters []LabelCluster `json:"clusters"`
}

// UpdateRequest is the generic external profile update path.
type UpdateRequest struct {
	Patterns                 []Pattern
	Instructions             []RoleInstruction
	PersonalizedInstructions *string
}

// Aggregator orchestrates the analyze-then-merge flow: content-hash
// cache check, empty-input guard, delegation to the analysis engine,
// context enrichment, per-item transactional merges, cache write, and
// best-effort insight derivation.
type Aggregator struct {
	repo   *Repository
	engine Analyzer
	cache  *AnalysisCache
	client llm.Client
	logger *zap.Logger
}

// NewAggregator creates an aggregator. The cache may be nil to disable
// memoization; the client may be nil to disable insight derivation.
func NewAggregator(repo *Repository, engine Analyzer, cache *AnalysisCache, client llm.Client, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{
		repo:   repo,
		engine: engine,
		cache:  cache,
		client: client,
		logger: logger,
	}
}

// AnalyzeReflection analyzes content and merges the outcome into the
// user's profile. It never returns an analysis error to the caller;
// failures are reported inside the result. SessionID may be empty.
func (a *Aggregator) AnalyzeReflection(ctx context.Context, userID, content, sessionID string) (AnalysisResult, error) {
	if strings.TrimSpace(userID) == "" {
		return AnalysisResult{}, ErrEmptyUserID
	}

	// Empty content short-circuits before any LLM spend.
	if strings.TrimSpace(content) == "" {
		analysesTotal.WithLabelValues("empty_input").Inc()
		return AnalysisResult{
			Timestamp:     time.Now().UTC(),
			ErrorOccurred: true,
			ErrorMessage:  "reflection content is empty",
		}, nil
	}

	hash := HashContent(content)
	if a.cache != nil {
		if cached, ok := a.cache.Get(userID, hash); ok {
			a.logger.Debug("analysis cache hit", zap.String("user_id", userID))
			cacheHitsTotal.Inc()
			return cached, nil
		}
	}

	result := a.engine.Analyze(ctx, content)
	if result.ErrorOccurred {
		// Propagated unchanged; no merge is attempted.
		analysesTotal.WithLabelValues("engine_error").Inc()
		return result, nil
	}

	a.enrich(&result, content, sessionID)

	report := a.merge(ctx, userID, &result)
	result.Merge = report

	// The cache is only written when every item persisted; a partial
	// merge must be re-attemptable with the same content.
	if a.cache != nil && !report.Aborted && report.Patterns.Failed == 0 &&
		report.Labels.Failed == 0 && report.Clusters.Failed == 0 {
		a.cache.Put(userID, hash, result)
	}

	a.deriveInsights(ctx, userID)

	analysesTotal.WithLabelValues("ok").Inc()
	return result, nil
}

// enrich attaches a structured context record to every pattern and
// drops items that must not be persisted.
func (a *Aggregator) enrich(result *AnalysisResult, content, sessionID string) {
	if sessionID == "" {
		sessionID = UnknownSession
	}

	// Truncation counts runes so multi-byte content is never cut
	// mid-character.
	summary := truncateRunes(content, 100)
	excerpt := truncateRunes(content, 500)

	record := PatternContext{
		SessionID: sessionID,
		Title:     UnknownSessionTitle,
		Summary:   summary,
		Timestamp: time.Now().UTC(),
		Excerpt:   excerpt,
	}

	patterns := result.Patterns[:0]
	for _, p := range result.Patterns {
		if p.Name == "" {
			continue
		}
		p.Context = NewContext(record)
		patterns = append(patterns, p)
	}
	result.Patterns = patterns

	labels := result.Labels[:0]
	for _, l := range result.Labels {
		if l.Text == "" {
			continue
		}
		labels = append(labels, l)
	}
	result.Labels = labels
}

// isValidationError reports whether an error is an item-validation
// rejection rather than a persistence fault.
func isValidationError(err error) bool {
	return errors.Is(err, ErrEmptyPatternName) ||
		errors.Is(err, ErrEmptyLabelText) ||
		errors.Is(err, ErrEmptyCluster)
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

// merge applies every item through its own transaction. One item's
// failure never aborts the rest; an expired context deadline does, so
// an abandoned request stops consuming the store.
func (a *Aggregator) merge(ctx context.Context, userID string, result *AnalysisResult) *MergeReport {
	report := &MergeReport{}

	mergeItem := func(kind string, counts *MergeKindReport, apply func() error) bool {
		if ctx.Err() != nil {
			report.Aborted = true
			return false
		}
		err := apply()
		switch {
		case err == nil:
			counts.Merged++
			mergeItemsTotal.WithLabelValues(kind, "merged").Inc()
		case isValidationError(err):
			// A malformed item is skipped, not failed: the store was
			// never asked to persist it.
			counts.Skipped++
			mergeItemsTotal.WithLabelValues(kind, "skipped").Inc()
			a.logger.Warn("skipping invalid item",
				zap.String("user_id", userID),
				zap.String("kind", kind),
				zap.Error(err))
		default:
			counts.Failed++
			mergeItemsTotal.WithLabelValues(kind, "failed").Inc()
			a.logger.Error("merging item failed",
				zap.String("user_id", userID),
				zap.String("kind", kind),
				zap.Error(err))
		}
		return true
	}

	for _, p := range result.Patterns {
		p := p
		if !mergeItem("pattern", &report.Patterns, func() error {
			return a.repo.AddPattern(ctx, userID, p)
		}) {
			return report
		}
	}
	for _, l := range result.Labels {
		l := l
		if !mergeItem("label", &report.Labels, func() error {
			return a.repo.AddLabel(ctx, userID, l)
		}) {
			return report
		}
	}
	for _, c := range result.Clusters {
		c := c
		if !mergeItem("cluster", &report.Clusters, func() error {
			return a.repo.UpsertCluster(ctx, userID, c)
		}) {
			return report
		}
	}
	return report
}

// UpdateProfileWithAnalysis merges a previously produced analysis
// result into the user's profile. Idempotent: re-merging the same
// result replaces rather than duplicates patterns and clusters.
func (a *Aggregator) UpdateProfileWithAnalysis(ctx context.Context, userID string, result AnalysisResult) (*MergeReport, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrEmptyUserID
	}
	if result.ErrorOccurred {
		return nil, fmt.Errorf("refusing to merge failed analysis: %s", result.ErrorMessage)
	}
	return a.merge(ctx, userID, &result), nil
}

// UpdateProfile is the generic external update path. It invalidates
// the user's analysis cache since the profile changed outside the
// analyze flow.
func (a *Aggregator) UpdateProfile(ctx context.Context, userID string, req UpdateRequest) error {
	if strings.TrimSpace(userID) == "" {
		return ErrEmptyUserID
	}

	for _, p := range req.Patterns {
		if err := a.repo.AddPattern(ctx, userID, p); err != nil {
			return err
		}
	}
	if req.Instructions != nil {
		if err := a.repo.UpdateInstructions(ctx, userID, req.Instructions); err != nil {
			return err
		}
	}
	if req.PersonalizedInstructions != nil {
		if err := a.repo.UpdatePersonalizedInstructions(ctx, userID, *req.PersonalizedInstructions); err != nil {
			return err
		}
	}

	if a.cache != nil {
		a.cache.Invalidate(userID)
	}
	return nil
}

// GetProfileAnalysis returns the persisted analysis view of a profile,
// or nil when no profile exists.
func (a *Aggregator) GetProfileAnalysis(ctx context.Context, userID string) (*ProfileAnalysis, error) {
	p, err := a.repo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &ProfileAnalysis{
		Patterns: p.Patterns,
		Labels:   p.Labels,
		Clusters: p.Clusters,
	}, nil
}

// UpdatePreferredRole stores the user's preferred role, rejecting
// invalid roles.
func (a *Aggregator) UpdatePreferredRole(ctx context.Context, userID, role string) error {
	if err := a.repo.UpdatePreferredRole(ctx, userID, role); err != nil {
		return err
	}
	if a.cache != nil {
		a.cache.Invalidate(userID)
	}
	return nil
}

// insightResponse is the schema the insight prompt asks the model to
// produce.
type insightResponse struct {
	PrimaryLabels []string `json:"primary_labels"`
	Clusters      []struct {
		Theme  string   `json:"theme"`
		Labels []string `json:"labels"`
	} `json:"clusters"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

const insightPromptTemplate = `You are an expert at synthesizing a person's distinguishing characteristics from accumulated observations.

Observed labels:
%s

Observed clusters:
%s

Observed patterns:
%s

Rank the labels that most distinguish this person, regroup them into themed clusters, and explain your reasoning.
Respond with ONLY a JSON object in this exact form:

{
  "primary_labels": ["#most_distinguishing", "#second"],
  "clusters": [{"theme": "theme name", "labels": ["#a", "#b"]}],
  "confidence": 0.8,
  "reasoning": "why these labels define this person"
}`

// deriveInsights asks the model to summarize the user's current
// profile. Best-effort: every failure is logged and swallowed.
func (a *Aggregator) deriveInsights(ctx context.Context, userID string) {
	if a.client == nil || !a.client.Available() {
		return
	}

	p, err := a.repo.Get(ctx, userID)
	if err != nil {
		a.logger.Warn("loading profile for insights failed", zap.Error(err))
		return
	}
	if len(p.Labels) == 0 && len(p.Patterns) == 0 {
		return
	}

	var labelTexts, clusterLines, patternNames []string
	for _, l := range p.Labels {
		labelTexts = append(labelTexts, l.Text)
	}
	for _, c := range p.Clusters {
		clusterLines = append(clusterLines, fmt.Sprintf("%s: %s", c.Theme, strings.Join(c.Labels, ", ")))
	}
	for _, pt := range p.Patterns {
		patternNames = append(patternNames, pt.Name)
	}

	prompt := fmt.Sprintf(insightPromptTemplate,
		strings.Join(labelTexts, "\n"),
		strings.Join(clusterLines, "\n"),
		strings.Join(patternNames, "\n"))

	raw, err := a.client.Complete(ctx, prompt)
	if err != nil {
		a.logger.Warn("insight derivation call failed", zap.Error(err))
		return
	}

	var resp insightResponse
	if err := llm.UnmarshalResponse(raw, &resp); err != nil {
		a.logger.Warn("insight derivation parse failed", zap.Error(err))
		return
	}

	insights := &Insights{
		PrimaryLabels: resp.PrimaryLabels,
		Confidence:    ClampConfidence(resp.Confidence),
		Reasoning:     resp.Reasoning,
		GeneratedAt:   time.Now().UTC(),
	}
	for _, c := range resp.Clusters {
		insights.Clusters = append(insights.Clusters, InsightCluster{Theme: c.Theme, Labels: c.Labels})
	}

	if err := a.repo.UpdateInsights(ctx, userID, insights); err != nil {
		a.logger.Warn("persisting insights failed", zap.Error(err))
	}
}
