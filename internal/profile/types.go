package profile

import (
	"errors"
	"time"
)

// Common errors for profile operations.
var (
	ErrEmptyUserID      = errors.New("user ID cannot be empty")
	ErrEmptyPatternName = errors.New("pattern name cannot be empty")
	ErrEmptyLabelText   = errors.New("label text cannot be empty")
	ErrEmptyCluster     = errors.New("cluster must contain at least one label")
	ErrInvalidRole      = errors.New("role is not in the valid role set")
	ErrProfileNotFound  = errors.New("profile not found")
)

// Detection methods recorded on patterns. Several legacy values exist
// in stored data and must round-trip unchanged.
const (
	DetectionLLM         = "llm"
	DetectionHeuristic   = "heuristic"
	DetectionFallback    = "fallback"
	DetectionDynamic     = "dynamic_analysis"
	DetectionLLMAnalysis = "llm_analysis"
	DetectionAnalysis    = "analysis"
)

// DefaultCategory is the sentinel category assigned when a pattern
// arrives without one or with an unrecognized value.
const DefaultCategory = "systematic_learning"

// DynamicCategoryName marks patterns synthesized from labels by the
// analysis engine rather than classified into the fixed taxonomy.
const DynamicCategoryName = "dynamic"

// ClampConfidence forces a confidence score into [0.0, 1.0].
func ClampConfidence(v float64) float64 {
	if v < 0.0 {
		return 0.0
	}
	if v > 1.0 {
		return 1.0
	}
	return v
}

// Pattern is a detected behavioral tendency.
type Pattern struct {
	Name            string       `json:"pattern"`
	Category        string       `json:"category"`
	Confidence      float64      `json:"confidence"`
	Context         ContextValue `json:"context"`
	DetectedAt      time.Time    `json:"detected_at"`
	DetectionMethod string       `json:"detection_method"`
	RelatedPatterns []string     `json:"related_patterns,omitempty"`
	SuggestedLabels []string     `json:"suggested_labels,omitempty"`
}

// Normalize clamps confidence and applies the default category.
// It does not repair an empty name; those patterns are invalid.
func (p *Pattern) Normalize() {
	p.Confidence = ClampConfidence(p.Confidence)
	if p.Category == "" {
		p.Category = DefaultCategory
	}
}

// Validate checks that the pattern may be persisted.
func (p *Pattern) Validate() error {
	if p.Name == "" {
		return ErrEmptyPatternName
	}
	if p.Confidence < 0.0 || p.Confidence > 1.0 {
		return errors.New("confidence must be between 0.0 and 1.0")
	}
	return nil
}

// DynamicLabel is a freeform hashtag-style descriptive tag.
type DynamicLabel struct {
	Text            string    `json:"text"`
	Confidence      float64   `json:"confidence"`
	Context         []string  `json:"context,omitempty"`
	FirstSeen       time.Time `json:"first_seen"`
	LastSeen        time.Time `json:"last_seen"`
	OccurrenceCount int       `json:"occurrence_count"`
	RelatedLabels   []string  `json:"related_labels,omitempty"`
	SourcePatterns  []string  `json:"source_patterns,omitempty"`
	Clusters        []string  `json:"clusters,omitempty"`
}

// Validate checks that the label may be persisted.
func (l *DynamicLabel) Validate() error {
	if l.Text == "" {
		return ErrEmptyLabelText
	}
	if l.OccurrenceCount < 1 {
		return errors.New("occurrence count must be at least 1")
	}
	return nil
}

// MergeObservation folds a repeat observation of the same label text
// into the receiver: the count increments, confidence keeps the max,
// context excerpts are appended, and LastSeen advances. FirstSeen is
// preserved from the earliest observation.
func (l *DynamicLabel) MergeObservation(other DynamicLabel, now time.Time) {
	l.OccurrenceCount++
	if other.Confidence > l.Confidence {
		l.Confidence = ClampConfidence(other.Confidence)
	}
	l.Context = append(l.Context, other.Context...)
	l.RelatedLabels = unionStrings(l.RelatedLabels, other.RelatedLabels)
	l.SourcePatterns = unionStrings(l.SourcePatterns, other.SourcePatterns)
	l.LastSeen = now
}

// LabelCluster is a thematic grouping of labels produced by one
// clustering run. Cluster IDs are stable within a run but recomputed
// on every analysis pass.
type LabelCluster struct {
	ClusterID   string             `json:"cluster_id"`
	Theme       string             `json:"theme"`
	Labels      []string           `json:"labels"`
	Strength    float64            `json:"strength"`
	CenterPoint map[string]float64 `json:"center_point,omitempty"`
	Radius      float64            `json:"radius"`
	LastUpdated time.Time          `json:"last_updated"`

	// Parent and Subclusters are name-based links, never owning
	// references. Either may dangle after a later clustering pass.
	Parent      *string  `json:"parent,omitempty"`
	Subclusters []string `json:"subclusters,omitempty"`
}

// Validate checks that the cluster may be persisted.
func (c *LabelCluster) Validate() error {
	if len(c.Labels) == 0 {
		return ErrEmptyCluster
	}
	if c.Radius < 0 {
		return errors.New("radius cannot be negative")
	}
	return nil
}

// DynamicCategory is an open-ended classification bucket created on
// demand.
type DynamicCategory struct {
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Weight      float64   `json:"weight"`
	Parent      *string   `json:"parent,omitempty"`
	UsageCount  int       `json:"usage_count"`
	LastUsed    time.Time `json:"last_used"`
}

// Tendency is a named behavioral leaning with an averaged strength.
type Tendency struct {
	Label       string    `json:"label"`
	Strength    float64   `json:"strength"`
	Context     string    `json:"context,omitempty"`
	LastUpdated time.Time `json:"last_updated"`

	// observations backs the running strength average.
	Observations int `json:"observations"`
}

// RoleInstruction is the base instruction text for one agent role.
type RoleInstruction struct {
	Role         string `json:"role"`
	Instructions string `json:"instructions"`
	Priority     int    `json:"priority"`
}

// InsightCluster is an LLM-synthesized theme/labels pair.
type InsightCluster struct {
	Theme  string   `json:"theme"`
	Labels []string `json:"labels"`
}

// Insights is the derived, best-effort summary of a profile.
type Insights struct {
	PrimaryLabels []string         `json:"primary_labels"`
	Clusters      []InsightCluster `json:"clusters,omitempty"`
	Confidence    float64          `json:"confidence"`
	Reasoning     string           `json:"reasoning,omitempty"`
	GeneratedAt   time.Time        `json:"generated_at"`
}

// UserProfile is the aggregate root: one document per user.
type UserProfile struct {
	UserID                   string            `json:"user_id"`
	Patterns                 []Pattern         `json:"patterns"`
	Labels                   []DynamicLabel    `json:"labels"`
	Clusters                 []LabelCluster    `json:"clusters"`
	Categories               []DynamicCategory `json:"categories,omitempty"`
	BaseInstructions         []RoleInstruction `json:"base_instructions"`
	PersonalizedInstructions string            `json:"personalized_instructions,omitempty"`
	PreferredRole            string            `json:"preferred_role"`
	Insights                 *Insights         `json:"insights,omitempty"`
	Tendencies               []Tendency        `json:"tendencies,omitempty"`
	Metadata                 map[string]string `json:"metadata,omitempty"`
	UpdatedAt                time.Time         `json:"updated_at"`
}

// AnalysisResult is the outcome of one analysis pass over a piece of
// reflection content. ErrorOccurred marks the one terminal failure in
// the pipeline (empty input, or an engine-level fault); every other
// failure degrades to a partial result.
type AnalysisResult struct {
	Patterns      []Pattern      `json:"patterns"`
	Labels        []DynamicLabel `json:"labels,omitempty"`
	Clusters      []LabelCluster `json:"clusters,omitempty"`
	Timestamp     time.Time      `json:"timestamp"`
	ErrorOccurred bool           `json:"error_occurred"`
	ErrorMessage  string         `json:"error_message,omitempty"`

	// Merge reports persistence outcomes separately from analysis
	// outcomes. Nil until the result has been merged into a profile.
	Merge *MergeReport `json:"merge,omitempty"`
}

// MergeKindReport counts outcomes for one item kind in a merge batch.
type MergeKindReport struct {
	Merged  int `json:"merged"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// MergeReport records per-kind persistence outcomes for one merge
// batch. Analysis success and persistence success are different
// failure domains; this is where the distinction surfaces.
type MergeReport struct {
	Patterns MergeKindReport `json:"patterns"`
	Labels   MergeKindReport `json:"labels"`
	Clusters MergeKindReport `json:"clusters"`
	Aborted  bool            `json:"aborted,omitempty"`
}

// AllFailed reports whether every attempted item failed to persist.
func (r *MergeReport) AllFailed() bool {
	attempted := r.Patterns.Merged + r.Patterns.Failed +
		r.Labels.Merged + r.Labels.Failed +
		r.Clusters.Merged + r.Clusters.Failed
	failed := r.Patterns.Failed + r.Labels.Failed + r.Clusters.Failed
	return attempted > 0 && failed == attempted
}

// unionStrings appends elements of b not already present in a.
func unionStrings(a, b []string) []string {
	seen := make(map[string]struct{}, len(a))
	for _, s := range a {
		seen[s] = struct{}{}
	}
	for _, s := range b {
		if _, ok := seen[s]; !ok {
			a = append(a, s)
			seen[s] = struct{}{}
		}
	}
	return a
}
