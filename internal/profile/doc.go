// Package profile defines the user model for profiled and the
// aggregation logic that maintains it.
//
// A UserProfile is the aggregate root: detected behavioral Patterns,
// freeform DynamicLabels, thematic LabelClusters, open-ended
// DynamicCategories, per-role instruction text, and derived insights.
// Profiles are created lazily on first read and mutated only through
// append/merge operations.
//
// # Confidence
//
// Every pattern and label carries a confidence score in [0.0, 1.0].
// Upstream generators are not trusted to respect the range; callers
// clamp via ClampConfidence before persistence.
//
// # Merging
//
// The Aggregator merges analysis results into stored profiles:
//   - Patterns upsert by exact name match (replace, never duplicate)
//   - Labels upsert by text, accumulating occurrence count, taking the
//     max confidence, and unioning context excerpts
//   - Clusters replace-or-append by cluster ID (no history)
//
// Each item merges in its own store transaction. A failed item is
// logged and counted but never aborts its siblings; the MergeReport on
// the result records per-kind outcomes so callers can distinguish
// analysis success from persistence success.
package profile
