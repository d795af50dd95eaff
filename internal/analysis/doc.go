// Package analysis turns raw reflection text into structured patterns,
// labels and label clusters.
//
// Two extraction paths exist. PatternExtractor produces fixed-category
// behavioral patterns with a three-stage degradation chain: LLM
// extraction, keyword heuristics, then a single static fallback
// pattern. Engine runs the dynamic path: freeform hashtag labels from
// the LLM, vectorization, density-based clustering, and one synthesized
// pattern per label. Neither path returns an error to the caller;
// failures degrade to weaker results and the terminal engine fault is
// reported inside the AnalysisResult itself.
package analysis
