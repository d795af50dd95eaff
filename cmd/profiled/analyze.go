package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/profiled/internal/profile"
)

var analyzeSessionID string

// analyzeCmd analyzes reflection content into a user's profile.
var analyzeCmd = &cobra.Command{
	Use:   "analyze <user-id> [file]",
	Short: "Analyze reflection content and merge it into a profile",
	Long: `Analyze reflection content and merge the extracted patterns, labels
and clusters into the user's profile.

Examples:
  # Analyze a reflection file
  profiled analyze alice reflection.md

  # Analyze from stdin
  cat reflection.md | profiled analyze alice -

  # Record the originating session
  profiled analyze alice --session sess-42 reflection.md`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeSessionID, "session", "", "session the reflection came from")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	userID := args[0]

	content, err := readInput(args, 1)
	if err != nil {
		return err
	}

	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := cmd.Context()

	// Dynamic analysis: labels, clusters, synthesized patterns.
	result, err := app.aggregator.AnalyzeReflection(ctx, userID, string(content), analyzeSessionID)
	if err != nil {
		return fmt.Errorf("analyzing reflection: %w", err)
	}
	if result.ErrorOccurred {
		fmt.Fprintf(os.Stderr, "[profiled] analysis degraded: %s\n", result.ErrorMessage)
	}

	// Semantic patterns follow their own extraction path and merge
	// separately from the dynamic result.
	semantic := app.patterns.Analyze(ctx, string(content))
	if len(semantic) > 0 {
		report, err := app.aggregator.UpdateProfileWithAnalysis(ctx, userID, profile.AnalysisResult{
			Patterns:  semantic,
			Timestamp: result.Timestamp,
		})
		if err != nil {
			return fmt.Errorf("merging semantic patterns: %w", err)
		}
		if report.Patterns.Failed > 0 {
			fmt.Fprintf(os.Stderr, "[profiled] %d semantic pattern(s) failed to merge\n", report.Patterns.Failed)
		}
		app.classifier.UpdatePreferredRole(ctx, userID, semantic)
	}

	summary := struct {
		UserID           string               `json:"user_id"`
		SemanticPatterns int                  `json:"semantic_patterns"`
		DynamicPatterns  int                  `json:"dynamic_patterns"`
		Labels           int                  `json:"labels"`
		Clusters         int                  `json:"clusters"`
		Merge            *profile.MergeReport `json:"merge,omitempty"`
	}{
		UserID:           userID,
		SemanticPatterns: len(semantic),
		DynamicPatterns:  len(result.Patterns),
		Labels:           len(result.Labels),
		Clusters:         len(result.Clusters),
		Merge:            result.Merge,
	}

	out, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding summary: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
