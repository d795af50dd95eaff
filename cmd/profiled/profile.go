package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var profileAnalysisOnly bool

// profileCmd prints a user's stored profile.
var profileCmd = &cobra.Command{
	Use:   "profile <user-id>",
	Short: "Show a user's stored profile",
	Long: `Show a user's stored profile as JSON.

Examples:
  # Full profile
  profiled profile alice

  # Only the analysis view (patterns, labels, clusters)
  profiled profile alice --analysis`,
	Args: cobra.ExactArgs(1),
	RunE: runProfile,
}

func init() {
	profileCmd.Flags().BoolVar(&profileAnalysisOnly, "analysis", false, "show only the analysis view")
}

func runProfile(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := cmd.Context()

	var payload any
	if profileAnalysisOnly {
		analysis, err := app.aggregator.GetProfileAnalysis(ctx, args[0])
		if err != nil {
			return fmt.Errorf("loading profile analysis: %w", err)
		}
		if analysis == nil {
			fmt.Println("{}")
			return nil
		}
		payload = analysis
	} else {
		p, err := app.repo.GetOrCreate(ctx, args[0])
		if err != nil {
			return fmt.Errorf("loading profile: %w", err)
		}
		payload = p
	}

	out, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding profile: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
