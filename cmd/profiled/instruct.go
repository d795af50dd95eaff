package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var instructRole string

// instructCmd composes personalized instructions for a user and role.
var instructCmd = &cobra.Command{
	Use:   "instruct <user-id>",
	Short: "Compose personalized instructions for a user",
	Long: `Compose personalized instructions for a user by augmenting the role's
base instructions with the user's detected patterns.

Examples:
  # Use the user's preferred role
  profiled instruct alice

  # Compose for a specific role
  profiled instruct alice --role architect`,
	Args: cobra.ExactArgs(1),
	RunE: runInstruct,
}

func init() {
	instructCmd.Flags().StringVar(&instructRole, "role", "", "role to compose for (code, architect, ask)")
}

func runInstruct(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	composed, err := app.composer.Generate(cmd.Context(), args[0], instructRole)
	if err != nil {
		return fmt.Errorf("composing instructions: %w", err)
	}

	fmt.Println(composed)
	return nil
}
