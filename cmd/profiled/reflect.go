package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/profiled/internal/reflection"
)

var (
	reflectSessionID string
	reflectList      bool
)

// reflectCmd generates and stores a reflection from a chat history.
var reflectCmd = &cobra.Command{
	Use:   "reflect <user-id> [file]",
	Short: "Generate a reflection document from a chat history",
	Long: `Generate a markdown reflection document from a chat history and store
it for the user. The input is a JSON array of {"role", "content"} messages.

Examples:
  # Generate from a history file
  profiled reflect alice history.json --session sess-42

  # Generate from stdin
  cat history.json | profiled reflect alice -

  # List a user's stored reflections
  profiled reflect alice --list`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runReflect,
}

func init() {
	reflectCmd.Flags().StringVar(&reflectSessionID, "session", "", "session the chat history came from")
	reflectCmd.Flags().BoolVar(&reflectList, "list", false, "list stored reflections instead of generating")
}

func runReflect(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := cmd.Context()
	userID := args[0]

	if reflectList {
		docs, err := app.reflections.ByUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("listing reflections: %w", err)
		}
		out, err := json.MarshalIndent(docs, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding reflections: %w", err)
		}
		fmt.Println(string(out))
		return nil
	}

	raw, err := readInput(args, 1)
	if err != nil {
		return err
	}

	var history []reflection.ChatMessage
	if err := json.Unmarshal(raw, &history); err != nil {
		return fmt.Errorf("parsing chat history: %w", err)
	}

	doc, err := app.reflector.Generate(ctx, userID, reflectSessionID, history)
	if err != nil {
		return fmt.Errorf("generating reflection: %w", err)
	}
	if err := app.reflections.Save(ctx, doc); err != nil {
		return err
	}

	fmt.Printf("# %s\n\n%s\n", doc.TaskName, doc.Content)
	fmt.Printf("\n[profiled] stored reflection %s\n", doc.ID)
	return nil
}
