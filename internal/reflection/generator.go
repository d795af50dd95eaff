package reflection

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/profiled/internal/llm"
)

const taskNamePromptTemplate = `Extract, in a single line, the name of the task that was worked on in this chat session.
Keep it concrete and concise. Respond with the task name only, no quotes or prefix.

Chat history:
%s

Task name:`

const contentPromptTemplate = `Analyze the chat history below and produce a markdown document in exactly this structure:

# Reflection

## 1. Session overview
   - what was asked or requested
   - the goal being pursued
   - the expected outcome

## 2. Session outcomes
   - solutions or answers obtained
   - actions taken
   - concrete results

## 3. Observations and lessons
   - new knowledge gained
   - information that proved useful
   - points to carry forward

## 4. User characteristics
   - communication style
   - decision-making tendencies
   - values and priorities
   - areas of interest

## 5. Next steps
   - remaining issues
   - recommended next actions
   - things to consider later

Chat history:
%s`

// Generator produces reflection documents from chat histories.
type Generator struct {
	client llm.Client
	logger *zap.Logger
}

// NewGenerator creates a reflection generator.
func NewGenerator(client llm.Client, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{client: client, logger: logger}
}

// Generate summarizes a chat session into a reflection document. The
// user and session IDs are recorded on the document for later lookup.
func (g *Generator) Generate(ctx context.Context, userID, sessionID string, history []ChatMessage) (*Document, error) {
	if len(history) == 0 {
		return nil, ErrEmptyHistory
	}
	if g.client == nil || !g.client.Available() {
		return nil, llm.ErrNotConfigured
	}

	formatted := formatHistory(history)

	taskName, err := g.client.Complete(ctx, fmt.Sprintf(taskNamePromptTemplate, formatted))
	if err != nil {
		return nil, fmt.Errorf("extracting task name: %w", err)
	}

	content, err := g.client.Complete(ctx, fmt.Sprintf(contentPromptTemplate, formatted))
	if err != nil {
		return nil, fmt.Errorf("generating reflection content: %w", err)
	}

	return &Document{
		TaskName:  strings.TrimSpace(taskName),
		Content:   strings.TrimSpace(content),
		CreatedAt: time.Now().UTC(),
		SessionID: sessionID,
		UserID:    userID,
	}, nil
}

func formatHistory(history []ChatMessage) string {
	lines := make([]string, 0, len(history))
	for _, msg := range history {
		lines = append(lines, fmt.Sprintf("%s: %s", msg.Role, msg.Content))
	}
	return strings.Join(lines, "\n")
}
