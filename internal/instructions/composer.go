package instructions

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/profiled/internal/llm"
	"github.com/fyrsmithlabs/profiled/internal/profile"
)

// categoryThreshold is the minimum pattern confidence for a category
// to influence the composed instructions.
const categoryThreshold = 0.5

// augmentCount is how many instruction strings the LLM variant asks
// for.
const augmentCount = 3

// staticClauses maps pattern categories to boilerplate guidance
// appended in the non-LLM composition path.
var staticClauses = map[string][]string{
	"coding_style": {
		"- Favor simple, readable code",
		"- Avoid complex structures",
		"- Prefer clear, easy-to-follow implementations",
	},
	"debugging": {
		"- Include detailed log output",
		"- Implement error handling carefully",
		"- Keep debug information visible",
	},
}

// Composer builds personalized instruction text from a profile.
type Composer struct {
	repo   *profile.Repository
	client llm.Client
	logger *zap.Logger
}

// NewComposer creates a composer. The client may be nil; composition
// then uses only the static clause tables.
func NewComposer(repo *profile.Repository, client llm.Client, logger *zap.Logger) *Composer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Composer{repo: repo, client: client, logger: logger}
}

// resolveRole picks the role to compose for: the explicit argument if
// valid, else the stored preference, else the default.
func resolveRole(requested string, p *profile.UserProfile) string {
	if profile.IsValidRole(requested) {
		return requested
	}
	if profile.IsValidRole(p.PreferredRole) {
		return p.PreferredRole
	}
	return profile.DefaultRole
}

// Generate composes personalized instructions for the user and
// persists them to the profile. Returns empty text when no base
// instruction exists for the resolved role.
func (c *Composer) Generate(ctx context.Context, userID, role string) (string, error) {
	p, err := c.repo.GetOrCreate(ctx, userID)
	if err != nil {
		return "", err
	}

	resolved := resolveRole(role, p)

	var base string
	for _, inst := range p.BaseInstructions {
		if inst.Role == resolved {
			base = inst.Instructions
			break
		}
	}
	if base == "" {
		c.logger.Debug("no base instructions for role",
			zap.String("user_id", userID),
			zap.String("role", resolved))
		return "", nil
	}

	text := c.compose(ctx, base, p.Patterns)

	if err := c.repo.UpdatePersonalizedInstructions(ctx, userID, text); err != nil {
		return "", fmt.Errorf("persisting instructions for %s: %w", userID, err)
	}
	return text, nil
}

// compose appends category-triggered guidance to the base text. When
// a client is available the LLM path is used, and any failure in it
// returns the base text unaugmented; the static clause tables serve
// only the no-client configuration. A profile with no qualifying
// patterns returns the base text alone.
func (c *Composer) compose(ctx context.Context, base string, patterns []profile.Pattern) string {
	qualifying := make([]profile.Pattern, 0, len(patterns))
	for _, p := range patterns {
		if p.Confidence > categoryThreshold {
			qualifying = append(qualifying, p)
		}
	}
	if len(qualifying) == 0 {
		return base
	}

	if c.client != nil && c.client.Available() {
		augmented, ok := c.llmCompose(ctx, base, qualifying)
		if !ok {
			return base
		}
		return augmented
	}

	lines := []string{base}
	seen := map[string]bool{}
	for _, p := range qualifying {
		if seen[p.Category] {
			continue
		}
		if clauses, ok := staticClauses[p.Category]; ok {
			lines = append(lines, clauses...)
			seen[p.Category] = true
		}
	}
	return strings.Join(lines, "\n")
}

const composePromptTemplate = `You are an expert at tailoring assistant instructions to an individual's working style.

The user's detected behavioral patterns, grouped by category:
%s

Produce exactly %d short instruction lines that adapt the assistant to these patterns.
Respond with ONLY a JSON array of %d strings, for example:
["instruction one", "instruction two", "instruction three"]`

// llmCompose asks the model for augmentation lines. Returns false on
// any failure so the caller can degrade.
func (c *Composer) llmCompose(ctx context.Context, base string, patterns []profile.Pattern) (string, bool) {
	var sb strings.Builder
	byCategory := map[string][]string{}
	var order []string
	for _, p := range patterns {
		if len(byCategory[p.Category]) == 0 {
			order = append(order, p.Category)
		}
		byCategory[p.Category] = append(byCategory[p.Category],
			fmt.Sprintf("%s (confidence %.2f)", p.Name, p.Confidence))
	}
	for _, cat := range order {
		fmt.Fprintf(&sb, "%s:\n  %s\n", cat, strings.Join(byCategory[cat], "\n  "))
	}

	raw, err := c.client.Complete(ctx, fmt.Sprintf(composePromptTemplate, sb.String(), augmentCount, augmentCount))
	if err != nil {
		c.logger.Warn("instruction augmentation call failed", zap.Error(err))
		return "", false
	}

	var lines []string
	if err := llm.UnmarshalResponse(raw, &lines); err != nil {
		c.logger.Warn("instruction augmentation parse failed", zap.Error(err))
		return "", false
	}
	if len(lines) == 0 {
		return "", false
	}
	if len(lines) > augmentCount {
		lines = lines[:augmentCount]
	}

	return base + "\n" + strings.Join(lines, "\n"), true
}
