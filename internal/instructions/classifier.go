package instructions

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/profiled/internal/llm"
	"github.com/fyrsmithlabs/profiled/internal/profile"
)

// roleResponse is the schema the classification prompt asks the model
// to produce.
type roleResponse struct {
	Role       string  `json:"role"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

const rolePromptTemplate = `You are an expert at judging which assistant role best fits a user from their behavioral patterns.
Choose the best role from this fixed set:
- code: implementation focus, coding skills
- architect: design focus, system structure
- ask: answering questions, providing information

The user's detected patterns:
%s

Respond with ONLY a JSON object in this exact form:
{
  "role": "code/architect/ask",
  "confidence": 0.8,
  "reasoning": "why this role fits"
}`

// RoleClassifier infers a user's best-fitting agent role from detected
// patterns.
type RoleClassifier struct {
	repo   *profile.Repository
	client llm.Client
	logger *zap.Logger
}

// NewRoleClassifier creates a role classifier.
func NewRoleClassifier(repo *profile.Repository, client llm.Client, logger *zap.Logger) *RoleClassifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoleClassifier{repo: repo, client: client, logger: logger}
}

// UpdatePreferredRole asks the model for the user's best role and
// stores it. Any failure, and any role outside the valid set, is
// discarded silently; the stored preference is left unchanged.
func (r *RoleClassifier) UpdatePreferredRole(ctx context.Context, userID string, patterns []profile.Pattern) {
	if r.client == nil || !r.client.Available() || len(patterns) == 0 {
		return
	}

	var sb strings.Builder
	for _, p := range patterns {
		excerpt := "none"
		if len(p.Context.Excerpts) > 0 {
			excerpt = p.Context.Excerpts[0]
		}
		fmt.Fprintf(&sb, "pattern: %s\ncategory: %s\nconfidence: %.2f\ncontext: %s\n\n",
			p.Name, p.Category, p.Confidence, excerpt)
	}

	raw, err := r.client.Complete(ctx, fmt.Sprintf(rolePromptTemplate, sb.String()))
	if err != nil {
		r.logger.Warn("role classification call failed", zap.Error(err))
		return
	}

	var resp roleResponse
	if err := llm.UnmarshalResponse(raw, &resp); err != nil {
		r.logger.Warn("role classification parse failed", zap.Error(err))
		return
	}

	if !profile.IsValidRole(resp.Role) {
		r.logger.Warn("discarding invalid classified role", zap.String("role", resp.Role))
		return
	}

	if err := r.repo.UpdatePreferredRole(ctx, userID, resp.Role); err != nil {
		r.logger.Warn("storing classified role failed", zap.Error(err))
	}
}
