package instructions

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/profiled/internal/llm"
	"github.com/fyrsmithlabs/profiled/internal/profile"
	"github.com/fyrsmithlabs/profiled/internal/store"
)

func newTestRepo(t *testing.T) *profile.Repository {
	t.Helper()
	s := store.NewMemoryStore()
	t.Cleanup(func() { s.Close() })
	return profile.NewRepository(s, zap.NewNop())
}

func TestResolveRole(t *testing.T) {
	p := &profile.UserProfile{PreferredRole: "architect"}

	assert.Equal(t, "ask", resolveRole("ask", p), "valid argument wins")
	assert.Equal(t, "architect", resolveRole("invalid", p), "falls back to preference")
	assert.Equal(t, "architect", resolveRole("", p))

	p.PreferredRole = "bogus"
	assert.Equal(t, profile.DefaultRole, resolveRole("", p), "falls back to default")
}

func TestComposer_BaseOnlyWhenNoQualifyingPatterns(t *testing.T) {
	repo := newTestRepo(t)
	c := NewComposer(repo, nil, zap.NewNop())
	ctx := context.Background()

	// Low-confidence patterns do not influence the output.
	require.NoError(t, repo.AddPattern(ctx, "user-1", profile.Pattern{
		Name: "faint", Category: "coding_style", Confidence: 0.4,
	}))

	text, err := c.Generate(ctx, "user-1", "code")
	require.NoError(t, err)
	assert.Contains(t, text, "code quality")
	assert.NotContains(t, text, "readable code")

	// The composed text is persisted.
	p, err := repo.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, text, p.PersonalizedInstructions)
}

func TestComposer_StaticClauses(t *testing.T) {
	repo := newTestRepo(t)
	c := NewComposer(repo, nil, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, repo.AddPattern(ctx, "user-1", profile.Pattern{
		Name: "keeps it simple", Category: "coding_style", Confidence: 0.8,
	}))
	require.NoError(t, repo.AddPattern(ctx, "user-1", profile.Pattern{
		Name: "logs everything", Category: "debugging", Confidence: 0.7,
	}))
	// A second pattern in the same category adds its clauses once.
	require.NoError(t, repo.AddPattern(ctx, "user-1", profile.Pattern{
		Name: "short functions", Category: "coding_style", Confidence: 0.9,
	}))

	text, err := c.Generate(ctx, "user-1", "code")
	require.NoError(t, err)
	assert.Contains(t, text, "readable code")
	assert.Contains(t, text, "detailed log output")
	assert.Equal(t, 1, strings.Count(text, "readable code"))
}

func TestComposer_LLMAugmentation(t *testing.T) {
	repo := newTestRepo(t)
	client := llm.NewMockClient(`["prefer short diffs", "explain tradeoffs briefly", "show a test first"]`)
	c := NewComposer(repo, client, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, repo.AddPattern(ctx, "user-1", profile.Pattern{
		Name: "keeps it simple", Category: "coding_style", Confidence: 0.8,
	}))

	text, err := c.Generate(ctx, "user-1", "code")
	require.NoError(t, err)
	assert.Contains(t, text, "code quality", "base text leads")
	assert.Contains(t, text, "prefer short diffs")
	assert.Contains(t, text, "show a test first")
	assert.NotContains(t, text, "readable code", "LLM path replaces static clauses")
}

func TestComposer_LLMFailureDegradesToBase(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.AddPattern(ctx, "user-1", profile.Pattern{
		Name: "keeps it simple", Category: "coding_style", Confidence: 0.8,
	}))

	// The base text is what a no-pattern profile would receive.
	base, err := NewComposer(repo, nil, zap.NewNop()).Generate(ctx, "user-2", "code")
	require.NoError(t, err)

	t.Run("unparseable response", func(t *testing.T) {
		c := NewComposer(repo, llm.NewMockClient("not a json array"), zap.NewNop())
		text, err := c.Generate(ctx, "user-1", "code")
		require.NoError(t, err)
		assert.Equal(t, base, text, "parse failure returns the base text unaugmented")
	})

	t.Run("call error", func(t *testing.T) {
		client := llm.NewMockClient()
		client.Err = errors.New("quota exceeded")
		c := NewComposer(repo, client, zap.NewNop())
		text, err := c.Generate(ctx, "user-1", "code")
		require.NoError(t, err)
		assert.Equal(t, base, text)
		assert.NotContains(t, text, "readable code")
	})
}

func TestComposer_NoBaseInstructionsForRole(t *testing.T) {
	repo := newTestRepo(t)
	c := NewComposer(repo, nil, zap.NewNop())
	ctx := context.Background()

	// Replace the seeded set with one that lacks the resolved role.
	require.NoError(t, repo.UpdateInstructions(ctx, "user-1", []profile.RoleInstruction{
		{Role: "ask", Instructions: "answer briefly", Priority: 1},
	}))

	text, err := c.Generate(ctx, "user-1", "code")
	require.NoError(t, err)
	assert.Empty(t, text)
}
