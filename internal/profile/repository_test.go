package profile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/profiled/internal/store"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	s := store.NewMemoryStore()
	t.Cleanup(func() { s.Close() })
	return NewRepository(s, zap.NewNop())
}

func TestRepository_GetOrCreateSeedsDefaults(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	p, err := repo.GetOrCreate(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", p.UserID)
	assert.Equal(t, DefaultRole, p.PreferredRole)
	assert.Empty(t, p.Patterns)
	require.Len(t, p.BaseInstructions, len(ValidRoles), "one seed instruction per role")

	roles := map[string]bool{}
	for _, inst := range p.BaseInstructions {
		roles[inst.Role] = true
		assert.NotEmpty(t, inst.Instructions)
	}
	for _, role := range ValidRoles {
		assert.True(t, roles[role], role)
	}

	// The seeded profile is persisted, not recreated per call.
	again, err := repo.GetOrCreate(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, p.UpdatedAt, again.UpdatedAt)
}

func TestRepository_GetMissing(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.Get(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrProfileNotFound)

	_, err = repo.Get(context.Background(), " ")
	assert.ErrorIs(t, err, ErrEmptyUserID)
}

func TestRepository_AddPatternUpsert(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.AddPattern(ctx, "user-1", Pattern{
		Name: "P", Category: "C", Confidence: 0.4,
	}))
	require.NoError(t, repo.AddPattern(ctx, "user-1", Pattern{
		Name: "P", Category: "C", Confidence: 0.9,
	}))

	p, err := repo.Get(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, p.Patterns, 1, "same name+category replaces, never duplicates")
	assert.Equal(t, 0.9, p.Patterns[0].Confidence)

	// A different category is a distinct pattern.
	require.NoError(t, repo.AddPattern(ctx, "user-1", Pattern{
		Name: "P", Category: "other", Confidence: 0.5,
	}))
	p, err = repo.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, p.Patterns, 2)
}

func TestRepository_AddPatternValidation(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	err := repo.AddPattern(ctx, "user-1", Pattern{Category: "c", Confidence: 0.5})
	assert.ErrorIs(t, err, ErrEmptyPatternName)

	// Confidence is clamped, category defaulted, before persistence.
	require.NoError(t, repo.AddPattern(ctx, "user-1", Pattern{Name: "n", Confidence: 3.0}))
	p, err := repo.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1.0, p.Patterns[0].Confidence)
	assert.Equal(t, DefaultCategory, p.Patterns[0].Category)
}

func TestRepository_PatternHistory(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	// The same logical pattern merged twice leaves one profile entry
	// but two history observations.
	require.NoError(t, repo.AddPattern(ctx, "user-1", Pattern{Name: "P", Category: "C", Confidence: 0.4}))
	require.NoError(t, repo.AddPattern(ctx, "user-1", Pattern{Name: "P", Category: "C", Confidence: 0.9}))
	require.NoError(t, repo.AddPattern(ctx, "user-2", Pattern{Name: "Q", Category: "C", Confidence: 0.5}))

	history, err := repo.PatternHistory(ctx, "user-1", 0)
	require.NoError(t, err)
	require.Len(t, history, 2, "history is per user and append-only")
	for _, h := range history {
		assert.Equal(t, "P", h.Name)
	}
}

func TestRepository_AddLabelMerges(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.AddLabel(ctx, "user-1", DynamicLabel{
		Text: "#t", Confidence: 0.6, Context: []string{"a"}, OccurrenceCount: 1,
	}))
	require.NoError(t, repo.AddLabel(ctx, "user-1", DynamicLabel{
		Text: "#t", Confidence: 0.9, Context: []string{"b"}, OccurrenceCount: 1,
	}))
	require.NoError(t, repo.AddLabel(ctx, "user-1", DynamicLabel{
		Text: "#other", Confidence: 0.7, OccurrenceCount: 1,
	}))

	p, err := repo.Get(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, p.Labels, 2)

	merged := p.Labels[0]
	assert.Equal(t, "#t", merged.Text)
	assert.Equal(t, 2, merged.OccurrenceCount)
	assert.Equal(t, 0.9, merged.Confidence)
	assert.Equal(t, []string{"a", "b"}, merged.Context)
}

func TestRepository_UpsertCluster(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.UpsertCluster(ctx, "user-1", LabelCluster{
		ClusterID: "cluster_0", Theme: "old", Labels: []string{"#a"},
	}))
	require.NoError(t, repo.UpsertCluster(ctx, "user-1", LabelCluster{
		ClusterID: "cluster_0", Theme: "new", Labels: []string{"#a", "#b"},
	}))

	p, err := repo.Get(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, p.Clusters, 1)
	assert.Equal(t, "new", p.Clusters[0].Theme)
	assert.Len(t, p.Clusters[0].Labels, 2)

	err = repo.UpsertCluster(ctx, "user-1", LabelCluster{ClusterID: "cluster_1"})
	assert.ErrorIs(t, err, ErrEmptyCluster)
}

func TestRepository_AddCategory(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.AddCategory(ctx, "user-1", DynamicCategory{Name: "exploration"}))
	require.NoError(t, repo.AddCategory(ctx, "user-1", DynamicCategory{Name: "exploration"}))

	p, err := repo.Get(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, p.Categories, 1)
	assert.Equal(t, 2, p.Categories[0].UsageCount)
	assert.False(t, p.Categories[0].LastUsed.IsZero())
}

func TestRepository_AddTendencyAverages(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.AddTendency(ctx, "user-1", Tendency{Label: "focus", Strength: 0.4}))
	require.NoError(t, repo.AddTendency(ctx, "user-1", Tendency{Label: "focus", Strength: 0.8}))

	p, err := repo.Get(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, p.Tendencies, 1)
	assert.InDelta(t, 0.6, p.Tendencies[0].Strength, 1e-9)
	assert.Equal(t, 2, p.Tendencies[0].Observations)

	require.NoError(t, repo.AddTendency(ctx, "user-1", Tendency{Label: "focus", Strength: 0.6}))
	p, err = repo.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.InDelta(t, 0.6, p.Tendencies[0].Strength, 1e-9)
}

func TestRepository_UpdatePreferredRole(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	err := repo.UpdatePreferredRole(ctx, "user-1", "admin")
	assert.ErrorIs(t, err, ErrInvalidRole)

	require.NoError(t, repo.UpdatePreferredRole(ctx, "user-1", "architect"))
	p, err := repo.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "architect", p.PreferredRole)
}

func TestRepository_UpdateInstructions(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	custom := []RoleInstruction{{Role: "code", Instructions: "keep it small", Priority: 2}}
	require.NoError(t, repo.UpdateInstructions(ctx, "user-1", custom))
	require.NoError(t, repo.UpdatePersonalizedInstructions(ctx, "user-1", "composed text"))

	p, err := repo.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, custom, p.BaseInstructions)
	assert.Equal(t, "composed text", p.PersonalizedInstructions)
}
