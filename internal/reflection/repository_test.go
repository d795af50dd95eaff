package reflection

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/profiled/internal/store"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	return NewRepository(store.NewMemoryStore(), zap.NewNop())
}

func TestRepository_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	doc := &Document{
		TaskName:  "refactor parser",
		Content:   "# Reflection\n\ndetails",
		CreatedAt: time.Now().UTC(),
		SessionID: "sess-1",
		UserID:    "user-1",
	}
	require.NoError(t, repo.Save(ctx, doc))
	require.NotEmpty(t, doc.ID)

	got, err := repo.Get(ctx, "user-1", "sess-1", doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "refactor parser", got.TaskName)
	assert.Equal(t, doc.Content, got.Content)
}

func TestRepository_SaveValidation(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	assert.Error(t, repo.Save(ctx, nil))
	assert.Error(t, repo.Save(ctx, &Document{SessionID: "sess-1"}))
}

func TestRepository_UnknownSessionFallback(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	doc := &Document{TaskName: "t", Content: "c", UserID: "user-1"}
	require.NoError(t, repo.Save(ctx, doc))
	assert.Equal(t, "unknown", doc.SessionID)

	got, err := repo.Get(ctx, "user-1", "unknown", doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "t", got.TaskName)
}

func TestRepository_GetMissing(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.Get(context.Background(), "user-1", "sess-1", "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepository_ByUserAndBySession(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	seed := []*Document{
		{TaskName: "a", Content: "c", UserID: "user-1", SessionID: "sess-1"},
		{TaskName: "b", Content: "c", UserID: "user-1", SessionID: "sess-2"},
		{TaskName: "c", Content: "c", UserID: "user-2", SessionID: "sess-1"},
	}
	for _, doc := range seed {
		require.NoError(t, repo.Save(ctx, doc))
		time.Sleep(2 * time.Millisecond)
	}

	byUser, err := repo.ByUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, byUser, 2)
	// Newest first.
	assert.Equal(t, "b", byUser[0].TaskName)
	assert.Equal(t, "a", byUser[1].TaskName)

	bySession, err := repo.BySession(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, bySession, 2)
	assert.Equal(t, "c", bySession[0].TaskName)
	assert.Equal(t, "a", bySession[1].TaskName)
}

func TestRepository_Update(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	doc := &Document{TaskName: "old", Content: "old body", UserID: "user-1", SessionID: "sess-1"}
	require.NoError(t, repo.Save(ctx, doc))

	got, err := repo.Update(ctx, "user-1", "sess-1", doc.ID, "new", "")
	require.NoError(t, err)
	assert.Equal(t, "new", got.TaskName)
	assert.Equal(t, "old body", got.Content)

	_, err = repo.Update(ctx, "user-1", "sess-1", "missing", "x", "y")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepository_Delete(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	doc := &Document{TaskName: "t", Content: "c", UserID: "user-1", SessionID: "sess-1"}
	require.NoError(t, repo.Save(ctx, doc))

	require.NoError(t, repo.Delete(ctx, "user-1", "sess-1", doc.ID))
	_, err := repo.Get(ctx, "user-1", "sess-1", doc.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting again is a no-op.
	assert.NoError(t, repo.Delete(ctx, "user-1", "sess-1", doc.ID))
}
