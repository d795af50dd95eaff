package store

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testProfile struct {
	UserID string `json:"user_id"`
	Count  int    `json:"count"`
}

// backends runs a subtest against every DocumentStore implementation.
func backends(t *testing.T, fn func(t *testing.T, s DocumentStore)) {
	t.Helper()

	t.Run("memory", func(t *testing.T) {
		s := NewMemoryStore()
		defer s.Close()
		fn(t, s)
	})

	t.Run("sqlite", func(t *testing.T) {
		s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
		require.NoError(t, err)
		defer s.Close()
		fn(t, s)
	})
}

func TestStore_SetGet(t *testing.T) {
	backends(t, func(t *testing.T, s DocumentStore) {
		ctx := context.Background()

		require.NoError(t, s.Set(ctx, "profiles", "user-1", testProfile{UserID: "user-1", Count: 3}))

		var got testProfile
		require.NoError(t, s.Get(ctx, "profiles", "user-1", &got))
		assert.Equal(t, "user-1", got.UserID)
		assert.Equal(t, 3, got.Count)

		// Set replaces.
		require.NoError(t, s.Set(ctx, "profiles", "user-1", testProfile{UserID: "user-1", Count: 5}))
		require.NoError(t, s.Get(ctx, "profiles", "user-1", &got))
		assert.Equal(t, 5, got.Count)
	})
}

func TestStore_GetNotFound(t *testing.T) {
	backends(t, func(t *testing.T, s DocumentStore) {
		var got testProfile
		err := s.Get(context.Background(), "profiles", "missing", &got)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestStore_EmptyKey(t *testing.T) {
	backends(t, func(t *testing.T, s DocumentStore) {
		ctx := context.Background()
		assert.ErrorIs(t, s.Set(ctx, "", "k", testProfile{}), ErrEmptyKey)
		assert.ErrorIs(t, s.Set(ctx, "c", "", testProfile{}), ErrEmptyKey)
		assert.ErrorIs(t, s.Get(ctx, "", "k", &testProfile{}), ErrEmptyKey)
		assert.ErrorIs(t, s.Delete(ctx, "c", ""), ErrEmptyKey)
	})
}

func TestStore_Update(t *testing.T) {
	backends(t, func(t *testing.T, s DocumentStore) {
		ctx := context.Background()

		// Update on a missing document sees exists=false.
		err := s.Update(ctx, "profiles", "user-1", func(data []byte, exists bool) (any, error) {
			assert.False(t, exists)
			assert.Nil(t, data)
			return testProfile{UserID: "user-1", Count: 1}, nil
		})
		require.NoError(t, err)

		// Update on an existing document sees the current data.
		err = s.Update(ctx, "profiles", "user-1", func(data []byte, exists bool) (any, error) {
			assert.True(t, exists)
			assert.Contains(t, string(data), "user-1")
			return testProfile{UserID: "user-1", Count: 2}, nil
		})
		require.NoError(t, err)

		var got testProfile
		require.NoError(t, s.Get(ctx, "profiles", "user-1", &got))
		assert.Equal(t, 2, got.Count)
	})
}

func TestStore_UpdateSerializesConcurrentWriters(t *testing.T) {
	backends(t, func(t *testing.T, s DocumentStore) {
		ctx := context.Background()
		require.NoError(t, s.Set(ctx, "profiles", "user-1", testProfile{UserID: "user-1"}))

		const writers, rounds = 8, 5
		var wg sync.WaitGroup
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < rounds; j++ {
					err := s.Update(ctx, "profiles", "user-1", func(data []byte, exists bool) (any, error) {
						var p testProfile
						if err := json.Unmarshal(data, &p); err != nil {
							return nil, err
						}
						p.Count++
						return p, nil
					})
					assert.NoError(t, err)
				}
			}()
		}
		wg.Wait()

		var got testProfile
		require.NoError(t, s.Get(ctx, "profiles", "user-1", &got))
		assert.Equal(t, writers*rounds, got.Count, "no increment may be lost")
	})
}

func TestStore_UpdateCallbackErrorAborts(t *testing.T) {
	backends(t, func(t *testing.T, s DocumentStore) {
		ctx := context.Background()
		require.NoError(t, s.Set(ctx, "profiles", "user-1", testProfile{Count: 1}))

		sentinel := errors.New("nope")
		err := s.Update(ctx, "profiles", "user-1", func(data []byte, exists bool) (any, error) {
			return nil, sentinel
		})
		assert.ErrorIs(t, err, sentinel)

		var got testProfile
		require.NoError(t, s.Get(ctx, "profiles", "user-1", &got))
		assert.Equal(t, 1, got.Count, "aborted update must not write")
	})
}

func TestStore_Delete(t *testing.T) {
	backends(t, func(t *testing.T, s DocumentStore) {
		ctx := context.Background()
		require.NoError(t, s.Set(ctx, "profiles", "user-1", testProfile{}))
		require.NoError(t, s.Delete(ctx, "profiles", "user-1"))

		var got testProfile
		assert.ErrorIs(t, s.Get(ctx, "profiles", "user-1", &got), ErrNotFound)

		// Deleting a missing document is not an error.
		assert.NoError(t, s.Delete(ctx, "profiles", "user-1"))
	})
}

func TestStore_QueryOrderAndFilter(t *testing.T) {
	backends(t, func(t *testing.T, s DocumentStore) {
		ctx := context.Background()

		keys := []string{"u1/s1/r1", "u1/s2/r2", "u2/s1/r3"}
		for _, k := range keys {
			require.NoError(t, s.Set(ctx, "reflections", k, testProfile{UserID: k}))
			// SQLite timestamps need to differ for a stable order.
			time.Sleep(2 * time.Millisecond)
		}

		// Ascending by update time.
		docs, err := s.Query(ctx, "reflections", QueryOptions{})
		require.NoError(t, err)
		require.Len(t, docs, 3)
		assert.Equal(t, "u1/s1/r1", docs[0].Key)
		assert.Equal(t, "u2/s1/r3", docs[2].Key)

		// Descending with limit.
		docs, err = s.Query(ctx, "reflections", QueryOptions{Descending: true, Limit: 2})
		require.NoError(t, err)
		require.Len(t, docs, 2)
		assert.Equal(t, "u2/s1/r3", docs[0].Key)

		// Prefix filter scopes to one user.
		docs, err = s.Query(ctx, "reflections", QueryOptions{Prefix: "u1/"})
		require.NoError(t, err)
		assert.Len(t, docs, 2)

		// Contains filter scopes to one session.
		docs, err = s.Query(ctx, "reflections", QueryOptions{Contains: "/s1/"})
		require.NoError(t, err)
		assert.Len(t, docs, 2)

		// Unknown collection is empty, not an error.
		docs, err = s.Query(ctx, "nothing", QueryOptions{})
		require.NoError(t, err)
		assert.Empty(t, docs)
	})
}

func TestSQLiteStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persist.db")
	ctx := context.Background()

	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "profiles", "user-1", testProfile{UserID: "user-1", Count: 9}))
	require.NoError(t, s.Close())

	s, err = NewSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close()

	var got testProfile
	require.NoError(t, s.Get(ctx, "profiles", "user-1", &got))
	assert.Equal(t, 9, got.Count)
}

func TestMemoryStore_Closed(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Close())

	assert.ErrorIs(t, s.Set(context.Background(), "c", "k", testProfile{}), ErrClosed)
	assert.ErrorIs(t, s.Get(context.Background(), "c", "k", &testProfile{}), ErrClosed)
}
