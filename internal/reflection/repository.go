package reflection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/profiled/internal/profile"
	"github.com/fyrsmithlabs/profiled/internal/store"
)

const collection = "reflections"

// Repository persists reflection documents keyed by user and session.
type Repository struct {
	store  store.DocumentStore
	logger *zap.Logger
}

// NewRepository creates a reflection repository over the given store.
func NewRepository(s store.DocumentStore, logger *zap.Logger) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repository{store: s, logger: logger}
}

// Save stores a reflection document, assigning an ID when absent.
// Empty session IDs fall back to the unknown-session sentinel so the
// key layout stays uniform.
func (r *Repository) Save(ctx context.Context, doc *Document) error {
	if doc == nil {
		return errors.New("reflection document is nil")
	}
	if doc.UserID == "" {
		return errors.New("reflection user id is empty")
	}
	if doc.SessionID == "" {
		doc.SessionID = profile.UnknownSession
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if err := r.store.Set(ctx, collection, docKey(doc.UserID, doc.SessionID, doc.ID), doc); err != nil {
		return fmt.Errorf("saving reflection %s: %w", doc.ID, err)
	}
	return nil
}

// Get loads one reflection by user, session and document ID.
func (r *Repository) Get(ctx context.Context, userID, sessionID, id string) (*Document, error) {
	var doc Document
	err := r.store.Get(ctx, collection, docKey(userID, sessionID, id), &doc)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading reflection %s: %w", id, err)
	}
	return &doc, nil
}

// ByUser returns a user's reflections, newest first.
func (r *Repository) ByUser(ctx context.Context, userID string) ([]*Document, error) {
	return r.query(ctx, store.QueryOptions{Prefix: userID + "/", Descending: true})
}

// BySession returns the reflections recorded under one session, newest
// first.
func (r *Repository) BySession(ctx context.Context, sessionID string) ([]*Document, error) {
	return r.query(ctx, store.QueryOptions{Contains: "/" + sessionID + "/", Descending: true})
}

// Update replaces the task name and content of a stored reflection.
func (r *Repository) Update(ctx context.Context, userID, sessionID, id, taskName, content string) (*Document, error) {
	key := docKey(userID, sessionID, id)
	err := r.store.Update(ctx, collection, key, func(data []byte, exists bool) (any, error) {
		if !exists {
			return nil, ErrNotFound
		}
		var doc Document
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decoding reflection %s: %w", id, err)
		}
		if taskName != "" {
			doc.TaskName = taskName
		}
		if content != "" {
			doc.Content = content
		}
		return &doc, nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("updating reflection %s: %w", id, err)
	}
	return r.Get(ctx, userID, sessionID, id)
}

// Delete removes a reflection. Deleting a missing document is not an
// error.
func (r *Repository) Delete(ctx context.Context, userID, sessionID, id string) error {
	if err := r.store.Delete(ctx, collection, docKey(userID, sessionID, id)); err != nil {
		return fmt.Errorf("deleting reflection %s: %w", id, err)
	}
	return nil
}

func (r *Repository) query(ctx context.Context, opts store.QueryOptions) ([]*Document, error) {
	rows, err := r.store.Query(ctx, collection, opts)
	if err != nil {
		return nil, fmt.Errorf("querying reflections: %w", err)
	}
	docs := make([]*Document, 0, len(rows))
	for _, row := range rows {
		var doc Document
		if err := json.Unmarshal(row.Data, &doc); err != nil {
			r.logger.Warn("skipping undecodable reflection", zap.String("key", row.Key), zap.Error(err))
			continue
		}
		docs = append(docs, &doc)
	}
	return docs, nil
}

func docKey(userID, sessionID, id string) string {
	return userID + "/" + sessionID + "/" + id
}
