package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-memory DocumentStore for tests and ephemeral runs.
type MemoryStore struct {
	mu     sync.Mutex
	docs   map[string]map[string]memoryDoc
	closed bool
}

type memoryDoc struct {
	data      []byte
	updatedAt time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]map[string]memoryDoc)}
}

// Get loads the document at (collection, key) into out.
func (m *MemoryStore) Get(ctx context.Context, collection, key string, out any) error {
	if err := validateKey(collection, key); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}

	doc, ok := m.docs[collection][key]
	if !ok {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, collection, key)
	}

	if err := json.Unmarshal(doc.data, out); err != nil {
		return fmt.Errorf("unmarshal %s/%s: %w", collection, key, err)
	}
	return nil
}

// Set stores value at (collection, key).
func (m *MemoryStore) Set(ctx context.Context, collection, key string, value any) error {
	if err := validateKey(collection, key); err != nil {
		return err
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s/%s: %w", collection, key, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}

	m.put(collection, key, data)
	return nil
}

// Update atomically reads, modifies and writes a document. The store
// mutex is held for the whole cycle.
func (m *MemoryStore) Update(ctx context.Context, collection, key string, fn func(data []byte, exists bool) (any, error)) error {
	if err := validateKey(collection, key); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}

	doc, exists := m.docs[collection][key]
	value, err := fn(doc.data, exists)
	if err != nil {
		return err
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s/%s: %w", collection, key, err)
	}

	m.put(collection, key, data)
	return nil
}

// Query scans a collection ordered by update time.
func (m *MemoryStore) Query(ctx context.Context, collection string, opts QueryOptions) ([]Document, error) {
	if collection == "" {
		return nil, ErrEmptyKey
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}

	var docs []Document
	for key, doc := range m.docs[collection] {
		if opts.Prefix != "" && !strings.HasPrefix(key, opts.Prefix) {
			continue
		}
		if opts.Contains != "" && !strings.Contains(key, opts.Contains) {
			continue
		}
		data := make([]byte, len(doc.data))
		copy(data, doc.data)
		docs = append(docs, Document{
			Collection: collection,
			Key:        key,
			Data:       data,
			UpdatedAt:  doc.updatedAt,
		})
	}

	sort.Slice(docs, func(i, j int) bool {
		if opts.Descending {
			return docs[i].UpdatedAt.After(docs[j].UpdatedAt)
		}
		return docs[i].UpdatedAt.Before(docs[j].UpdatedAt)
	})

	if opts.Limit > 0 && len(docs) > opts.Limit {
		docs = docs[:opts.Limit]
	}
	return docs, nil
}

// Delete removes the document at (collection, key).
func (m *MemoryStore) Delete(ctx context.Context, collection, key string) error {
	if err := validateKey(collection, key); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}

	delete(m.docs[collection], key)
	return nil
}

// Close marks the store closed. Further calls fail with ErrClosed.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// put stores data under (collection, key). Caller holds the mutex.
func (m *MemoryStore) put(collection, key string, data []byte) {
	if m.docs[collection] == nil {
		m.docs[collection] = make(map[string]memoryDoc)
	}
	m.docs[collection][key] = memoryDoc{data: data, updatedAt: time.Now().UTC()}
}

// Ensure interface compliance.
var _ DocumentStore = (*MemoryStore)(nil)
