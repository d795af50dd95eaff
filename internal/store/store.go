package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound indicates no document exists for the given key.
	ErrNotFound = errors.New("document not found")

	// ErrEmptyKey indicates an empty collection or key.
	ErrEmptyKey = errors.New("collection and key must not be empty")

	// ErrClosed indicates the store has been closed.
	ErrClosed = errors.New("store is closed")
)

// Document is a stored JSON document with its location and timestamp.
type Document struct {
	Collection string
	Key        string
	Data       []byte
	UpdatedAt  time.Time
}

// QueryOptions filters and orders a collection scan.
type QueryOptions struct {
	// Prefix restricts results to keys starting with this string.
	Prefix string
	// Contains restricts results to keys containing this substring.
	Contains string
	// Limit caps the number of results. Zero means no limit.
	Limit int
	// Descending orders results newest-first by update time.
	// Default is ascending.
	Descending bool
}

// DocumentStore persists JSON documents keyed by (collection, key).
//
// Values passed to Set and the values returned from Update callbacks are
// JSON-marshaled; Get unmarshals into the provided destination.
type DocumentStore interface {
	// Get loads the document at (collection, key) into out.
	// Returns ErrNotFound if no document exists.
	Get(ctx context.Context, collection, key string, out any) error

	// Set stores value at (collection, key), replacing any existing
	// document.
	Set(ctx context.Context, collection, key string, value any) error

	// Update atomically reads, modifies and writes the document at
	// (collection, key). The callback receives the current JSON data
	// (nil when the document does not exist) and returns the value to
	// store. Returning an error aborts the update without writing.
	Update(ctx context.Context, collection, key string, fn func(data []byte, exists bool) (any, error)) error

	// Query scans a collection ordered by update time.
	Query(ctx context.Context, collection string, opts QueryOptions) ([]Document, error)

	// Delete removes the document at (collection, key). Deleting a
	// missing document is not an error.
	Delete(ctx context.Context, collection, key string) error

	// Close releases backend resources.
	Close() error
}

func validateKey(collection, key string) error {
	if collection == "" || key == "" {
		return ErrEmptyKey
	}
	return nil
}
