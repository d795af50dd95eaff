package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists documents in a single SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path. The parent
// directory is created if missing. An empty path opens an in-process
// database that vanishes on Close.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	dsn := ":memory:"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		dsn = path
	}
	// _txlock=immediate makes every transaction take the write lock at
	// BEGIN, so Update never holds a read lock it must later upgrade.
	dsn += "?_txlock=immediate"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// The modernc driver serializes access per connection; a single
	// connection avoids table-lock errors under concurrent writers.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("pragma %q: %w", p, err)
		}
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS documents (
			collection TEXT NOT NULL,
			key        TEXT NOT NULL,
			data       TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (collection, key)
		);

		CREATE INDEX IF NOT EXISTS idx_documents_updated
			ON documents(collection, updated_at);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	return nil
}

// Get loads the document at (collection, key) into out.
func (s *SQLiteStore) Get(ctx context.Context, collection, key string, out any) error {
	if err := validateKey(collection, key); err != nil {
		return err
	}

	var data []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT data FROM documents WHERE collection = ? AND key = ?",
		collection, key,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, collection, key)
	}
	if err != nil {
		return fmt.Errorf("get %s/%s: %w", collection, key, err)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("unmarshal %s/%s: %w", collection, key, err)
	}
	return nil
}

// Set stores value at (collection, key), replacing any existing document.
func (s *SQLiteStore) Set(ctx context.Context, collection, key string, value any) error {
	if err := validateKey(collection, key); err != nil {
		return err
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s/%s: %w", collection, key, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (collection, key, data, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(collection, key) DO UPDATE SET
			data = excluded.data,
			updated_at = excluded.updated_at
	`, collection, key, string(data), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("set %s/%s: %w", collection, key, err)
	}
	return nil
}

// Update atomically reads, modifies and writes a document. The whole
// cycle runs inside one transaction, opened immediate via the DSN's
// _txlock option; the single-connection pool additionally serializes
// concurrent Update callers.
func (s *SQLiteStore) Update(ctx context.Context, collection, key string, fn func(data []byte, exists bool) (any, error)) error {
	if err := validateKey(collection, key); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update %s/%s: %w", collection, key, err)
	}
	defer tx.Rollback()

	var current []byte
	exists := true
	err = tx.QueryRowContext(ctx,
		"SELECT data FROM documents WHERE collection = ? AND key = ?",
		collection, key,
	).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		exists = false
		current = nil
	} else if err != nil {
		return fmt.Errorf("read %s/%s: %w", collection, key, err)
	}

	value, err := fn(current, exists)
	if err != nil {
		return err
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s/%s: %w", collection, key, err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO documents (collection, key, data, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(collection, key) DO UPDATE SET
			data = excluded.data,
			updated_at = excluded.updated_at
	`, collection, key, string(data), time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("write %s/%s: %w", collection, key, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s/%s: %w", collection, key, err)
	}
	return nil
}

// Query scans a collection ordered by update time.
func (s *SQLiteStore) Query(ctx context.Context, collection string, opts QueryOptions) ([]Document, error) {
	if collection == "" {
		return nil, ErrEmptyKey
	}

	var sb strings.Builder
	sb.WriteString("SELECT key, data, updated_at FROM documents WHERE collection = ?")
	args := []any{collection}

	if opts.Prefix != "" {
		sb.WriteString(" AND key LIKE ? ESCAPE '\\'")
		args = append(args, escapeLike(opts.Prefix)+"%")
	}
	if opts.Contains != "" {
		sb.WriteString(" AND key LIKE ? ESCAPE '\\'")
		args = append(args, "%"+escapeLike(opts.Contains)+"%")
	}

	if opts.Descending {
		sb.WriteString(" ORDER BY updated_at DESC")
	} else {
		sb.WriteString(" ORDER BY updated_at ASC")
	}

	if opts.Limit > 0 {
		sb.WriteString(" LIMIT ?")
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var (
			doc Document
			ts  string
		)
		doc.Collection = collection
		if err := rows.Scan(&doc.Key, &doc.Data, &ts); err != nil {
			return nil, fmt.Errorf("scan %s: %w", collection, err)
		}
		doc.UpdatedAt, _ = time.Parse(time.RFC3339Nano, ts)
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	return docs, nil
}

// Delete removes the document at (collection, key).
func (s *SQLiteStore) Delete(ctx context.Context, collection, key string) error {
	if err := validateKey(collection, key); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx,
		"DELETE FROM documents WHERE collection = ? AND key = ?",
		collection, key,
	)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, key, err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)
	return r.Replace(s)
}

// Ensure interface compliance.
var _ DocumentStore = (*SQLiteStore)(nil)
