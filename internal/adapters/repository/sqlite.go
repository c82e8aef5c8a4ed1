package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS notified (
	id          TEXT PRIMARY KEY,
	notified_at TEXT NOT NULL
);`

// SQLiteBackend stores one row per notified ID.
type SQLiteBackend struct {
	db  *sql.DB
	now func() time.Time

	mu     sync.Mutex
	closed bool
}

// OpenSQLite creates or opens the database at path and applies the schema.
//
// The database is configured with:
//   - WAL mode so readers (admin API) never block the scheduler
//   - a 5-second busy timeout
//   - a single connection, matching the single writer
func OpenSQLite(path string, opts ...SQLiteOption) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	b := &SQLiteBackend{db: db, now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Load returns all stored IDs ordered by notification time. An empty table
// is reported as ErrNotFound so callers treat it like a missing file.
func (b *SQLiteBackend) Load(ctx context.Context) ([]string, error) {
	if b.isClosed() {
		return nil, ErrClosed
	}
	rows, err := b.db.QueryContext(ctx, `SELECT id FROM notified ORDER BY notified_at, id`)
	if err != nil {
		return nil, fmt.Errorf("query notified: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notified: %w", err)
	}
	if len(ids) == 0 {
		return nil, ErrNotFound
	}
	return ids, nil
}

// Save replaces the table contents in one transaction. Rows that already
// exist keep their original notified_at.
func (b *SQLiteBackend) Save(ctx context.Context, ids []string) error {
	if b.isClosed() {
		return ErrClosed
	}
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, `CREATE TEMP TABLE IF NOT EXISTS keep (id TEXT PRIMARY KEY)`); err != nil {
		return fmt.Errorf("create keep: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM keep`); err != nil {
		return fmt.Errorf("reset keep: %w", err)
	}

	stamp := b.now().UTC().Format(time.RFC3339Nano)
	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO keep (id) VALUES (?)`, id); err != nil {
			return fmt.Errorf("stage %s: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO notified (id, notified_at) VALUES (?, ?)`, id, stamp); err != nil {
			return fmt.Errorf("insert %s: %w", id, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM notified WHERE id NOT IN (SELECT id FROM keep)`); err != nil {
		return fmt.Errorf("prune: %w", err)
	}
	return tx.Commit()
}

// Close closes the database. Safe to call more than once.
func (b *SQLiteBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return b.db.Close()
}

func (b *SQLiteBackend) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}
