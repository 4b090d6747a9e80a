package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/vsinha/requisition/pkg/domain/repositories"
)

// Dialect selects placeholder syntax and column types
type Dialect int

const (
	SQLite Dialect = iota
	Postgres
)

// String returns the database/sql driver name for the dialect
func (d Dialect) String() string {
	switch d {
	case SQLite:
		return "sqlite"
	case Postgres:
		return "postgres"
	default:
		return "unknown"
	}
}

// ParseDialect maps a configured driver name onto a Dialect
func ParseDialect(driver string) (Dialect, error) {
	switch driver {
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "postgres", "postgresql":
		return Postgres, nil
	default:
		return 0, fmt.Errorf("unsupported sql driver %q", driver)
	}
}

// Store is a KeyValueStore backed by a single SQL table. Keys are namespaced
// by prefix so several profiles can share one database.
type Store struct {
	db      *sql.DB
	dialect Dialect
	prefix  string
	now     func() time.Time

	getQuery    string
	upsertQuery string
	deleteQuery string
}

// Verify interface compliance
var _ repositories.KeyValueStore = (*Store)(nil)

// Open connects to dsn with the dialect's driver and prepares the table. For
// SQLite the parent directory of the database file is created if missing.
func Open(ctx context.Context, dialect Dialect, dsn, prefix string) (*Store, error) {
	if dialect == SQLite && dsn != ":memory:" {
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0o700); err != nil {
				return nil, fmt.Errorf("failed to create store directory: %w", err)
			}
		}
	}

	db, err := sql.Open(dialect.String(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", dialect, err)
	}
	if dialect == SQLite {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to %s store: %w", dialect, err)
	}

	store, err := New(ctx, db, dialect, prefix)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// New wraps an open database and runs the table migration
func New(ctx context.Context, db *sql.DB, dialect Dialect, prefix string) (*Store, error) {
	s := &Store{
		db:      db,
		dialect: dialect,
		prefix:  prefix,
		now:     time.Now,
	}

	switch dialect {
	case SQLite:
		s.getQuery = `SELECT store_value FROM kv_store WHERE store_key = ?`
		s.upsertQuery = `INSERT INTO kv_store (store_key, store_value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(store_key) DO UPDATE SET store_value = excluded.store_value, updated_at = excluded.updated_at`
		s.deleteQuery = `DELETE FROM kv_store WHERE store_key = ?`
	case Postgres:
		s.getQuery = `SELECT store_value FROM kv_store WHERE store_key = $1`
		s.upsertQuery = `INSERT INTO kv_store (store_key, store_value, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT(store_key) DO UPDATE SET store_value = excluded.store_value, updated_at = excluded.updated_at`
		s.deleteQuery = `DELETE FROM kv_store WHERE store_key = $1`
	default:
		return nil, fmt.Errorf("unsupported dialect %d", dialect)
	}

	if err := s.migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to migrate kv_store: %w", err)
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	valueType := "BLOB"
	timeType := "TEXT"
	if s.dialect == Postgres {
		valueType = "BYTEA"
		timeType = "TIMESTAMPTZ"
	}

	query := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS kv_store (
		store_key TEXT PRIMARY KEY,
		store_value %s NOT NULL,
		updated_at %s NOT NULL
	);`, valueType, timeType)
	_, err := s.db.ExecContext(ctx, query)
	return err
}

// Get returns the value for key, or repositories.ErrNotFound
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, s.getQuery, s.prefix+key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repositories.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, nil
}

// Set upserts the value for key
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	var updatedAt interface{} = s.now().UTC()
	if s.dialect == SQLite {
		updatedAt = s.now().UTC().Format(time.RFC3339Nano)
	}

	if _, err := s.db.ExecContext(ctx, s.upsertQuery, s.prefix+key, value, updatedAt); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// Delete removes key; a missing key is not an error
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, s.deleteQuery, s.prefix+key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// Close releases the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}
