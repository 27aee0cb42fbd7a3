package hybridstorage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

const kvSchema = `
CREATE TABLE IF NOT EXISTS kv (
    key        TEXT PRIMARY KEY,
    value      TEXT NOT NULL,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// SQLiteStore persists the local cache in a single-file SQLite database.
// MaxValueBytes and MaxTotalBytes emulate the per-key and per-origin limits of a
// browser store; zero disables a limit.
type SQLiteStore struct {
	db            *sql.DB
	MaxValueBytes int
	MaxTotalBytes int
}

// OpenSQLiteStore opens (or creates) the cache database at path.
func OpenSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("kv: open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("kv: enable WAL mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("kv: set busy timeout: %w", err)
	}
	if _, err := db.ExecContext(ctx, kvSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("kv: create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close 데이터베이스 닫기
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrKeyNotFound
	}
	if err != nil {
		return "", fmt.Errorf("kv: get %q: %w", key, err)
	}
	return value, nil
}

func (s *SQLiteStore) Set(ctx context.Context, key, value string) error {
	if s.MaxValueBytes > 0 && len(value) > s.MaxValueBytes {
		return fmt.Errorf("%w: %s is %d bytes", ErrQuotaExceeded, key, len(value))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("kv: begin: %w", err)
	}
	defer tx.Rollback()

	if s.MaxTotalBytes > 0 {
		var others int64
		if err := tx.QueryRowContext(ctx,
			"SELECT COALESCE(SUM(LENGTH(CAST(value AS BLOB))), 0) FROM kv WHERE key <> ?", key,
		).Scan(&others); err != nil {
			return fmt.Errorf("kv: measure usage: %w", err)
		}
		if total := others + int64(len(value)); total > int64(s.MaxTotalBytes) {
			return fmt.Errorf("%w: total %d bytes", ErrQuotaExceeded, total)
		}
	}

	const q = `
		INSERT INTO kv (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`
	if _, err := tx.ExecContext(ctx, q, key, value); err != nil {
		return fmt.Errorf("kv: set %q: %w", key, err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) Remove(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", key); err != nil {
		return fmt.Errorf("kv: remove %q: %w", key, err)
	}
	return nil
}
