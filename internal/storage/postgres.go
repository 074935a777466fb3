package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore is a PostgreSQL implementation of Store backed by a single
// key-value table:
//
//	CREATE TABLE app_state (
//	    key        TEXT PRIMARY KEY,
//	    value      JSONB NOT NULL,
//	    version    BIGINT NOT NULL,
//	    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
//	);
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL key-value store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Get retrieves the entry for a key.
func (s *PostgresStore) Get(ctx context.Context, key string) (Entry, error) {
	query := `SELECT value, version FROM app_state WHERE key = $1`

	var entry Entry
	err := s.pool.QueryRow(ctx, query, key).Scan(&entry.Value, &entry.Version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Entry{}, ErrKeyNotFound
		}
		return Entry{}, err
	}

	return entry, nil
}

// Put writes a value unconditionally.
func (s *PostgresStore) Put(ctx context.Context, key string, value []byte) error {
	query := `
		INSERT INTO app_state (key, value, version, updated_at)
		VALUES ($1, $2, 1, now())
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value,
		    version = app_state.version + 1,
		    updated_at = now()
	`

	_, err := s.pool.Exec(ctx, query, key, value)
	return err
}

// CompareAndPut writes a value only if the stored version matches.
func (s *PostgresStore) CompareAndPut(ctx context.Context, key string, value []byte, expected int64) (int64, error) {
	if expected == 0 {
		query := `
			INSERT INTO app_state (key, value, version, updated_at)
			VALUES ($1, $2, 1, now())
			ON CONFLICT (key) DO NOTHING
		`
		tag, err := s.pool.Exec(ctx, query, key, value)
		if err != nil {
			return 0, err
		}
		if tag.RowsAffected() == 0 {
			return 0, ErrVersionMismatch
		}
		return 1, nil
	}

	query := `
		UPDATE app_state
		SET value = $2, version = version + 1, updated_at = now()
		WHERE key = $1 AND version = $3
		RETURNING version
	`

	var next int64
	err := s.pool.QueryRow(ctx, query, key, value, expected).Scan(&next)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrVersionMismatch
		}
		return 0, err
	}

	return next, nil
}

// Delete removes a key.
func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	query := `DELETE FROM app_state WHERE key = $1`
	_, err := s.pool.Exec(ctx, query, key)
	return err
}

// Ensure PostgresStore implements Store interface.
var _ Store = (*PostgresStore)(nil)
