package kv

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore creates the kv_entries table if it does not exist.
func NewPostgresStore(ctx context.Context, db *pgxpool.Pool) (*PostgresStore, error) {
	query := `
        CREATE TABLE IF NOT EXISTS kv_entries (
            key        TEXT PRIMARY KEY,
            value      BYTEA NOT NULL,
            updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
        )
    `
	if _, err := db.Exec(ctx, query); err != nil {
		return nil, fmt.Errorf("failed to create kv_entries: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRow(ctx, `SELECT value FROM kv_entries WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return value, err
}

func (s *PostgresStore) Set(ctx context.Context, key string, value []byte) error {
	query := `
        INSERT INTO kv_entries (key, value, updated_at)
        VALUES ($1, $2, now())
        ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
    `
	_, err := s.db.Exec(ctx, query, key, value)
	return err
}

func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM kv_entries WHERE key = $1`, key)
	return err
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	s.db.Close()
	return nil
}
