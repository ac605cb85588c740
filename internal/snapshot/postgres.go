package snapshot

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const createSnapshotTable = `
CREATE TABLE IF NOT EXISTS practice_snapshots (
	name       TEXT PRIMARY KEY,
	document   JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresBackend keeps the document as one JSONB row keyed by name.
type PostgresBackend struct {
	pool *pgxpool.Pool
	name string
}

// NewPostgresBackend creates the table if needed. The pool is owned by the
// backend and closed by Close.
func NewPostgresBackend(ctx context.Context, pool *pgxpool.Pool, name string) (*PostgresBackend, error) {
	if _, err := pool.Exec(ctx, createSnapshotTable); err != nil {
		return nil, fmt.Errorf("create practice_snapshots table: %w", err)
	}
	return &PostgresBackend{pool: pool, name: name}, nil
}

func (b *PostgresBackend) Name() string { return "postgres" }

func (b *PostgresBackend) Load(ctx context.Context) ([]byte, error) {
	var doc string
	err := b.pool.QueryRow(ctx,
		`SELECT document::text FROM practice_snapshots WHERE name = $1`, b.name,
	).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotExist
		}
		return nil, fmt.Errorf("select snapshot: %w", err)
	}
	return []byte(doc), nil
}

func (b *PostgresBackend) Save(ctx context.Context, data []byte) error {
	_, err := b.pool.Exec(ctx, `
		INSERT INTO practice_snapshots (name, document, updated_at)
		VALUES ($1, $2::jsonb, now())
		ON CONFLICT (name) DO UPDATE
		SET document = EXCLUDED.document, updated_at = EXCLUDED.updated_at
	`, b.name, string(data))
	if err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}
	return nil
}

func (b *PostgresBackend) Ping(ctx context.Context) error {
	return b.pool.Ping(ctx)
}

func (b *PostgresBackend) Close() error {
	b.pool.Close()
	return nil
}
