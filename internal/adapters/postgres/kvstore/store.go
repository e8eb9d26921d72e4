package kvstore

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/nexusflow/nexusflow-client/internal/adapters/postgres"
	"github.com/nexusflow/nexusflow-client/internal/ports/out/kvstore"
)

const schemaDDL = `
	CREATE TABLE IF NOT EXISTS nexusflow_kv (
		key        TEXT PRIMARY KEY,
		value      BYTEA NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)
`

// Store is a Postgres implementation of kvstore.Store.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Migrate creates the backing table when it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if s.pool == nil {
		return errors.New("nil postgres pool")
	}
	_, err := s.pool.Exec(ctx, schemaDDL)
	return err
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if s.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	var v []byte
	if err := s.pool.QueryRow(ctx, `SELECT value FROM nexusflow_kv WHERE key = $1`, key).Scan(&v); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, kvstore.ErrNotFound
		}
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UndefinedTableCode {
			// Nothing has been written yet.
			return nil, kvstore.ErrNotFound
		}
		return nil, err
	}
	if v == nil {
		v = []byte{}
	}
	return v, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if s.pool == nil {
		return errors.New("nil postgres pool")
	}
	if value == nil {
		value = []byte{}
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO nexusflow_kv (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key)
		DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = EXCLUDED.updated_at
	`, key, value)
	return err
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if s.pool == nil {
		return errors.New("nil postgres pool")
	}
	_, err := s.pool.Exec(ctx, `DELETE FROM nexusflow_kv WHERE key = $1`, key)
	if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UndefinedTableCode {
		return nil
	}
	return err
}
