package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shailyverma/art-studio/internal/storage"
)

const (
	getEntrySQL = `SELECT value FROM kv_entries WHERE key = $1`

	setEntrySQL = `INSERT INTO kv_entries (key, value, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`
)

var _ storage.KV = (*KV)(nil)

// KV stores values in the kv_entries table, one row per key.
type KV struct {
	pool *pgxpool.Pool
}

func NewKV(pool *pgxpool.Pool) *KV {
	return &KV{pool: pool}
}

// Get returns storage.ErrNotFound when the key has never been written.
func (s *KV) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	if err := s.pool.QueryRow(ctx, getEntrySQL, key).Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("getting %q: %w", key, err)
	}
	return value, nil
}

func (s *KV) Set(ctx context.Context, key string, value []byte) error {
	if _, err := s.pool.Exec(ctx, setEntrySQL, key, value); err != nil {
		return fmt.Errorf("setting %q: %w", key, err)
	}
	return nil
}

func (s *KV) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
