// Package redis implements storage.KV on Redis. Each key holds the whole
// serialized value as a plain string.
package redis

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"

	"github.com/shailyverma/art-studio/internal/storage"
)

var _ storage.KV = (*KV)(nil)

// KV is a Redis-backed key/value store. Keys never expire: entitlements
// must outlive any session.
type KV struct {
	client *redis.Client
	prefix string
}

// NewClient parses a redis:// URL, falling back to treating it as host:port.
func NewClient(url string) *redis.Client {
	opts, err := redis.ParseURL(url)
	if err != nil {
		opts = &redis.Options{Addr: url}
	}
	return redis.NewClient(opts)
}

// NewKV wraps client. prefix is prepended to every key, e.g. "studio:".
func NewKV(client *redis.Client, prefix string) *KV {
	return &KV{client: client, prefix: prefix}
}

func (s *KV) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("getting %q: %w", key, err)
	}
	return v, nil
}

func (s *KV) Set(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, s.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("setting %q: %w", key, err)
	}
	return nil
}

func (s *KV) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
