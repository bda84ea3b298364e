// Package storage defines the durable key/value contract the cart persists
// through, plus helpers shared by its backends.
package storage

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned by Get when no value is stored under the key.
var ErrNotFound = errors.New("key not found")

// KV is a durable byte store. Set must be durable once it returns nil.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Ping(ctx context.Context) error
}

// Namespace returns a KV that prefixes every key with prefix and ":".
func Namespace(kv KV, prefix string) KV {
	return &namespaced{kv: kv, prefix: prefix + ":"}
}

type namespaced struct {
	kv     KV
	prefix string
}

func (n *namespaced) Get(ctx context.Context, key string) ([]byte, error) {
	return n.kv.Get(ctx, n.prefix+key)
}

func (n *namespaced) Set(ctx context.Context, key string, value []byte) error {
	return n.kv.Set(ctx, n.prefix+key, value)
}

func (n *namespaced) Ping(ctx context.Context) error {
	return n.kv.Ping(ctx)
}
