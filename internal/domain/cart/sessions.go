package cart

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/shailyverma/art-studio/internal/domain/catalog"
	"github.com/shailyverma/art-studio/internal/storage"
)

// Observer receives the snapshot of a session's Store after each change.
type Observer func(sessionID string, snap Snapshot)

// Sessions hands out one Store per visitor session, loading it from
// storage on first use and keeping it cached until it has been idle for
// longer than the sweep threshold.
type Sessions struct {
	kv        storage.KV
	catalog   catalog.Provider
	lg        *zap.Logger
	observers []Observer
	now       func() time.Time

	mu     sync.Mutex
	stores map[string]*session
}

type session struct {
	store    *Store
	lastUsed time.Time
}

// SessionsOption configures Sessions.
type SessionsOption func(*Sessions)

// WithObserver attaches o to every Store the registry creates.
func WithObserver(o Observer) SessionsOption {
	return func(s *Sessions) {
		s.observers = append(s.observers, o)
	}
}

// WithClock overrides the time source used for idle tracking.
func WithClock(now func() time.Time) SessionsOption {
	return func(s *Sessions) {
		s.now = now
	}
}

func NewSessions(kv storage.KV, p catalog.Provider, lg *zap.Logger, opts ...SessionsOption) *Sessions {
	s := &Sessions{
		kv:      kv,
		catalog: p,
		lg:      lg,
		now:     time.Now,
		stores:  make(map[string]*session),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the Store of the session, loading it if necessary. Storage
// entries of the session live under the "cart:<id>" namespace.
func (s *Sessions) Get(ctx context.Context, id string) *Store {
	s.mu.Lock()
	if sess, ok := s.stores[id]; ok {
		sess.lastUsed = s.now()
		s.mu.Unlock()
		return sess.store
	}
	s.mu.Unlock()

	store := Load(ctx, storage.Namespace(s.kv, "cart:"+id), s.catalog, s.lg.With(zap.String("session", id)))

	s.mu.Lock()
	defer s.mu.Unlock()

	// Another request may have loaded the same session meanwhile.
	if sess, ok := s.stores[id]; ok {
		sess.lastUsed = s.now()
		return sess.store
	}
	for _, o := range s.observers {
		store.Subscribe(func(snap Snapshot) { o(id, snap) })
	}
	s.stores[id] = &session{store: store, lastUsed: s.now()}
	return store
}

// Sweep evicts stores unused for longer than idle and returns how many were
// evicted. Their state is already persisted.
func (s *Sessions) Sweep(idle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-idle)
	evicted := 0
	for id, sess := range s.stores {
		if sess.lastUsed.Before(cutoff) {
			delete(s.stores, id)
			evicted++
		}
	}
	return evicted
}

// Len returns the number of cached stores.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.stores)
}

// Run evicts stores idle for longer than idle every interval until ctx is
// done.
func (s *Sessions) Run(ctx context.Context, idle, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := s.Sweep(idle); n > 0 {
				s.lg.Debug("Evicted idle sessions", zap.Int("count", n), zap.Int("remaining", s.Len()))
			}
		}
	}
}
