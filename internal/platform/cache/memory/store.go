// Package memory implements the cache contract in process memory.
//
// It backs single-node deployments and tests. Entries expire lazily on read
// and are swept periodically by the go-cache janitor.
package memory

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/louisbranch/docker-mastery/internal/platform/cache"
	gocache "github.com/patrickmn/go-cache"
)

// DefaultCleanupInterval is how often expired entries are swept.
const DefaultCleanupInterval = time.Minute

// Store is an in-process cache.Store.
type Store struct {
	items  *gocache.Cache
	closed atomic.Bool
}

// New builds an empty Store. A non-positive cleanupInterval disables the
// background sweep; expiry on read still applies.
func New(cleanupInterval time.Duration) *Store {
	return &Store{items: gocache.New(gocache.NoExpiration, cleanupInterval)}
}

// Get returns a copy of the value stored at key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := s.check(ctx); err != nil {
		return nil, false, err
	}
	raw, ok := s.items.Get(key)
	if !ok {
		return nil, false, nil
	}
	value, ok := raw.([]byte)
	if !ok {
		return nil, false, nil
	}
	return cloneBytes(value), true, nil
}

// Set stores a copy of value at key for ttl.
func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	if ttl <= 0 {
		return cache.ErrInvalidTTL
	}
	s.items.Set(key, cloneBytes(value), ttl)
	return nil
}

// Delete removes keys.
func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	for _, key := range keys {
		s.items.Delete(key)
	}
	return nil
}

// Ping reports ErrClosed after Close and nil otherwise.
func (s *Store) Ping(ctx context.Context) error {
	return s.check(ctx)
}

// Len returns the number of stored entries, including expired entries not
// yet swept.
func (s *Store) Len() int {
	return s.items.ItemCount()
}

// Close drops all entries and rejects further calls.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.items.Flush()
	return nil
}

func (s *Store) check(ctx context.Context) error {
	if s == nil || s.items == nil || s.closed.Load() {
		return cache.ErrClosed
	}
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return nil
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

var _ cache.Store = (*Store)(nil)
