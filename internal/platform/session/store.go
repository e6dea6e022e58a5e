// Package session keeps per-visitor state in the key/value cache, addressed
// by a signed cookie.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/docker-mastery/internal/platform/cache"
)

// KeyPrefix namespaces session entries in the cache.
const KeyPrefix = "sess:"

// DefaultTTL is the session lifetime, refreshed on every save.
const DefaultTTL = 24 * time.Hour

// Session is the state kept for one visitor.
type Session struct {
	ID        string    `json:"id"`
	Views     int       `json:"views"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists sessions in a cache.Store.
type Store struct {
	cache cache.Store
	ttl   time.Duration
}

// NewStore builds a Store. A nil cache keeps nothing between requests.
func NewStore(c cache.Store, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{cache: c, ttl: ttl}
}

// Key returns the cache key for a session id.
func Key(id string) string {
	return KeyPrefix + strings.TrimSpace(id)
}

// Load returns the session for id. ok is false when none is stored.
func (s *Store) Load(ctx context.Context, id string) (Session, bool, error) {
	if s == nil || s.cache == nil {
		return Session{}, false, nil
	}
	if strings.TrimSpace(id) == "" {
		return Session{}, false, errors.New("session id is required")
	}
	raw, found, err := s.cache.Get(ctx, Key(id))
	if err != nil {
		return Session{}, false, fmt.Errorf("load session: %w", err)
	}
	if !found {
		return Session{}, false, nil
	}
	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return Session{}, false, fmt.Errorf("decode session: %w", err)
	}
	if sess.ID != id {
		return Session{}, false, nil
	}
	return sess, true, nil
}

// Save writes sess and resets its expiry.
func (s *Store) Save(ctx context.Context, sess Session) error {
	if s == nil || s.cache == nil {
		return nil
	}
	if strings.TrimSpace(sess.ID) == "" {
		return errors.New("session id is required")
	}
	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.cache.Set(ctx, Key(sess.ID), payload, s.ttl); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Delete removes the session for id.
func (s *Store) Delete(ctx context.Context, id string) error {
	if s == nil || s.cache == nil {
		return nil
	}
	if err := s.cache.Delete(ctx, Key(id)); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
