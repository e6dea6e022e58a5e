// Package cache defines the key/value cache contract shared by services.
//
// Values are opaque bytes with a per-key TTL so adapters stay free of domain
// types. Every call may fail with a connectivity error; callers decide
// whether that failure is fatal.
package cache

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrClosed is returned by adapters used after Close.
	ErrClosed = errors.New("cache is closed")
	// ErrInvalidTTL is returned when Set receives a non-positive ttl.
	ErrInvalidTTL = errors.New("cache ttl must be positive")
)

// Store is a key/value store with per-key expiry.
type Store interface {
	// Get returns the value for key. found is false when the key is absent
	// or expired.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	// Set stores value under key for ttl. A non-positive ttl is rejected.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes keys. Deleting an absent key is not an error.
	Delete(ctx context.Context, keys ...string) error
	// Ping verifies connectivity to the backend.
	Ping(ctx context.Context) error
	// Close releases backend resources.
	Close() error
}

// ConnState is the connectivity of a cache backend.
type ConnState string

const (
	StateConnected    ConnState = "connected"
	StateDisconnected ConnState = "disconnected"
)

// Status is a point-in-time connectivity report for a cache backend.
type Status struct {
	State ConnState
	Err   string
}

// Connected reports whether the backend answered its last probe.
func (s Status) Connected() bool {
	return s.State == StateConnected
}

// Probe pings store and reports the result as a Status.
func Probe(ctx context.Context, store Store) Status {
	if store == nil {
		return Status{State: StateDisconnected, Err: "cache is not configured"}
	}
	if err := store.Ping(ctx); err != nil {
		return Status{State: StateDisconnected, Err: err.Error()}
	}
	return Status{State: StateConnected}
}

// ItemKey returns the cache key for one record, e.g. "post:42".
func ItemKey(prefix string, id int64) string {
	return strings.TrimSpace(prefix) + ":" + strconv.FormatInt(id, 10)
}

// CollectionKey returns the cache key for a full listing, e.g. "posts:all".
func CollectionKey(prefix string) string {
	return strings.TrimSpace(prefix) + ":all"
}
