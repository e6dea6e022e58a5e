package cacheaside

import "sync/atomic"

// Observer receives cache events from an Accessor. Implementations must be
// safe for concurrent use.
type Observer interface {
	Hit(key string)
	Miss(key string)
	Fill(key string)
	Invalidate(key string)
	CacheError(op, key string, err error)
}

// NoopObserver ignores every event.
type NoopObserver struct{}

func (NoopObserver) Hit(string)                       {}
func (NoopObserver) Miss(string)                      {}
func (NoopObserver) Fill(string)                      {}
func (NoopObserver) Invalidate(string)                {}
func (NoopObserver) CacheError(string, string, error) {}

// Stats counts cache events.
type Stats struct {
	hits          atomic.Uint64
	misses        atomic.Uint64
	fills         atomic.Uint64
	invalidations atomic.Uint64
	errors        atomic.Uint64
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	Hits          uint64 `json:"hits"`
	Misses        uint64 `json:"misses"`
	Fills         uint64 `json:"fills"`
	Invalidations uint64 `json:"invalidations"`
	Errors        uint64 `json:"errors"`
}

func (s *Stats) Hit(string)                       { s.hits.Add(1) }
func (s *Stats) Miss(string)                      { s.misses.Add(1) }
func (s *Stats) Fill(string)                      { s.fills.Add(1) }
func (s *Stats) Invalidate(string)                { s.invalidations.Add(1) }
func (s *Stats) CacheError(string, string, error) { s.errors.Add(1) }

// Snapshot returns the current counters.
func (s *Stats) Snapshot() StatsSnapshot {
	if s == nil {
		return StatsSnapshot{}
	}
	return StatsSnapshot{
		Hits:          s.hits.Load(),
		Misses:        s.misses.Load(),
		Fills:         s.fills.Load(),
		Invalidations: s.invalidations.Load(),
		Errors:        s.errors.Load(),
	}
}
