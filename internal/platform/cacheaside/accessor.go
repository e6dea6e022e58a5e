package cacheaside

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/louisbranch/docker-mastery/internal/platform/cache"
	"github.com/louisbranch/docker-mastery/internal/platform/timeouts"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/louisbranch/docker-mastery/internal/platform/cacheaside"

// Source tells the caller where a read was served from. It is diagnostic
// only.
type Source string

const (
	SourceCache    Source = "cache"
	SourceDatabase Source = "database"
)

var (
	// ErrNotFound is returned by Read when the loader finds no record.
	ErrNotFound = errors.New("record not found")
	// ErrInvalidTTL is returned by Read when ttl is not positive.
	ErrInvalidTTL = errors.New("cache ttl must be positive")
)

// Loader fetches authoritative data for one cache key's scope.
type Loader[T any] func(ctx context.Context) (T, error)

// Mutation performs one insert, update or delete against the store.
type Mutation[T any] func(ctx context.Context) (T, error)

// Options configures an Accessor. The zero value is usable.
type Options struct {
	// Logger receives hit, miss, invalidation and degradation lines.
	// Defaults to log.Default().
	Logger *log.Logger
	// Observer receives cache events. Defaults to NoopObserver.
	Observer Observer
	// CacheTimeout caps each cache round trip. Defaults to timeouts.CacheOp.
	CacheTimeout time.Duration
	// IsNotFound reports whether a loader error means "no record". Errors
	// matching ErrNotFound are always treated as not-found.
	IsNotFound func(error) bool
	// Tracer defaults to the global OpenTelemetry tracer provider.
	Tracer trace.Tracer
}

// Accessor applies the cache-aside policy over a cache.Store. A nil store
// disables caching: every read goes to the loader.
type Accessor struct {
	cache        cache.Store
	logger       *log.Logger
	observer     Observer
	cacheTimeout time.Duration
	isNotFound   func(error) bool
	tracer       trace.Tracer
}

// New builds an Accessor over store.
func New(store cache.Store, opts Options) *Accessor {
	a := &Accessor{
		cache:        store,
		logger:       opts.Logger,
		observer:     opts.Observer,
		cacheTimeout: opts.CacheTimeout,
		isNotFound:   opts.IsNotFound,
		tracer:       opts.Tracer,
	}
	if a.logger == nil {
		a.logger = log.Default()
	}
	if a.observer == nil {
		a.observer = NoopObserver{}
	}
	if a.cacheTimeout <= 0 {
		a.cacheTimeout = timeouts.CacheOp
	}
	if a.tracer == nil {
		a.tracer = otel.Tracer(tracerName)
	}
	return a
}

// Read returns the value cached under key, or loads it and caches it for ttl.
//
// A loader not-found is returned as an error matching ErrNotFound (and the
// loader's own error) and is never cached. Any other loader error is returned
// unchanged.
func Read[T any](ctx context.Context, a *Accessor, key string, ttl time.Duration, load Loader[T]) (T, Source, error) {
	var zero T
	if a == nil {
		return zero, "", errors.New("cache accessor is required")
	}
	if load == nil {
		return zero, "", errors.New("loader is required")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return zero, "", errors.New("cache key is required")
	}
	if ttl <= 0 {
		return zero, "", ErrInvalidTTL
	}
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, span := a.tracer.Start(ctx, "cacheaside.Read", trace.WithAttributes(
		attribute.String("cache.key", key),
		attribute.Int64("cache.ttl_ms", ttl.Milliseconds()),
	))
	defer span.End()

	var cached T
	if a.lookup(ctx, key, &cached) {
		span.SetAttributes(attribute.String("cache.source", string(SourceCache)))
		return cached, SourceCache, nil
	}

	value, err := load(ctx)
	if err != nil {
		if a.notFound(err) {
			span.SetAttributes(attribute.Bool("cache.not_found", true))
			if errors.Is(err, ErrNotFound) {
				return zero, "", err
			}
			return zero, "", fmt.Errorf("%w: %w", ErrNotFound, err)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "load")
		return zero, "", err
	}

	a.fill(ctx, key, value, ttl)
	span.SetAttributes(attribute.String("cache.source", string(SourceDatabase)))
	return value, SourceDatabase, nil
}

// Write runs mutate against the store and, only if it succeeds, deletes the
// invalidate keys from the cache. Invalidation is best-effort: failures are
// logged and never returned.
func Write[T any](ctx context.Context, a *Accessor, mutate Mutation[T], invalidate ...string) (T, error) {
	var zero T
	if a == nil {
		return zero, errors.New("cache accessor is required")
	}
	if mutate == nil {
		return zero, errors.New("mutation is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, span := a.tracer.Start(ctx, "cacheaside.Write", trace.WithAttributes(
		attribute.StringSlice("cache.invalidate", invalidate),
	))
	defer span.End()

	value, err := mutate(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "mutate")
		return zero, err
	}
	a.Invalidate(ctx, invalidate...)
	return value, nil
}

// Invalidate deletes keys from the cache, best-effort. It runs even when ctx
// has been canceled, since the store write it follows already committed.
func (a *Accessor) Invalidate(ctx context.Context, keys ...string) {
	if a == nil || a.cache == nil {
		return
	}
	keys = uniqueKeys(keys)
	if len(keys) == 0 {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	opCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cacheTimeout)
	defer cancel()

	if err := a.cache.Delete(opCtx, keys...); err != nil {
		for _, key := range keys {
			a.degraded("delete", key, err)
		}
		return
	}
	for _, key := range keys {
		a.observer.Invalidate(key)
		a.logger.Printf("cache invalidated key=%s", key)
	}
}

func (a *Accessor) lookup(ctx context.Context, key string, target any) bool {
	if a.cache == nil {
		return false
	}
	opCtx, cancel := context.WithTimeout(ctx, a.cacheTimeout)
	defer cancel()

	raw, found, err := a.cache.Get(opCtx, key)
	if err != nil {
		a.degraded("get", key, err)
		return false
	}
	if !found {
		a.observer.Miss(key)
		a.logger.Printf("cache miss key=%s", key)
		return false
	}
	if err := json.Unmarshal(raw, target); err != nil {
		a.degraded("decode", key, err)
		a.discard(ctx, key)
		return false
	}
	a.observer.Hit(key)
	a.logger.Printf("cache hit key=%s", key)
	return true
}

// discard drops an unreadable entry. It is not a write invalidation and
// reports nothing to the observer unless the delete fails.
func (a *Accessor) discard(ctx context.Context, key string) {
	opCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cacheTimeout)
	defer cancel()
	if err := a.cache.Delete(opCtx, key); err != nil {
		a.degraded("delete", key, err)
	}
}

func (a *Accessor) fill(ctx context.Context, key string, value any, ttl time.Duration) {
	if a.cache == nil {
		return
	}
	payload, err := json.Marshal(value)
	if err != nil {
		a.degraded("encode", key, err)
		return
	}
	opCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cacheTimeout)
	defer cancel()
	if err := a.cache.Set(opCtx, key, payload, ttl); err != nil {
		a.degraded("set", key, err)
		return
	}
	a.observer.Fill(key)
}

func (a *Accessor) degraded(op, key string, err error) {
	a.observer.CacheError(op, key, err)
	a.logger.Printf("cache degraded op=%s key=%s err=%v", op, key, err)
}

func (a *Accessor) notFound(err error) bool {
	if errors.Is(err, ErrNotFound) {
		return true
	}
	return a.isNotFound != nil && a.isNotFound(err)
}

func uniqueKeys(keys []string) []string {
	out := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}
