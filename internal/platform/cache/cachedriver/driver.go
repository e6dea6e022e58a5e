// Package cachedriver selects the cache backend named in service config.
package cachedriver

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/louisbranch/docker-mastery/internal/platform/cache"
	"github.com/louisbranch/docker-mastery/internal/platform/cache/memory"
	"github.com/louisbranch/docker-mastery/internal/platform/cache/redis"
)

// Driver names a cache backend.
type Driver string

const (
	DriverRedis  Driver = "redis"
	DriverMemory Driver = "memory"
	DriverNone   Driver = "none"
)

// memoryCleanup is how often the in-process cache sweeps expired entries.
const memoryCleanup = time.Minute

// Config selects and configures a backend.
type Config struct {
	Driver string
	Redis  redis.Config
	Logger *log.Logger
}

// Backend is an opened cache. Store is nil for DriverNone.
type Backend struct {
	Driver Driver
	Store  cache.Store
}

// Label is a human-readable backend name for logs and responses.
func (b Backend) Label() string {
	switch b.Driver {
	case DriverRedis:
		return "Redis"
	case DriverMemory:
		return "memory"
	default:
		return "nowhere"
	}
}

// Close releases the backend.
func (b Backend) Close() error {
	if b.Store == nil {
		return nil
	}
	return b.Store.Close()
}

// ParseDriver normalizes a configured driver name.
func ParseDriver(raw string) (Driver, error) {
	switch Driver(strings.ToLower(strings.TrimSpace(raw))) {
	case DriverRedis:
		return DriverRedis, nil
	case DriverMemory:
		return DriverMemory, nil
	case DriverNone, "":
		return DriverNone, nil
	default:
		return "", fmt.Errorf("unknown cache driver %q", raw)
	}
}

// Open builds the configured backend. An unreachable Redis server is logged,
// not returned: the client reconnects on demand and the accessor degrades to
// the store meanwhile.
func Open(ctx context.Context, cfg Config) (Backend, error) {
	driver, err := ParseDriver(cfg.Driver)
	if err != nil {
		return Backend{}, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	switch driver {
	case DriverRedis:
		store, err := redis.New(cfg.Redis)
		if err != nil {
			return Backend{}, fmt.Errorf("open redis cache: %w", err)
		}
		if err := store.Connect(ctx); err != nil {
			logger.Printf("cache degraded op=connect addr=%s err=%v", cfg.Redis.Addr, err)
		} else {
			logger.Printf("cache connected driver=redis addr=%s", cfg.Redis.Addr)
		}
		return Backend{Driver: driver, Store: store}, nil
	case DriverMemory:
		logger.Printf("cache connected driver=memory")
		return Backend{Driver: driver, Store: memory.New(memoryCleanup)}, nil
	default:
		logger.Printf("cache disabled")
		return Backend{Driver: DriverNone}, nil
	}
}
