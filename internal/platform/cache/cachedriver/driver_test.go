package cachedriver

import (
	"bytes"
	"context"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/louisbranch/docker-mastery/internal/platform/cache/redis"
)

func TestParseDriver(t *testing.T) {
	t.Parallel()

	cases := map[string]Driver{
		"redis":    DriverRedis,
		" Memory ": DriverMemory,
		"none":     DriverNone,
		"":         DriverNone,
	}
	for input, want := range cases {
		got, err := ParseDriver(input)
		if err != nil {
			t.Fatalf("ParseDriver(%q) error = %v", input, err)
		}
		if got != want {
			t.Fatalf("ParseDriver(%q) = %q, want %q", input, got, want)
		}
	}
	if _, err := ParseDriver("memcached"); err == nil {
		t.Fatal("expected unknown driver error")
	}
}

func TestOpenMemory(t *testing.T) {
	t.Parallel()

	backend, err := Open(context.Background(), Config{Driver: "memory", Logger: log.New(&bytes.Buffer{}, "", 0)})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer backend.Close()
	if backend.Store == nil || backend.Label() != "memory" {
		t.Fatalf("backend = %+v", backend)
	}
	if err := backend.Store.Set(context.Background(), "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
}

func TestOpenNone(t *testing.T) {
	t.Parallel()

	backend, err := Open(context.Background(), Config{Driver: "none"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if backend.Store != nil {
		t.Fatal("expected nil store")
	}
	if err := backend.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestOpenRedis(t *testing.T) {
	t.Parallel()

	server := miniredis.RunT(t)
	var logs bytes.Buffer
	backend, err := Open(context.Background(), Config{
		Driver: "redis",
		Redis:  redis.Config{Addr: server.Addr()},
		Logger: log.New(&logs, "", 0),
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer backend.Close()
	if backend.Label() != "Redis" {
		t.Fatalf("label = %q", backend.Label())
	}
	if !strings.Contains(logs.String(), "cache connected driver=redis") {
		t.Fatalf("logs = %q", logs.String())
	}
}

func TestOpenRedisUnreachableIsNotFatal(t *testing.T) {
	t.Parallel()

	server := miniredis.RunT(t)
	addr := server.Addr()
	server.Close()

	var logs bytes.Buffer
	backend, err := Open(context.Background(), Config{
		Driver: "redis",
		Redis:  redis.Config{Addr: addr, DialTimeout: 100 * time.Millisecond, MaxRetries: -1},
		Logger: log.New(&logs, "", 0),
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer backend.Close()
	if backend.Store == nil {
		t.Fatal("expected a store that reconnects later")
	}
	if !strings.Contains(logs.String(), "cache degraded op=connect") {
		t.Fatalf("logs = %q", logs.String())
	}
}
