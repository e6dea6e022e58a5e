package health

import (
	"bytes"
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"testing"
	"time"

	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

type fakePinger struct {
	mu  sync.Mutex
	err error
}

func (p *fakePinger) Ping(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *fakePinger) set(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

func servingOf(t *testing.T, server *health.Server, service string) grpc_health_v1.HealthCheckResponse_ServingStatus {
	t.Helper()
	resp, err := server.Check(context.Background(), &grpc_health_v1.HealthCheckRequest{Service: service})
	if err != nil {
		t.Fatalf("check %q: %v", service, err)
	}
	return resp.GetStatus()
}

func TestRefreshServingWhenStoreReachable(t *testing.T) {
	t.Parallel()

	store := &fakePinger{}
	cache := &fakePinger{err: errors.New("connection refused")}
	server := health.NewServer()
	monitor := NewMonitor(store, cache, server, time.Second, log.New(&bytes.Buffer{}, "", 0))

	report := monitor.Refresh(context.Background())
	if !report.Healthy() {
		t.Fatalf("report = %+v, want healthy", report)
	}
	if report.CacheConnected() {
		t.Fatal("cache reported connected")
	}
	if got := servingOf(t, server, ""); got != grpc_health_v1.HealthCheckResponse_SERVING {
		t.Fatalf("overall = %s, want SERVING", got)
	}
	if got := servingOf(t, server, CacheService); got != grpc_health_v1.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("cache = %s, want NOT_SERVING", got)
	}
}

func TestRefreshNotServingWhenStoreDown(t *testing.T) {
	t.Parallel()

	store := &fakePinger{err: errors.New("database is locked")}
	server := health.NewServer()
	monitor := NewMonitor(store, nil, server, time.Second, nil)

	report := monitor.Refresh(context.Background())
	if report.Healthy() {
		t.Fatal("report healthy with store down")
	}
	if report.CacheConfigured {
		t.Fatal("cache reported configured")
	}
	if got := servingOf(t, server, ""); got != grpc_health_v1.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("overall = %s, want NOT_SERVING", got)
	}
}

func TestCheckWithoutStore(t *testing.T) {
	t.Parallel()

	var monitor *Monitor
	if report := monitor.Check(context.Background()); report.Healthy() {
		t.Fatal("nil monitor reported healthy")
	}
}

func TestRunTracksTransitionsAndShutsDown(t *testing.T) {
	t.Parallel()

	store := &fakePinger{}
	cache := &fakePinger{}
	server := health.NewServer()
	var logs bytes.Buffer
	var logMu sync.Mutex
	logger := log.New(writerFunc(func(p []byte) (int, error) {
		logMu.Lock()
		defer logMu.Unlock()
		return logs.Write(p)
	}), "", 0)
	monitor := NewMonitor(store, cache, server, 10*time.Millisecond, logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		monitor.Run(ctx)
		close(done)
	}()

	waitFor(t, func() bool { return servingOf(t, server, "") == grpc_health_v1.HealthCheckResponse_SERVING })
	cache.set(errors.New("connection refused"))
	waitFor(t, func() bool {
		return servingOf(t, server, CacheService) == grpc_health_v1.HealthCheckResponse_NOT_SERVING
	})
	if got := servingOf(t, server, ""); got != grpc_health_v1.HealthCheckResponse_SERVING {
		t.Fatalf("overall = %s after cache loss, want SERVING", got)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("monitor did not stop")
	}
	if got := servingOf(t, server, ""); got != grpc_health_v1.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("overall = %s after shutdown, want NOT_SERVING", got)
	}

	logMu.Lock()
	defer logMu.Unlock()
	if !strings.Contains(logs.String(), "health cache=disconnected") {
		t.Fatalf("expected cache transition log, got %q", logs.String())
	}
}

type writerFunc func([]byte) (int, error)

func (fn writerFunc) Write(p []byte) (int, error) { return fn(p) }

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
