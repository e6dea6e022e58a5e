package lifecycle

import (
	"bytes"
	"context"
	"io"
	"log"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	platformgrpc "github.com/louisbranch/docker-mastery/internal/platform/grpc"
	"github.com/louisbranch/docker-mastery/internal/platform/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

type closeCounter struct{ closed atomic.Int32 }

func (c *closeCounter) Close() error {
	c.closed.Add(1)
	return nil
}

type okPinger struct{}

func (okPinger) Ping(context.Context) error { return nil }

func TestNewValidatesOptions(t *testing.T) {
	t.Parallel()

	if _, err := New(Options{Handler: http.NotFoundHandler()}); err == nil {
		t.Fatal("expected missing address error")
	}
	if _, err := New(Options{HTTPAddr: "127.0.0.1:0"}); err == nil {
		t.Fatal("expected missing handler error")
	}
}

func TestServeHTTPAndGRPCUntilCanceled(t *testing.T) {
	t.Parallel()

	logger := log.New(&bytes.Buffer{}, "", 0)
	grpcServer, healthServer := platformgrpc.NewHealthServer(health.CacheService)
	closer := &closeCounter{}
	rt, err := New(Options{
		HTTPAddr: "127.0.0.1:0",
		Handler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, "ok")
		}),
		MaxConns:   4,
		GRPCAddr:   "127.0.0.1:0",
		GRPCServer: grpcServer,
		Monitor:    health.NewMonitor(okPinger{}, okPinger{}, healthServer, 10*time.Millisecond, logger),
		Closers:    []io.Closer{closer},
		Logger:     logger,
	})
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rt.Serve(ctx) }()

	resp, err := http.Get("http://" + rt.Addr() + "/")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if string(body) != "ok" {
		t.Fatalf("body = %q, want ok", body)
	}

	conn, err := platformgrpc.DialWithHealth(context.Background(), nil, rt.GRPCAddr(), health.CacheService, 2*time.Second, nil)
	if err != nil {
		t.Fatalf("dial grpc health: %v", err)
	}
	status, err := platformgrpc.CheckHealth(context.Background(), conn, "")
	_ = conn.Close()
	if err != nil || status != grpc_health_v1.HealthCheckResponse_SERVING {
		t.Fatalf("overall status = %s, %v", status, err)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
	if got := closer.closed.Load(); got != 1 {
		t.Fatalf("closer calls = %d, want 1", got)
	}
	rt.Close()
	if got := closer.closed.Load(); got != 1 {
		t.Fatalf("closer calls after second Close = %d, want 1", got)
	}
}

func TestServeWithoutGRPC(t *testing.T) {
	t.Parallel()

	rt, err := New(Options{
		HTTPAddr: "127.0.0.1:0",
		Handler:  http.NotFoundHandler(),
		Logger:   log.New(&bytes.Buffer{}, "", 0),
	})
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}
	if rt.GRPCAddr() != "" {
		t.Fatalf("grpc addr = %q, want empty", rt.GRPCAddr())
	}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := rt.Serve(ctx); err != nil {
		t.Fatalf("serve: %v", err)
	}
}
