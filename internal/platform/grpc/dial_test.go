package grpc

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	gogrpc "google.golang.org/grpc"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

func TestDialWithHealthSuccess(t *testing.T) {
	addr, healthServer, stop := startHealthServer(t, "cache")
	defer stop()
	healthServer.SetServingStatus("cache", grpc_health_v1.HealthCheckResponse_SERVING)

	conn, err := DialWithHealth(context.Background(), nil, addr, "cache", 2*time.Second, nil)
	if err != nil {
		t.Fatalf("dial with health: %v", err)
	}
	if err := conn.Close(); err != nil {
		t.Fatalf("close conn: %v", err)
	}
}

func TestDialWithHealthTimesOutWhenNotServing(t *testing.T) {
	addr, _, stop := startHealthServer(t)
	defer stop()

	start := time.Now()
	conn, err := DialWithHealth(context.Background(), nil, addr, "", 150*time.Millisecond, nil, DefaultClientDialOptions()...)
	if err == nil {
		_ = conn.Close()
		t.Fatal("expected error")
	}
	var dialErr *DialError
	if !errors.As(err, &dialErr) || dialErr.Stage != DialStageHealth {
		t.Fatalf("error = %v, want health stage DialError", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("expected dial timeout to bound health wait, took %v", elapsed)
	}
}

func TestDialWithHealthConnectStage(t *testing.T) {
	t.Parallel()

	dialer := DialerFunc(func(string, ...gogrpc.DialOption) (*gogrpc.ClientConn, error) {
		return nil, fmt.Errorf("dial failure")
	})
	_, err := DialWithHealth(context.Background(), dialer, "unused", "", time.Second, nil)
	var dialErr *DialError
	if !errors.As(err, &dialErr) {
		t.Fatalf("expected DialError, got %T", err)
	}
	if dialErr.Stage != DialStageConnect {
		t.Fatalf("stage = %q, want %q", dialErr.Stage, DialStageConnect)
	}
}

func TestDialErrorFormatting(t *testing.T) {
	t.Parallel()

	wrapped := &DialError{Stage: DialStageConnect, Err: fmt.Errorf("boom")}
	if !strings.Contains(wrapped.Error(), "gRPC connect") {
		t.Fatalf("unexpected error: %s", wrapped.Error())
	}
	if wrapped.Unwrap() == nil {
		t.Fatal("expected wrapped error")
	}

	var nilErr *DialError
	if nilErr.Error() == "" {
		t.Fatal("expected fallback error message")
	}
	if nilErr.Unwrap() != nil {
		t.Fatal("expected nil unwrap for nil error")
	}
}
