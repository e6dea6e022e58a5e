package healthprobe

import (
	"bytes"
	"context"
	"flag"
	"net"
	"strings"
	"testing"
	"time"

	platformgrpc "github.com/louisbranch/docker-mastery/internal/platform/grpc"
	"google.golang.org/grpc/health/grpc_health_v1"
)

func TestParseConfigFlags(t *testing.T) {
	fs := flag.NewFlagSet("healthprobe", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-addr", "blog:9090", "-service", "cache", "-timeout", "3s"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Addr != "blog:9090" || cfg.Service != "cache" || cfg.Timeout != 3*time.Second {
		t.Fatalf("config = %+v", cfg)
	}
}

func TestParseConfigRequiresAddr(t *testing.T) {
	fs := flag.NewFlagSet("healthprobe", flag.ContinueOnError)
	if _, err := ParseConfig(fs, []string{"-addr", " "}); err == nil {
		t.Fatal("expected addr error")
	}
}

func startHealthServer(t *testing.T, status grpc_health_v1.HealthCheckResponse_ServingStatus) string {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	server, healthServer := platformgrpc.NewHealthServer()
	healthServer.SetServingStatus("", status)
	go func() { _ = server.Serve(listener) }()
	t.Cleanup(server.Stop)
	return listener.Addr().String()
}

func TestRunServing(t *testing.T) {
	t.Parallel()

	addr := startHealthServer(t, grpc_health_v1.HealthCheckResponse_SERVING)
	var out bytes.Buffer
	if err := Run(context.Background(), Config{Addr: addr, Timeout: 2 * time.Second}, &out, nil); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), "server serving") {
		t.Fatalf("output = %q", out.String())
	}
}

func TestRunNotServing(t *testing.T) {
	t.Parallel()

	addr := startHealthServer(t, grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	err := Run(context.Background(), Config{Addr: addr, Timeout: 300 * time.Millisecond}, nil, nil)
	if err == nil {
		t.Fatal("expected probe failure")
	}
}

func TestParseConfigEnvDefaults(t *testing.T) {
	t.Setenv("HEALTHPROBE_ADDR", "todo:9091")

	fs := flag.NewFlagSet("healthprobe", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Addr != "todo:9091" || cfg.Timeout != 2*time.Second {
		t.Fatalf("config = %+v", cfg)
	}
}
