// Package healthprobe checks a service's gRPC health endpoint, for container
// health checks.
package healthprobe

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	entrypoint "github.com/louisbranch/docker-mastery/internal/platform/cmd"
	platformgrpc "github.com/louisbranch/docker-mastery/internal/platform/grpc"
	"github.com/louisbranch/docker-mastery/internal/platform/timeouts"
)

// Config holds health probe configuration.
type Config struct {
	Addr    string        `env:"HEALTHPROBE_ADDR" envDefault:"localhost:9090"`
	Service string        `env:"HEALTHPROBE_SERVICE"`
	Timeout time.Duration `env:"HEALTHPROBE_TIMEOUT" envDefault:"2s"`
}

// ParseConfig loads Config from the environment; flags given in args win.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	fs.StringVar(&cfg.Addr, "addr", "", "gRPC health address, host:port (env HEALTHPROBE_ADDR)")
	fs.StringVar(&cfg.Service, "service", "", "Health service name; empty checks the whole server (env HEALTHPROBE_SERVICE)")
	fs.DurationVar(&cfg.Timeout, "timeout", 0, "How long to wait for SERVING (env HEALTHPROBE_TIMEOUT)")
	if err := entrypoint.ParseConfigFromArgs(&cfg, fs, args); err != nil {
		return Config{}, err
	}
	cfg.Addr = strings.TrimSpace(cfg.Addr)
	if cfg.Addr == "" {
		return Config{}, errors.New("addr is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = timeouts.GRPCDial
	}
	return cfg, nil
}

// Run waits for the configured service to report SERVING and writes the
// outcome to out.
func Run(ctx context.Context, cfg Config, out io.Writer, dialer platformgrpc.Dialer) error {
	if out == nil {
		out = io.Discard
	}
	conn, err := platformgrpc.DialWithHealth(ctx, dialer, cfg.Addr, cfg.Service, cfg.Timeout, nil)
	if err != nil {
		return fmt.Errorf("probe %s: %w", cfg.Addr, err)
	}
	defer conn.Close()

	name := cfg.Service
	if name == "" {
		name = "server"
	}
	_, err = fmt.Fprintf(out, "%s serving addr=%s\n", name, cfg.Addr)
	return err
}
