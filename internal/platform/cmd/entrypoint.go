// Package cmd holds the startup plumbing shared by service commands: config
// loading, flag parsing and a telemetry-wrapped run loop.
package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/louisbranch/docker-mastery/internal/platform/config"
	"github.com/louisbranch/docker-mastery/internal/platform/otel"
)

const defaultTelemetryShutdown = 5 * time.Second

// Service names used for telemetry resources and startup logs.
const (
	ServiceBlog = "blog"
	ServiceTodo = "todo"
)

// SetupFunc installs telemetry for a service and returns its shutdown hook.
type SetupFunc func(ctx context.Context, service string) (func(context.Context) error, error)

// RunOptions tunes RunWithTelemetryAndOptions. The zero value uses otel.Setup.
type RunOptions struct {
	ShutdownTimeout time.Duration
	Setup           SetupFunc
	Logger          *log.Logger
}

// ParseConfig loads environment defaults into cfg.
func ParseConfig[T any](cfg *T) error {
	if cfg == nil {
		return errors.New("config target is required")
	}
	return config.ParseEnv(cfg)
}

// ParseArgs parses command-line flags.
func ParseArgs(fs *flag.FlagSet, args []string) error {
	if fs == nil {
		return errors.New("flag parser is required")
	}
	if args == nil {
		args = []string{}
	}
	return fs.Parse(args)
}

// ParseConfigFromArgs loads defaults from env and then parses flags.
func ParseConfigFromArgs[T any](cfg *T, fs *flag.FlagSet, args []string) error {
	if err := ParseConfig(cfg); err != nil {
		return err
	}
	return ParseArgs(fs, args)
}

// RunWithTelemetry runs a service with tracing installed.
func RunWithTelemetry(ctx context.Context, service string, run func(context.Context) error) error {
	return RunWithTelemetryAndOptions(ctx, service, RunOptions{}, run)
}

// RunWithTelemetryAndOptions installs telemetry, runs the service and flushes
// spans on the way out. A run that ends because ctx was canceled is a clean
// stop and returns nil.
func RunWithTelemetryAndOptions(ctx context.Context, service string, options RunOptions, run func(context.Context) error) error {
	service = strings.TrimSpace(service)
	if service == "" {
		return errors.New("service name is required")
	}
	if run == nil {
		return errors.New("run function is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	setup := options.Setup
	if setup == nil {
		setup = otel.Setup
	}
	logger := options.Logger
	if logger == nil {
		logger = log.Default()
	}

	shutdown, err := setup(ctx, service)
	if err != nil {
		return fmt.Errorf("setup telemetry: %w", err)
	}
	defer func() {
		timeout := options.ShutdownTimeout
		if timeout <= 0 {
			timeout = defaultTelemetryShutdown
		}
		flushCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := shutdown(flushCtx); err != nil {
			logger.Printf("telemetry shutdown service=%s err=%v", service, err)
		}
	}()

	logger.Printf("service starting name=%s", service)
	err = run(ctx)
	if err != nil && errors.Is(err, context.Canceled) && ctx.Err() != nil {
		err = nil
	}
	if err == nil {
		logger.Printf("service stopped name=%s", service)
	}
	return err
}
