// Package lifecycle runs a service's HTTP listener, optional gRPC health
// listener and health monitor until context cancellation.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"

	"github.com/louisbranch/docker-mastery/internal/platform/health"
	"github.com/louisbranch/docker-mastery/internal/platform/timeouts"
	"golang.org/x/net/netutil"
	gogrpc "google.golang.org/grpc"
)

// Options describes one service runtime.
type Options struct {
	HTTPAddr string
	Handler  http.Handler
	// MaxConns caps concurrent HTTP connections. Zero means unlimited.
	MaxConns int
	// GRPCAddr is optional; when empty GRPCServer is not started.
	GRPCAddr   string
	GRPCServer *gogrpc.Server
	Monitor    *health.Monitor
	// Closers are closed in order after the listeners stop.
	Closers []io.Closer
	Logger  *log.Logger
}

// Runtime owns the listeners and resources of one service.
type Runtime struct {
	listener     net.Listener
	httpServer   *http.Server
	grpcListener net.Listener
	grpcServer   *gogrpc.Server
	monitor      *health.Monitor
	closers      []io.Closer
	logger       *log.Logger
	closeOnce    sync.Once
}

// New binds the listeners. Nothing is served until Serve.
func New(opts Options) (*Runtime, error) {
	addr := strings.TrimSpace(opts.HTTPAddr)
	if addr == "" {
		return nil, errors.New("http address is required")
	}
	if opts.Handler == nil {
		return nil, errors.New("http handler is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}
	if opts.MaxConns > 0 {
		listener = netutil.LimitListener(listener, opts.MaxConns)
	}

	rt := &Runtime{
		listener: listener,
		httpServer: &http.Server{
			Handler:           opts.Handler,
			ReadHeaderTimeout: timeouts.ReadHeader,
			ErrorLog:          logger,
		},
		monitor: opts.Monitor,
		closers: opts.Closers,
		logger:  logger,
	}

	if grpcAddr := strings.TrimSpace(opts.GRPCAddr); grpcAddr != "" && opts.GRPCServer != nil {
		grpcListener, err := net.Listen("tcp", grpcAddr)
		if err != nil {
			_ = listener.Close()
			return nil, fmt.Errorf("listen on %s: %w", grpcAddr, err)
		}
		rt.grpcListener = grpcListener
		rt.grpcServer = opts.GRPCServer
	}
	return rt, nil
}

// Addr returns the HTTP listener address.
func (r *Runtime) Addr() string {
	if r == nil || r.listener == nil {
		return ""
	}
	return r.listener.Addr().String()
}

// GRPCAddr returns the gRPC health listener address, or "" when disabled.
func (r *Runtime) GRPCAddr() string {
	if r == nil || r.grpcListener == nil {
		return ""
	}
	return r.grpcListener.Addr().String()
}

// Serve blocks until ctx ends or a listener fails, then shuts everything
// down and releases the closers.
func (r *Runtime) Serve(ctx context.Context) error {
	if r == nil {
		return errors.New("runtime is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	defer r.Close()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	if r.monitor != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.monitor.Run(runCtx)
		}()
	}

	serveErr := make(chan error, 2)
	r.logger.Printf("http listening addr=%s", r.Addr())
	go func() {
		serveErr <- r.httpServer.Serve(r.listener)
	}()
	if r.grpcServer != nil {
		r.logger.Printf("grpc health listening addr=%s", r.GRPCAddr())
		go func() {
			serveErr <- r.grpcServer.Serve(r.grpcListener)
		}()
	}

	var err error
	select {
	case <-ctx.Done():
	case err = <-serveErr:
		if errors.Is(err, http.ErrServerClosed) || errors.Is(err, gogrpc.ErrServerStopped) {
			err = nil
		}
		if err != nil {
			err = fmt.Errorf("serve: %w", err)
		}
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
	defer shutdownCancel()
	if shutdownErr := r.httpServer.Shutdown(shutdownCtx); shutdownErr != nil && err == nil {
		err = fmt.Errorf("shutdown http server: %w", shutdownErr)
	}
	if r.grpcServer != nil {
		r.grpcServer.GracefulStop()
	}
	wg.Wait()
	return err
}

// Close stops the listeners and releases the closers. It is safe to call
// more than once.
func (r *Runtime) Close() {
	if r == nil {
		return
	}
	r.closeOnce.Do(func() {
		if r.httpServer != nil {
			_ = r.httpServer.Close()
		}
		if r.listener != nil {
			_ = r.listener.Close()
		}
		if r.grpcServer != nil {
			r.grpcServer.Stop()
		}
		if r.grpcListener != nil {
			_ = r.grpcListener.Close()
		}
		for _, closer := range r.closers {
			if closer == nil {
				continue
			}
			if err := closer.Close(); err != nil {
				r.logger.Printf("close resource: %v", err)
			}
		}
	})
}
