// Package server wires the blog runtime: storage, cache, sessions, HTTP API
// and gRPC health.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/louisbranch/docker-mastery/internal/platform/cache/cachedriver"
	"github.com/louisbranch/docker-mastery/internal/platform/cacheaside"
	"github.com/louisbranch/docker-mastery/internal/platform/config"
	platformgrpc "github.com/louisbranch/docker-mastery/internal/platform/grpc"
	"github.com/louisbranch/docker-mastery/internal/platform/health"
	"github.com/louisbranch/docker-mastery/internal/platform/httpx"
	"github.com/louisbranch/docker-mastery/internal/platform/lifecycle"
	"github.com/louisbranch/docker-mastery/internal/platform/requestmeta"
	"github.com/louisbranch/docker-mastery/internal/platform/session"
	"github.com/louisbranch/docker-mastery/internal/services/blog/api/httpapi"
	blogsqlite "github.com/louisbranch/docker-mastery/internal/services/blog/storage/sqlite"
)

// Config is the resolved blog runtime configuration.
type Config struct {
	HTTPAddr       string
	GRPCAddr       string
	DBPath         string
	Environment    string
	Cache          cachedriver.Config
	SessionSecret  string
	CORSOrigin     string
	RateLimitRPS   float64
	RateLimitBurst int
	MaxConns       int
	TrustProxy     bool
	Logger         *log.Logger
}

// Server hosts the blog API.
type Server struct {
	runtime *lifecycle.Runtime
}

// New opens storage and cache and binds the listeners.
func New(ctx context.Context, cfg Config) (*Server, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	if strings.TrimSpace(cfg.SessionSecret) == "" {
		return nil, errors.New("session secret is required")
	}

	store, err := blogsqlite.Open(ctx, cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open blog store: %w", err)
	}
	logger.Printf("database connected path=%s", cfg.DBPath)

	cfg.Cache.Logger = logger
	backend, err := cachedriver.Open(ctx, cfg.Cache)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	signer, err := session.NewSigner(cfg.SessionSecret, nil)
	if err != nil {
		_ = backend.Close()
		_ = store.Close()
		return nil, err
	}
	sessions := session.NewManager(session.NewStore(backend.Store, session.DefaultTTL), signer, session.Options{
		SecureAlways: config.IsProduction(cfg.Environment),
		Policy:       requestmeta.Policy{TrustForwardedProto: cfg.TrustProxy},
		Logger:       logger,
	})

	grpcServer, healthServer := platformgrpc.NewHealthServer(health.CacheService)
	var cachePinger health.Pinger
	if backend.Store != nil {
		cachePinger = backend.Store
	}
	monitor := health.NewMonitor(store, cachePinger, healthServer, 0, logger)

	stats := &cacheaside.Stats{}
	handler, err := httpapi.NewHandler(httpapi.Deps{
		Store: store,
		Accessor: cacheaside.New(backend.Store, cacheaside.Options{
			Logger:     logger,
			Observer:   stats,
			IsNotFound: httpapi.IsNotFound,
		}),
		Stats:          stats,
		Sessions:       sessions,
		Monitor:        monitor,
		SessionBackend: backend.Label(),
		Environment:    cfg.Environment,
		Started:        time.Now(),
		Logger:         logger,
	})
	if err != nil {
		_ = backend.Close()
		_ = store.Close()
		return nil, err
	}

	runtime, err := lifecycle.New(lifecycle.Options{
		HTTPAddr:   cfg.HTTPAddr,
		Handler:    withMiddleware(handler.Routes(), cfg, logger),
		MaxConns:   cfg.MaxConns,
		GRPCAddr:   cfg.GRPCAddr,
		GRPCServer: grpcServer,
		Monitor:    monitor,
		Closers:    []io.Closer{backend, store},
		Logger:     logger,
	})
	if err != nil {
		_ = backend.Close()
		_ = store.Close()
		return nil, err
	}
	logger.Printf("blog api ready environment=%s cache=%s", cfg.Environment, backend.Driver)
	return &Server{runtime: runtime}, nil
}

func withMiddleware(handler http.Handler, cfg Config, logger *log.Logger) http.Handler {
	policy := requestmeta.Policy{TrustForwardedFor: cfg.TrustProxy, TrustForwardedProto: cfg.TrustProxy}
	return httpx.Chain(handler,
		httpx.RecoverPanic(),
		httpx.RequestID(),
		httpx.RequestLogger(logger),
		httpx.CORS(cfg.CORSOrigin),
		httpx.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, policy).Middleware(),
	)
}

// Addr returns the HTTP listener address.
func (s *Server) Addr() string {
	if s == nil {
		return ""
	}
	return s.runtime.Addr()
}

// GRPCAddr returns the gRPC health listener address.
func (s *Server) GRPCAddr() string {
	if s == nil {
		return ""
	}
	return s.runtime.GRPCAddr()
}

// Serve runs until ctx ends, then releases every resource.
func (s *Server) Serve(ctx context.Context) error {
	if s == nil {
		return errors.New("server is nil")
	}
	return s.runtime.Serve(ctx)
}

// Close releases server resources without waiting for in-flight requests.
func (s *Server) Close() {
	if s == nil {
		return
	}
	s.runtime.Close()
}

// Run creates and serves a blog server until context cancellation.
func Run(ctx context.Context, cfg Config) error {
	server, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}
