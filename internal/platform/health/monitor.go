// Package health derives service readiness from dependency pings.
//
// The relational store gates readiness; the cache is reported separately
// and never makes a service unready.
package health

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/louisbranch/docker-mastery/internal/platform/timeouts"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

// CacheService is the gRPC health service name reporting cache reachability.
const CacheService = "cache"

var errStoreNotConfigured = errors.New("store is not configured")

// Pinger is a dependency that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Report is the outcome of one round of dependency pings.
type Report struct {
	StoreErr error
	// CacheErr is nil when the cache answered. CacheConfigured is false
	// when the service runs without a cache.
	CacheErr        error
	CacheConfigured bool
}

// Healthy reports whether the service can serve requests.
func (r Report) Healthy() bool {
	return r.StoreErr == nil
}

// CacheConnected reports whether the cache answered its ping.
func (r Report) CacheConnected() bool {
	return r.CacheConfigured && r.CacheErr == nil
}

// Monitor pings dependencies and mirrors the result into a gRPC health
// server.
type Monitor struct {
	store    Pinger
	cache    Pinger
	server   *health.Server
	interval time.Duration
	logger   *log.Logger
}

// NewMonitor builds a Monitor. cache and server may be nil.
func NewMonitor(store Pinger, cache Pinger, server *health.Server, interval time.Duration, logger *log.Logger) *Monitor {
	if interval <= 0 {
		interval = timeouts.HealthInterval
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Monitor{store: store, cache: cache, server: server, interval: interval, logger: logger}
}

// Check pings every dependency once.
func (m *Monitor) Check(ctx context.Context) Report {
	var report Report
	if m == nil || m.store == nil {
		report.StoreErr = errStoreNotConfigured
		return report
	}
	storeCtx, cancel := context.WithTimeout(ctx, timeouts.StoreOp)
	report.StoreErr = m.store.Ping(storeCtx)
	cancel()

	if m.cache != nil {
		report.CacheConfigured = true
		cacheCtx, cancel := context.WithTimeout(ctx, timeouts.CacheOp)
		report.CacheErr = m.cache.Ping(cacheCtx)
		cancel()
	}
	return report
}

// Refresh runs one Check and publishes it to the gRPC health server.
func (m *Monitor) Refresh(ctx context.Context) Report {
	report := m.Check(ctx)
	if m == nil || m.server == nil {
		return report
	}
	m.server.SetServingStatus("", servingStatus(report.Healthy()))
	if report.CacheConfigured {
		m.server.SetServingStatus(CacheService, servingStatus(report.CacheConnected()))
	}
	return report
}

// Run refreshes on every interval until ctx ends, then marks the server
// NOT_SERVING.
func (m *Monitor) Run(ctx context.Context) {
	if m == nil {
		return
	}
	last := m.Refresh(ctx)
	m.logTransition(Report{}, last, true)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			if m.server != nil {
				m.server.Shutdown()
			}
			return
		case <-ticker.C:
			next := m.Refresh(ctx)
			m.logTransition(last, next, false)
			last = next
		}
	}
}

func (m *Monitor) logTransition(prev, next Report, first bool) {
	if first || prev.Healthy() != next.Healthy() {
		if next.Healthy() {
			m.logger.Printf("health store=connected")
		} else {
			m.logger.Printf("health store=unreachable err=%v", next.StoreErr)
		}
	}
	if next.CacheConfigured && (first || prev.CacheConnected() != next.CacheConnected()) {
		if next.CacheConnected() {
			m.logger.Printf("health cache=connected")
		} else {
			m.logger.Printf("health cache=disconnected err=%v", next.CacheErr)
		}
	}
}

func servingStatus(ok bool) grpc_health_v1.HealthCheckResponse_ServingStatus {
	if ok {
		return grpc_health_v1.HealthCheckResponse_SERVING
	}
	return grpc_health_v1.HealthCheckResponse_NOT_SERVING
}
