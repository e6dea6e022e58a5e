// Package timeouts defines shared timeout constants used across services.
package timeouts

import "time"

// GRPCDial caps the wait time when dialing a gRPC peer.
const GRPCDial = 2 * time.Second

// ReadHeader limits how long an HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long an HTTP server waits for in-flight requests
// during graceful shutdown.
const Shutdown = 5 * time.Second

// CacheOp caps a single cache round trip. A lookup that exceeds it is
// treated as a miss.
const CacheOp = 250 * time.Millisecond

// StoreOp caps a single relational store operation issued by a request.
const StoreOp = 5 * time.Second

// HealthInterval is how often background health monitors probe adapters.
const HealthInterval = 10 * time.Second
