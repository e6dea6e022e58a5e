// Package cacheaside mediates reads and writes between request handlers, a
// relational store and a key/value cache.
//
// Reads consult the cache first and fill it from the store on a miss. Writes
// hit the store first and then delete every cache key whose scope the write
// touched. Cache failures never fail a request: a lookup error or timeout is
// served from the store, and a failed fill or invalidation is logged.
// Store failures always propagate.
//
// A read-miss racing a write may refill the cache with data it loaded before
// the write committed. Deletion-on-write is guaranteed; read-after-write is
// not. The entry then lives until its TTL elapses.
//
// The Accessor holds no per-request state and is safe for concurrent use.
package cacheaside
