// Package config provides configuration defaults and utilities
// for the marketstats application.
//
// This package defines all configurable constants with documented defaults.
// Users can override these values via config.yaml or environment variables.
package config

import "time"

// EnvPrefix prefixes every environment override (e.g. MARKETSTATS_LISTEN).
const EnvPrefix = "MARKETSTATS_"

// =============================================================================
// Network Defaults
// =============================================================================

const (
	// DefaultListen is the default HTTP listen address.
	// Override via config: listen
	DefaultListen = "0.0.0.0:8080"

	// DefaultReadTimeout bounds reading a request including its body.
	// Override via config: http.read_timeout
	DefaultReadTimeout = 10 * time.Second

	// DefaultWriteTimeout bounds writing a response.
	// Override via config: http.write_timeout
	DefaultWriteTimeout = 30 * time.Second

	// DefaultRequestTimeout bounds handler execution.
	// Override via config: http.request_timeout
	DefaultRequestTimeout = 15 * time.Second
)

// =============================================================================
// Store Defaults
// =============================================================================

const (
	// DefaultStoreDriver is the embedded DuckDB engine.
	// Override via config: store.driver
	DefaultStoreDriver = "duckdb"

	// DefaultStoreDSN is the DuckDB database file. Empty means in-memory.
	// Override via config: store.dsn
	DefaultStoreDSN = "marketstats.db"

	// DefaultMaxOpenConns limits concurrent database connections.
	// Override via config: store.max_open_conns
	DefaultMaxOpenConns = 10

	// DefaultQueryTimeout bounds a single store operation.
	// Override via config: store.query_timeout
	DefaultQueryTimeout = 5 * time.Second
)

// =============================================================================
// Cache Defaults
// =============================================================================

const (
	// DefaultCacheBackend keeps the aggregate in process memory.
	// Override via config: cache.backend ("memory" or "redis")
	DefaultCacheBackend = "memory"

	// DefaultRedisAddr is the redis server used by the redis backend.
	// Override via config: cache.redis.addr
	DefaultRedisAddr = "localhost:6379"

	// DefaultRedisKeyPrefix namespaces the aggregate slot keys.
	// Override via config: cache.redis.key_prefix
	DefaultRedisKeyPrefix = "marketstats:stats"

	// DefaultRedisTTL expires a stored aggregate. Zero keeps it until the
	// next invalidation.
	// Override via config: cache.redis.ttl
	DefaultRedisTTL = 10 * time.Minute
)

// =============================================================================
// Shutdown Defaults
// =============================================================================

const (
	// DefaultShutdownTimeout is how long in-flight requests may drain.
	// This follows the Kubernetes convention (terminationGracePeriodSeconds = 30s).
	// Override via config: http.shutdown_timeout
	DefaultShutdownTimeout = 30 * time.Second
)
