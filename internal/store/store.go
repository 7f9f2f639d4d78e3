// Package store provides database operations for the marketstats application.
//
// This package is the repository boundary over the country / market /
// participant graph. It uses DuckDB as the default backing database and can
// also run against PostgreSQL; every statement uses $n placeholders, which
// both engines accept.
//
// Lookups that miss return (nil, nil). Any other failure is returned as a
// wrapped error and is treated by callers as an unexpected fault.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/marcboeker/go-duckdb"
)

// =============================================================================
// Store Configuration
// =============================================================================

const (
	// DriverDuckDB selects the embedded DuckDB engine.
	DriverDuckDB = "duckdb"

	// DriverPostgres selects a PostgreSQL server via lib/pq.
	DriverPostgres = "postgres"
)

// Config holds store configuration options.
type Config struct {
	// Driver is the database/sql driver name ("duckdb" or "postgres").
	Driver string

	// DSN is the database connection string.
	DSN string

	// MaxOpenConns is the maximum number of open connections.
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	MaxIdleConns int

	// ConnMaxLifetime is the maximum lifetime of a connection.
	ConnMaxLifetime time.Duration

	// QueryTimeout is the default timeout for queries.
	QueryTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Driver:          DriverDuckDB,
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		QueryTimeout:    30 * time.Second,
	}
}

// =============================================================================
// Store
// =============================================================================

// Store provides database operations.
//
// Store is safe for concurrent use.
type Store struct {
	db     *sql.DB
	config Config
	mu     sync.RWMutex
	closed bool
}

// New opens the database, verifies the connection and applies the schema.
func New(cfg Config) (*Store, error) {
	if cfg.Driver == "" {
		cfg.Driver = DriverDuckDB
	}
	switch cfg.Driver {
	case DriverDuckDB, DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
	}

	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{
		db:     db,
		config: cfg,
	}

	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// NewWithDB wraps an already opened database without applying the schema.
// Tests use it with sqlmock.
func NewWithDB(db *sql.DB) *Store {
	cfg := DefaultConfig()
	return &Store{db: db, config: cfg}
}

// Close closes the store.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	return s.db.Close()
}

// DB returns the underlying database connection.
// Use with caution - prefer using Store methods.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Driver returns the configured driver name.
func (s *Store) Driver() string {
	return s.config.Driver
}

// =============================================================================
// Transaction Support
// =============================================================================

// TransactionContext executes a function within a database transaction.
//
// If the function returns an error, the transaction is rolled back.
// If the function returns nil, the transaction is committed.
func (s *Store) TransactionContext(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// withTimeout applies the configured query timeout when ctx has no deadline.
func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok || s.config.QueryTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.config.QueryTimeout)
}

// =============================================================================
// Health Check
// =============================================================================

// Health checks database connectivity.
func (s *Store) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
