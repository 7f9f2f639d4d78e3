// Package loader - Configuration Types
//
// Defines the YAML configuration structure for marketstatsd.
//
//	listen:   HTTP listen address
//	tls:      optional certificate and key
//	http:     server timeouts and CORS origins
//	store:    database driver (duckdb or postgres) and pool settings
//	cache:    aggregate slot backend (memory or redis)
//	log:      level and format
//	seed:     countries, markets and participants created at startup
//
// Every runtime setting can be overridden by a MARKETSTATS_* environment
// variable, e.g. MARKETSTATS_STORE_DSN or MARKETSTATS_CACHE_REDIS_ADDR.
package loader

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xtxerr/marketstats/config"
	"github.com/xtxerr/marketstats/internal/store"
)

// =============================================================================
// Root Configuration
// =============================================================================

// Config is the root configuration structure for marketstatsd.
type Config struct {
	// -------------------------------------------------------------------------
	// Runtime Settings
	// -------------------------------------------------------------------------

	// Listen is the HTTP listen address.
	// Format: "host:port" or ":port"
	// Default: "0.0.0.0:8080"
	Listen string `yaml:"listen" env:"LISTEN"`

	// TLS configures transport layer security.
	TLS TLSConfig `yaml:"tls" envPrefix:"TLS_"`

	// HTTP configures server timeouts and CORS.
	HTTP HTTPConfig `yaml:"http" envPrefix:"HTTP_"`

	// Store is the registry database.
	Store StoreConfig `yaml:"store" envPrefix:"STORE_"`

	// Cache configures where the aggregate slot lives.
	Cache CacheConfig `yaml:"cache" envPrefix:"CACHE_"`

	// Log configures logging.
	Log LogConfig `yaml:"log" envPrefix:"LOG_"`

	// -------------------------------------------------------------------------
	// Declarative Data
	// -------------------------------------------------------------------------

	// Seed lists entities created at startup. Entities that already exist
	// are left untouched.
	Seed SeedConfig `yaml:"seed"`
}

// TLSConfig holds TLS settings.
type TLSConfig struct {
	CertFile string `yaml:"cert_file" env:"CERT_FILE"`
	KeyFile  string `yaml:"key_file" env:"KEY_FILE"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	ReadTimeout     Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout    Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	RequestTimeout  Duration `yaml:"request_timeout" env:"REQUEST_TIMEOUT"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`

	// AllowedOrigins enables CORS for the listed origins.
	AllowedOrigins []string `yaml:"allowed_origins" env:"ALLOWED_ORIGINS" envSeparator:","`
}

// StoreConfig holds database settings.
type StoreConfig struct {
	// Driver is "duckdb" (embedded) or "postgres".
	Driver string `yaml:"driver" env:"DRIVER"`

	// DSN is the DuckDB file path (empty for in-memory) or a PostgreSQL
	// connection string.
	DSN string `yaml:"dsn" env:"DSN"`

	MaxOpenConns    int      `yaml:"max_open_conns" env:"MAX_OPEN_CONNS"`
	MaxIdleConns    int      `yaml:"max_idle_conns" env:"MAX_IDLE_CONNS"`
	ConnMaxLifetime Duration `yaml:"conn_max_lifetime" env:"CONN_MAX_LIFETIME"`
	QueryTimeout    Duration `yaml:"query_timeout" env:"QUERY_TIMEOUT"`
}

// CacheConfig holds aggregate cache settings.
type CacheConfig struct {
	// Backend is "memory" or "redis".
	Backend string `yaml:"backend" env:"BACKEND"`

	Redis RedisConfig `yaml:"redis" envPrefix:"REDIS_"`
}

// RedisConfig holds redis slot settings.
type RedisConfig struct {
	Addr      string   `yaml:"addr" env:"ADDR"`
	Password  string   `yaml:"password" env:"PASSWORD"`
	DB        int      `yaml:"db" env:"DB"`
	KeyPrefix string   `yaml:"key_prefix" env:"KEY_PREFIX"`
	TTL       Duration `yaml:"ttl" env:"TTL"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level" env:"LEVEL"`

	// JSON selects JSON output instead of text.
	JSON bool `yaml:"json" env:"JSON"`
}

// =============================================================================
// Seed Configuration
// =============================================================================

// SeedConfig lists entities created at startup.
type SeedConfig struct {
	Countries    []string          `yaml:"countries"`
	Markets      []MarketSeed      `yaml:"markets"`
	Participants []ParticipantSeed `yaml:"participants"`
}

// MarketSeed defines a market.
type MarketSeed struct {
	Code        string `yaml:"code"`
	Description string `yaml:"description"`
	Country     string `yaml:"country"`
}

// ParticipantSeed defines a participant. Markets lists market codes.
type ParticipantSeed struct {
	Name               string   `yaml:"name"`
	Identification     string   `yaml:"identification"`
	IdentificationType string   `yaml:"identification_type"`
	Description        string   `yaml:"description"`
	Markets            []string `yaml:"markets"`
}

// =============================================================================
// Defaults
// =============================================================================

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Listen: config.DefaultListen,

		HTTP: HTTPConfig{
			ReadTimeout:     Duration(config.DefaultReadTimeout),
			WriteTimeout:    Duration(config.DefaultWriteTimeout),
			RequestTimeout:  Duration(config.DefaultRequestTimeout),
			ShutdownTimeout: Duration(config.DefaultShutdownTimeout),
		},

		Store: StoreConfig{
			Driver:          config.DefaultStoreDriver,
			DSN:             config.DefaultStoreDSN,
			MaxOpenConns:    config.DefaultMaxOpenConns,
			MaxIdleConns:    5,
			ConnMaxLifetime: Duration(5 * time.Minute),
			QueryTimeout:    Duration(config.DefaultQueryTimeout),
		},

		Cache: CacheConfig{
			Backend: config.DefaultCacheBackend,
			Redis: RedisConfig{
				Addr:      config.DefaultRedisAddr,
				KeyPrefix: config.DefaultRedisKeyPrefix,
				TTL:       Duration(config.DefaultRedisTTL),
			},
		},

		Log: LogConfig{
			Level: "info",
		},
	}
}

// ToStoreConfig converts the store section to the internal store config.
func ToStoreConfig(cfg *StoreConfig) store.Config {
	return store.Config{
		Driver:          cfg.Driver,
		DSN:             cfg.DSN,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime.Duration(),
		QueryTimeout:    cfg.QueryTimeout.Duration(),
	}
}

// =============================================================================
// Helper Types
// =============================================================================

// Duration is a time.Duration that can be unmarshaled from YAML and from
// environment variables. Supports Go duration strings ("30s", "5m") or a
// plain integer number of seconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	return d.UnmarshalText([]byte(s))
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))
	if s == "" {
		*d = 0
		return nil
	}
	if secs, err := strconv.Atoi(s); err == nil {
		*d = Duration(time.Duration(secs) * time.Second)
		return nil
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}

// Duration returns the time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
