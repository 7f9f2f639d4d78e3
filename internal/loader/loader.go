// Package loader handles configuration file loading, validation, and application.
//
// This package is responsible for:
//   - Loading YAML configuration files
//   - Expanding environment variables and applying MARKETSTATS_* overrides
//   - Building the aggregate cache slot
//   - Seeding countries, markets and participants through the manager
package loader

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"

	"github.com/xtxerr/marketstats/config"
	"github.com/xtxerr/marketstats/internal/constants"
	"github.com/xtxerr/marketstats/internal/errors"
	"github.com/xtxerr/marketstats/internal/logging"
	"github.com/xtxerr/marketstats/internal/manager"
	"github.com/xtxerr/marketstats/internal/result"
	"github.com/xtxerr/marketstats/internal/stats"
	"github.com/xtxerr/marketstats/internal/store"
)

var log = logging.Component("loader")

// =============================================================================
// Load
// =============================================================================

// Load loads configuration from a YAML file and then applies environment
// overrides. An empty path yields the defaults plus overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}

		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides cfg from MARKETSTATS_* environment variables. Unset
// variables leave the current values in place.
func ApplyEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: config.EnvPrefix}); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}
	return nil
}

// =============================================================================
// Validate
// =============================================================================

// Validate validates the configuration.
func Validate(cfg *Config) error {
	errs := errors.NewValidationErrors()

	if cfg.Listen == "" {
		errs.AddConfig("listen", "cannot be empty")
	}

	if (cfg.TLS.CertFile == "") != (cfg.TLS.KeyFile == "") {
		errs.AddConfig("tls", "cert_file and key_file must be set together")
	}

	switch cfg.Store.Driver {
	case store.DriverDuckDB:
	case store.DriverPostgres:
		if cfg.Store.DSN == "" {
			errs.AddConfig("store.dsn", "cannot be empty for postgres")
		}
	default:
		errs.AddConfig("store.driver", fmt.Sprintf("must be %q or %q", store.DriverDuckDB, store.DriverPostgres))
	}
	if cfg.Store.MaxOpenConns < 0 {
		errs.AddConfig("store.max_open_conns", "cannot be negative")
	}

	switch cfg.Cache.Backend {
	case "memory":
	case "redis":
		if cfg.Cache.Redis.Addr == "" {
			errs.AddConfig("cache.redis.addr", "cannot be empty when backend is redis")
		}
		if cfg.Cache.Redis.TTL < 0 {
			errs.AddConfig("cache.redis.ttl", "cannot be negative")
		}
	default:
		errs.AddConfig("cache.backend", `must be "memory" or "redis"`)
	}

	if _, err := logging.ParseLevel(cfg.Log.Level); err != nil {
		errs.AddConfig("log.level", err.Error())
	}

	validateSeed(&cfg.Seed, errs)

	return errs.Err()
}

func validateSeed(seed *SeedConfig, errs *errors.ValidationErrors) {
	for i, name := range seed.Countries {
		if _, err := constants.ParseCountry(name); err != nil {
			errs.AddConfig(fmt.Sprintf("seed.countries[%d]", i), err.Error())
		}
	}

	codes := make(map[string]bool)
	for i, m := range seed.Markets {
		field := fmt.Sprintf("seed.markets[%d]", i)
		if m.Code == "" {
			errs.AddConfig(field+".code", "cannot be empty")
		}
		if codes[m.Code] {
			errs.AddConfig(field+".code", fmt.Sprintf("duplicate code %q", m.Code))
		}
		codes[m.Code] = true
		if m.Country == "" {
			errs.AddConfig(field+".country", "cannot be empty")
		}
	}

	for i, p := range seed.Participants {
		field := fmt.Sprintf("seed.participants[%d]", i)
		if p.Identification == "" {
			errs.AddConfig(field+".identification", "cannot be empty")
		}
		for _, code := range p.Markets {
			if !codes[code] {
				errs.AddConfig(field+".markets", fmt.Sprintf("unknown market %q", code))
			}
		}
	}
}

// =============================================================================
// Cache Slot
// =============================================================================

// NewCacheSlot builds the aggregate slot for the cache section. The memory
// backend returns a nil slot, which the cache replaces with its in-process
// slot. The returned close function releases the backend and is never nil.
func NewCacheSlot(ctx context.Context, cfg *CacheConfig) (stats.Slot, func() error, error) {
	noop := func() error { return nil }

	switch strings.ToLower(cfg.Backend) {
	case "", "memory":
		return nil, noop, nil

	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, noop, fmt.Errorf("connect redis %s: %w", cfg.Redis.Addr, err)
		}
		log.Info("redis cache slot", "addr", cfg.Redis.Addr, "key_prefix", cfg.Redis.KeyPrefix)
		return stats.NewRedisSlot(client, cfg.Redis.KeyPrefix, cfg.Redis.TTL.Duration()), client.Close, nil

	default:
		return nil, noop, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

// =============================================================================
// Apply
// =============================================================================

// ApplyResult holds statistics from applying the seed section.
type ApplyResult struct {
	CountriesCreated     int
	CountriesExisting    int
	MarketsCreated       int
	MarketsExisting      int
	ParticipantsCreated  int
	ParticipantsExisting int
	Errors               []string
}

// Apply creates the seed entities through the manager. Entities that
// already exist are counted and left untouched, so applying the same seed
// twice is harmless.
func Apply(ctx context.Context, cfg *Config, mgr *manager.Manager) (*ApplyResult, error) {
	res := &ApplyResult{}
	ctx = logging.ContextWithOperation(ctx, "seed")

	for _, name := range cfg.Seed.Countries {
		r := mgr.Countries.Create(ctx, name)
		tally(res, r, "country "+name, &res.CountriesCreated, &res.CountriesExisting)
	}

	for _, m := range cfg.Seed.Markets {
		r := mgr.Markets.Create(ctx, manager.MarketInput{
			Code:        m.Code,
			Description: m.Description,
			Country:     m.Country,
		})
		tally(res, r, "market "+m.Code, &res.MarketsCreated, &res.MarketsExisting)
	}

	for _, p := range cfg.Seed.Participants {
		ids, err := resolveMarkets(ctx, mgr, p.Markets)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("participant %s: %v", p.Identification, err))
			continue
		}
		r := mgr.Participants.Create(ctx, manager.ParticipantInput{
			Name:               p.Name,
			Identification:     p.Identification,
			IdentificationType: p.IdentificationType,
			Description:        p.Description,
			MarketIDs:          ids,
		})
		tally(res, r, "participant "+p.Identification, &res.ParticipantsCreated, &res.ParticipantsExisting)
	}

	if len(res.Errors) > 0 {
		return res, fmt.Errorf("apply had %d errors", len(res.Errors))
	}
	return res, nil
}

func tally[T any](res *ApplyResult, r result.Result[T], what string, created, existing *int) {
	switch {
	case r.IsOk():
		*created++
	case r.Kind() == errors.KindConflict:
		*existing++
	default:
		res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", what, r.Err()))
	}
}

func resolveMarkets(ctx context.Context, mgr *manager.Manager, codes []string) ([]int64, error) {
	ids := make([]int64, 0, len(codes))
	for _, code := range codes {
		m, err := mgr.Markets.GetByCode(ctx, code).Unwrap()
		if err != nil {
			return nil, fmt.Errorf("resolve market %s: %w", code, err)
		}
		ids = append(ids, m.ID)
	}
	return ids, nil
}

// =============================================================================
// Config Watcher
// =============================================================================

// Watcher watches a config file and re-applies its seed section when the
// file changes.
type Watcher struct {
	path     string
	interval time.Duration
	mgr      *manager.Manager
	callback func(*ApplyResult)
	done     chan struct{}
	modTime  time.Time
}

// NewWatcher creates a new config file watcher polling every interval.
func NewWatcher(path string, interval time.Duration, mgr *manager.Manager, callback func(*ApplyResult)) *Watcher {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Watcher{
		path:     path,
		interval: interval,
		mgr:      mgr,
		callback: callback,
		done:     make(chan struct{}),
	}
}

// Start begins watching the config file.
func (w *Watcher) Start() {
	if info, err := os.Stat(w.path); err == nil {
		w.modTime = info.ModTime()
	}

	go w.watch()
}

// Stop stops watching.
func (w *Watcher) Stop() {
	close(w.done)
}

func (w *Watcher) watch() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			info, err := os.Stat(w.path)
			if err != nil {
				continue
			}

			if info.ModTime().After(w.modTime) {
				w.modTime = info.ModTime()
				w.reload()
			}
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err == nil {
		err = Validate(cfg)
	}
	if err != nil {
		log.Warn("config reload failed", "path", w.path, "error", err)
		if w.callback != nil {
			w.callback(&ApplyResult{
				Errors: []string{fmt.Sprintf("reload config: %v", err)},
			})
		}
		return
	}

	res, _ := Apply(context.Background(), cfg, w.mgr)
	log.Info("config reloaded", "path", w.path,
		"countries_created", res.CountriesCreated,
		"markets_created", res.MarketsCreated,
		"participants_created", res.ParticipantsCreated,
		"errors", len(res.Errors))
	if w.callback != nil {
		w.callback(res)
	}
}
