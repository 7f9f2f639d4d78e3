// marketstatsd is the market participant registry and statistics server.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/xtxerr/marketstats/internal/loader"
	"github.com/xtxerr/marketstats/internal/logging"
	"github.com/xtxerr/marketstats/internal/manager"
	"github.com/xtxerr/marketstats/internal/server"
)

// Version is set at build time via ldflags
var Version = "dev"

var log = logging.Component("main")

func main() {
	// CLI flags
	cfgPath := flag.String("config", "config.yaml", "config file path")
	listen := flag.String("listen", "", "listen address (overrides config)")
	noTLS := flag.Bool("no-tls", false, "disable TLS")
	dsn := flag.String("dsn", "", "store DSN (overrides config)")
	driver := flag.String("driver", "", "store driver: duckdb or postgres (overrides config)")
	cacheBackend := flag.String("cache", "", "cache backend: memory or redis (overrides config)")
	watch := flag.Bool("watch", false, "watch config for changes and re-apply seed data")
	flag.Parse()

	path := *cfgPath
	if _, err := os.Stat(path); os.IsNotExist(err) {
		path = ""
	}

	cfg, err := loader.Load(path)
	if err != nil {
		fatal("load config", err)
	}

	// CLI overrides
	if *listen != "" {
		cfg.Listen = *listen
	}
	if *noTLS {
		cfg.TLS.CertFile = ""
		cfg.TLS.KeyFile = ""
	}
	if *driver != "" {
		cfg.Store.Driver = *driver
	}
	if *dsn != "" {
		cfg.Store.DSN = *dsn
	}
	if *cacheBackend != "" {
		cfg.Cache.Backend = *cacheBackend
	}

	if err := loader.Validate(cfg); err != nil {
		fatal("invalid config", err)
	}

	level, _ := logging.ParseLevel(cfg.Log.Level)
	logging.Init(level, cfg.Log.JSON)

	log.Info("marketstatsd starting", "version", Version, "config", path)

	// =========================================================================
	// Initialize Cache Slot and Manager
	// =========================================================================

	ctx := context.Background()

	slot, closeSlot, err := loader.NewCacheSlot(ctx, &cfg.Cache)
	if err != nil {
		fatal("create cache slot", err)
	}
	defer closeSlot()

	log.Info("initializing store", "driver", cfg.Store.Driver)

	mgr, err := manager.New(&manager.Config{
		Store:     loader.ToStoreConfig(&cfg.Store),
		CacheSlot: slot,
	})
	if err != nil {
		fatal("create manager", err)
	}

	// =========================================================================
	// Apply Seed Data (countries, markets, participants)
	// =========================================================================

	res, err := loader.Apply(ctx, cfg, mgr)
	if err != nil {
		log.Warn("apply seed", "error", err)
	}
	log.Info("seed applied",
		"countries_created", res.CountriesCreated,
		"markets_created", res.MarketsCreated,
		"participants_created", res.ParticipantsCreated)
	for _, e := range res.Errors {
		log.Warn("seed error", "error", e)
	}

	if *watch && path != "" {
		watcher := loader.NewWatcher(path, 5*time.Second, mgr, nil)
		watcher.Start()
		defer watcher.Stop()
	}

	// =========================================================================
	// Create and Start Server
	// =========================================================================

	srv := server.New(&server.Config{
		Manager:         mgr,
		Listen:          cfg.Listen,
		TLSCertFile:     cfg.TLS.CertFile,
		TLSKeyFile:      cfg.TLS.KeyFile,
		AllowedOrigins:  cfg.HTTP.AllowedOrigins,
		ReadTimeout:     cfg.HTTP.ReadTimeout.Duration(),
		WriteTimeout:    cfg.HTTP.WriteTimeout.Duration(),
		RequestTimeout:  cfg.HTTP.RequestTimeout.Duration(),
		ShutdownTimeout: cfg.HTTP.ShutdownTimeout.Duration(),
	})

	// =========================================================================
	// Signal Handling and Graceful Shutdown
	// =========================================================================

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		srv.Shutdown()
	}()

	if err := srv.Run(); err != nil {
		srv.Shutdown()
		fatal("server error", err)
	}
}

func fatal(msg string, err error) {
	log.Error(msg, "error", err)
	os.Exit(1)
}
