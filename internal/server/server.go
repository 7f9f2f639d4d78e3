// Package server runs the marketstats HTTP server.
//
// The server owns the listener, serves the handler routes and coordinates
// an orderly shutdown of the HTTP surface and the manager.
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/xtxerr/marketstats/config"
	"github.com/xtxerr/marketstats/internal/handler"
	"github.com/xtxerr/marketstats/internal/logging"
	"github.com/xtxerr/marketstats/internal/manager"
)

var log = logging.Component("server")

// =============================================================================
// Server Configuration
// =============================================================================

// Config holds server configuration.
type Config struct {
	// Manager is the entity manager. Required.
	Manager *manager.Manager

	// Listen is the address to listen on (e.g., "0.0.0.0:8080").
	Listen string

	// TLS configuration (optional)
	TLSCertFile string
	TLSKeyFile  string

	// AllowedOrigins lists CORS origins. Empty disables CORS.
	AllowedOrigins []string

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

// =============================================================================
// Server
// =============================================================================

// Server is the marketstats HTTP server.
type Server struct {
	cfg  *Config
	mgr  *manager.Manager
	http *http.Server

	mu       sync.Mutex
	listener net.Listener
	ready    chan struct{}

	shutdownOnce sync.Once
}

// New creates a new server.
func New(cfg *Config) *Server {
	if cfg.Listen == "" {
		cfg.Listen = config.DefaultListen
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = config.DefaultReadTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = config.DefaultWriteTimeout
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = config.DefaultShutdownTimeout
	}

	h := handler.NewHandler(cfg.Manager, handler.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		RequestTimeout: cfg.RequestTimeout,
	})

	return &Server{
		cfg: cfg,
		mgr: cfg.Manager,
		http: &http.Server{
			Handler:           h.Routes(),
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
		},
		ready: make(chan struct{}),
	}
}

// Run listens and serves until Shutdown is called.
// It returns nil after a clean shutdown.
func (s *Server) Run() error {
	var ln net.Listener
	var err error

	if s.cfg.TLSCertFile != "" && s.cfg.TLSKeyFile != "" {
		cert, err := tls.LoadX509KeyPair(s.cfg.TLSCertFile, s.cfg.TLSKeyFile)
		if err != nil {
			return fmt.Errorf("load TLS cert: %w", err)
		}
		tlsCfg := &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		}
		ln, err = tls.Listen("tcp", s.cfg.Listen, tlsCfg)
		if err != nil {
			return fmt.Errorf("TLS listen: %w", err)
		}
		log.Info("listening with TLS", "address", ln.Addr().String())
	} else {
		ln, err = net.Listen("tcp", s.cfg.Listen)
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		log.Info("listening without TLS", "address", ln.Addr().String())
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	close(s.ready)

	if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// Ready is closed once the server is listening.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the listening address, or "" before Run has bound.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown drains in-flight requests and stops the manager.
// It is safe to call more than once.
func (s *Server) Shutdown() {
	s.shutdownOnce.Do(func() {
		log.Info("shutting down")

		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()

		if err := s.http.Shutdown(ctx); err != nil {
			log.Warn("http shutdown", "error", err)
		}

		if err := s.mgr.Stop(); err != nil {
			log.Warn("manager stop", "error", err)
		}

		log.Info("shutdown complete")
	})
}
