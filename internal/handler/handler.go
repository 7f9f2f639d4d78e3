// Package handler exposes the manager over HTTP.
//
// Handlers are organized by entity type (country, market, participant) and
// translate result kinds to status codes through errors.KindToHTTPStatus.
package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/xtxerr/marketstats/internal/errors"
	"github.com/xtxerr/marketstats/internal/logging"
	"github.com/xtxerr/marketstats/internal/manager"
	"github.com/xtxerr/marketstats/internal/result"
)

var log = logging.Component("handler")

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// =============================================================================
// Handler
// =============================================================================

// Options configures the HTTP surface.
type Options struct {
	// AllowedOrigins lists CORS origins. Empty disables CORS.
	AllowedOrigins []string

	// RequestTimeout bounds each request. Zero disables the timeout.
	RequestTimeout time.Duration
}

// Handler is the HTTP request handler.
type Handler struct {
	mgr  *manager.Manager
	opts Options
}

// NewHandler creates a new handler.
func NewHandler(mgr *manager.Manager, opts Options) *Handler {
	return &Handler{mgr: mgr, opts: opts}
}

// Manager returns the entity manager.
func (h *Handler) Manager() *manager.Manager {
	return h.mgr
}

// Routes builds the router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	if h.opts.RequestTimeout > 0 {
		r.Use(middleware.Timeout(h.opts.RequestTimeout))
	}

	if len(h.opts.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: h.opts.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
			ExposedHeaders: []string{"X-Request-Id"},
			MaxAge:         300,
		}))
	}

	r.Get("/health", h.health)

	r.Route("/countries", func(r chi.Router) {
		r.Get("/", h.listCountries)
		r.Post("/", h.createCountry)
		r.Get("/{id}", h.getCountry)
		r.Delete("/{id}", h.deleteCountry)
	})

	r.Route("/markets", func(r chi.Router) {
		r.Get("/", h.listMarkets)
		r.Post("/", h.createMarket)
		r.Get("/{id}", h.getMarket)
		r.Put("/{id}", h.updateMarket)
		r.Delete("/{id}", h.deleteMarket)
	})

	r.Route("/participants", func(r chi.Router) {
		r.Get("/", h.listParticipants)
		r.Post("/", h.createParticipant)
		r.Get("/market/{code}", h.listParticipantsByMarket)
		r.Get("/{id}", h.getParticipant)
		r.Put("/{id}", h.updateParticipant)
		r.Delete("/{id}", h.deleteParticipant)
		r.Put("/{id}/market/{code}", h.addMembership)
		r.Delete("/{id}/market/{code}", h.removeMembership)
	})

	r.Get("/stats", h.stats)
	r.Get("/stats/cache", h.cacheMetrics)

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if err := h.mgr.Health(r.Context()); err != nil {
		log.Ctx(r.Context()).Error("health check failed", "error", err)
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// Responses
// =============================================================================

// errorBody is the JSON body of every failed request.
type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Warn("encode response failed", "error", err)
	}
}

func respondError(w http.ResponseWriter, kind errors.Kind, err error) {
	msg := "internal error"
	if kind != errors.KindFault && err != nil {
		msg = err.Error()
	}
	respondJSON(w, errors.KindToHTTPStatus(kind), errorBody{Error: msg, Kind: kind.String()})
}

// respondResult writes r's value mapped through view with status, or r's
// failure.
func respondResult[T, V any](w http.ResponseWriter, status int, r result.Result[T], view func(T) V) {
	if !r.IsOk() {
		respondError(w, r.Kind(), r.Err())
		return
	}
	respondJSON(w, status, view(r.Value()))
}

// respondVoid writes 204 for a successful r.
func respondVoid(w http.ResponseWriter, r result.Void) {
	if !r.IsOk() {
		respondError(w, r.Kind(), r.Err())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// Requests
// =============================================================================

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		respondError(w, errors.KindInvalidInput, fmt.Errorf("invalid request body: %w", err))
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		respondError(w, errors.KindInvalidInput, errors.NewInvalidValue("id", raw, "must be a positive integer"))
		return 0, false
	}
	return id, true
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			log.Ctx(r.Context()).Debug("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start))
		}()
		next.ServeHTTP(ww, r)
	})
}
