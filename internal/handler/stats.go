package handler

import (
	"net/http"

	"github.com/xtxerr/marketstats/internal/stats"
)

// stats serves the per-country breakdown as an array of
// {"country": ..., "markets": {code: percentage, ...}} in output order.
func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	respondResult(w, http.StatusOK, h.mgr.Stats(r.Context()), func(v []stats.CountryStats) []stats.CountryStats {
		return v
	})
}

func (h *Handler) cacheMetrics(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.mgr.CacheMetrics())
}
