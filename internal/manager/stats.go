package manager

import (
	"context"

	"github.com/xtxerr/marketstats/internal/logging"
	"github.com/xtxerr/marketstats/internal/result"
	"github.com/xtxerr/marketstats/internal/stats"
)

var statsLog = logging.Component("manager.stats")

// Stats returns the per-country market breakdown, from the cache when it is
// populated. It fails with KindNoMarkets when no market exists.
func (m *Manager) Stats(ctx context.Context) result.Result[[]stats.CountryStats] {
	return m.cache.GetOrCompute(ctx, m.loadStats)
}

// CacheMetrics returns the aggregate cache counters.
func (m *Manager) CacheMetrics() stats.Metrics {
	return m.cache.Metrics()
}

func (m *Manager) loadStats(ctx context.Context) result.Result[[]stats.CountryStats] {
	markets, err := m.repo.ListMarkets(ctx)
	if err != nil {
		return fault[[]stats.CountryStats](ctx, statsLog, "load market graph", err)
	}

	r := stats.Compute(markets)
	if r.IsOk() {
		statsLog.Ctx(ctx).Debug("stats computed", "markets", len(markets), "countries", len(r.Value()))
	}
	return r
}
