package stats

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/DataDog/sketches-go/ddsketch"
	"golang.org/x/sync/singleflight"

	"github.com/xtxerr/marketstats/internal/errors"
	"github.com/xtxerr/marketstats/internal/logging"
	"github.com/xtxerr/marketstats/internal/result"
)

var cacheLog = logging.Component("stats.cache")

// Loader computes a fresh breakdown on a cache miss.
type Loader func(ctx context.Context) result.Result[[]CountryStats]

// =============================================================================
// Slot
// =============================================================================

// Slot holds at most one breakdown, tagged by generation.
//
// Invalidate must empty the slot and advance the generation atomically.
// Store must only publish when gen is still current.
type Slot interface {
	// Load returns the held value and the current generation.
	Load(ctx context.Context) (value []CountryStats, gen uint64, ok bool, err error)

	// Store publishes value if gen is current and reports whether it did.
	Store(ctx context.Context, gen uint64, value []CountryStats) (bool, error)

	// Invalidate empties the slot and returns the new generation.
	Invalidate(ctx context.Context) (uint64, error)
}

// =============================================================================
// Cache
// =============================================================================

// Cache is the single-slot aggregate cache.
//
// Only successful computations are stored. Every Invalidate advances the
// generation, and a computation that started under an older generation is
// discarded instead of stored. Concurrent misses under one generation share
// a single computation.
//
// Cache is safe for concurrent use.
type Cache struct {
	slot  Slot
	group singleflight.Group

	hits          atomic.Int64
	misses        atomic.Int64
	computations  atomic.Int64
	invalidations atomic.Int64
	discarded     atomic.Int64
	slotErrors    atomic.Int64

	sketchMu sync.Mutex
	sketch   *ddsketch.DDSketch
}

// NewCache creates a cache over slot. A nil slot selects the in-process
// memory slot.
func NewCache(slot Slot) *Cache {
	if slot == nil {
		slot = NewMemorySlot()
	}
	c := &Cache{slot: slot}
	c.sketch = newLatencySketch()
	return c
}

// GetOrCompute returns the cached breakdown, or runs load on a miss and
// stores its result if it succeeded and no invalidation happened meanwhile.
func (c *Cache) GetOrCompute(ctx context.Context, load Loader) result.Result[[]CountryStats] {
	value, gen, ok, err := c.slot.Load(ctx)
	if err != nil {
		// An unreadable slot is a miss whose result cannot be stored.
		c.slotErrors.Add(1)
		cacheLog.Ctx(ctx).Warn("cache slot read failed", "error", err)
		c.misses.Add(1)
		return c.compute(ctx, load)
	}

	if ok {
		c.hits.Add(1)
		cacheLog.Ctx(ctx).Debug("cache hit", "generation", gen)
		return result.Ok(value)
	}

	c.misses.Add(1)

	// Keyed by generation: a reader that observed an invalidation never
	// joins a computation started before it.
	key := strconv.FormatUint(gen, 10)
	v, _, shared := c.group.Do(key, func() (interface{}, error) {
		// Joined callers must not fail because the first caller went away.
		flightCtx := context.WithoutCancel(ctx)

		r := c.compute(flightCtx, load)
		if !r.IsOk() {
			return r, nil
		}

		stored, err := c.slot.Store(flightCtx, gen, r.Value())
		switch {
		case err != nil:
			c.slotErrors.Add(1)
			cacheLog.Warn("cache slot write failed", "generation", gen, "error", err)
		case !stored:
			c.discarded.Add(1)
			cacheLog.Debug("discarded stale computation", "generation", gen)
		}
		return r, nil
	})

	if shared {
		cacheLog.Ctx(ctx).Debug("joined in-flight computation", "generation", gen)
	}
	return v.(result.Result[[]CountryStats])
}

func (c *Cache) compute(ctx context.Context, load Loader) result.Result[[]CountryStats] {
	c.computations.Add(1)
	start := time.Now()

	r := load(ctx)

	c.observe(time.Since(start))
	return r
}

// Invalidate empties the slot. It is called after every successful mutation.
func (c *Cache) Invalidate(ctx context.Context) error {
	gen, err := c.slot.Invalidate(ctx)
	if err != nil {
		c.slotErrors.Add(1)
		return fmt.Errorf("%w: invalidate: %w", errors.ErrCache, err)
	}

	c.invalidations.Add(1)
	cacheLog.Ctx(ctx).Debug("cache invalidated", "generation", gen)
	return nil
}

// =============================================================================
// Metrics
// =============================================================================

// Metrics is a snapshot of cache counters and compute latency quantiles.
type Metrics struct {
	Hits          int64   `json:"hits"`
	Misses        int64   `json:"misses"`
	Computations  int64   `json:"computations"`
	Invalidations int64   `json:"invalidations"`
	Discarded     int64   `json:"discarded"`
	SlotErrors    int64   `json:"slot_errors"`
	LatencyP50Ms  float64 `json:"latency_p50_ms"`
	LatencyP90Ms  float64 `json:"latency_p90_ms"`
	LatencyP99Ms  float64 `json:"latency_p99_ms"`
}

// Metrics returns a snapshot of the cache metrics.
func (c *Cache) Metrics() Metrics {
	m := Metrics{
		Hits:          c.hits.Load(),
		Misses:        c.misses.Load(),
		Computations:  c.computations.Load(),
		Invalidations: c.invalidations.Load(),
		Discarded:     c.discarded.Load(),
		SlotErrors:    c.slotErrors.Load(),
	}

	c.sketchMu.Lock()
	defer c.sketchMu.Unlock()

	if c.sketch != nil && !c.sketch.IsEmpty() {
		m.LatencyP50Ms, _ = c.sketch.GetValueAtQuantile(0.50)
		m.LatencyP90Ms, _ = c.sketch.GetValueAtQuantile(0.90)
		m.LatencyP99Ms, _ = c.sketch.GetValueAtQuantile(0.99)
	}
	return m
}

func (c *Cache) observe(d time.Duration) {
	c.sketchMu.Lock()
	defer c.sketchMu.Unlock()

	if c.sketch != nil {
		ms := float64(d) / float64(time.Millisecond)
		c.sketch.Add(ms)
	}
}

func newLatencySketch() *ddsketch.DDSketch {
	sketch, err := ddsketch.NewDefaultDDSketch(0.01)
	if err != nil {
		cacheLog.Warn("latency sketch disabled", "error", err)
		return nil
	}
	return sketch
}
