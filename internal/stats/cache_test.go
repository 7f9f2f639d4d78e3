package stats

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xtxerr/marketstats/internal/errors"
	"github.com/xtxerr/marketstats/internal/result"
	testutil "github.com/xtxerr/marketstats/internal/testing"
)

// newCountingLoader returns a loader over the scenario graph and its call
// counter.
func newCountingLoader() (*atomic.Int32, Loader) {
	var calls atomic.Int32
	return &calls, func(ctx context.Context) result.Result[[]CountryStats] {
		calls.Add(1)
		return Compute(scenario())
	}
}

// =============================================================================
// Memory Cache Tests
// =============================================================================

func TestCache_HitAfterMiss(t *testing.T) {
	c := NewCache(nil)
	calls, load := newCountingLoader()
	ctx := context.Background()

	first := c.GetOrCompute(ctx, load)
	second := c.GetOrCompute(ctx, load)

	require.True(t, first.IsOk())
	require.True(t, second.IsOk())
	assert.Equal(t, first.Value(), second.Value())
	assert.EqualValues(t, 1, calls.Load(), "loader should run once without intervening mutation")

	m := c.Metrics()
	assert.EqualValues(t, 1, m.Hits)
	assert.EqualValues(t, 1, m.Misses)
	assert.EqualValues(t, 1, m.Computations)
}

func TestCache_InvalidateForcesRecompute(t *testing.T) {
	c := NewCache(nil)
	calls, load := newCountingLoader()
	ctx := context.Background()

	c.GetOrCompute(ctx, load)
	require.NoError(t, c.Invalidate(ctx))
	c.GetOrCompute(ctx, load)

	assert.EqualValues(t, 2, calls.Load())
	assert.EqualValues(t, 1, c.Metrics().Invalidations)
}

func TestCache_FailureNotCached(t *testing.T) {
	c := NewCache(nil)
	var calls atomic.Int32
	load := func(ctx context.Context) result.Result[[]CountryStats] {
		calls.Add(1)
		return Compute(nil)
	}
	ctx := context.Background()

	r1 := c.GetOrCompute(ctx, load)
	r2 := c.GetOrCompute(ctx, load)

	assert.Equal(t, errors.KindNoMarkets, r1.Kind())
	assert.Equal(t, errors.KindNoMarkets, r2.Kind())
	assert.EqualValues(t, 2, calls.Load(), "every miss must retry a failed computation")
}

func TestCache_StaleComputationDiscarded(t *testing.T) {
	c := NewCache(nil)
	ctx := context.Background()

	var calls atomic.Int32
	load := func(ctx context.Context) result.Result[[]CountryStats] {
		if calls.Add(1) == 1 {
			// A mutation commits while the first computation is running.
			require.NoError(t, c.Invalidate(ctx))
		}
		return Compute(scenario())
	}

	r := c.GetOrCompute(ctx, load)
	require.True(t, r.IsOk(), "the caller still receives its computation")

	c.GetOrCompute(ctx, load)
	assert.EqualValues(t, 2, calls.Load(), "stale computation must not populate the slot")
	assert.EqualValues(t, 1, c.Metrics().Discarded)

	c.GetOrCompute(ctx, load)
	assert.EqualValues(t, 2, calls.Load())
}

func TestCache_ConcurrentMissesShareComputation(t *testing.T) {
	c := NewCache(nil)
	release := make(chan struct{})

	var calls atomic.Int32
	load := func(ctx context.Context) result.Result[[]CountryStats] {
		calls.Add(1)
		<-release
		return Compute(scenario())
	}

	const readers = 10
	gt := testutil.NewGoroutineTest(t, 5*time.Second)
	for i := 0; i < readers; i++ {
		gt.Go(func(ctx context.Context) error {
			r := c.GetOrCompute(ctx, load)
			if !r.IsOk() {
				return r.Err()
			}
			return nil
		})
	}

	require.NoError(t, testutil.Eventually(2*time.Second, time.Millisecond, func() bool {
		return c.Metrics().Misses == readers
	}))
	time.Sleep(20 * time.Millisecond)
	close(release)
	gt.Wait()

	assert.Less(t, calls.Load(), int32(readers), "concurrent misses should be collapsed")
	assert.True(t, c.GetOrCompute(context.Background(), load).IsOk())
}

func TestCache_ConcurrentReadersAndInvalidations(t *testing.T) {
	c := NewCache(nil)
	_, load := newCountingLoader()

	h := testutil.NewTestHelper(t)
	defer h.Wait()

	for i := 0; i < 20; i++ {
		h.Add(2)
		go func(id int) {
			defer h.Done()
			if r := c.GetOrCompute(context.Background(), load); !r.IsOk() {
				h.Errorf("reader %d: %v", id, r.Err())
			}
		}(i)
		go func() {
			defer h.Done()
			if err := c.Invalidate(context.Background()); err != nil {
				h.Error(err)
			}
		}()
	}
}

func TestCache_LatencyRecorded(t *testing.T) {
	c := NewCache(nil)
	load := func(ctx context.Context) result.Result[[]CountryStats] {
		time.Sleep(2 * time.Millisecond)
		return Compute(scenario())
	}

	c.GetOrCompute(context.Background(), load)

	m := c.Metrics()
	assert.Greater(t, m.LatencyP50Ms, 0.0)
	assert.GreaterOrEqual(t, m.LatencyP99Ms, m.LatencyP50Ms)
}

// =============================================================================
// Redis Slot Tests
// =============================================================================

func newRedisClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestRedisSlot_StoreAndLoad(t *testing.T) {
	_, client := newRedisClient(t)
	slot := NewRedisSlot(client, "test:stats", 0)
	ctx := context.Background()

	_, gen, ok, err := slot.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.EqualValues(t, 0, gen)

	want := Compute(scenario()).Value()
	stored, err := slot.Store(ctx, gen, want)
	require.NoError(t, err)
	assert.True(t, stored)

	got, _, ok, err := slot.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestRedisSlot_StaleStoreRejected(t *testing.T) {
	mr, client := newRedisClient(t)
	slot := NewRedisSlot(client, "test:stats", time.Minute)
	ctx := context.Background()

	_, gen, _, err := slot.Load(ctx)
	require.NoError(t, err)

	newGen, err := slot.Invalidate(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, newGen)

	stored, err := slot.Store(ctx, gen, Compute(scenario()).Value())
	require.NoError(t, err)
	assert.False(t, stored)
	assert.False(t, mr.Exists("test:stats:value"))

	stored, err = slot.Store(ctx, newGen, Compute(scenario()).Value())
	require.NoError(t, err)
	assert.True(t, stored)
	assert.True(t, mr.Exists("test:stats:value"))
}

func TestCache_RedisSlotSharedAcrossInstances(t *testing.T) {
	_, client := newRedisClient(t)
	a := NewCache(NewRedisSlot(client, "shared", 0))
	b := NewCache(NewRedisSlot(client, "shared", 0))
	ctx := context.Background()

	calls, load := newCountingLoader()

	require.True(t, a.GetOrCompute(ctx, load).IsOk())
	require.True(t, b.GetOrCompute(ctx, load).IsOk())
	assert.EqualValues(t, 1, calls.Load(), "second instance should hit the shared slot")

	require.NoError(t, b.Invalidate(ctx))
	require.True(t, a.GetOrCompute(ctx, load).IsOk())
	assert.EqualValues(t, 2, calls.Load(), "invalidation from one instance is seen by the other")
}

func TestCache_RedisUnavailable(t *testing.T) {
	mr, client := newRedisClient(t)
	c := NewCache(NewRedisSlot(client, "down", 0))
	mr.Close()

	ctx := context.Background()
	_, load := newCountingLoader()

	r := c.GetOrCompute(ctx, load)
	assert.True(t, r.IsOk(), "an unreadable slot degrades to computing")
	assert.Greater(t, c.Metrics().SlotErrors, int64(0))

	err := c.Invalidate(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCache))
}
