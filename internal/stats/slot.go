package stats

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/xtxerr/marketstats/internal/errors"
	isync "github.com/xtxerr/marketstats/internal/sync"
)

// =============================================================================
// Memory Slot
// =============================================================================

// MemorySlot keeps the breakdown in process memory.
type MemorySlot struct {
	slot isync.Slot[[]CountryStats]
}

// NewMemorySlot creates an empty memory slot.
func NewMemorySlot() *MemorySlot {
	return &MemorySlot{}
}

// Load implements Slot.
func (m *MemorySlot) Load(context.Context) ([]CountryStats, uint64, bool, error) {
	v, gen, ok := m.slot.Load()
	return v, gen, ok, nil
}

// Store implements Slot.
func (m *MemorySlot) Store(_ context.Context, gen uint64, value []CountryStats) (bool, error) {
	return m.slot.Store(gen, value), nil
}

// Invalidate implements Slot.
func (m *MemorySlot) Invalidate(context.Context) (uint64, error) {
	return m.slot.Reset(), nil
}

// =============================================================================
// Redis Slot
// =============================================================================

// RedisSlot keeps the breakdown in Redis so several instances share one slot.
//
// Two keys are used: <prefix>:gen holds the generation counter and
// <prefix>:value holds the JSON-encoded breakdown. Invalidate increments the
// generation and deletes the value in one MULTI. Store watches the
// generation key and only writes while it still equals the caller's
// generation.
type RedisSlot struct {
	client   *redis.Client
	genKey   string
	valueKey string
	ttl      time.Duration
}

// NewRedisSlot creates a slot using keys under prefix. A ttl of zero keeps
// the value until the next invalidation.
func NewRedisSlot(client *redis.Client, prefix string, ttl time.Duration) *RedisSlot {
	if prefix == "" {
		prefix = "marketstats:stats"
	}
	return &RedisSlot{
		client:   client,
		genKey:   prefix + ":gen",
		valueKey: prefix + ":value",
		ttl:      ttl,
	}
}

var errStaleGeneration = errors.New("stale generation")

// Load implements Slot.
func (r *RedisSlot) Load(ctx context.Context) ([]CountryStats, uint64, bool, error) {
	vals, err := r.client.MGet(ctx, r.genKey, r.valueKey).Result()
	if err != nil {
		return nil, 0, false, fmt.Errorf("redis mget: %w", err)
	}

	gen, err := parseGeneration(vals[0])
	if err != nil {
		return nil, 0, false, err
	}

	raw, ok := vals[1].(string)
	if !ok {
		return nil, gen, false, nil
	}

	var value []CountryStats
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return nil, gen, false, fmt.Errorf("decode cached stats: %w", err)
	}
	return value, gen, true, nil
}

// Store implements Slot.
func (r *RedisSlot) Store(ctx context.Context, gen uint64, value []CountryStats) (bool, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return false, fmt.Errorf("encode stats: %w", err)
	}

	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, r.genKey).Uint64()
		if err != nil && err != redis.Nil {
			return err
		}
		if cur != gen {
			return errStaleGeneration
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, r.valueKey, data, r.ttl)
			return nil
		})
		return err
	}, r.genKey)

	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, errStaleGeneration), errors.Is(err, redis.TxFailedErr):
		return false, nil
	default:
		return false, fmt.Errorf("redis store: %w", err)
	}
}

// Invalidate implements Slot.
func (r *RedisSlot) Invalidate(ctx context.Context) (uint64, error) {
	var incr *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, r.genKey)
		pipe.Del(ctx, r.valueKey)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("redis invalidate: %w", err)
	}
	return uint64(incr.Val()), nil
}

func parseGeneration(v interface{}) (uint64, error) {
	if v == nil {
		return 0, nil
	}
	s, ok := v.(string)
	if !ok {
		return 0, fmt.Errorf("unexpected generation type %T", v)
	}
	gen, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse generation %q: %w", s, err)
	}
	return gen, nil
}
