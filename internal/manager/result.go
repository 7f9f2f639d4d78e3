package manager

import (
	"context"

	"github.com/xtxerr/marketstats/internal/errors"
	"github.com/xtxerr/marketstats/internal/logging"
	"github.com/xtxerr/marketstats/internal/result"
	"github.com/xtxerr/marketstats/internal/stats"
)

// reject returns an expected domain failure. These are logged at info.
func reject[T any](ctx context.Context, l *logging.ComponentLogger, op string, kind errors.Kind, err error) result.Result[T] {
	l.Ctx(ctx).Info("rejected", "op", op, "kind", kind.String(), "reason", err)
	return result.Fail[T](kind, err)
}

// fault returns a repository or cache failure. These are logged at error.
func fault[T any](ctx context.Context, l *logging.ComponentLogger, op string, err error) result.Result[T] {
	l.Ctx(ctx).Error("operation failed", "op", op, "error", err)
	return result.Fault[T](err)
}

// fromStore classifies a repository error. Sentinel-wrapped errors raised by
// the store (for example a row deleted concurrently) keep their domain kind.
func fromStore[T any](ctx context.Context, l *logging.ComponentLogger, op string, err error) result.Result[T] {
	if kind := errors.KindOf(err); kind.IsDomain() {
		return reject[T](ctx, l, op, kind, err)
	}
	return fault[T](ctx, l, op, err)
}

// commit invalidates the aggregate cache after a successful mutation and
// returns v.
func commit[T any](ctx context.Context, l *logging.ComponentLogger, cache *stats.Cache, op string, v T) result.Result[T] {
	if err := cache.Invalidate(ctx); err != nil {
		return fault[T](ctx, l, op, err)
	}
	l.Ctx(ctx).Info("committed", "op", op)
	return result.Ok(v)
}
