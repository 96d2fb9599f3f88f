// Package cache provides the read-through cache used in front of expensive
// catalog queries. Values are stored as JSON so the in-process and Redis
// drivers are interchangeable behind the Cache interface.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"appgambit/internal/metrics"
)

// Options controls expiry of a single entry.
// TTL is the absolute lifetime. Sliding, when set, expires the entry after
// that much idle time; each hit pushes the deadline out again but never past TTL.
// Zero TTL and zero Sliding keep the entry until it is evicted or invalidated.
type Options struct {
	TTL     time.Duration
	Sliding time.Duration
}

// Cache is safe for concurrent use.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, opts Options) error
	Delete(ctx context.Context, keys ...string) error
	DeletePrefix(ctx context.Context, prefix string) error
	// Name identifies the driver in logs and metrics.
	Name() string
}

// GetOrCompute returns the cached value for key, or runs compute and stores
// its result. Cache failures never fail the call; compute errors are returned
// and nothing is stored. Two callers missing at once both compute.
func GetOrCompute[T any](ctx context.Context, c Cache, key string, opts Options, compute func(ctx context.Context) (T, error)) (T, error) {
	if c != nil {
		raw, ok, err := c.Get(ctx, key)
		switch {
		case err != nil:
			metrics.CacheError(c.Name())
			slog.WarnContext(ctx, "cache get failed", "driver", c.Name(), "key", key, "err", err)
		case ok:
			var v T
			if err := json.Unmarshal(raw, &v); err == nil {
				metrics.CacheHit(c.Name())
				return v, nil
			}
			slog.WarnContext(ctx, "cache entry undecodable, recomputing", "driver", c.Name(), "key", key)
		default:
			metrics.CacheMiss(c.Name())
		}
	}

	v, err := compute(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	if c != nil {
		raw, err := json.Marshal(v)
		if err != nil {
			slog.WarnContext(ctx, "cache encode failed", "key", key, "err", err)
			return v, nil
		}
		if err := c.Set(ctx, key, raw, opts); err != nil {
			metrics.CacheError(c.Name())
			slog.WarnContext(ctx, "cache set failed", "driver", c.Name(), "key", key, "err", err)
		}
	}
	return v, nil
}

// deadlines converts opts into the absolute deadline and the first expiry.
// A zero time means "no deadline".
func deadlines(now time.Time, opts Options) (absolute, expires time.Time) {
	if opts.TTL > 0 {
		absolute = now.Add(opts.TTL)
	}
	expires = absolute
	if opts.Sliding > 0 {
		slide := now.Add(opts.Sliding)
		if absolute.IsZero() || slide.Before(absolute) {
			expires = slide
		}
	}
	return absolute, expires
}

// slide computes the next expiry after a hit.
func slide(now time.Time, sliding time.Duration, absolute time.Time) time.Time {
	next := now.Add(sliding)
	if !absolute.IsZero() && next.After(absolute) {
		return absolute
	}
	return next
}
