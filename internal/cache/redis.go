package cache

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"appgambit/internal/metrics"
)

const (
	fieldValue    = "v"
	fieldAbsolute = "abs"   // unix nanos, 0 = none
	fieldSliding  = "slide" // nanoseconds, 0 = none
)

// RedisCache stores each entry as a hash holding the value and its expiry
// policy, so a hit can extend a sliding window without extending past TTL.
type RedisCache struct {
	client    redis.UniversalClient
	namespace string
	now       func() time.Time
}

type RedisOption func(*RedisCache)

// WithRedisClock overrides time.Now, for tests.
func WithRedisClock(now func() time.Time) RedisOption {
	return func(r *RedisCache) { r.now = now }
}

func NewRedisCache(client redis.UniversalClient, namespace string, opts ...RedisOption) *RedisCache {
	namespace = strings.TrimSpace(namespace)
	if namespace == "" {
		namespace = "appgambit:cache"
	}
	r := &RedisCache{client: client, namespace: namespace + ":", now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// OpenRedis connects using a redis:// URL and verifies the connection.
func OpenRedis(ctx context.Context, url, password string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if password != "" {
		opts.Password = password
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

func (r *RedisCache) Name() string { return "redis" }

func (r *RedisCache) key(k string) string { return r.namespace + k }

func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	k := r.key(key)
	vals, err := r.client.HMGet(ctx, k, fieldValue, fieldAbsolute, fieldSliding).Result()
	if err != nil {
		return nil, false, fmt.Errorf("redis hmget: %w", err)
	}
	raw, ok := vals[0].(string)
	if !ok {
		return nil, false, nil
	}

	sliding := parseNanos(vals[2])
	if sliding > 0 {
		var absolute time.Time
		if abs := parseNanos(vals[1]); abs > 0 {
			absolute = time.Unix(0, abs)
		}
		now := r.now()
		ttl := slide(now, time.Duration(sliding), absolute).Sub(now)
		if ttl <= 0 {
			r.client.Del(ctx, k)
			return nil, false, nil
		}
		if err := r.client.PExpire(ctx, k, ttl).Err(); err != nil {
			return nil, false, fmt.Errorf("redis pexpire: %w", err)
		}
	}
	return []byte(raw), true, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, value []byte, opts Options) error {
	now := r.now()
	absolute, expires := deadlines(now, opts)

	var abs int64
	if !absolute.IsZero() {
		abs = absolute.UnixNano()
	}

	k := r.key(key)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, k)
		pipe.HSet(ctx, k, map[string]any{
			fieldValue:    value,
			fieldAbsolute: abs,
			fieldSliding:  int64(opts.Sliding),
		})
		if !expires.IsZero() {
			pipe.PExpire(ctx, k, expires.Sub(now))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (r *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, 0, len(keys))
	for _, k := range keys {
		full = append(full, r.key(k))
	}
	if err := r.client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	metrics.CacheInvalidation(r.Name())
	return nil
}

// DeletePrefix scans for matching keys; SCAN keeps Redis responsive on large keyspaces.
func (r *RedisCache) DeletePrefix(ctx context.Context, prefix string) error {
	pattern := escapeGlob(r.key(prefix)) + "*"
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, pattern, 200).Result()
		if err != nil {
			return fmt.Errorf("redis scan: %w", err)
		}
		if len(keys) > 0 {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("redis del: %w", err)
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	metrics.CacheInvalidation(r.Name())
	return nil
}

func parseNanos(v any) int64 {
	s, ok := v.(string)
	if !ok {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteRune('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
