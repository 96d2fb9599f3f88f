package cache

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"appgambit/internal/metrics"
)

type memoryEntry struct {
	value    []byte
	absolute time.Time
	sliding  time.Duration
	expires  atomic.Int64 // unix nanos, 0 = never
}

// MemoryCache is a size-bounded in-process LRU with per-entry expiry.
type MemoryCache struct {
	entries *lru.Cache[string, *memoryEntry]
	now     func() time.Time
}

type MemoryOption func(*MemoryCache)

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *MemoryCache) { m.now = now }
}

func NewMemoryCache(size int, opts ...MemoryOption) (*MemoryCache, error) {
	entries, err := lru.New[string, *memoryEntry](size)
	if err != nil {
		return nil, fmt.Errorf("create lru cache: %w", err)
	}
	m := &MemoryCache{entries: entries, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

func (m *MemoryCache) Name() string { return "memory" }

func (m *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	e, ok := m.entries.Get(key)
	if !ok {
		return nil, false, nil
	}
	now := m.now()
	if exp := e.expires.Load(); exp != 0 && now.UnixNano() >= exp {
		m.entries.Remove(key)
		return nil, false, nil
	}
	if e.sliding > 0 {
		e.expires.Store(slide(now, e.sliding, e.absolute).UnixNano())
	}
	return e.value, true, nil
}

func (m *MemoryCache) Set(_ context.Context, key string, value []byte, opts Options) error {
	absolute, expires := deadlines(m.now(), opts)
	e := &memoryEntry{value: value, absolute: absolute, sliding: opts.Sliding}
	if !expires.IsZero() {
		e.expires.Store(expires.UnixNano())
	}
	m.entries.Add(key, e)
	return nil
}

func (m *MemoryCache) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		m.entries.Remove(k)
	}
	metrics.CacheInvalidation(m.Name())
	return nil
}

func (m *MemoryCache) DeletePrefix(_ context.Context, prefix string) error {
	for _, k := range m.entries.Keys() {
		if strings.HasPrefix(k, prefix) {
			m.entries.Remove(k)
		}
	}
	metrics.CacheInvalidation(m.Name())
	return nil
}

// Len reports the number of stored entries, expired ones included until touched.
func (m *MemoryCache) Len() int {
	return m.entries.Len()
}
