package ratelimiter

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrymomot/smsgate/pkg/clock"
)

type bucket struct {
	tokens     int
	lastRefill time.Time
	lastAccess time.Time // Used by cleanup to identify stale buckets
}

// MemoryStore implements Store using in-process maps. Suitable for a single
// instance; use RedisStore when several instances share one limit.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	clock   clock.Clock

	cleanupInterval time.Duration
	staleAfter      time.Duration
	stopCleanup     chan struct{}
	closeOnce       sync.Once
}

// MemoryStoreOption configures a MemoryStore.
type MemoryStoreOption func(*MemoryStore)

// WithCleanupInterval sets the cleanup interval for removing stale buckets.
// Set to 0 to disable automatic cleanup.
func WithCleanupInterval(interval time.Duration) MemoryStoreOption {
	return func(ms *MemoryStore) {
		ms.cleanupInterval = interval
	}
}

// WithMemoryClock sets the time source, mostly for tests.
func WithMemoryClock(c clock.Clock) MemoryStoreOption {
	return func(ms *MemoryStore) {
		ms.clock = c
	}
}

// NewMemoryStore creates a new in-memory store with optional cleanup.
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	ms := &MemoryStore{
		buckets:         make(map[string]*bucket),
		clock:           clock.Real(),
		cleanupInterval: 5 * time.Minute,
		staleAfter:      time.Hour,
		stopCleanup:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(ms)
	}

	if ms.cleanupInterval > 0 {
		go ms.cleanup()
	}

	return ms
}

// ConsumeTokens attempts to consume tokens from the bucket.
func (ms *MemoryStore) ConsumeTokens(_ context.Context, key string, tokens int, config Config) (int, time.Time, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := ms.clock.Now()
	b, exists := ms.buckets[key]
	if !exists {
		b = &bucket{tokens: config.Capacity, lastRefill: now}
		ms.buckets[key] = b
	}

	b.tokens, b.lastRefill = refill(b.tokens, b.lastRefill, now, config)
	b.lastAccess = now

	remaining := b.tokens - tokens
	if remaining >= 0 {
		b.tokens = remaining
	}

	return remaining, b.lastRefill.Add(config.RefillInterval), nil
}

func (ms *MemoryStore) Reset(_ context.Context, key string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	delete(ms.buckets, key)
	return nil
}

// Len returns the number of tracked keys.
func (ms *MemoryStore) Len() int {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return len(ms.buckets)
}

func (ms *MemoryStore) cleanup() {
	ticker := ms.clock.NewTicker(ms.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ms.removeStale()
		case <-ms.stopCleanup:
			return
		}
	}
}

func (ms *MemoryStore) removeStale() {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := ms.clock.Now()
	for key, b := range ms.buckets {
		if now.Sub(b.lastAccess) > ms.staleAfter {
			delete(ms.buckets, key)
		}
	}
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (ms *MemoryStore) Close() {
	ms.closeOnce.Do(func() { close(ms.stopCleanup) })
}

// refill adds the tokens earned by whole intervals since last. The refill
// timestamp advances by whole intervals so partial progress is kept, and
// snaps to now once the bucket is full.
func refill(tokens int, last, now time.Time, config Config) (int, time.Time) {
	elapsed := now.Sub(last)
	if elapsed < config.RefillInterval {
		return tokens, last
	}

	// Cap intervals to avoid overflow on long idle periods.
	maxIntervals := int64(config.Capacity/config.RefillRate + 1)
	intervals := min(int64(elapsed/config.RefillInterval), maxIntervals)

	tokens = min(tokens+int(intervals)*config.RefillRate, config.Capacity)
	if tokens == config.Capacity {
		return tokens, now
	}
	return tokens, last.Add(time.Duration(intervals) * config.RefillInterval)
}
