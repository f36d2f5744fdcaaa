package ratelimiter

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/dmitrymomot/smsgate/pkg/clock"
)

// TokenBucket is a single shared bucket with fractional tokens and lazy
// refill. It admits outbound sends so the process stays under the
// provider's throughput limit.
//
// Waiters in Acquire are not queued: whichever caller takes the lock after
// a refill gets the token.
type TokenBucket struct {
	mu         sync.Mutex
	tokens     float64
	lastRefill time.Time

	maxTokens  int
	refillRate float64 // tokens per second
	wait       time.Duration
	clock      clock.Clock
}

// TokenBucketOption configures a TokenBucket.
type TokenBucketOption func(*TokenBucket)

// WithClock sets the time source.
func WithClock(c clock.Clock) TokenBucketOption {
	return func(tb *TokenBucket) {
		tb.clock = c
	}
}

// NewTokenBucket creates a full bucket.
func NewTokenBucket(cfg TokenBucketConfig, opts ...TokenBucketOption) (*TokenBucket, error) {
	if cfg.MaxTokens <= 0 {
		return nil, fmt.Errorf("%w: max tokens must be positive, got %d", ErrInvalidConfig, cfg.MaxTokens)
	}
	if cfg.RefillRate < 0 || math.IsNaN(cfg.RefillRate) || math.IsInf(cfg.RefillRate, 0) {
		return nil, fmt.Errorf("%w: refill rate must be a non-negative number, got %v", ErrInvalidConfig, cfg.RefillRate)
	}

	tb := &TokenBucket{
		maxTokens:  cfg.MaxTokens,
		refillRate: cfg.RefillRate,
		tokens:     float64(cfg.MaxTokens),
		clock:      clock.Real(),
	}
	for _, opt := range opts {
		opt(tb)
	}

	if cfg.RefillRate > 0 {
		tb.wait = time.Duration(math.Ceil(1000/cfg.RefillRate)) * time.Millisecond
	}
	tb.lastRefill = tb.clock.Now()

	return tb, nil
}

// TryAcquire takes one token if a whole token is available.
func (tb *TokenBucket) TryAcquire() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()
	if tb.tokens < 1 {
		return false
	}
	tb.tokens--
	return true
}

// Acquire blocks until a token is taken or ctx is done. Between attempts it
// waits ceil(1000/refillRate) milliseconds. With a zero refill rate it can
// only return through ctx.
func (tb *TokenBucket) Acquire(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if tb.TryAcquire() {
			return nil
		}

		var tick <-chan time.Time
		if tb.wait > 0 {
			tick = tb.clock.After(tb.wait)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick:
		}
	}
}

// Available returns the number of whole tokens after refilling.
func (tb *TokenBucket) Available() int {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()
	return int(math.Floor(tb.tokens))
}

// WaitInterval returns the pause between Acquire attempts.
func (tb *TokenBucket) WaitInterval() time.Duration {
	return tb.wait
}

// refill must be called with tb.mu held.
func (tb *TokenBucket) refill() {
	now := tb.clock.Now()
	elapsed := now.Sub(tb.lastRefill).Seconds()
	if elapsed > 0 {
		tb.tokens = math.Min(float64(tb.maxTokens), tb.tokens+elapsed*tb.refillRate)
	}
	tb.lastRefill = now
}
