package ratelimiter

import (
	"context"
	"time"
)

// Store defines the interface for keyed rate limit storage backends.
type Store interface {
	// ConsumeTokens refills the bucket for key and takes the given number of
	// tokens if they are available. A denied request leaves the bucket
	// untouched and reports a negative remaining count.
	ConsumeTokens(ctx context.Context, key string, tokens int, config Config) (remaining int, resetAt time.Time, err error)

	// Reset clears the rate limit state for the given key.
	Reset(ctx context.Context, key string) error
}
