package ratelimiter

import "time"

// Result contains the result of a keyed rate limit check.
type Result struct {
	Limit     int       // Maximum tokens (bucket capacity)
	Remaining int       // Tokens remaining; negative when the request was denied
	ResetAt   time.Time // Time of the next refill
}

// Allowed reports whether the request fit into the bucket.
func (r *Result) Allowed() bool {
	return r.Remaining >= 0
}

// RetryAfter returns how long to wait before the next request.
// Returns 0 if the request was allowed.
func (r *Result) RetryAfter() time.Duration {
	if r.Allowed() {
		return 0
	}
	return max(0, time.Until(r.ResetAt))
}

// Config defines a keyed token bucket, used to throttle inbound webhook
// traffic per client address.
type Config struct {
	Capacity       int           `env:"INGRESS_RATE_CAPACITY" envDefault:"60"` // burst limit
	RefillRate     int           `env:"INGRESS_RATE_REFILL" envDefault:"60"`   // tokens added per interval
	RefillInterval time.Duration `env:"INGRESS_RATE_INTERVAL" envDefault:"1m"` // how often tokens are added
}

// TokenBucketConfig configures the outbound send limiter.
type TokenBucketConfig struct {
	MaxTokens  int     `env:"SMS_RATE_MAX_TOKENS" envDefault:"50"`
	RefillRate float64 `env:"SMS_RATE_REFILL_PER_SECOND" envDefault:"50"` // tokens per second
}

// DefaultTokenBucketConfig returns the default outbound limits: a burst of 50
// sends refilled at 50 per second.
func DefaultTokenBucketConfig() TokenBucketConfig {
	return TokenBucketConfig{MaxTokens: 50, RefillRate: 50}
}
