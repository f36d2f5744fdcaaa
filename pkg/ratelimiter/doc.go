// Package ratelimiter provides the two token buckets used by the gateway.
//
// # Outbound send limiter
//
// TokenBucket is a single, process-wide bucket with fractional tokens and
// lazy refill. It keeps outbound sends under the carrier's throughput limit:
//
//	limiter, err := ratelimiter.NewTokenBucket(ratelimiter.DefaultTokenBucketConfig())
//	if err != nil {
//		return err
//	}
//	if err := limiter.Acquire(ctx); err != nil {
//		return err // ctx done
//	}
//
// TryAcquire never blocks, Available reports whole tokens after refill.
// Acquire retries every ceil(1000/refillRate) milliseconds and has no
// timeout of its own; bound it with the context.
//
// # Keyed ingestion limiter
//
// Bucket tracks one bucket per key over a Store. It throttles inbound webhook
// traffic per client address:
//
//	store := ratelimiter.NewMemoryStore()
//	defer store.Close()
//
//	limiter, err := ratelimiter.NewBucket(store, ratelimiter.Config{
//		Capacity:       60,
//		RefillRate:     60,
//		RefillInterval: time.Minute,
//	})
//
//	r.Use(ratelimiter.Middleware(limiter, clientip.GetIP))
//
// MemoryStore keeps state in process and removes buckets idle for an hour.
// RedisStore runs the same algorithm in a Lua script so that all instances
// share one budget per key.
//
// The middleware sets X-RateLimit-Limit, X-RateLimit-Remaining and
// X-RateLimit-Reset on checked responses and answers 429 with Retry-After
// when the bucket is empty.
package ratelimiter
