// Package redis opens go-redis clients with startup retries and provides a
// readiness check. The ingress rate limiter keeps its buckets here when
// INGRESS_RATE_STORE=redis.
package redis
