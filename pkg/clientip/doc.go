// Package clientip resolves the address of the caller behind reverse
// proxies. Only headers listed in Config are trusted; the TCP peer address
// is the fallback. The ingress rate limiter keys its buckets with
// Resolver.Key.
package clientip
