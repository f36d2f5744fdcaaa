package ratelimiter

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/smsgate/pkg/clock"
)

// consumeScript mirrors MemoryStore.ConsumeTokens so that refill and
// deduction happen atomically on the server.
//
// KEYS[1] bucket key
// ARGV: capacity, refill rate, interval ms, now ms, requested tokens, ttl ms
var consumeScript = redis.NewScript(`
local capacity = tonumber(ARGV[1])
local rate = tonumber(ARGV[2])
local interval = tonumber(ARGV[3])
local now = tonumber(ARGV[4])
local requested = tonumber(ARGV[5])
local ttl = tonumber(ARGV[6])

local state = redis.call('HMGET', KEYS[1], 'tokens', 'ts')
local tokens = tonumber(state[1])
local ts = tonumber(state[2])
if tokens == nil or ts == nil then
	tokens = capacity
	ts = now
end

local elapsed = now - ts
if elapsed >= interval then
	local intervals = math.min(math.floor(elapsed / interval), math.floor(capacity / rate) + 1)
	tokens = math.min(tokens + intervals * rate, capacity)
	if tokens == capacity then
		ts = now
	else
		ts = ts + intervals * interval
	end
end

local remaining = tokens - requested
if remaining >= 0 then
	tokens = remaining
end

redis.call('HSET', KEYS[1], 'tokens', tokens, 'ts', ts)
redis.call('PEXPIRE', KEYS[1], ttl)

return {remaining, ts + interval}
`)

const defaultRedisKeyPrefix = "ratelimit:"

// RedisStore implements Store on Redis so that every instance behind a load
// balancer shares the same per-key budget.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	clock  clock.Clock
}

// RedisStoreOption configures a RedisStore.
type RedisStoreOption func(*RedisStore)

// WithKeyPrefix overrides the "ratelimit:" key prefix.
func WithKeyPrefix(prefix string) RedisStoreOption {
	return func(rs *RedisStore) {
		rs.prefix = prefix
	}
}

// WithRedisClock sets the time source used for refill timestamps.
func WithRedisClock(c clock.Clock) RedisStoreOption {
	return func(rs *RedisStore) {
		rs.clock = c
	}
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(client redis.UniversalClient, opts ...RedisStoreOption) *RedisStore {
	rs := &RedisStore{
		client: client,
		prefix: defaultRedisKeyPrefix,
		clock:  clock.Real(),
	}
	for _, opt := range opts {
		opt(rs)
	}
	return rs
}

// ConsumeTokens runs the refill-and-consume script for key.
func (rs *RedisStore) ConsumeTokens(ctx context.Context, key string, tokens int, config Config) (int, time.Time, error) {
	intervalMs := config.RefillInterval.Milliseconds()
	if intervalMs <= 0 {
		return 0, time.Time{}, fmt.Errorf("%w: refill interval must be at least 1ms", ErrInvalidConfig)
	}

	fullRefill := int64(config.Capacity/config.RefillRate+1) * intervalMs
	res, err := consumeScript.Run(ctx, rs.client, []string{rs.prefix + key},
		config.Capacity,
		config.RefillRate,
		intervalMs,
		rs.clock.Now().UnixMilli(),
		tokens,
		fullRefill+intervalMs,
	).Int64Slice()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	if len(res) != 2 {
		return 0, time.Time{}, fmt.Errorf("%w: unexpected script reply %v", ErrStoreUnavailable, res)
	}

	return int(res[0]), time.UnixMilli(res[1]), nil
}

func (rs *RedisStore) Reset(ctx context.Context, key string) error {
	if err := rs.client.Del(ctx, rs.prefix+key).Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return nil
}
