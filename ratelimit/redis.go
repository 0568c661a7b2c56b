package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// fixedWindowScript counts one hit and starts the window on the first one.
// Returns {count, remaining window in ms}.
var fixedWindowScript = redis.NewScript(`
	local count = redis.call('INCR', KEYS[1])
	if count == 1 then
		redis.call('PEXPIRE', KEYS[1], ARGV[1])
	end
	local ttl = redis.call('PTTL', KEYS[1])
	if ttl < 0 then
		redis.call('PEXPIRE', KEYS[1], ARGV[1])
		ttl = tonumber(ARGV[1])
	end
	return {count, ttl}
`)

// RedisLimiter is a Redis-backed fixed window limiter shared by every
// process pointing at the same Redis.
type RedisLimiter struct {
	client    redis.Cmdable
	keyPrefix string
	rate      int
	window    time.Duration
	now       func() time.Time
}

// RedisConfig holds Redis rate limiter configuration.
type RedisConfig struct {
	// Client is the Redis client to use.
	Client redis.Cmdable

	// KeyPrefix is the prefix for all rate limit keys.
	// Defaults to "ratelimit:".
	KeyPrefix string

	// Rate is the number of requests allowed per window.
	Rate int

	// Window is the time window for the rate limit.
	Window time.Duration
}

// NewRedisLimiter creates a new Redis-backed rate limiter.
func NewRedisLimiter(cfg *RedisConfig) *RedisLimiter {
	keyPrefix := cfg.KeyPrefix
	if keyPrefix == "" {
		keyPrefix = "ratelimit:"
	}

	return &RedisLimiter{
		client:    cfg.Client,
		keyPrefix: keyPrefix,
		rate:      cfg.Rate,
		window:    cfg.Window,
		now:       time.Now,
	}
}

// NewRedisPolicyLimiter creates a Redis limiter for p with keys under
// "ratelimit:<policy>:".
func NewRedisPolicyLimiter(client redis.Cmdable, p Policy) *RedisLimiter {
	return NewRedisLimiter(&RedisConfig{
		Client:    client,
		KeyPrefix: "ratelimit:" + p.Name + ":",
		Rate:      p.Rate,
		Window:    p.Window,
	})
}

// Allow counts one hit for key.
func (r *RedisLimiter) Allow(ctx context.Context, key string) (*Result, error) {
	vals, err := fixedWindowScript.Run(ctx, r.client, []string{r.keyPrefix + key}, r.window.Milliseconds()).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("redis rate limit script failed: %w", err)
	}
	if len(vals) != 2 {
		return nil, fmt.Errorf("redis rate limit script returned %d values", len(vals))
	}

	resetAt := r.now().Add(time.Duration(vals[1]) * time.Millisecond)
	return newResult(int(vals[0]), r.rate, resetAt), nil
}

// Reset resets the rate limit for the given key.
func (r *RedisLimiter) Reset(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.keyPrefix+key).Err()
}

// Close is a no-op for Redis limiter as the client is managed externally.
func (r *RedisLimiter) Close() error {
	return nil
}

var _ Limiter = (*RedisLimiter)(nil)
