package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisLimiter_Allow(t *testing.T) {
	mr, client := newTestRedis(t)
	limiter := NewRedisPolicyLimiter(client, AuthPolicy)
	ctx := context.Background()

	for i := 0; i < AuthPolicy.Rate; i++ {
		res, err := limiter.Allow(ctx, "203.0.113.9")
		require.NoError(t, err)
		assert.True(t, res.Allowed, "request %d", i+1)
		assert.Equal(t, AuthPolicy.Rate-i-1, res.Remaining)
	}

	res, err := limiter.Allow(ctx, "203.0.113.9")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)

	assert.True(t, mr.Exists("ratelimit:auth:203.0.113.9"))
	assert.Equal(t, 15*time.Minute, mr.TTL("ratelimit:auth:203.0.113.9"))
}

func TestRedisLimiter_WindowExpires(t *testing.T) {
	mr, client := newTestRedis(t)
	limiter := NewRedisPolicyLimiter(client, ForgotPasswordPolicy)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := limiter.Allow(ctx, "k")
		require.NoError(t, err)
	}
	res, err := limiter.Allow(ctx, "k")
	require.NoError(t, err)
	assert.False(t, res.Allowed)

	mr.FastForward(time.Hour + time.Second)

	res, err = limiter.Allow(ctx, "k")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 2, res.Remaining)
}

func TestRedisLimiter_ResetAndIsolation(t *testing.T) {
	_, client := newTestRedis(t)
	auth := NewRedisPolicyLimiter(client, Policy{Name: "auth", Rate: 1, Window: time.Minute})
	forgot := NewRedisPolicyLimiter(client, Policy{Name: "forgot", Rate: 1, Window: time.Minute})
	ctx := context.Background()

	_, err := auth.Allow(ctx, "ip")
	require.NoError(t, err)

	res, err := forgot.Allow(ctx, "ip")
	require.NoError(t, err)
	assert.True(t, res.Allowed, "policies must not share counters")

	res, err = auth.Allow(ctx, "ip")
	require.NoError(t, err)
	assert.False(t, res.Allowed)

	require.NoError(t, auth.Reset(ctx, "ip"))
	res, err = auth.Allow(ctx, "ip")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestRedisLimiter_ConnectionError(t *testing.T) {
	mr, client := newTestRedis(t)
	limiter := NewRedisLimiter(&RedisConfig{Client: client, Rate: 1, Window: time.Minute})
	mr.Close()

	_, err := limiter.Allow(context.Background(), "k")
	assert.Error(t, err)
}
