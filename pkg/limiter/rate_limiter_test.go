package limiter

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func setupRedis(t *testing.T) *redis.Client {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})

	return client
}

func TestSlidingWindowLimiter(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()

	t.Run("AllowWithinLimit", func(t *testing.T) {
		limiter := NewSlidingWindowLimiter(client, 5, time.Minute)

		for i := 0; i < 5; i++ {
			allowed, err := limiter.Allow(ctx, fmt.Sprintf("user:%d", i))
			assert.NoError(t, err)
			assert.True(t, allowed, "request %d should be allowed", i+1)
		}
	})

	t.Run("RejectAfterLimit", func(t *testing.T) {
		limiter := NewSlidingWindowLimiter(client, 1, time.Minute)

		allowed, err := limiter.Allow(ctx, "user:checkout:42")
		assert.NoError(t, err)
		assert.True(t, allowed)

		allowed, err = limiter.Allow(ctx, "user:checkout:42")
		assert.NoError(t, err)
		assert.False(t, allowed, "second request should be rejected")
	})

	t.Run("KeysAreIndependent", func(t *testing.T) {
		limiter := NewSlidingWindowLimiter(client, 2, time.Minute)

		for _, key := range []string{"room:alice", "room:bob"} {
			for i := 0; i < 2; i++ {
				allowed, err := limiter.Allow(ctx, key)
				assert.NoError(t, err)
				assert.True(t, allowed)
			}
		}
	})

	t.Run("WindowSlides", func(t *testing.T) {
		limiter := NewSlidingWindowLimiter(client, 1, time.Second)

		allowed, err := limiter.Allow(ctx, "room:carol")
		assert.NoError(t, err)
		assert.True(t, allowed)

		allowed, err = limiter.Allow(ctx, "room:carol")
		assert.NoError(t, err)
		assert.False(t, allowed)

		time.Sleep(1100 * time.Millisecond)

		allowed, err = limiter.Allow(ctx, "room:carol")
		assert.NoError(t, err)
		assert.True(t, allowed, "request after window slide should be allowed")
	})
}

func TestTokenBucketLimiter(t *testing.T) {
	ctx := context.Background()

	t.Run("BurstThenReject", func(t *testing.T) {
		limiter := NewTokenBucketLimiter(rate.Limit(10), 10)

		for i := 0; i < 10; i++ {
			allowed, err := limiter.Allow(ctx, "checkout")
			assert.NoError(t, err)
			assert.True(t, allowed)
		}

		allowed, err := limiter.Allow(ctx, "checkout")
		assert.NoError(t, err)
		assert.False(t, allowed)
	})

	t.Run("AllowN", func(t *testing.T) {
		limiter := NewTokenBucketLimiter(rate.Limit(10), 10)

		allowed, err := limiter.AllowN(ctx, "checkout", 5)
		assert.NoError(t, err)
		assert.True(t, allowed)

		allowed, err = limiter.AllowN(ctx, "checkout", 5)
		assert.NoError(t, err)
		assert.True(t, allowed)

		allowed, err = limiter.AllowN(ctx, "checkout", 1)
		assert.NoError(t, err)
		assert.False(t, allowed)
	})

	t.Run("BucketIsSharedAcrossKeys", func(t *testing.T) {
		limiter := NewTokenBucketLimiter(rate.Limit(5), 5)

		// the token bucket ignores the key, all callers draw from one bucket
		for i := 0; i < 5; i++ {
			allowed, err := limiter.Allow(ctx, fmt.Sprintf("user:%d", i))
			assert.NoError(t, err)
			assert.True(t, allowed)
		}

		allowed, err := limiter.Allow(ctx, "user:99")
		assert.NoError(t, err)
		assert.False(t, allowed)
	})
}

func TestMultiDimensionLimiter(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()

	t.Run("AllowWithinAllLimits", func(t *testing.T) {
		limiter := NewMultiDimensionLimiter(client)

		allowed, err := limiter.Allow(ctx, map[string]string{
			"user": "alice",
			"ip":   "192.168.1.1",
		})
		assert.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("RejectWhenOneDimensionExceeded", func(t *testing.T) {
		limiter := NewMultiDimensionLimiter(client)
		limiter.SetLimit("user", 1, time.Minute)

		dimensions := map[string]string{
			"user": "bob",
			"ip":   "192.168.1.2",
		}

		allowed, err := limiter.Allow(ctx, dimensions)
		assert.NoError(t, err)
		assert.True(t, allowed)

		allowed, err = limiter.Allow(ctx, dimensions)
		assert.NoError(t, err)
		assert.False(t, allowed, "user dimension is exhausted")
	})

	t.Run("SetLimit", func(t *testing.T) {
		limiter := NewMultiDimensionLimiter(client)
		limiter.SetLimit("room", 1, time.Minute)

		dimensions := map[string]string{"room": "support:carol"}

		allowed, err := limiter.Allow(ctx, dimensions)
		assert.NoError(t, err)
		assert.True(t, allowed)

		allowed, err = limiter.Allow(ctx, dimensions)
		assert.NoError(t, err)
		assert.False(t, allowed)
	})

	t.Run("UnknownDimensionIgnored", func(t *testing.T) {
		limiter := NewMultiDimensionLimiter(client)

		allowed, err := limiter.Allow(ctx, map[string]string{
			"warehouse": "rotterdam",
			"user":      "dave",
		})
		assert.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("EmptyDimensions", func(t *testing.T) {
		limiter := NewMultiDimensionLimiter(client)

		allowed, err := limiter.Allow(ctx, map[string]string{})
		assert.NoError(t, err)
		assert.True(t, allowed)
	})
}

func TestRateLimiterInterface(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()

	var limiters = map[string]RateLimiter{
		"sliding_window": NewSlidingWindowLimiter(client, 5, time.Minute),
		"token_bucket":   NewTokenBucketLimiter(rate.Limit(10), 10),
	}

	for name, limiter := range limiters {
		t.Run(name, func(t *testing.T) {
			allowed, err := limiter.Allow(ctx, "user:interface")
			assert.NoError(t, err)
			assert.True(t, allowed)
		})
	}
}
