package otpinfra

import (
	"context"
	"time"

	"github.com/RafalW3bCraft/garage-management-system-sub003/pkg/errx"
	"github.com/redis/go-redis/v9"
)

const rateLimitPrefix = "otp:rl:"

// RedisRateLimiter is the Redis implementation of otp.RateLimiter. The
// increment and window-expiry run in one transaction, so concurrent
// requests each see a distinct count.
type RedisRateLimiter struct {
	rdb *redis.Client
}

// NewRedisRateLimiter creates a rate limiter on the given client.
func NewRedisRateLimiter(rdb *redis.Client) *RedisRateLimiter {
	return &RedisRateLimiter{rdb: rdb}
}

// Hit atomically increments the counter for key, starting the window on
// the first hit, and returns the new count plus the window reset time.
func (l *RedisRateLimiter) Hit(ctx context.Context, key string, window time.Duration) (int64, time.Time, error) {
	fullKey := rateLimitPrefix + key

	pipe := l.rdb.TxPipeline()
	incr := pipe.Incr(ctx, fullKey)
	// NX keeps the original window start when the key already exists.
	pipe.ExpireNX(ctx, fullKey, window)
	ttl := pipe.TTL(ctx, fullKey)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, time.Time{}, errx.Wrap(err, "failed to hit OTP rate limit counter", errx.TypeInternal).
			WithDetail("key", key)
	}

	remaining := ttl.Val()
	if remaining < 0 {
		remaining = window
	}
	return incr.Val(), time.Now().Add(remaining), nil
}
