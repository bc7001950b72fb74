package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const rateLimitKeyPrefix = "rl:"

// FixedWindowLimiter counts requests per key in fixed windows. The window
// start is part of the Redis key, the TTL only garbage-collects old windows.
type FixedWindowLimiter struct {
	client redis.UniversalClient
	limit  int
	window time.Duration
}

func NewFixedWindowLimiter(client redis.UniversalClient, limit int, window time.Duration) *FixedWindowLimiter {
	return &FixedWindowLimiter{client: client, limit: limit, window: window}
}

// Allow records one hit for key and reports whether it is within the limit,
// plus how long until the current window resets.
func (l *FixedWindowLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	windowStart := time.Now().Truncate(l.window)
	redisKey := fmt.Sprintf("%s%s:%d", rateLimitKeyPrefix, key, windowStart.Unix())

	var incr *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, redisKey)
		pipe.Expire(ctx, redisKey, l.window)
		return nil
	})
	if err != nil {
		return false, 0, fmt.Errorf("rate limit %s: %w", key, err)
	}

	retryAfter := time.Until(windowStart.Add(l.window))
	return incr.Val() <= int64(l.limit), retryAfter, nil
}
