// Package ratelimit bounds how many issues a user may submit per window.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Limiter struct {
	client *redis.Client
	prefix string
	limit  int
	window time.Duration
}

func New(client *redis.Client, prefix string, limit int, window time.Duration) *Limiter {
	return &Limiter{client: client, prefix: prefix, limit: limit, window: window}
}

// Allow counts one attempt for the user. The TTL is set on the first attempt
// of a window, so the window is fixed, not sliding.
func (l *Limiter) Allow(ctx context.Context, userID string) (bool, time.Duration, error) {
	key := l.prefix + ":" + userID

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return false, 0, fmt.Errorf("increment rate count: %w", err)
	}
	if count == 1 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			return false, 0, fmt.Errorf("set rate ttl: %w", err)
		}
	}
	if count > int64(l.limit) {
		retryAfter, err := l.client.TTL(ctx, key).Result()
		if err != nil {
			return false, 0, fmt.Errorf("read rate ttl: %w", err)
		}
		return false, retryAfter, nil
	}
	return true, 0, nil
}
