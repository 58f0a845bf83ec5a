package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// LoginLimiter enforces a fixed-window attempt budget per client IP, backed
// by a Redis counter scoped to the current window.
type LoginLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

// NewLoginLimiter constructs a limiter allowing limit attempts per window.
func NewLoginLimiter(client *redis.Client, limit int, window time.Duration) *LoginLimiter {
	return &LoginLimiter{client: client, limit: limit, window: window}
}

// Allow consumes one attempt for ip and reports whether it still fits the
// window budget. When Redis is unreachable the attempt is allowed and the
// error returned for logging.
func (l *LoginLimiter) Allow(ctx context.Context, ip string) (bool, error) {
	window := time.Now().Unix() / int64(l.window.Seconds())
	key := fmt.Sprintf("login:rate:%s:%d", ip, window)

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return true, err
	}
	if count == 1 {
		_ = l.client.Expire(ctx, key, l.window).Err()
	}
	return count <= int64(l.limit), nil
}
