package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const rateLimitPrefix = "ratelimit:"

// incrWithExpiry increments the window counter and sets its expiry on first use.
var incrWithExpiry = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

// RateLimiter is a fixed-window request counter held in Redis.
type RateLimiter struct {
	client redis.UniversalClient
	now    func() time.Time
}

// NewRateLimiter creates a Redis backed rate limiter.
func NewRateLimiter(client redis.UniversalClient) *RateLimiter {
	return &RateLimiter{client: client, now: time.Now}
}

// Allow records one request for key in the current window.
func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, int, error) {
	if window <= 0 {
		return false, 0, fmt.Errorf("rate limit window must be positive")
	}
	bucket := r.now().UnixNano() / int64(window)
	redisKey := fmt.Sprintf("%s%s:%d", rateLimitPrefix, key, bucket)

	n, err := incrWithExpiry.Run(ctx, r.client, []string{redisKey}, window.Milliseconds()).Int()
	if err != nil {
		return false, 0, fmt.Errorf("rate limit %s: %w", key, err)
	}

	remaining := limit - n
	if remaining < 0 {
		remaining = 0
	}
	return n <= limit, remaining, nil
}
