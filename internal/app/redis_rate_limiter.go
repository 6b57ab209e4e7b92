/**
 * @description
 * Redis-backed fixed-window rate limiter. A Lua script increments the
 * per-scope counter and sets its expiry atomically, so concurrent requests
 * against the same window never race the expiry.
 *
 * @dependencies
 * - github.com/redis/go-redis/v9: Redis client and script support.
 */

package app

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimitResult reports one consumption attempt against a window.
type RateLimitResult struct {
	Allowed    bool
	Remaining  int64
	RetryAfter time.Duration
}

// RateLimiter is implemented by types that can meter requests per subject.
type RateLimiter interface {
	Allow(ctx context.Context, scope, subject string, limit int64, window time.Duration) (RateLimitResult, error)
}

// rateLimitScript increments the window counter, stamping the expiry on the
// first hit, and returns the count plus the remaining window in ms.
var rateLimitScript = redis.NewScript(`
local current = redis.call('INCR', KEYS[1])
if current == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
return {current, ttl}
`)

// RedisRateLimiter meters requests with a fixed window per (scope, subject).
type RedisRateLimiter struct {
	rdb redis.UniversalClient
}

func NewRedisRateLimiter(rdb redis.UniversalClient) *RedisRateLimiter {
	return &RedisRateLimiter{rdb: rdb}
}

// Allow consumes one request from the subject's window. On Redis failure the
// request is allowed; the limiter protects capacity, it is not a gate worth
// failing closed for.
func (l *RedisRateLimiter) Allow(ctx context.Context, scope, subject string, limit int64, window time.Duration) (RateLimitResult, error) {
	key := fmt.Sprintf("ratelimit:%s:%s", scope, subject)

	res, err := rateLimitScript.Run(ctx, l.rdb, []string{key}, window.Milliseconds()).Result()
	if err != nil {
		return RateLimitResult{Allowed: true}, err
	}

	values, ok := res.([]interface{})
	if !ok || len(values) != 2 {
		return RateLimitResult{Allowed: true}, fmt.Errorf("unexpected rate limit script reply: %v", res)
	}
	current, _ := values[0].(int64)
	ttlMillis, _ := values[1].(int64)

	result := RateLimitResult{
		Allowed:   current <= limit,
		Remaining: limit - current,
	}
	if result.Remaining < 0 {
		result.Remaining = 0
	}
	if !result.Allowed && ttlMillis > 0 {
		result.RetryAfter = time.Duration(ttlMillis) * time.Millisecond
	}
	return result, nil
}

// NoopRateLimiter allows everything. Used when Redis is not configured.
type NoopRateLimiter struct{}

func (NoopRateLimiter) Allow(ctx context.Context, scope, subject string, limit int64, window time.Duration) (RateLimitResult, error) {
	return RateLimitResult{Allowed: true, Remaining: limit}, nil
}
