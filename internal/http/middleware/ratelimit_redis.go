// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements a fixed-window rate limiter backed by Redis, used when
// several API replicas must share one budget per caller. Each window is a
// single counter key: INCR on every request, PEXPIRE when the key is created.
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

var redisFixedWindowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return current
`)

// RedisRateLimiter allows limit requests per key per window.
type RedisRateLimiter struct {
	limit  int
	window time.Duration
	prefix string
	keyFn  keyFunc

	// counter increments key and returns its value within the window.
	counter func(ctx context.Context, key string, window time.Duration) (int64, error)
}

// NewRedisRateLimiter builds a limiter on rdb. Non-positive limit and window
// default to 60 requests per minute; an empty prefix defaults to "rl".
func NewRedisRateLimiter(rdb redis.Scripter, limit int, window time.Duration, prefix string, keyFn keyFunc) *RedisRateLimiter {
	if limit <= 0 {
		limit = 60
	}
	if window <= 0 {
		window = time.Minute
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "rl"
	}
	if keyFn == nil {
		keyFn = KeyByUserOrIP()
	}
	return &RedisRateLimiter{
		limit:  limit,
		window: window,
		prefix: prefix,
		keyFn:  keyFn,
		counter: func(ctx context.Context, key string, window time.Duration) (int64, error) {
			res, err := redisFixedWindowScript.Run(ctx, rdb, []string{key}, window.Milliseconds()).Result()
			if err != nil {
				return 0, err
			}
			return scriptCount(res)
		},
	}
}

// Handler enforces the limit. Idempotent replays bypass it like the
// in-memory limiter. When Redis is unreachable the request proceeds if
// failOpen is set and gets 503 otherwise.
func (rl *RedisRateLimiter) Handler(failOpen bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsRateBypass(c) {
			c.Next()
			return
		}

		key := rl.prefix + ":" + rl.keyFn(c)
		count, err := rl.counter(c.Request.Context(), key, rl.window)
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("redis rate limiter error")
			if failOpen {
				c.Next()
				return
			}
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"request_id": c.Writer.Header().Get("X-Request-ID"),
				"code":       "rate_limiter_unavailable",
				"message":    "rate limiter unavailable",
				"error":      "rate limiter unavailable",
			})
			return
		}
		if count > int64(rl.limit) {
			tooManyRequests(c, "redis", rl.window)
			return
		}
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(int64(rl.limit)-count, 10))
		c.Next()
	}
}

// scriptCount normalizes the Lua reply, which go-redis may surface as int64,
// int or string depending on the server and protocol version.
func scriptCount(res any) (int64, error) {
	switch v := res.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case string:
		return strconv.ParseInt(v, 10, 64)
	default:
		return 0, fmt.Errorf("unexpected redis script result type %T", res)
	}
}
