// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements the in-process token-bucket limiter used when no Redis
// is configured. Buckets are keyed per caller (user id, else client IP) and
// idle buckets are evicted opportunistically. Replays flagged by
// IdempotencyValidator never consume a token.
package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	// visitorTTL is how long an idle bucket survives.
	visitorTTL = 10 * time.Minute
	// gcEvery is the number of lookups between eviction sweeps.
	gcEvery = 5000
	// exhaustedRetryAfter is advertised when the bucket never refills (rps 0).
	exhaustedRetryAfter = time.Minute
)

// keyFunc selects the identity used to key a rate-limit bucket.
type keyFunc func(*gin.Context) string

// KeyByUserOrIP keys buckets by the authenticated caller ("user:<id>") and
// falls back to the client address ("ip:<addr>") before authentication.
func KeyByUserOrIP() keyFunc {
	return func(c *gin.Context) string {
		if uid := UserID(c); uid != "" {
			return "user:" + uid
		}
		return "ip:" + c.ClientIP()
	}
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is a per-key token-bucket limiter. Safe for concurrent use.
type RateLimiter struct {
	rps   rate.Limit
	burst int
	keyFn keyFunc

	mu       sync.Mutex
	visitors map[string]*visitor
	ttl      time.Duration
	lookups  uint64
}

// NewRateLimiter builds a limiter refilling rps tokens per second up to burst
// (coerced to at least 1).
func NewRateLimiter(rps float64, burst int, keyFn keyFunc) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		rps:      rate.Limit(rps),
		burst:    burst,
		keyFn:    keyFn,
		visitors: make(map[string]*visitor),
		ttl:      visitorTTL,
	}
}

// getVisitor returns the bucket for key, creating it if absent. Every gcEvery
// lookups it first drops buckets idle for at least ttl, so a stale bucket is
// replaced rather than refreshed.
func (rl *RateLimiter) getVisitor(key string) *rate.Limiter {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.lookups++
	if rl.lookups >= gcEvery {
		for k, v := range rl.visitors {
			if now.Sub(v.lastSeen) >= rl.ttl {
				delete(rl.visitors, k)
			}
		}
		rl.lookups = 0
	}

	if v, ok := rl.visitors[key]; ok {
		v.lastSeen = now
		return v.limiter
	}
	lim := rate.NewLimiter(rl.rps, rl.burst)
	rl.visitors[key] = &visitor{limiter: lim, lastSeen: now}
	return lim
}

// IsRateBypass reports whether IdempotencyValidator marked the request as a
// replay of a completed write.
func IsRateBypass(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyRateBypass)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// Handler enforces the limit. A rejected request gets 429 with Retry-After set
// to the time until the caller's next token.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsRateBypass(c) {
			c.Next()
			return
		}

		res := rl.getVisitor(rl.keyFn(c)).Reserve()
		if res.OK() && res.Delay() == 0 {
			c.Next()
			return
		}

		retry := exhaustedRetryAfter
		if res.OK() {
			if d := res.Delay(); d != rate.InfDuration {
				retry = d
			}
			res.Cancel()
		}
		tooManyRequests(c, "memory", retry)
	}
}

// tooManyRequests aborts with the shared 429 envelope and counts the
// rejection under limiter. Retry-After is rounded up to whole seconds.
func tooManyRequests(c *gin.Context, limiter string, retryAfter time.Duration) {
	rateLimited.WithLabelValues(limiter).Inc()
	secs := int(math.Ceil(retryAfter.Seconds()))
	if secs < 1 {
		secs = 1
	}
	c.Header("Retry-After", strconv.Itoa(secs))
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
		"request_id": c.Writer.Header().Get("X-Request-ID"),
		"code":       "rate_limited",
		"message":    "rate limit exceeded",
		"error":      "rate limit exceeded",
	})
}
