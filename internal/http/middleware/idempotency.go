// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements Idempotency-Key handling for unsafe methods. The
// validator checks the header, stashes the key, and asks a lookup whether the
// caller already completed the same operation with it. A hit is stashed as a
// Replay for the handler to serve and exempts the request from rate limiting.
package middleware

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey carries the client's key for an unsafe request.
const HeaderIdempotencyKey = "Idempotency-Key"

// HeaderIdempotencyReplayed is set to "true" on a response that returns the
// resource created by an earlier request with the same key.
const HeaderIdempotencyReplayed = "Idempotency-Replayed"

const defaultIdempotencyKeyLen = 200

const (
	ctxKeyIdemKey    = "idem.key"
	ctxKeyIdemReplay = "idem.replay"
	ctxKeyRateBypass = "rate.bypass"
)

var idempotencyKeyRE = regexp.MustCompile(`^[A-Za-z0-9._~:-]+$`)

// Replay is the stored outcome of an earlier request.
type Replay struct {
	ResourceID string
	Status     int
}

// IdempotencyLookup returns the stored outcome for (userID, scope, key) if it
// has not expired at now, or nil when there is none.
type IdempotencyLookup func(ctx context.Context, userID, scope, key string, now time.Time) (*Replay, error)

// IdempotencyOptions configures IdempotencyValidator.
type IdempotencyOptions struct {
	// MaxLen caps the key length. Defaults to 200.
	MaxLen int
	// Now is the lookup time. Defaults to time.Now in UTC.
	Now func() time.Time
}

// GetIdempotencyKey returns the key stashed by IdempotencyValidator.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxKeyIdemKey)
	if !ok {
		return "", false
	}
	s, _ := v.(string)
	return s, s != ""
}

// ReplayOf returns the earlier outcome found for this request's key.
func ReplayOf(c *gin.Context) (Replay, bool) {
	v, ok := c.Get(ctxKeyIdemReplay)
	if !ok {
		return Replay{}, false
	}
	r, ok := v.(Replay)
	return r, ok
}

// IdempotencyScope names the operation a key belongs to: the method and the
// matched route pattern, e.g. "POST /api/v1/appointments". The same key sent
// to two different operations never collides.
func IdempotencyScope(c *gin.Context) string {
	path := c.FullPath()
	if path == "" && c.Request != nil {
		path = c.Request.URL.Path
	}
	method := ""
	if c.Request != nil {
		method = c.Request.Method
	}
	return method + " " + path
}

// IdempotencyValidator handles Idempotency-Key on POST, PUT, PATCH and DELETE;
// safe methods ignore it. A malformed key is rejected with 400
// bad_idempotency_key. Lookup runs only for authenticated callers, so mount
// it after Authenticate. A failed lookup is logged and the request proceeds
// as a first attempt.
func IdempotencyValidator(opts IdempotencyOptions, lookup IdempotencyLookup) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = defaultIdempotencyKeyLen
	}
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}

	return func(c *gin.Context) {
		if !unsafeMethod(c.Request.Method) {
			c.Next()
			return
		}
		key := strings.TrimSpace(c.GetHeader(HeaderIdempotencyKey))
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxLen || !idempotencyKeyRE.MatchString(key) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"request_id": c.Writer.Header().Get(requestIDHeader),
				"code":       "bad_idempotency_key",
				"message":    "invalid Idempotency-Key",
				"error":      "invalid Idempotency-Key",
			})
			return
		}
		c.Set(ctxKeyIdemKey, key)

		if uid := UserID(c); lookup != nil && uid != "" {
			rep, err := lookup(c.Request.Context(), uid, IdempotencyScope(c), key, now())
			switch {
			case err != nil:
				LoggerFrom(c).Warn().Err(err).Msg("idempotency lookup failed")
			case rep != nil:
				c.Set(ctxKeyIdemReplay, *rep)
				c.Set(ctxKeyRateBypass, true)
			}
		}
		c.Next()
	}
}

func unsafeMethod(m string) bool {
	switch m {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}
