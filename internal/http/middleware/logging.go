// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file provides the request ID injector, panic recovery and the access
// log. Mount them as RequestID, then Logger (development) or RedactingLogger,
// then Recovery, so panics carry the correlation ID. Authentication runs
// later in the chain; the caller id is read when the handler returns.
package middleware

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	requestIDKey    = "requestID"
	requestIDHeader = "X-Request-ID"
	loggerKey       = "logger"

	maxRequestIDLength = 128
	maxQueryLogLength  = 2048
)

// RequestID reuses a well-formed incoming X-Request-ID or generates a UUID,
// stores it in the context and echoes it on the response. Incoming values
// longer than 128 bytes or containing anything other than letters, digits and
// ".-_:" are replaced, so they cannot forge log fields.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(requestIDHeader)
		if !validRequestID(rid) {
			rid = uuid.NewString()
		}
		c.Set(requestIDKey, rid)
		c.Writer.Header().Set(requestIDHeader, rid)
		c.Next()
	}
}

func validRequestID(s string) bool {
	if s == "" || len(s) > maxRequestIDLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		switch b := s[i]; {
		case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9':
		case b == '-' || b == '_' || b == '.' || b == ':':
		default:
			return false
		}
	}
	return true
}

// Logger writes one access line per request with client details (remote IP,
// user agent, referer) and the raw query. Use it only where logs stay local;
// RedactingLogger is the production variant.
func Logger() gin.HandlerFunc {
	return accessLog(nil)
}

// accessLog is shared by Logger and RedactingLogger. A nil scrubber logs
// request metadata as received.
func accessLog(s *scrubber) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		rid := requestIDOf(c)

		path := c.FullPath()
		if path == "" {
			path = s.scrub(c.Request.URL.Path)
		}

		scoped := log.With().
			Str("request_id", rid).
			Str("method", c.Request.Method).
			Str("path", path).
			Logger()
		c.Set(loggerKey, &scoped)

		var headers map[string]string
		if s != nil {
			headers = s.headers(c.Request.Header)
		}
		query := s.scrub(truncate(c.Request.URL.RawQuery, maxQueryLogLength))

		c.Next()

		status := c.Writer.Status()
		var ev *zerolog.Event
		switch {
		case len(c.Errors) > 0 || status >= 500:
			ev = scoped.Error()
			if len(c.Errors) > 0 {
				ev = ev.Str("errors", c.Errors.String())
			}
		case status >= 400:
			ev = scoped.Warn()
		default:
			ev = scoped.Info()
		}

		ev = ev.
			Str("user_id", UserID(c)).
			Str("query", query).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Int64("bytes_in", c.Request.ContentLength).
			Int("bytes_out", c.Writer.Size())
		if id := c.Param("id"); id != "" {
			ev = ev.Str("resource_id", id)
		}
		if c.Writer.Header().Get(HeaderIdempotencyReplayed) == "true" {
			ev = ev.Bool("replayed", true)
		}
		if s == nil {
			ev = ev.
				Str("remote_ip", c.ClientIP()).
				Str("user_agent", c.Request.UserAgent()).
				Str("referer", c.Request.Referer())
		} else {
			ev = ev.Interface("headers", headers)
		}
		ev.Msg("request")
	}
}

// Recovery turns a panic into a JSON 500 carrying the request ID, unless the
// handler already started writing, and logs the stack.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			rid := requestIDOf(c)
			log.Error().
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Str("request_id", rid).
				Msg("panic recovered")

			if c.Writer.Written() {
				c.AbortWithStatus(http.StatusInternalServerError)
				return
			}
			c.Header(requestIDHeader, rid)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"request_id": rid,
				"code":       "internal_error",
				"message":    "internal server error",
			})
		}()
		c.Next()
	}
}

// LoggerFrom returns the request-scoped logger installed by the access log,
// or the global logger when none is attached. Never nil.
func LoggerFrom(c *gin.Context) *zerolog.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if lg, ok := v.(*zerolog.Logger); ok {
			return lg
		}
	}
	l := log.With().Logger()
	return &l
}

func requestIDOf(c *gin.Context) string {
	if v, ok := c.Get(requestIDKey); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return c.Writer.Header().Get(requestIDHeader)
}

// truncate cuts s to max bytes plus an ellipsis. max <= 0 disables it.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
