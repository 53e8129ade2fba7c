// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements caller identification. Identity is issued by an
// external service; the API only verifies it. Two sources are supported:
//   - Authorization: Bearer <jwt>, HS256, user id in the "uid" claim
//     (falling back to "sub").
//   - X-User-ID, only when explicitly enabled for development and tests.
//
// On success the user id is stored under the "userID" context key, which the
// rate limiter, idempotency validator, logger and handlers all read.
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/tbourn/go-booking-backend/internal/sysutil"
)

// ContextKeyUserID is the Gin context key holding the authenticated user id.
const ContextKeyUserID = "userID"

// HeaderUserID is the development identity header.
const HeaderUserID = "X-User-ID"

// ErrBadToken is returned by ParseToken for tokens that fail verification or
// carry no user id.
var ErrBadToken = errors.New("invalid token")

// Claims is the bearer token payload.
type Claims struct {
	UserID string `json:"uid"`
	jwt.RegisteredClaims
}

// AuthOptions configures Authenticate.
type AuthOptions struct {
	// Secret is the HS256 key. Empty disables bearer tokens.
	Secret string
	// AllowHeader trusts X-User-ID when no bearer token is sent.
	AllowHeader bool
}

// ParseToken verifies raw with secret and returns the caller's user id.
func ParseToken(raw, secret string) (string, error) {
	tok, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (any, error) {
		// block alg confusion
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrBadToken
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", err
	}
	c, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid {
		return "", ErrBadToken
	}
	uid := strings.TrimSpace(sysutil.FirstNonEmpty(c.UserID, c.Subject))
	if uid == "" {
		return "", ErrBadToken
	}
	return uid, nil
}

// Authenticate rejects requests without a verifiable identity with 401 and
// stores the user id in the context otherwise.
func Authenticate(opts AuthOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw, found := bearerToken(c); found {
			if opts.Secret == "" {
				unauthorized(c, "bearer tokens are not accepted")
				return
			}
			uid, err := ParseToken(raw, opts.Secret)
			if err != nil {
				unauthorized(c, "invalid or expired token")
				return
			}
			c.Set(ContextKeyUserID, uid)
			c.Next()
			return
		}

		if opts.AllowHeader {
			if uid := strings.TrimSpace(c.GetHeader(HeaderUserID)); uid != "" {
				c.Set(ContextKeyUserID, uid)
				c.Next()
				return
			}
		}

		unauthorized(c, "authentication required")
	}
}

// UserID returns the authenticated user id, or "" before Authenticate ran.
func UserID(c *gin.Context) string {
	if v, ok := c.Get(ContextKeyUserID); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func bearerToken(c *gin.Context) (string, bool) {
	h := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return "", false
	}
	return strings.TrimSpace(h[7:]), true
}

func unauthorized(c *gin.Context, msg string) {
	c.Header("WWW-Authenticate", `Bearer realm="booking"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"request_id": c.Writer.Header().Get("X-Request-ID"),
		"code":       "unauthorized",
		"message":    msg,
		"error":      msg,
	})
}
