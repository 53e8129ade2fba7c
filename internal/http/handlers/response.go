package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-booking-backend/internal/http/middleware"
)

// Response headers carrying list metadata.
const (
	headerTotalCount  = "X-Total-Count"
	headerTotalPages  = "X-Total-Pages"
	headerUnreadCount = "X-Unread-Count"
)

// ErrorResponse is the error envelope returned by every endpoint.
//
//	HTTP/1.1 400 Bad Request
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "slot_unavailable",
//	  "message": "appointment date is not available",
//	  "error": "appointment date is not available"
//	}
type ErrorResponse struct {
	// Echo of X-Request-ID
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go)
	Code string `json:"code" example:"slot_unavailable"`
	// Human-readable message
	Message string `json:"message" example:"appointment date is not available"`
	// Same as Message, under the key older clients read
	Error string `json:"error" example:"appointment date is not available"`
}

// fail aborts with an ErrorResponse. 5xx are logged with the request-scoped
// logger; 4xx already show up in the access log.
func fail(c *gin.Context, status int, code, msg string) {
	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}
	c.AbortWithStatusJSON(status, ErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Message:   msg,
		Error:     msg,
	})
}

// Fail is fail for the router's fallbacks.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

func setCount(c *gin.Context, header string, n int64) {
	c.Header(header, strconv.FormatInt(n, 10))
}

// weakETag identifies a caller's view of a collection by its size and newest
// update. Cancellation and mark-read bump UpdatedAt, so either changes it.
func weakETag(kind, owner string, count int64, maxTS *time.Time) string {
	var ts int64
	if maxTS != nil {
		ts = maxTS.UnixNano()
	}
	return fmt.Sprintf(`W/"%s:%s:%d:%d"`, kind, owner, count, ts)
}

// notModified sets the ETag and, when If-None-Match already names it, writes
// 304 and reports true.
func notModified(c *gin.Context, kind, owner string, count int64, maxTS *time.Time) bool {
	etag := weakETag(kind, owner, count, maxTS)
	c.Header("ETag", etag)
	if etagMatches(c.GetHeader("If-None-Match"), etag) {
		c.Status(http.StatusNotModified)
		return true
	}
	return false
}

// etagMatches applies the weak comparison of If-None-Match: "*" matches
// anything and a list matches when any member does, W/ prefixes ignored.
func etagMatches(header, etag string) bool {
	header = strings.TrimSpace(header)
	if header == "" {
		return false
	}
	if header == "*" {
		return true
	}
	want := strings.TrimPrefix(etag, "W/")
	for _, cand := range strings.Split(header, ",") {
		if strings.TrimPrefix(strings.TrimSpace(cand), "W/") == want {
			return true
		}
	}
	return false
}
