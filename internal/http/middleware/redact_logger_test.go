package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestRedactingLogger_ScrubsAndMasks(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	r := gin.New()
	r.Use(RequestID(), RedactingLogger(RedactOptions{MaskHeaders: []string{HeaderUserID}}))
	r.GET("/schedule", func(c *gin.Context) {
		c.Set(ContextKeyUserID, "p1")
		c.String(http.StatusOK, "[]")
	})

	q := "date=2030-05-10&email=a.b+tag@example.com&phone=+1-555-123-4567&ref=123e4567-e89b-12d3-a456-426614174000"
	req := httptest.NewRequest(http.MethodGet, "/schedule?"+q, nil)
	req.Header.Set("Authorization", "Bearer secret")
	req.Header.Set("Cookie", "sid=topsecret")
	req.Header.Set(HeaderUserID, "p1")
	req.Header.Set("X-Note", "reach me at a@b.com or 555-123-4567")
	req.Header.Set("User-Agent", "booking-app/1.0")
	req.RemoteAddr = "198.51.100.7:1234"
	r.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	for _, leaked := range []string{"secret", "topsecret", "example.com", "555-123-4567", "123e4567", "a@b.com", "198.51.100.7"} {
		if strings.Contains(out, leaked) {
			t.Fatalf("log leaked %q:\n%s", leaked, out)
		}
	}

	line := accessLine(t, buf)
	if line["level"] != "info" || line["path"] != "/schedule" || line["user_id"] != "p1" {
		t.Fatalf("unexpected access line: %v", line)
	}
	if q := line["query"].(string); !strings.Contains(q, "date=2030-05-10") ||
		!strings.Contains(q, "[REDACTED:email]") ||
		!strings.Contains(q, "[REDACTED:phone]") ||
		!strings.Contains(q, "[REDACTED:id]") {
		t.Fatalf("query not scrubbed as expected: %q", q)
	}
	headers, _ := line["headers"].(map[string]any)
	for _, h := range []string{"Authorization", "Cookie", HeaderUserID} {
		if headers[http.CanonicalHeaderKey(h)] != "[REDACTED]" {
			t.Fatalf("header %s = %v, want masked", h, headers[h])
		}
	}
	if note := headers["X-Note"]; note != "reach me at [REDACTED:email] or [REDACTED:phone]" {
		t.Fatalf("X-Note = %v", note)
	}
	if _, ok := line["user_agent"]; ok {
		t.Fatalf("client details should not be logged by the redacting logger")
	}
}

func TestRedactingLogger_UnmatchedPathIsScrubbed(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	r := gin.New()
	r.Use(RequestID(), RedactingLogger(RedactOptions{}))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/users/someone@example.com", nil))

	line := accessLine(t, buf)
	if line["level"] != "warn" || line["path"] != "/users/[REDACTED:email]" {
		t.Fatalf("unexpected access line: %v", line)
	}
}

func TestRedactingLogger_ErrorLevelAndScopedLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	r := gin.New()
	r.Use(RequestID(), RedactingLogger(RedactOptions{}))
	r.POST("/appointments", func(c *gin.Context) {
		LoggerFrom(c).Error().Msg("insert failed")
		c.Status(http.StatusInternalServerError)
	})
	req := httptest.NewRequest(http.MethodPost, "/appointments", nil)
	req.Header.Set(requestIDHeader, "rid-5")
	r.ServeHTTP(httptest.NewRecorder(), req)

	var sawHandler bool
	for _, m := range logLines(t, buf) {
		if m["request_id"] != "rid-5" {
			t.Fatalf("line without request id: %v", m)
		}
		if m["message"] == "insert failed" {
			sawHandler = true
		}
		if m["message"] == "request" && m["level"] != "error" {
			t.Fatalf("5xx should log at error: %v", m)
		}
	}
	if !sawHandler {
		t.Fatalf("handler log line missing:\n%s", buf.String())
	}
}

func TestScrubber_NilIsNoop(t *testing.T) {
	var s *scrubber
	if got := s.scrub("a@b.com"); got != "a@b.com" {
		t.Fatalf("nil scrubber changed input: %q", got)
	}
}
