package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func Test_fail_500_LogsAndBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("X-Request-ID", "rid-500")
		c.Set("logger", &logger)
		c.Next()
	})
	r.GET("/boom", func(c *gin.Context) {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "kaboom")
	})
	r.GET("/missing", func(c *gin.Context) {
		Fail(c, http.StatusNotFound, ErrCodeAppointmentNotFound, "appointment not found")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", w.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if resp.RequestID != "rid-500" || resp.Code != ErrCodeInternal || resp.Message != "kaboom" || resp.Error != "kaboom" {
		t.Fatalf("unexpected body: %+v", resp)
	}
	if !strings.Contains(buf.String(), `"level":"error"`) {
		t.Fatalf("expected error log, got: %s", buf.String())
	}

	buf.Reset()
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status=%d", w.Code)
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if resp.Code != ErrCodeAppointmentNotFound || resp.RequestID != "rid-500" {
		t.Fatalf("unexpected 404 body: %+v", resp)
	}
	if buf.Len() != 0 {
		t.Fatalf("4xx should not be logged here, got: %s", buf.String())
	}
}

func Test_etagMatches(t *testing.T) {
	const etag = `W/"appointments:1:c1:3:42"`
	tests := []struct {
		header string
		want   bool
	}{
		{"", false},
		{"*", true},
		{etag, true},
		{`"appointments:1:c1:3:42"`, true},
		{`W/"other", ` + etag, true},
		{`W/"appointments:1:c1:3:41"`, false},
		{`W/"appointments:1:c1:3:42`, false},
	}
	for _, tt := range tests {
		if got := etagMatches(tt.header, etag); got != tt.want {
			t.Fatalf("etagMatches(%q) = %v, want %v", tt.header, got, tt.want)
		}
	}
}

func Test_notModified(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ts := time.Date(2030, 5, 10, 9, 0, 0, 0, time.UTC)
	r := gin.New()
	r.GET("/notifications", func(c *gin.Context) {
		if notModified(c, "notifications", "p1", 2, &ts) {
			return
		}
		setCount(c, headerUnreadCount, 1)
		ok(c, http.StatusOK, []string{})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/notifications", nil))
	etag := w.Header().Get("ETag")
	if w.Code != http.StatusOK || etag != weakETag("notifications", "p1", 2, &ts) {
		t.Fatalf("first read: %d etag=%q", w.Code, etag)
	}
	if w.Header().Get(headerUnreadCount) != "1" {
		t.Fatalf("unread header = %q", w.Header().Get(headerUnreadCount))
	}

	req := httptest.NewRequest(http.MethodGet, "/notifications", nil)
	req.Header.Set("If-None-Match", etag)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotModified || w.Body.Len() != 0 {
		t.Fatalf("revalidation: %d body=%q", w.Code, w.Body.String())
	}

	if got := weakETag("notifications", "p1", 0, nil); got != `W/"notifications:p1:0:0"` {
		t.Fatalf("empty collection etag = %q", got)
	}
}
