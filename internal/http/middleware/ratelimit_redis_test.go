package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

// fakeWindow stands in for the Redis script: one counter per key, no expiry.
type fakeWindow struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
	keys   []string
}

func (f *fakeWindow) incr(_ context.Context, key string, _ time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, key)
	if f.err != nil {
		return 0, f.err
	}
	if f.counts == nil {
		f.counts = map[string]int64{}
	}
	f.counts[key]++
	return f.counts[key], nil
}

func redisRouter(rl *RedisRateLimiter, failOpen bool, pre ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(pre...)
	r.Use(rl.Handler(failOpen))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestNewRedisRateLimiter_Defaults(t *testing.T) {
	rl := NewRedisRateLimiter(nil, 0, 0, " ", nil)
	if rl.limit != 60 || rl.window != time.Minute || rl.prefix != "rl" || rl.keyFn == nil {
		t.Fatalf("unexpected defaults: limit=%d window=%v prefix=%q", rl.limit, rl.window, rl.prefix)
	}
}

func TestRedisRateLimiter_AllowsThenDenies(t *testing.T) {
	fw := &fakeWindow{}
	rl := NewRedisRateLimiter(nil, 2, 30*time.Second, "test", KeyByUserOrIP())
	rl.counter = fw.incr
	r := redisRouter(rl, false, func(c *gin.Context) { c.Set(ContextKeyUserID, "u1"); c.Next() })

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, w.Code)
		}
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	if got := w.Header().Get("Retry-After"); got != "30" {
		t.Fatalf("Retry-After = %q, want 30", got)
	}
	if fw.keys[0] != "test:user:u1" {
		t.Fatalf("unexpected key %q", fw.keys[0])
	}
}

func TestRedisRateLimiter_ReplayBypasses(t *testing.T) {
	fw := &fakeWindow{}
	rl := NewRedisRateLimiter(nil, 1, time.Minute, "", nil)
	rl.counter = fw.incr
	r := redisRouter(rl, false, func(c *gin.Context) { c.Set(ctxKeyRateBypass, true); c.Next() })

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("replay %d: expected 200, got %d", i, w.Code)
		}
	}
	if len(fw.keys) != 0 {
		t.Fatalf("replays must not touch the counter")
	}
}

func TestRedisRateLimiter_BackendDown(t *testing.T) {
	fw := &fakeWindow{err: errors.New("connection refused")}
	rl := NewRedisRateLimiter(nil, 1, time.Minute, "", nil)
	rl.counter = fw.incr

	w := httptest.NewRecorder()
	redisRouter(rl, true).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("fail-open: expected 200, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	redisRouter(rl, false).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("fail-closed: expected 503, got %d", w.Code)
	}
}

func TestScriptCount(t *testing.T) {
	for _, in := range []any{int64(3), 3, "3"} {
		if n, err := scriptCount(in); err != nil || n != 3 {
			t.Fatalf("scriptCount(%T) = %d, %v", in, n, err)
		}
	}
	if _, err := scriptCount(3.5); err == nil {
		t.Fatalf("expected error for float result")
	}
	if _, err := scriptCount("x"); err == nil {
		t.Fatalf("expected error for non-numeric string")
	}
}
