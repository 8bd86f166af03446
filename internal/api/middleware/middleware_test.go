package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type memCounter struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func (m *memCounter) Incr(_ context.Context, subject string, _ time.Duration) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[subject]++
	return m.counts[subject], nil
}

func newRouter(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw...)
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	return r
}

func get(r http.Handler, header http.Header) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	for k, v := range header {
		req.Header.Set(k, v[0])
	}
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimitBlocksAfterMax(t *testing.T) {
	r := newRouter(RateLimitMiddleware(&memCounter{counts: map[string]int64{}}, time.Minute, 2))

	assert.Equal(t, http.StatusOK, get(r, nil).Code)
	w := get(r, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	w = get(r, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), `"code":429`)
}

func TestRateLimitFailsOpen(t *testing.T) {
	r := newRouter(RateLimitMiddleware(&memCounter{err: errors.New("redis down")}, time.Minute, 1))

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, get(r, nil).Code)
	}
}

func TestRateLimitDisabledWithoutCounter(t *testing.T) {
	r := newRouter(RateLimitMiddleware(nil, time.Minute, 1))

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, get(r, nil).Code)
	}
}

func TestCORSAllowsConfiguredOriginOnly(t *testing.T) {
	r := newRouter(CORSMiddleware("http://localhost:5173"))

	w := get(r, http.Header{"Origin": {"http://localhost:5173"}})
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))

	w = get(r, http.Header{"Origin": {"http://evil.example"}})
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	pre := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/ping", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	r.ServeHTTP(pre, req)
	assert.Equal(t, http.StatusNoContent, pre.Code)
}

func TestTraceMiddlewareEchoesHeader(t *testing.T) {
	r := newRouter(TraceMiddleware())

	w := get(r, http.Header{TraceHeader: {"trace-123"}})
	assert.Equal(t, "trace-123", w.Header().Get(TraceHeader))

	w = get(r, nil)
	assert.NotEmpty(t, w.Header().Get(TraceHeader))
}

func TestTraceMiddlewareReplacesInvalidTraceID(t *testing.T) {
	r := newRouter(TraceMiddleware())

	for _, bad := range []string{`abc" injected="1`, strings.Repeat("a", 65)} {
		w := get(r, http.Header{TraceHeader: {bad}})
		got := w.Header().Get(TraceHeader)
		assert.NotEqual(t, bad, got)
		assert.True(t, validTraceID(got))
	}
}
