package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// counterCache implements the Increment part of the cache provider
type counterCache struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func newCounterCache() *counterCache {
	return &counterCache{counts: make(map[string]int64)}
}

func (c *counterCache) Get(ctx context.Context, key string) ([]byte, error) { return nil, errors.New("miss") }

func (c *counterCache) Set(ctx context.Context, key string, value []byte, expirationSeconds int) error {
	return nil
}

func (c *counterCache) Delete(ctx context.Context, key string) error { return nil }

func (c *counterCache) Exists(ctx context.Context, key string) (bool, error) { return false, nil }

func (c *counterCache) Ping(ctx context.Context) error { return c.err }

func (c *counterCache) Increment(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return 0, 0, c.err
	}
	c.counts[key]++
	return c.counts[key], window, nil
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func doRequest(h http.Handler, method, path, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.RemoteAddr = remoteAddr
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRateLimiter_SharedCache(t *testing.T) {
	cache := newCounterCache()
	limiter := NewRateLimiter(cache, 2, time.Minute)
	h := limiter.Middleware(okHandler())

	w := doRequest(h, http.MethodGet, "/api/providers", "10.0.0.1:1000")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Remaining"))

	w = doRequest(h, http.MethodGet, "/api/providers", "10.0.0.1:1000")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	w = doRequest(h, http.MethodGet, "/api/providers", "10.0.0.1:1000")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"rate limit exceeded"}`, w.Body.String())

	// other clients have their own budget
	w = doRequest(h, http.MethodGet, "/api/providers", "10.0.0.2:1000")
	assert.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, int64(3), cache.counts["ratelimit:10.0.0.1"])
}

func TestRateLimiter_FallsBackToLocalWindow(t *testing.T) {
	cache := newCounterCache()
	cache.err = errors.New("connection refused")

	limiter := NewRateLimiter(cache, 1, time.Minute)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }
	h := limiter.Middleware(okHandler())

	assert.Equal(t, http.StatusOK, doRequest(h, http.MethodGet, "/api/blog/posts", "10.0.0.3:1").Code)

	w := doRequest(h, http.MethodGet, "/api/blog/posts", "10.0.0.3:1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))

	now = now.Add(61 * time.Second)
	assert.Equal(t, http.StatusOK, doRequest(h, http.MethodGet, "/api/blog/posts", "10.0.0.3:1").Code)
}

func TestRateLimiter_ExemptPathsAndPreflight(t *testing.T) {
	limiter := NewRateLimiter(nil, 1, time.Minute, "/health")
	h := limiter.Middleware(okHandler())

	for i := 0; i < 3; i++ {
		w := doRequest(h, http.MethodGet, "/health", "10.0.0.4:1")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))

		w = doRequest(h, http.MethodOptions, "/api/providers", "10.0.0.4:1")
		require.Equal(t, http.StatusOK, w.Code)
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:4567"
	assert.Equal(t, "192.0.2.1", ClientIP(req))

	req.Header.Set("X-Real-IP", "198.51.100.7")
	assert.Equal(t, "198.51.100.7", ClientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "203.0.113.9", ClientIP(req))
}
