package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/rudzz/marketplace/internal/domain/providers"
	"github.com/rudzz/marketplace/internal/infrastructure/observability"
)

const localLimiterSize = 10000

// RateLimiter enforces a fixed request window per client IP. Counters live
// in the shared cache when one is configured so every instance sees the
// same budget; the in-process window is used otherwise, and while the
// cache is failing.
type RateLimiter struct {
	cache  providers.CacheProvider
	limit  int
	window time.Duration
	exempt map[string]struct{}

	mu    sync.Mutex
	local *expirable.LRU[string, *localWindow]
	now   func() time.Time
}

type localWindow struct {
	count   int64
	resetAt time.Time
}

// NewRateLimiter creates a limiter allowing limit requests per window.
// Paths in exempt are never counted.
func NewRateLimiter(cache providers.CacheProvider, limit int, window time.Duration, exempt ...string) *RateLimiter {
	skip := make(map[string]struct{}, len(exempt))
	for _, p := range exempt {
		skip[p] = struct{}{}
	}
	return &RateLimiter{
		cache:  cache,
		limit:  limit,
		window: window,
		exempt: skip,
		local:  expirable.NewLRU[string, *localWindow](localLimiterSize, nil, window),
		now:    time.Now,
	}
}

// Middleware returns the rate limiting handler
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, skip := l.exempt[r.URL.Path]; skip || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		count, retryAfter := l.hit(r, "ratelimit:"+ClientIP(r))

		remaining := int64(l.limit) - count
		if remaining < 0 {
			remaining = 0
		}
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if count > int64(l.limit) {
			seconds := int(retryAfter.Round(time.Second).Seconds())
			if seconds < 1 {
				seconds = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(seconds))
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (l *RateLimiter) hit(r *http.Request, key string) (int64, time.Duration) {
	if l.cache != nil {
		count, ttl, err := l.cache.Increment(r.Context(), key, l.window)
		if err == nil {
			return count, ttl
		}
		observability.LoggerFromContext(r.Context()).Warn().Err(err).Msg("rate limit cache unavailable, using local window")
	}
	return l.hitLocal(key)
}

func (l *RateLimiter) hitLocal(key string) (int64, time.Duration) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	win, ok := l.local.Get(key)
	if !ok || !now.Before(win.resetAt) {
		win = &localWindow{resetAt: now.Add(l.window)}
		l.local.Add(key, win)
	}
	win.count++
	return win.count, win.resetAt.Sub(now)
}

// ClientIP returns the caller address, preferring proxy headers
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return strings.TrimSpace(realIP)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}
