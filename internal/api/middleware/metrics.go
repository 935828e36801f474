package middleware

import (
	"net/http"
	"time"

	"github.com/rudzz/marketplace/internal/infrastructure/observability"
)

// PrometheusMiddleware records request counts and latency per route
func PrometheusMiddleware(metrics *observability.HTTPMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := newResponseWriter(w)

			next.ServeHTTP(rw, r)

			metrics.Observe(r.Method, RouteFromContext(r.Context()), rw.statusCode, time.Since(start))
		})
	}
}
