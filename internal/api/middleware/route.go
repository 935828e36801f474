package middleware

import (
	"context"
	"net/http"
)

type routeKey struct{}

// unmatchedRoute labels requests no pattern matched, keeping metric cardinality bounded
const unmatchedRoute = "unmatched"

// RouteLabel resolves the mux pattern before dispatch so outer middleware
// can label logs, spans and metrics by route instead of raw path.
func RouteLabel(mux *http.ServeMux) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, pattern := mux.Handler(r)
			if pattern == "" {
				pattern = unmatchedRoute
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), routeKey{}, pattern)))
		})
	}
}

// RouteFromContext returns the matched route pattern
func RouteFromContext(ctx context.Context) string {
	if route, ok := ctx.Value(routeKey{}).(string); ok {
		return route
	}
	return unmatchedRoute
}
