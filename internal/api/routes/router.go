package routes

import (
	"net/http"

	"github.com/rudzz/marketplace/internal/api/handlers"
	"github.com/rudzz/marketplace/internal/api/middleware"
)

// Handlers groups the HTTP handlers mounted by the router
type Handlers struct {
	Auth      *handlers.AuthHandler
	Users     *handlers.UserHandler
	Providers *handlers.ProviderHandler
	Reviews   *handlers.ReviewHandler
	Messages  *handlers.MessageHandler
	Blog      *handlers.BlogHandler
	Health    *handlers.HealthHandler
	SSE       *handlers.SSEHandler
	WebSocket *handlers.WebSocketHandler

	// Metrics serves the Prometheus scrape endpoint when set
	Metrics http.Handler
}

// Middlewares groups the cross-cutting layers applied around the mux. Auth
// is required; nil entries among the rest are skipped.
type Middlewares struct {
	Auth          *middleware.Authenticator
	RateLimit     *middleware.RateLimiter
	Prometheus    func(http.Handler) http.Handler
	Observability func(http.Handler) http.Handler
	CORS          func(http.Handler) http.Handler
}

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux
	h   Handlers
	m   Middlewares
}

// NewRouter creates a new router
func NewRouter(h Handlers, m Middlewares) *Router {
	return &Router{
		mux: http.NewServeMux(),
		h:   h,
		m:   m,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	auth := r.m.Auth
	private := func(fn http.HandlerFunc) http.Handler { return auth.RequireAuth(fn) }
	public := func(fn http.HandlerFunc) http.Handler { return auth.OptionalAuth(fn) }

	// Probes
	if r.h.Health != nil {
		r.mux.HandleFunc("GET /health", r.h.Health.Health)
		r.mux.HandleFunc("GET /ready", r.h.Health.Ready)
	}
	if r.h.Metrics != nil {
		r.mux.Handle("GET /metrics", r.h.Metrics)
	}

	// Auth endpoints
	if r.h.Auth != nil {
		r.mux.HandleFunc("POST /api/auth/register", r.h.Auth.Register)
		r.mux.HandleFunc("POST /api/auth/login", r.h.Auth.Login)
		r.mux.HandleFunc("POST /api/auth/refresh", r.h.Auth.Refresh)
		r.mux.Handle("GET /api/auth/me", private(r.h.Auth.Me))
	}

	// User endpoints
	if r.h.Users != nil {
		r.mux.Handle("GET /api/users", private(r.h.Users.ListUsers))
		r.mux.Handle("GET /api/users/{id}", private(r.h.Users.GetUser))
		r.mux.Handle("PUT /api/users/{id}", private(r.h.Users.UpdateUser))
		r.mux.Handle("DELETE /api/users/{id}", private(r.h.Users.DeleteUser))
	}

	// Provider directory endpoints
	if r.h.Providers != nil {
		r.mux.Handle("GET /api/providers", public(r.h.Providers.ListProviders))
		r.mux.Handle("GET /api/providers/{id}", public(r.h.Providers.GetProvider))
		r.mux.Handle("POST /api/providers", private(r.h.Providers.CreateProvider))
		r.mux.Handle("PUT /api/providers/{id}", private(r.h.Providers.UpdateProvider))
		r.mux.Handle("DELETE /api/providers/{id}", private(r.h.Providers.DeleteProvider))
	}

	// Review endpoints
	if r.h.Reviews != nil {
		r.mux.Handle("GET /api/providers/{id}/reviews", public(r.h.Reviews.ListProviderReviews))
		r.mux.Handle("POST /api/providers/{id}/reviews", private(r.h.Reviews.CreateReview))
		r.mux.Handle("GET /api/reviews/{id}", public(r.h.Reviews.GetReview))
		r.mux.Handle("PUT /api/reviews/{id}", private(r.h.Reviews.UpdateReview))
		r.mux.Handle("DELETE /api/reviews/{id}", private(r.h.Reviews.DeleteReview))
	}

	// Message endpoints
	if r.h.Messages != nil {
		r.mux.Handle("GET /api/messages", private(r.h.Messages.Inbox))
		r.mux.Handle("POST /api/messages", private(r.h.Messages.SendMessage))
		r.mux.Handle("GET /api/messages/unread-count", private(r.h.Messages.UnreadCount))
		r.mux.Handle("GET /api/messages/thread/{userID}", private(r.h.Messages.Thread))
		r.mux.Handle("GET /api/messages/{id}", private(r.h.Messages.GetMessage))
		r.mux.Handle("POST /api/messages/{id}/read", private(r.h.Messages.MarkRead))
	}

	// Blog endpoints
	if r.h.Blog != nil {
		r.mux.Handle("GET /api/blog/posts", public(r.h.Blog.ListPosts))
		r.mux.Handle("GET /api/blog/posts/mine", private(r.h.Blog.ListMyPosts))
		r.mux.Handle("GET /api/blog/by-slug/{slug}", public(r.h.Blog.GetPostBySlug))
		r.mux.Handle("GET /api/blog/posts/{id}", public(r.h.Blog.GetPost))
		r.mux.Handle("POST /api/blog/posts", private(r.h.Blog.CreatePost))
		r.mux.Handle("PUT /api/blog/posts/{id}", private(r.h.Blog.UpdatePost))
		r.mux.Handle("DELETE /api/blog/posts/{id}", private(r.h.Blog.DeletePost))
		r.mux.Handle("GET /api/blog/posts/{id}/comments", public(r.h.Blog.ListComments))
		r.mux.Handle("POST /api/blog/posts/{id}/comments", private(r.h.Blog.CreateComment))
		r.mux.Handle("DELETE /api/comments/{id}", private(r.h.Blog.DeleteComment))
	}

	// Realtime endpoints
	if r.h.SSE != nil {
		r.mux.Handle("GET /api/stream/messages", auth.RequireStreamAuth(http.HandlerFunc(r.h.SSE.StreamMessages)))
	}
	if r.h.WebSocket != nil {
		r.mux.Handle("GET /api/ws", auth.RequireStreamAuth(http.HandlerFunc(r.h.WebSocket.Serve)))
	}

	// Apply middleware in reverse order (last middleware wraps first)
	var handler http.Handler = r.mux
	handler = middleware.Compression(handler)
	if r.m.RateLimit != nil {
		handler = r.m.RateLimit.Middleware(handler)
	}
	handler = middleware.LoggingMiddleware(handler)
	if r.m.Prometheus != nil {
		handler = r.m.Prometheus(handler)
	}
	if r.m.Observability != nil {
		handler = r.m.Observability(handler)
	}
	handler = middleware.RequestID(handler)
	handler = middleware.RouteLabel(r.mux)(handler)

	// CORS wraps everything so preflights and rejections carry the headers
	if r.m.CORS != nil {
		handler = r.m.CORS(handler)
	}

	return handler
}
