package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rudzz/marketplace/internal/domain/policy"
	apperrors "github.com/rudzz/marketplace/pkg/errors"
)

// TokenResolver turns a bearer access token into the acting identity
type TokenResolver interface {
	ResolveAccessToken(ctx context.Context, accessToken string) (*policy.Actor, error)
}

// Authenticator resolves bearer tokens into request identities
type Authenticator struct {
	resolver TokenResolver
}

// NewAuthenticator creates a new authenticator
func NewAuthenticator(resolver TokenResolver) *Authenticator {
	return &Authenticator{resolver: resolver}
}

// RequireAuth rejects requests without a valid access token
func (a *Authenticator) RequireAuth(next http.Handler) http.Handler {
	return a.handler(next, true, false)
}

// RequireStreamAuth is RequireAuth that also accepts the token in the
// access_token query parameter, for browser EventSource and WebSocket
// clients that cannot set headers.
func (a *Authenticator) RequireStreamAuth(next http.Handler) http.Handler {
	return a.handler(next, true, true)
}

// OptionalAuth resolves the identity when a token is present and lets
// anonymous requests through. A token that is present but invalid is rejected.
func (a *Authenticator) OptionalAuth(next http.Handler) http.Handler {
	return a.handler(next, false, false)
}

func (a *Authenticator) handler(next http.Handler, required, allowQuery bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := BearerToken(r)
		if token == "" && allowQuery {
			token = strings.TrimSpace(r.URL.Query().Get("access_token"))
		}
		if token == "" {
			if required {
				writeError(w, http.StatusUnauthorized, "authentication required")
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		actor, err := a.resolver.ResolveAccessToken(r.Context(), token)
		if err != nil {
			var appErr *apperrors.AppError
			if errors.As(err, &appErr) && appErr.Type == apperrors.ErrorTypeUnauthorized {
				writeError(w, http.StatusUnauthorized, appErr.Message)
				return
			}
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}

		next.ServeHTTP(w, r.WithContext(policy.WithActor(r.Context(), *actor)))
	})
}

// BearerToken extracts the token from an "Authorization: Bearer" header
func BearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
