package auth

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const claimsKey contextKey = "authClaims"

// TokenAuthenticator validates tokens; the service implements it, tests may
// substitute their own.
type TokenAuthenticator interface {
	Authenticate(tokenString string) (*Claims, error)
}

// RejectFunc writes an error response for a failed auth check; injected so
// the middleware stays decoupled from the response envelope.
type RejectFunc func(w http.ResponseWriter, r *http.Request, err error)

// Middleware enforces bearer-token authentication and role checks on chi
// routes.
type Middleware struct {
	auth   TokenAuthenticator
	reject RejectFunc
}

// NewMiddleware builds the auth middleware.
func NewMiddleware(auth TokenAuthenticator, reject RejectFunc) *Middleware {
	return &Middleware{auth: auth, reject: reject}
}

// Authenticate requires a valid Bearer token and stores its claims in the
// request context.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			m.reject(w, r, ErrInvalidCredentials)
			return
		}
		claims, err := m.auth.Authenticate(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			m.reject(w, r, ErrInvalidCredentials)
			return
		}
		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin rejects authenticated non-admin callers.
func (m *Middleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok || claims.Role != RoleAdmin {
			m.reject(w, r, ErrForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ClaimsFromContext returns the authenticated claims if present.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*Claims)
	return claims, ok
}

// WithClaims stores claims in a context; used by tests to fake an
// authenticated request.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}
