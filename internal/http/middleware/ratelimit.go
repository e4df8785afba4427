package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/wolfman30/leadcenter/internal/api/respond"
	"github.com/wolfman30/leadcenter/internal/apperrors"
	"github.com/wolfman30/leadcenter/internal/auth"
	"github.com/wolfman30/leadcenter/internal/ratelimit"
	"github.com/wolfman30/leadcenter/pkg/logging"
)

// Rule decides the counter key and ceiling for one request. Returning
// skip=true exempts the request from the check entirely.
type Rule func(r *http.Request) (key string, limit int, window time.Duration, skip bool)

// RateLimit enforces a fixed-window ceiling before the protected handler
// runs. Requests over the ceiling get a 429 with a retry hint.
func RateLimit(limiter *ratelimit.Limiter, logger *logging.Logger, rule Rule) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, limit, window, skip := rule(r)
			if skip {
				next.ServeHTTP(w, r)
				return
			}
			ok, retryAfter := limiter.Allow(r.Context(), key, limit, window)
			if !ok {
				respond.Error(w, logger, r, apperrors.RateLimited("too many requests", retryAfter))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// PerIP keys the counter on the client address, for unauthenticated routes.
func PerIP(prefix string, limit int, window time.Duration) Rule {
	return func(r *http.Request) (string, int, time.Duration, bool) {
		return prefix + ":" + clientIP(r), limit, window, false
	}
}

// PerUserByRole keys the counter on the authenticated user and picks the
// ceiling by role. Unauthenticated requests fall back to the client address
// with the stricter ceiling.
func PerUserByRole(prefix string, operLimit, adminLimit int, window time.Duration) Rule {
	return func(r *http.Request) (string, int, time.Duration, bool) {
		claims, ok := auth.ClaimsFromContext(r.Context())
		if !ok {
			return prefix + ":" + clientIP(r), operLimit, window, false
		}
		limit := operLimit
		if claims.Role == auth.RoleAdmin {
			limit = adminLimit
		}
		return prefix + ":" + strconv.FormatInt(claims.UserID, 10), limit, window, false
	}
}

// PerUserAdminExempt keys the counter on the authenticated user and skips
// the check for admins.
func PerUserAdminExempt(prefix string, limit int, window time.Duration) Rule {
	return func(r *http.Request) (string, int, time.Duration, bool) {
		claims, ok := auth.ClaimsFromContext(r.Context())
		if !ok {
			return prefix + ":" + clientIP(r), limit, window, false
		}
		if claims.Role == auth.RoleAdmin {
			return "", 0, 0, true
		}
		return prefix + ":" + strconv.FormatInt(claims.UserID, 10), limit, window, false
	}
}

func clientIP(r *http.Request) string {
	// chi's RealIP middleware rewrites RemoteAddr from the proxy headers.
	if xri := r.Header.Get("X-Real-Ip"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}
