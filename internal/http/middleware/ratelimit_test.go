package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/wolfman30/leadcenter/internal/auth"
	"github.com/wolfman30/leadcenter/internal/ratelimit"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestRateLimitPerIP(t *testing.T) {
	limiter := ratelimit.NewLimiter(ratelimit.NewMemoryStore())
	handler := RateLimit(limiter, nil, PerIP("test", 2, time.Minute))(okHandler())

	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/x", nil))
		if rr.Code != http.StatusNoContent {
			t.Fatalf("request %d: code=%d", i+1, rr.Code)
		}
	}

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/x", nil))
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 over the ceiling, got %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}
}

func TestRateLimitSeparatesIPs(t *testing.T) {
	limiter := ratelimit.NewLimiter(ratelimit.NewMemoryStore())
	handler := RateLimit(limiter, nil, PerIP("test", 1, time.Minute))(okHandler())

	first := httptest.NewRequest(http.MethodGet, "/x", nil)
	first.Header.Set("X-Real-Ip", "10.0.0.1")
	second := httptest.NewRequest(http.MethodGet, "/x", nil)
	second.Header.Set("X-Real-Ip", "10.0.0.2")

	for _, req := range []*http.Request{first, second} {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusNoContent {
			t.Fatalf("ip %s: code=%d", req.Header.Get("X-Real-Ip"), rr.Code)
		}
	}
}

func TestPerUserByRolePicksCeiling(t *testing.T) {
	rule := PerUserByRole("status", 3, 50, time.Minute)

	operatorReq := httptest.NewRequest(http.MethodPut, "/x", nil)
	operatorReq = operatorReq.WithContext(auth.WithClaims(operatorReq.Context(), &auth.Claims{UserID: 7, Role: auth.RoleOperator}))
	key, limit, _, skip := rule(operatorReq)
	if skip || key != "status:7" || limit != 3 {
		t.Fatalf("operator rule: key=%q limit=%d skip=%v", key, limit, skip)
	}

	adminReq := httptest.NewRequest(http.MethodPut, "/x", nil)
	adminReq = adminReq.WithContext(auth.WithClaims(adminReq.Context(), &auth.Claims{UserID: 1, Role: auth.RoleAdmin}))
	key, limit, _, skip = rule(adminReq)
	if skip || key != "status:1" || limit != 50 {
		t.Fatalf("admin rule: key=%q limit=%d skip=%v", key, limit, skip)
	}
}

func TestPerUserAdminExemptSkipsAdmins(t *testing.T) {
	rule := PerUserAdminExempt("fetch", 10, 5*time.Minute)

	adminReq := httptest.NewRequest(http.MethodPost, "/x", nil)
	adminReq = adminReq.WithContext(auth.WithClaims(adminReq.Context(), &auth.Claims{UserID: 1, Role: auth.RoleAdmin}))
	if _, _, _, skip := rule(adminReq); !skip {
		t.Fatal("expected admin exemption")
	}

	operatorReq := httptest.NewRequest(http.MethodPost, "/x", nil)
	operatorReq = operatorReq.WithContext(auth.WithClaims(operatorReq.Context(), &auth.Claims{UserID: 7, Role: auth.RoleOperator}))
	key, limit, _, skip := rule(operatorReq)
	if skip || key != "fetch:7" || limit != 10 {
		t.Fatalf("operator rule: key=%q limit=%d skip=%v", key, limit, skip)
	}
}
