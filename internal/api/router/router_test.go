package router

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pashagolub/pgxmock/v4"

	"github.com/wolfman30/leadcenter/internal/auth"
	"github.com/wolfman30/leadcenter/internal/leads"
	"github.com/wolfman30/leadcenter/internal/leadsync"
	"github.com/wolfman30/leadcenter/internal/manychat"
	"github.com/wolfman30/leadcenter/internal/ratelimit"
)

const testSecret = "router-test-secret"

type nopFetcher struct{}

func (nopFetcher) FindByCustomField(context.Context, int, string) ([]manychat.Subscriber, error) {
	return nil, nil
}

type nopStore struct{}

func (nopStore) UpsertFromSource(context.Context, *leads.Lead, string) (bool, error) {
	return false, nil
}

type testEnv struct {
	handler http.Handler
	pg      pgxmock.PgxPoolIface
	users   sqlmock.Sqlmock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	pg, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	t.Cleanup(pg.Close)

	db, users, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	vocab := leads.NewVocabulary(nil)
	repo := leads.NewRepositoryWithDB(pg)
	ledger := leads.NewLedger(pg, vocab, nil)
	stats := leads.NewStatsRepository(pg, vocab, time.UTC)

	svc := auth.NewService(auth.NewRepository(db), testSecret, nil)
	reconciler := leadsync.NewReconciler(nopStore{}, vocab, nil)
	syncer, err := leadsync.NewSyncer(leadsync.SyncerConfig{
		Fetcher:    nopFetcher{},
		Reconciler: reconciler,
		Tick:       make(chan time.Time),
	})
	if err != nil {
		t.Fatalf("syncer: %v", err)
	}

	handler := New(&Config{
		AuthHandler:    auth.NewHandler(svc, nil),
		AuthMiddleware: auth.NewMiddleware(svc, auth.Reject(nil)),
		LeadsHandler:   leads.NewHandler(repo, ledger, stats, nil),
		SyncHandler:    leadsync.NewHandler(syncer, nil),
		Limiter:        ratelimit.NewLimiter(ratelimit.NewMemoryStore()),
		Rates: RateConfig{
			LoginLimit:   5,
			LoginWindow:  15 * time.Minute,
			StatusOper:   3,
			StatusAdmin:  50,
			StatusWindow: time.Minute,
			FetchLimit:   10,
			FetchWindow:  5 * time.Minute,
		},
	})

	return &testEnv{handler: handler, pg: pg, users: users}
}

func signToken(t *testing.T, userID int64, username, role string) string {
	t.Helper()
	claims := auth.Claims{
		UserID:   userID,
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return tok
}

type envelope struct {
	Success    bool            `json:"success"`
	Data       json.RawMessage `json:"data"`
	ErrorKind  string          `json:"error"`
	Message    string          `json:"message"`
	RetryAfter int             `json:"retry_after"`
}

func do(t *testing.T, h http.Handler, method, path, token, body string) (int, envelope) {
	t.Helper()
	var rdr *strings.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	} else {
		rdr = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, rdr)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	var env envelope
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope from %q: %v", rr.Body.String(), err)
	}
	return rr.Code, env
}

func TestHealthIsPublic(t *testing.T) {
	env := newTestEnv(t)

	code, resp := do(t, env.handler, http.MethodGet, "/health", "", "")
	if code != http.StatusOK || !resp.Success {
		t.Fatalf("health: code=%d success=%v", code, resp.Success)
	}
	var data struct {
		Status          string `json:"status"`
		SchedulerActive bool   `json:"scheduler_active"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		t.Fatalf("decode health data: %v", err)
	}
	if data.Status != "ok" || data.SchedulerActive {
		t.Fatalf("unexpected health payload: %+v", data)
	}
}

func TestProtectedRoutesRejectMissingToken(t *testing.T) {
	env := newTestEnv(t)

	for _, p := range []struct{ method, path string }{
		{http.MethodGet, "/leads"},
		{http.MethodGet, "/stats"},
		{http.MethodGet, "/status-logs"},
		{http.MethodPost, "/fetch-now"},
		{http.MethodGet, "/admin/users"},
	} {
		code, resp := do(t, env.handler, p.method, p.path, "", "")
		if code != http.StatusUnauthorized {
			t.Errorf("%s %s: code=%d, want 401", p.method, p.path, code)
		}
		if resp.Success || resp.ErrorKind != "auth_error" {
			t.Errorf("%s %s: envelope=%+v", p.method, p.path, resp)
		}
	}
}

func TestAdminRoutesForbiddenForOperators(t *testing.T) {
	env := newTestEnv(t)
	token := signToken(t, 7, "ayse", auth.RoleOperator)

	code, resp := do(t, env.handler, http.MethodGet, "/admin/users", token, "")
	if code != http.StatusForbidden || resp.ErrorKind != "forbidden" {
		t.Fatalf("operator on admin route: code=%d envelope=%+v", code, resp)
	}
}

func TestAdminListUsers(t *testing.T) {
	env := newTestEnv(t)
	token := signToken(t, 1, "admin", auth.RoleAdmin)

	env.users.ExpectQuery(`SELECT id, username, password_hash, role, created_at`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password_hash", "role", "created_at"}).
			AddRow(1, "admin", "x", "admin", time.Now()).
			AddRow(2, "ayse", "x", "operator", time.Now()))

	code, resp := do(t, env.handler, http.MethodGet, "/admin/users", token, "")
	if code != http.StatusOK || !resp.Success {
		t.Fatalf("list users: code=%d envelope=%+v", code, resp)
	}
	var data struct {
		Users []struct {
			Username string `json:"username"`
			Role     string `json:"role"`
		} `json:"users"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		t.Fatalf("decode users: %v", err)
	}
	if len(data.Users) != 2 || data.Users[1].Role != "operator" {
		t.Fatalf("unexpected users payload: %+v", data)
	}
}

func TestChangeStatusAppliesTransition(t *testing.T) {
	env := newTestEnv(t)
	token := signToken(t, 7, "ayse", auth.RoleOperator)

	env.pg.ExpectBegin()
	env.pg.ExpectQuery(`SELECT status FROM leads WHERE id = \$1 FOR UPDATE`).
		WithArgs(int64(42)).
		WillReturnRows(pgxmock.NewRows([]string{"status"}).AddRow("pending"))
	env.pg.ExpectExec(`UPDATE leads SET status`).
		WithArgs("called", int64(42)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	env.pg.ExpectQuery(`INSERT INTO status_transitions`).
		WithArgs(int64(42), int64(7), pgxmock.AnyArg(), "called").
		WillReturnRows(pgxmock.NewRows([]string{"id", "changed_at"}).AddRow(int64(3), time.Now()))
	env.pg.ExpectCommit()
	env.pg.ExpectRollback()

	code, resp := do(t, env.handler, http.MethodPut, "/leads/42/status", token, `{"status":"called"}`)
	if code != http.StatusOK || !resp.Success {
		t.Fatalf("change status: code=%d envelope=%+v", code, resp)
	}
	var tr struct {
		OldStatus *string `json:"old_status"`
		NewStatus string  `json:"new_status"`
	}
	if err := json.Unmarshal(resp.Data, &tr); err != nil {
		t.Fatalf("decode transition: %v", err)
	}
	if tr.OldStatus == nil || *tr.OldStatus != "pending" || tr.NewStatus != "called" {
		t.Fatalf("unexpected transition payload: %+v", tr)
	}
	if err := env.pg.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestOperatorStatusChangeCeiling(t *testing.T) {
	env := newTestEnv(t)
	operator := signToken(t, 7, "ayse", auth.RoleOperator)

	// The ceiling check runs before the handler, so an invalid body still
	// spends an attempt and no database traffic happens.
	for i := 0; i < 3; i++ {
		code, _ := do(t, env.handler, http.MethodPut, "/leads/1/status", operator, `{"status":"nope"}`)
		if code != http.StatusBadRequest {
			t.Fatalf("attempt %d: code=%d, want 400", i+1, code)
		}
	}
	code, resp := do(t, env.handler, http.MethodPut, "/leads/1/status", operator, `{"status":"nope"}`)
	if code != http.StatusTooManyRequests || resp.ErrorKind != "rate_limited" {
		t.Fatalf("4th attempt: code=%d envelope=%+v", code, resp)
	}
	if resp.RetryAfter < 1 {
		t.Fatalf("expected retry_after hint, got %d", resp.RetryAfter)
	}

	// Admins get a much higher ceiling and are unaffected.
	admin := signToken(t, 1, "admin", auth.RoleAdmin)
	for i := 0; i < 4; i++ {
		code, _ := do(t, env.handler, http.MethodPut, "/leads/1/status", admin, `{"status":"nope"}`)
		if code != http.StatusBadRequest {
			t.Fatalf("admin attempt %d: code=%d, want 400", i+1, code)
		}
	}
}

func TestLoginCeilingPerIP(t *testing.T) {
	env := newTestEnv(t)

	for i := 0; i < 5; i++ {
		env.users.ExpectQuery(`SELECT id, username, password_hash, role, created_at`).
			WithArgs("admin").
			WillReturnError(sql.ErrNoRows)
		code, resp := do(t, env.handler, http.MethodPost, "/login", "", `{"username":"admin","password":"wrong"}`)
		if code != http.StatusUnauthorized || resp.ErrorKind != "auth_error" {
			t.Fatalf("attempt %d: code=%d envelope=%+v", i+1, code, resp)
		}
	}
	code, resp := do(t, env.handler, http.MethodPost, "/login", "", `{"username":"admin","password":"wrong"}`)
	if code != http.StatusTooManyRequests || resp.ErrorKind != "rate_limited" {
		t.Fatalf("6th attempt: code=%d envelope=%+v", code, resp)
	}
}

func TestFetchNowAdminExempt(t *testing.T) {
	env := newTestEnv(t)
	admin := signToken(t, 1, "admin", auth.RoleAdmin)

	// Far past the operator ceiling; admins are exempt.
	for i := 0; i < 12; i++ {
		code, resp := do(t, env.handler, http.MethodPost, "/fetch-now", admin, "")
		if code != http.StatusAccepted || !resp.Success {
			t.Fatalf("admin attempt %d: code=%d envelope=%+v", i+1, code, resp)
		}
	}

	operator := signToken(t, 7, "ayse", auth.RoleOperator)
	var jobID struct {
		JobID   string `json:"job_id"`
		Started bool   `json:"started"`
	}
	for i := 0; i < 10; i++ {
		code, resp := do(t, env.handler, http.MethodPost, "/fetch-now", operator, "")
		if code != http.StatusAccepted {
			t.Fatalf("operator attempt %d: code=%d", i+1, code)
		}
		if err := json.Unmarshal(resp.Data, &jobID); err != nil {
			t.Fatalf("decode job: %v", err)
		}
		if jobID.JobID == "" || !jobID.Started {
			t.Fatalf("unexpected job payload: %+v", jobID)
		}
	}
	code, _ := do(t, env.handler, http.MethodPost, "/fetch-now", operator, "")
	if code != http.StatusTooManyRequests {
		t.Fatalf("11th operator attempt: code=%d, want 429", code)
	}
}
