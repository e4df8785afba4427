package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/leadcenter/internal/auth"
	httpmiddleware "github.com/wolfman30/leadcenter/internal/http/middleware"
	"github.com/wolfman30/leadcenter/internal/leads"
	"github.com/wolfman30/leadcenter/internal/leadsync"
	"github.com/wolfman30/leadcenter/internal/ratelimit"
	"github.com/wolfman30/leadcenter/pkg/logging"
)

// RateConfig carries the per-endpoint ceilings.
type RateConfig struct {
	LoginLimit   int
	LoginWindow  time.Duration
	StatusOper   int
	StatusAdmin  int
	StatusWindow time.Duration
	FetchLimit   int
	FetchWindow  time.Duration
}

// Config holds router configuration.
type Config struct {
	Logger         *logging.Logger
	AuthHandler    *auth.Handler
	AuthMiddleware *auth.Middleware
	LeadsHandler   *leads.Handler
	SyncHandler    *leadsync.Handler
	Limiter        *ratelimit.Limiter
	Rates          RateConfig
	MetricsHandler http.Handler
}

// New creates a chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints
	r.Group(func(public chi.Router) {
		public.Get("/health", cfg.SyncHandler.Health)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		public.With(httpmiddleware.RateLimit(cfg.Limiter, cfg.Logger,
			httpmiddleware.PerIP("login", cfg.Rates.LoginLimit, cfg.Rates.LoginWindow),
		)).Post("/login", cfg.AuthHandler.Login)
	})

	// Authenticated endpoints
	r.Group(func(private chi.Router) {
		private.Use(cfg.AuthMiddleware.Authenticate)

		private.Get("/leads", cfg.LeadsHandler.List)
		private.With(httpmiddleware.RateLimit(cfg.Limiter, cfg.Logger,
			httpmiddleware.PerUserByRole("status", cfg.Rates.StatusOper, cfg.Rates.StatusAdmin, cfg.Rates.StatusWindow),
		)).Put("/leads/{id}/status", cfg.LeadsHandler.ChangeStatus)

		private.Get("/stats", cfg.LeadsHandler.Stats)
		private.Get("/status-logs", cfg.LeadsHandler.StatusLogs)

		private.With(httpmiddleware.RateLimit(cfg.Limiter, cfg.Logger,
			httpmiddleware.PerUserAdminExempt("fetch", cfg.Rates.FetchLimit, cfg.Rates.FetchWindow),
		)).Post("/fetch-now", cfg.SyncHandler.FetchNow)

		private.Route("/admin/users", func(admin chi.Router) {
			admin.Use(cfg.AuthMiddleware.RequireAdmin)
			admin.Get("/", cfg.AuthHandler.ListUsers)
			admin.Post("/", cfg.AuthHandler.CreateUser)
			admin.Delete("/{id}", cfg.AuthHandler.DeleteUser)
		})
	})

	return r
}
