package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/leadcenter/internal/api/router"
	appconfig "github.com/wolfman30/leadcenter/internal/config"
	"github.com/wolfman30/leadcenter/internal/auth"
	"github.com/wolfman30/leadcenter/internal/leads"
	"github.com/wolfman30/leadcenter/internal/leadsync"
	"github.com/wolfman30/leadcenter/internal/manychat"
	"github.com/wolfman30/leadcenter/internal/observability/metrics"
	"github.com/wolfman30/leadcenter/internal/ratelimit"
	"github.com/wolfman30/leadcenter/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel, cfg.Env)
	logger.Info("starting leadcenter API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	if cfg.JWTSecret == "" {
		logger.Error("JWT_SECRET is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Lead repositories run on pgx; the auth repository uses the stdlib
	// driver over the same database.
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create pgx pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	authSvc := auth.NewService(auth.NewRepository(db), cfg.JWTSecret, logger)
	if err := authSvc.EnsureBootstrapAdmin(ctx); err != nil {
		logger.Error("failed to ensure bootstrap admin", "error", err)
		os.Exit(1)
	}

	vocab := leads.NewVocabulary(cfg.LeadStatuses)
	leadsRepo := leads.NewRepository(pool)
	ledger := leads.NewLedger(pool, vocab, logger)
	statsRepo := leads.NewStatsRepository(pool, vocab, cfg.Location())

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	syncMetrics := metrics.NewSyncMetrics(registry)

	client := manychat.NewClient(cfg.ManyChatAPIURL, cfg.ManyChatAPIToken, logger)
	reconciler := leadsync.NewReconciler(leadsRepo, vocab, logger)
	syncer, err := leadsync.NewSyncer(leadsync.SyncerConfig{
		Fetcher:    client,
		Reconciler: reconciler,
		FieldID:    cfg.ManyChatFieldID,
		FieldValue: cfg.ManyChatFieldValue,
		Interval:   cfg.FetchInterval,
		Logger:     logger,
		Metrics:    syncMetrics,
	})
	if err != nil {
		logger.Error("failed to create syncer", "error", err)
		os.Exit(1)
	}
	go syncer.Start(ctx)

	limiter := ratelimit.NewLimiter(newLimitStore(ctx, cfg, logger))

	r := router.New(&router.Config{
		Logger:         logger,
		AuthHandler:    auth.NewHandler(authSvc, logger),
		AuthMiddleware: auth.NewMiddleware(authSvc, auth.Reject(logger)),
		LeadsHandler:   leads.NewHandler(leadsRepo, ledger, statsRepo, logger),
		SyncHandler:    leadsync.NewHandler(syncer, logger),
		Limiter:        limiter,
		Rates: router.RateConfig{
			LoginLimit:   cfg.LoginRateLimit,
			LoginWindow:  cfg.LoginRateWindow,
			StatusOper:   cfg.StatusRateOper,
			StatusAdmin:  cfg.StatusRateAdmin,
			StatusWindow: cfg.StatusRateWindow,
			FetchLimit:   cfg.FetchRateLimit,
			FetchWindow:  cfg.FetchRateWindow,
		},
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	cancel() // stops the sync loop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// newLimitStore prefers Redis so ceilings hold across replicas, falling back
// to the in-process store when Redis is absent or unreachable.
func newLimitStore(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) ratelimit.Store {
	if cfg.RedisAddr == "" {
		return ratelimit.NewMemoryStore()
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	pingCtx, pingCancel := context.WithTimeout(ctx, 3*time.Second)
	defer pingCancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unreachable, using in-memory rate limiting", "addr", cfg.RedisAddr, "error", err)
		_ = client.Close()
		return ratelimit.NewMemoryStore()
	}

	logger.Info("rate limiting backed by redis", "addr", cfg.RedisAddr)
	return ratelimit.NewRedisStore(client)
}
