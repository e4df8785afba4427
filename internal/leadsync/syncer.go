package leadsync

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/leadcenter/internal/manychat"
	"github.com/wolfman30/leadcenter/internal/observability/metrics"
	"github.com/wolfman30/leadcenter/pkg/logging"
)

// Fetcher queries the external subscriber directory.
type Fetcher interface {
	FindByCustomField(ctx context.Context, fieldID int, fieldValue string) ([]manychat.Subscriber, error)
}

// Syncer runs the fetch-reconcile cycle: once at startup, then on a fixed
// interval, plus out-of-band runs triggered over the API. Batches are
// serialized by a mutex so two cycles never interleave writes.
type Syncer struct {
	fetcher    Fetcher
	reconciler *Reconciler
	fieldID    int
	fieldValue string
	logger     *logging.Logger
	metrics    *metrics.SyncMetrics

	tick <-chan time.Time
	stop func()

	mu     sync.Mutex
	active atomic.Bool
}

// SyncerConfig wires a Syncer. Tick/Stop override the interval ticker in
// tests.
type SyncerConfig struct {
	Fetcher    Fetcher
	Reconciler *Reconciler
	FieldID    int
	FieldValue string
	Interval   time.Duration
	Logger     *logging.Logger
	Metrics    *metrics.SyncMetrics

	Tick <-chan time.Time
	Stop func()
}

// NewSyncer validates and assembles the scheduler.
func NewSyncer(cfg SyncerConfig) (*Syncer, error) {
	if cfg.Fetcher == nil {
		return nil, errors.New("leadsync: syncer requires a fetcher")
	}
	if cfg.Reconciler == nil {
		return nil, errors.New("leadsync: syncer requires a reconciler")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	tick := cfg.Tick
	stop := cfg.Stop
	if tick == nil {
		interval := cfg.Interval
		if interval <= 0 {
			interval = 4 * time.Minute
		}
		ticker := time.NewTicker(interval)
		tick = ticker.C
		stop = ticker.Stop
	}

	return &Syncer{
		fetcher:    cfg.Fetcher,
		reconciler: cfg.Reconciler,
		fieldID:    cfg.FieldID,
		fieldValue: cfg.FieldValue,
		logger:     logger,
		metrics:    cfg.Metrics,
		tick:       tick,
		stop:       stop,
	}, nil
}

// Start blocks until ctx is cancelled, running one cycle immediately and
// then one per tick. Cycle failures are logged and never fatal.
func (s *Syncer) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	s.active.Store(true)
	defer s.active.Store(false)
	defer func() {
		if s.stop != nil {
			s.stop()
		}
	}()

	s.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.tick:
			s.RunOnce(ctx)
		}
	}
}

// Active reports whether the scheduler loop is running.
func (s *Syncer) Active() bool {
	return s.active.Load()
}

// TriggerNow starts an out-of-band cycle and returns a job id immediately;
// the cycle's outcome is observable only through logs and later queries.
func (s *Syncer) TriggerNow() string {
	jobID := uuid.NewString()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		s.logger.Info("manual sync started", "job_id", jobID)
		s.RunOnce(ctx)
	}()
	return jobID
}

// RunOnce executes one fetch-reconcile cycle. Concurrent calls serialize.
func (s *Syncer) RunOnce(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	subs, err := s.fetcher.FindByCustomField(ctx, s.fieldID, s.fieldValue)
	if err != nil {
		outcome := "fetch_error"
		if errors.Is(err, manychat.ErrRateLimited) {
			outcome = "rate_limited"
			s.logger.Warn("fetch skipped, backing off", "error", err)
		} else {
			s.logger.Error("lead fetch failed", "error", err)
		}
		s.metrics.ObserveCycle(outcome, time.Since(start).Seconds())
		return
	}

	res := s.reconciler.Reconcile(ctx, subs)
	s.metrics.ObserveCycle("success", time.Since(start).Seconds())
	s.metrics.ObserveLeads(res.Inserted, res.Updated)
	s.logger.Info("sync cycle completed",
		"fetched", len(subs),
		"inserted", res.Inserted,
		"updated", res.Updated,
		"failed", res.Failed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
