// Package scheduler runs the periodic maintenance jobs: closing periods whose
// end passed, warming the statistics cache and pruning old import records.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/robfig/cron/v3"

	periodmodels "parrainage/internal/period/models"
	importservice "parrainage/internal/rollimport/service"
	statsmodels "parrainage/internal/statistics/models"
	dErrors "parrainage/pkg/domain-errors"
	"parrainage/pkg/requestcontext"
)

const (
	DefaultExpirySpec    = "@every 1h"
	DefaultWarmupSpec    = "@every 5m"
	DefaultRetentionSpec = "@daily"
	DefaultRetention     = 90 * 24 * time.Hour
	DefaultWarmupWorkers = 4

	// jobTimeout bounds one run of any job.
	jobTimeout = 2 * time.Minute
	// warmupFanout caps the breakdown scopes warmed after the global view.
	warmupFanout = 32
)

type PeriodSweeper interface {
	SweepExpired(ctx context.Context) (int, error)
	CurrentPeriod(ctx context.Context) (*periodmodels.Period, error)
}

type StatisticsWarmer interface {
	Statistics(ctx context.Context, scope statsmodels.Scope) (*statsmodels.StatisticsView, error)
}

type ImportCleaner interface {
	Cleanup(ctx context.Context, retention, pendingTimeout time.Duration) (importservice.CleanupResult, error)
}

type OutboxPruner interface {
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}

// Config selects when each job runs. Specs accept seconds and descriptors.
type Config struct {
	ExpirySpec    string
	WarmupSpec    string
	RetentionSpec string
	Retention     time.Duration
	WarmupWorkers int

	// PendingTimeout is the age after which a PENDING upload is abandoned.
	PendingTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.ExpirySpec == "" {
		c.ExpirySpec = DefaultExpirySpec
	}
	if c.WarmupSpec == "" {
		c.WarmupSpec = DefaultWarmupSpec
	}
	if c.RetentionSpec == "" {
		c.RetentionSpec = DefaultRetentionSpec
	}
	if c.Retention <= 0 {
		c.Retention = DefaultRetention
	}
	if c.WarmupWorkers <= 0 {
		c.WarmupWorkers = DefaultWarmupWorkers
	}
	if c.PendingTimeout <= 0 {
		c.PendingTimeout = importservice.DefaultPendingTimeout
	}
	return c
}

// Scheduler owns the cron runner and the warmup worker pool.
type Scheduler struct {
	cfg     Config
	periods PeriodSweeper
	stats   StatisticsWarmer
	imports ImportCleaner
	outbox  OutboxPruner
	logger  *slog.Logger

	cron *cron.Cron
	pool pond.Pool
}

type Option func(*Scheduler)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// WithOutboxPruner also deletes relayed outbox rows older than the retention.
func WithOutboxPruner(p OutboxPruner) Option {
	return func(s *Scheduler) {
		s.outbox = p
	}
}

// New registers every job. Nothing runs until Start.
func New(cfg Config, periods PeriodSweeper, stats StatisticsWarmer, imports ImportCleaner, opts ...Option) (*Scheduler, error) {
	s := &Scheduler{
		cfg:     cfg.withDefaults(),
		periods: periods,
		stats:   stats,
		imports: imports,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.pool = pond.NewPool(s.cfg.WarmupWorkers, pond.WithQueueSize(warmupFanout+2))
	s.cron = cron.New(
		cron.WithSeconds(),
		cron.WithChain(cron.Recover(cronLogger{s.logger}), cron.SkipIfStillRunning(cronLogger{s.logger})),
	)

	jobs := []struct {
		name string
		spec string
		run  func(context.Context) error
	}{
		{"period_expiry", s.cfg.ExpirySpec, s.SweepExpired},
		{"statistics_warmup", s.cfg.WarmupSpec, s.WarmStatistics},
		{"import_retention", s.cfg.RetentionSpec, s.PruneRetention},
	}
	for _, job := range jobs {
		if _, err := s.cron.AddFunc(job.spec, s.wrap(job.name, job.run)); err != nil {
			return nil, fmt.Errorf("schedule %s (%q): %w", job.name, job.spec, err)
		}
	}
	return s, nil
}

func (s *Scheduler) wrap(name string, run func(context.Context) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		ctx = requestcontext.WithTime(ctx, time.Now())

		start := time.Now()
		if err := run(ctx); err != nil {
			s.logger.ErrorContext(ctx, "scheduled job failed", "job", name, "error", err)
			return
		}
		s.logger.DebugContext(ctx, "scheduled job finished", "job", name, "duration", time.Since(start))
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started",
		"expiry_spec", s.cfg.ExpirySpec,
		"warmup_spec", s.cfg.WarmupSpec,
		"retention_spec", s.cfg.RetentionSpec,
	)
}

// Stop waits for running jobs, or for ctx to end.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop().Done()
	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("scheduler stop: %w", ctx.Err())
	}
	s.pool.StopAndWait()
	return nil
}

// SweepExpired closes every OPEN period whose end has passed.
func (s *Scheduler) SweepExpired(ctx context.Context) error {
	n, err := s.periods.SweepExpired(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		s.logger.InfoContext(ctx, "closed expired periods", "count", n)
	}
	return nil
}

// WarmStatistics computes the global view and the current period's view, then
// the per-candidate and per-region views the global view lists.
func (s *Scheduler) WarmStatistics(ctx context.Context) error {
	global, err := s.stats.Statistics(ctx, statsmodels.GlobalScope())
	if err != nil {
		return fmt.Errorf("warm global statistics: %w", err)
	}

	scopes := make([]statsmodels.Scope, 0, warmupFanout+1)
	current, err := s.periods.CurrentPeriod(ctx)
	switch {
	case err == nil:
		scopes = append(scopes, statsmodels.PeriodScope(current.ID))
	case !dErrors.HasCode(err, dErrors.CodeNoActivePeriod):
		return fmt.Errorf("load current period: %w", err)
	}
	for _, c := range global.ByCandidate {
		if len(scopes) > warmupFanout {
			break
		}
		scopes = append(scopes, statsmodels.CandidateScope(c.CandidateID))
	}
	for _, r := range global.ByRegion {
		if len(scopes) > warmupFanout {
			break
		}
		scopes = append(scopes, statsmodels.RegionScope(r.Region))
	}

	group := s.pool.NewGroupContext(ctx)
	groupCtx := group.Context()
	for _, scope := range scopes {
		group.SubmitErr(func() error {
			if _, err := s.stats.Statistics(groupCtx, scope); err != nil {
				return fmt.Errorf("warm %s: %w", scope, err)
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, pond.ErrGroupStopped) {
		return err
	}
	return nil
}

// PruneRetention deletes import records and relayed outbox rows older than
// the retention, and rejects abandoned uploads.
func (s *Scheduler) PruneRetention(ctx context.Context) error {
	res, err := s.imports.Cleanup(ctx, s.cfg.Retention, s.cfg.PendingTimeout)
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "import retention applied",
		"abandoned_batches", res.AbandonedBatches,
		"deleted_batches", res.DeletedBatches,
		"deleted_attempts", res.DeletedAttempts,
	)
	if s.outbox == nil {
		return nil
	}
	n, err := s.outbox.Prune(ctx, requestcontext.Now(ctx).Add(-s.cfg.Retention))
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "outbox retention applied", "deleted", n)
	return nil
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
