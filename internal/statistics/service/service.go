// Package service computes sponsorship statistics and serves them through the
// cache coordinator.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"parrainage/internal/cache"
	"parrainage/internal/statistics/models"
	dErrors "parrainage/pkg/domain-errors"
	"parrainage/pkg/requestcontext"
)

// DefaultTTL is the fresh lifetime of a cached view.
const DefaultTTL = 5 * time.Minute

var tracer = otel.Tracer("parrainage/statistics")

// Store runs the aggregate queries.
type Store interface {
	CountByStatus(ctx context.Context, f models.Filter) (models.StatusCounts, error)
	CountByCandidate(ctx context.Context, f models.Filter) ([]models.CandidateCount, error)
	CountByRegion(ctx context.Context, f models.Filter) ([]models.RegionCount, error)
	CountByDay(ctx context.Context, f models.Filter) ([]models.DailyCount, error)
}

type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, store Store) error) error
}

// Cache is the coordinator surface the aggregator needs.
type Cache interface {
	GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute cache.ComputeFunc) ([]byte, error)
}

type Service struct {
	tx     TxRunner
	cache  Cache
	ttl    time.Duration
	logger *slog.Logger
}

type Option func(*Service)

func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// New builds the aggregator. A nil cache computes every request directly.
func New(tx TxRunner, c Cache, opts ...Option) *Service {
	s := &Service{tx: tx, cache: c, ttl: DefaultTTL, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetStatistics parses rawScope and returns its view.
func (s *Service) GetStatistics(ctx context.Context, rawScope string) (*models.StatisticsView, error) {
	scope, err := models.ParseScope(rawScope)
	if err != nil {
		return nil, err
	}
	return s.Statistics(ctx, scope)
}

// Statistics returns the view for scope, cached for the configured TTL.
func (s *Service) Statistics(ctx context.Context, scope models.Scope) (*models.StatisticsView, error) {
	ctx, span := tracer.Start(ctx, "statistics.get", trace.WithAttributes(attribute.String("statistics.scope", scope.String())))
	defer span.End()

	if s.cache == nil {
		return s.Compute(ctx, scope)
	}

	raw, err := s.cache.GetOrCompute(ctx, scope.CacheKey(), s.ttl, func(ctx context.Context) ([]byte, error) {
		view, err := s.Compute(ctx, scope)
		if err != nil {
			return nil, err
		}
		return json.Marshal(view)
	})
	if err != nil {
		return nil, dErrors.Classify(err, "failed to load statistics")
	}
	var view models.StatisticsView
	if err := json.Unmarshal(raw, &view); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to decode cached statistics")
	}
	return &view, nil
}

// Compute runs the aggregate queries for scope against the ledger.
func (s *Service) Compute(ctx context.Context, scope models.Scope) (*models.StatisticsView, error) {
	f := scope.Filter()
	view := &models.StatisticsView{Scope: scope.String()}
	err := s.tx.RunInTx(ctx, func(ctx context.Context, store Store) error {
		counts, err := store.CountByStatus(ctx, f)
		if err != nil {
			return fmt.Errorf("count by status: %w", err)
		}
		view.Counts = counts

		if scope.Kind != models.ScopeCandidate {
			if view.ByCandidate, err = store.CountByCandidate(ctx, f); err != nil {
				return fmt.Errorf("count by candidate: %w", err)
			}
		}
		if scope.Kind != models.ScopeRegion {
			if view.ByRegion, err = store.CountByRegion(ctx, f); err != nil {
				return fmt.Errorf("count by region: %w", err)
			}
		}
		if view.Daily, err = store.CountByDay(ctx, f); err != nil {
			return fmt.Errorf("count by day: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, dErrors.Classify(err, "failed to compute statistics")
	}
	view.ComputedAt = requestcontext.Now(ctx)
	return view, nil
}
