// Package service runs the sponsorship period state machine.
//
// CLOSED -> OPEN -> CLOSED may repeat; CLOSED or OPEN -> TERMINATED is final.
// Closing or terminating an OPEN period rejects its PENDING sponsorships in the
// same transaction, so no sponsorship is left PENDING in a closed period.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"parrainage/internal/events"
	periodmetrics "parrainage/internal/period/metrics"
	"parrainage/internal/period/models"
	id "parrainage/pkg/domain"
	dErrors "parrainage/pkg/domain-errors"
	"parrainage/pkg/platform/sentinel"
	"parrainage/pkg/requestcontext"
)

var tracer = otel.Tracer("parrainage/period")

// Service orchestrates period transitions.
type Service struct {
	tx        TxRunner
	logger    *slog.Logger
	metrics   *periodmetrics.Metrics
	publisher events.Publisher
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *periodmetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithPublisher sets where committed events go after the transaction.
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

// New constructs a Service over tx.
func New(tx TxRunner, opts ...Option) *Service {
	s := &Service{tx: tx, publisher: events.Discard{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreatePeriod records a CLOSED period over [start, end). Ranges overlapping a
// non-terminated period are refused.
func (s *Service) CreatePeriod(ctx context.Context, start, end time.Time) (*models.Period, error) {
	ctx, span := tracer.Start(ctx, "period.create")
	defer span.End()

	now := requestcontext.Now(ctx)
	p, err := models.NewPeriod(id.PeriodID(uuid.New()), start, end, now)
	if err != nil {
		if de, ok := dErrors.As(err); ok && de.Code == dErrors.CodeInvariant {
			return nil, dErrors.New(dErrors.CodeValidation, de.Message)
		}
		return nil, err
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context, store Store) error {
		if err := store.LockPeriodTransitions(ctx); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to lock period transitions")
		}
		existing, err := store.FindOverlappingPeriod(ctx, p.Start, p.End)
		switch {
		case err == nil:
			return dErrors.Newf(dErrors.CodeConflict, "period overlaps period %s", existing.ID)
		case !errors.Is(err, sentinel.ErrNotFound):
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check overlapping periods")
		}
		if err := store.CreatePeriod(ctx, p); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create period")
		}
		return nil
	})
	if err != nil {
		return nil, dErrors.Classify(err, "failed to create period")
	}

	s.logAudit(ctx, "period_created", "period_id", p.ID, "start", p.Start, "end", p.End)
	return p, nil
}

// OpenPeriod moves a CLOSED period to OPEN. Opens are serialized so two
// periods can never both be open over now.
func (s *Service) OpenPeriod(ctx context.Context, periodID id.PeriodID) (*models.Period, error) {
	ctx, span := startSpan(ctx, "period.open", periodID)
	defer span.End()

	now := requestcontext.Now(ctx)
	var opened *models.Period
	err := s.tx.RunInTx(ctx, func(ctx context.Context, store Store) error {
		if err := store.LockPeriodTransitions(ctx); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to lock period transitions")
		}
		p, err := findForUpdate(ctx, store, periodID)
		if err != nil {
			return err
		}
		if err := p.CanOpen(now); err != nil {
			return err
		}

		open, err := store.ListOpenPeriods(ctx)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list open periods")
		}
		for _, other := range open {
			if other.ID != p.ID && !other.HasElapsed(now) {
				return dErrors.Newf(dErrors.CodeConflict, "period %s is already open", other.ID)
			}
		}

		p.Apply(models.StateOpen, now)
		if err := store.UpdatePeriod(ctx, p); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to open period")
		}
		opened = p
		return nil
	})
	if err != nil {
		return nil, dErrors.Classify(err, "failed to open period")
	}

	s.metrics.IncrementTransition(string(models.StateOpen))
	s.logAudit(ctx, "period_opened", "period_id", periodID)
	return opened, nil
}

// ClosePeriod moves an OPEN period to CLOSED and rejects its PENDING sponsorships.
func (s *Service) ClosePeriod(ctx context.Context, periodID id.PeriodID) (*models.Period, error) {
	ctx, span := startSpan(ctx, "period.close", periodID)
	defer span.End()

	return s.transition(ctx, periodID, models.StateClosed, "period_closed")
}

// TerminatePeriod ends a period for good. Terminating an OPEN period runs the
// same rejection cascade as a close.
func (s *Service) TerminatePeriod(ctx context.Context, periodID id.PeriodID) (*models.Period, error) {
	ctx, span := startSpan(ctx, "period.terminate", periodID)
	defer span.End()

	return s.transition(ctx, periodID, models.StateTerminated, "period_terminated")
}

func (s *Service) transition(ctx context.Context, periodID id.PeriodID, next models.State, event string) (*models.Period, error) {
	now := requestcontext.Now(ctx)
	var (
		updated  *models.Period
		rejected int64
		evts     []events.Event
	)
	err := s.tx.RunInTx(ctx, func(ctx context.Context, store Store) error {
		p, err := findForUpdate(ctx, store, periodID)
		if err != nil {
			return err
		}
		if next == models.StateClosed {
			err = p.CanClose()
		} else {
			err = p.CanTerminate()
		}
		if err != nil {
			return err
		}

		wasOpen := p.State == models.StateOpen
		p.Apply(next, now)
		if err := store.UpdatePeriod(ctx, p); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update period")
		}

		evts = nil
		rejected = 0
		if wasOpen {
			n, err := store.RejectPendingSponsorships(ctx, p.ID, now)
			if err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to reject pending sponsorships")
			}
			rejected = n
			evt := events.New(events.SponsorshipRejected, p.ID, now)
			evt.Count = n
			evts = append(evts, evt)
			if err := events.Record(ctx, store, evts...); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record rejection event")
			}
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, dErrors.Classify(err, "failed to update period")
	}

	s.publisher.Publish(ctx, evts...)
	s.metrics.IncrementTransition(string(next))
	s.metrics.AddCascadeRejected(rejected)
	s.logAudit(ctx, event, "period_id", periodID, "rejected_count", rejected)
	return updated, nil
}

// IsWindowOpen reports whether periodID is OPEN with start <= now < end.
func (s *Service) IsWindowOpen(ctx context.Context, periodID id.PeriodID) (bool, error) {
	p, err := s.GetPeriod(ctx, periodID)
	if err != nil {
		return false, err
	}
	return p.IsWindowOpen(requestcontext.Now(ctx)), nil
}

func (s *Service) GetPeriod(ctx context.Context, periodID id.PeriodID) (*models.Period, error) {
	var p *models.Period
	err := s.tx.RunInTx(ctx, func(ctx context.Context, store Store) error {
		found, err := store.FindPeriod(ctx, periodID)
		if err != nil {
			return wrapPeriodErr(err)
		}
		p = found
		return nil
	})
	if err != nil {
		return nil, dErrors.Classify(err, "failed to load period")
	}
	return p, nil
}

// CurrentPeriod returns the period whose sponsorship window is open now.
func (s *Service) CurrentPeriod(ctx context.Context) (*models.Period, error) {
	now := requestcontext.Now(ctx)
	var current *models.Period
	err := s.tx.RunInTx(ctx, func(ctx context.Context, store Store) error {
		open, err := store.ListOpenPeriods(ctx)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list open periods")
		}
		for _, p := range open {
			if p.IsWindowOpen(now) {
				current = p
				return nil
			}
		}
		return dErrors.New(dErrors.CodeNoActivePeriod, "no sponsorship period is open")
	})
	if err != nil {
		return nil, dErrors.Classify(err, "failed to load current period")
	}
	return current, nil
}

// SweepExpired closes every period still OPEN in storage whose end has passed.
// Each close runs in its own transaction; a failure is logged and the sweep
// carries on with the next period.
func (s *Service) SweepExpired(ctx context.Context) (int, error) {
	ctx, span := tracer.Start(ctx, "period.sweep_expired")
	defer span.End()

	now := requestcontext.Now(ctx)
	var expired []id.PeriodID
	err := s.tx.RunInTx(ctx, func(ctx context.Context, store Store) error {
		open, err := store.ListOpenPeriods(ctx)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list open periods")
		}
		for _, p := range open {
			if p.HasElapsed(now) {
				expired = append(expired, p.ID)
			}
		}
		return nil
	})
	if err != nil {
		return 0, dErrors.Classify(err, "failed to list expired periods")
	}

	closed := 0
	for _, periodID := range expired {
		if _, err := s.transition(ctx, periodID, models.StateClosed, "period_expired"); err != nil {
			if dErrors.HasCode(err, dErrors.CodeInvalidState) {
				continue
			}
			if s.logger != nil {
				s.logger.ErrorContext(ctx, "failed to close expired period", "period_id", periodID, "error", err)
			}
			continue
		}
		s.metrics.IncrementSwept()
		closed++
	}
	span.SetAttributes(attribute.Int("periods.closed", closed))
	return closed, nil
}

func findForUpdate(ctx context.Context, store Store, periodID id.PeriodID) (*models.Period, error) {
	p, err := store.FindPeriodForUpdate(ctx, periodID)
	if err != nil {
		return nil, wrapPeriodErr(err)
	}
	return p, nil
}

func wrapPeriodErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "period not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load period")
}

func startSpan(ctx context.Context, name string, periodID id.PeriodID) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attribute.String("period.id", periodID.String())))
}

func (s *Service) logAudit(ctx context.Context, event string, attributes ...any) {
	if s.logger == nil {
		return
	}
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", event, "log_type", "audit")
	s.logger.InfoContext(ctx, event, args...)
}
