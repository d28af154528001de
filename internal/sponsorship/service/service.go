// Package service records sponsorships: at most one per voter and period,
// created and changed only while the period's window is open.
package service

import (
	"context"
	"crypto/rand"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"parrainage/internal/events"
	ledgerstore "parrainage/internal/ledger/store"
	periodmodels "parrainage/internal/period/models"
	sponsormetrics "parrainage/internal/sponsorship/metrics"
	"parrainage/internal/sponsorship/models"
	id "parrainage/pkg/domain"
	dErrors "parrainage/pkg/domain-errors"
	"parrainage/pkg/platform/sentinel"
	"parrainage/pkg/requestcontext"
)

// maxCodeAttempts bounds retries on verification code collisions.
const maxCodeAttempts = 5

var tracer = otel.Tracer("parrainage/sponsorship")

// Service orchestrates the sponsorship ledger.
type Service struct {
	tx        TxRunner
	logger    *slog.Logger
	metrics   *sponsormetrics.Metrics
	publisher events.Publisher
	random    io.Reader
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *sponsormetrics.Metrics) Option {
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

// WithRandom replaces crypto/rand as the verification code source.
func WithRandom(r io.Reader) Option {
	return func(s *Service) {
		s.random = r
	}
}

func New(tx TxRunner, opts ...Option) *Service {
	s := &Service{tx: tx, publisher: events.Discard{}, random: rand.Reader}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateSponsorship records voterID's support for candidateID in the period
// whose window is open now. The period row stays share-locked until commit,
// so a concurrent close either waits for this write or is seen by it.
//
// A verification code collision aborts the transaction; the whole attempt is
// retried with a fresh code.
func (s *Service) CreateSponsorship(ctx context.Context, voterID id.VoterID, candidateID id.CandidateID) (*models.Receipt, error) {
	ctx, span := tracer.Start(ctx, "sponsorship.create", trace.WithAttributes(
		attribute.String("voter.id", voterID.String()),
		attribute.String("candidate.id", candidateID.String()),
	))
	defer span.End()

	start := time.Now()
	defer func() { s.metrics.ObserveCreateLatency(time.Since(start)) }()

	for attempt := 1; attempt <= maxCodeAttempts; attempt++ {
		code, err := models.GenerateCode(s.random)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate verification code")
		}

		receipt, evt, err := s.create(ctx, voterID, candidateID, code)
		if errors.Is(err, ledgerstore.ErrVerificationCodeTaken) {
			s.metrics.IncrementCodeRetry()
			span.AddEvent("verification code collision", trace.WithAttributes(attribute.Int("attempt", attempt)))
			continue
		}
		if err != nil {
			err = dErrors.Classify(err, "failed to create sponsorship")
			s.metrics.IncrementOperation("create", outcome(err))
			return nil, err
		}

		s.publisher.Publish(ctx, evt)
		s.metrics.IncrementOperation("create", "ok")
		s.logAudit(ctx, "sponsorship_created",
			"sponsorship_id", receipt.SponsorshipID,
			"voter_id", voterID,
			"candidate_id", candidateID,
			"period_id", receipt.PeriodID)
		return receipt, nil
	}

	s.metrics.IncrementOperation("create", string(dErrors.CodeInternal))
	return nil, dErrors.New(dErrors.CodeInternal, "could not allocate a unique verification code")
}

func (s *Service) create(ctx context.Context, voterID id.VoterID, candidateID id.CandidateID, code string) (*models.Receipt, events.Event, error) {
	now := requestcontext.Now(ctx)
	var (
		receipt *models.Receipt
		evt     events.Event
	)
	err := s.tx.RunInTx(ctx, func(ctx context.Context, store Store) error {
		period, err := lockWindow(ctx, store, now)
		if err != nil {
			if dErrors.HasCode(err, dErrors.CodePeriodClosed) {
				return dErrors.New(dErrors.CodeNoActivePeriod, "no sponsorship period is open")
			}
			return err
		}
		if _, err := store.FindCandidate(ctx, candidateID); err != nil {
			return notFound(err, "candidate not found")
		}
		voter, err := store.FindVoter(ctx, voterID)
		if err != nil {
			return notFound(err, "voter not found")
		}

		// No existence pre-check: AlreadySponsored comes only from the unique
		// constraint on (voter, period).
		sp, err := models.NewSponsorship(id.SponsorshipID(uuid.New()), voterID, candidateID, period.ID, code, now)
		if err != nil {
			return err
		}
		if err := store.CreateSponsorship(ctx, sp); err != nil {
			if errors.Is(err, ledgerstore.ErrSponsorshipExists) {
				return dErrors.New(dErrors.CodeAlreadySponsored, "voter has already sponsored a candidate in this period")
			}
			return err
		}

		evt = sponsorshipEvent(events.SponsorshipCreated, sp, voter.Region, now)
		if err := events.Record(ctx, store, evt); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record sponsorship event")
		}
		receipt = &models.Receipt{SponsorshipID: sp.ID, VerificationCode: sp.VerificationCode, PeriodID: sp.PeriodID}
		return nil
	})
	return receipt, evt, err
}

// WithdrawSponsorship deletes the voter's PENDING sponsorship in periodID
// while the period's window is open.
func (s *Service) WithdrawSponsorship(ctx context.Context, voterID id.VoterID, periodID id.PeriodID) error {
	ctx, span := tracer.Start(ctx, "sponsorship.withdraw", trace.WithAttributes(
		attribute.String("voter.id", voterID.String()),
		attribute.String("period.id", periodID.String()),
	))
	defer span.End()

	now := requestcontext.Now(ctx)
	var evt events.Event
	err := s.tx.RunInTx(ctx, func(ctx context.Context, store Store) error {
		if _, err := store.FindPeriod(ctx, periodID); err != nil {
			return notFound(err, "period not found")
		}
		if err := requireWindow(ctx, store, periodID, now); err != nil {
			return err
		}

		sp, err := store.FindSponsorshipByVoter(ctx, voterID, periodID)
		if err != nil {
			return notFound(err, "no pending sponsorship for this voter")
		}
		if !sp.IsPending() {
			return dErrors.New(dErrors.CodeNotFound, "no pending sponsorship for this voter")
		}
		deleted, err := store.DeletePendingSponsorship(ctx, sp.ID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to withdraw sponsorship")
		}
		if !deleted {
			return dErrors.New(dErrors.CodeNotFound, "no pending sponsorship for this voter")
		}

		region := ""
		if voter, err := store.FindVoter(ctx, voterID); err == nil {
			region = voter.Region
		}
		evt = sponsorshipEvent(events.SponsorshipWithdrawn, sp, region, now)
		if err := events.Record(ctx, store, evt); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record sponsorship event")
		}
		return nil
	})
	if err != nil {
		err = dErrors.Classify(err, "failed to withdraw sponsorship")
		s.metrics.IncrementOperation("withdraw", outcome(err))
		return err
	}

	s.publisher.Publish(ctx, evt)
	s.metrics.IncrementOperation("withdraw", "ok")
	s.logAudit(ctx, "sponsorship_withdrawn", "sponsorship_id", evt.SponsorshipID, "voter_id", voterID, "period_id", periodID)
	return nil
}

// VerifySponsorship looks a sponsorship up by its verification code.
func (s *Service) VerifySponsorship(ctx context.Context, code string) (*models.SponsorshipView, error) {
	ctx, span := tracer.Start(ctx, "sponsorship.verify")
	defer span.End()

	code = models.NormalizeCode(code)
	if !models.IsVerificationCode(code) {
		return nil, dErrors.New(dErrors.CodeNotFound, "sponsorship not found")
	}

	var view *models.SponsorshipView
	err := s.tx.RunInTx(ctx, func(ctx context.Context, store Store) error {
		sp, err := store.FindSponsorshipByCode(ctx, code)
		if err != nil {
			return notFound(err, "sponsorship not found")
		}
		candidate, err := store.FindCandidate(ctx, sp.CandidateID)
		if err != nil {
			return notFound(err, "candidate not found")
		}
		view = models.NewView(sp, candidate)
		return nil
	})
	if err != nil {
		return nil, dErrors.Classify(err, "failed to verify sponsorship")
	}
	return view, nil
}

// ValidateSponsorship confirms a PENDING sponsorship while its period's window is open.
func (s *Service) ValidateSponsorship(ctx context.Context, code string) (*models.SponsorshipView, error) {
	ctx, span := tracer.Start(ctx, "sponsorship.validate")
	defer span.End()

	code = models.NormalizeCode(code)
	if !models.IsVerificationCode(code) {
		return nil, dErrors.New(dErrors.CodeNotFound, "sponsorship not found")
	}

	now := requestcontext.Now(ctx)
	var (
		view *models.SponsorshipView
		evt  events.Event
	)
	err := s.tx.RunInTx(ctx, func(ctx context.Context, store Store) error {
		sp, err := store.FindSponsorshipByCode(ctx, code)
		if err != nil {
			return notFound(err, "sponsorship not found")
		}
		if err := requireWindow(ctx, store, sp.PeriodID, now); err != nil {
			return err
		}
		if err := sp.CanValidate(); err != nil {
			return err
		}
		moved, err := store.UpdateSponsorshipStatus(ctx, sp.ID, models.StatusPending, models.StatusValidated, now)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to validate sponsorship")
		}
		if !moved {
			return dErrors.New(dErrors.CodeInvalidState, "sponsorship is no longer pending")
		}
		sp.ApplyValidation(now)

		candidate, err := store.FindCandidate(ctx, sp.CandidateID)
		if err != nil {
			return notFound(err, "candidate not found")
		}
		region := ""
		if voter, err := store.FindVoter(ctx, sp.VoterID); err == nil {
			region = voter.Region
		}
		evt = sponsorshipEvent(events.SponsorshipValidated, sp, region, now)
		if err := events.Record(ctx, store, evt); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record sponsorship event")
		}
		view = models.NewView(sp, candidate)
		return nil
	})
	if err != nil {
		err = dErrors.Classify(err, "failed to validate sponsorship")
		s.metrics.IncrementOperation("validate", outcome(err))
		return nil, err
	}

	s.publisher.Publish(ctx, evt)
	s.metrics.IncrementOperation("validate", "ok")
	s.logAudit(ctx, "sponsorship_validated", "sponsorship_id", view.SponsorshipID, "period_id", view.PeriodID)
	return view, nil
}

// CheckEligibility tells a voter identified by both roll keys whether they can
// still sponsor in the period whose window is open now. It writes nothing; the
// answer is advisory and CreateSponsorship remains the authority.
func (s *Service) CheckEligibility(ctx context.Context, cardNumber, nationalID string) (*models.Eligibility, error) {
	ctx, span := tracer.Start(ctx, "sponsorship.eligibility")
	defer span.End()

	cardNumber = strings.TrimSpace(cardNumber)
	nationalID = strings.TrimSpace(nationalID)
	if cardNumber == "" || nationalID == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "card number and national id are required")
	}

	now := requestcontext.Now(ctx)
	var result *models.Eligibility
	err := s.tx.RunInTx(ctx, func(ctx context.Context, store Store) error {
		voter, err := store.FindVoterByKeys(ctx, cardNumber, nationalID)
		if err != nil {
			return notFound(err, "voter not found on the roll")
		}
		period, err := lockWindow(ctx, store, now)
		if err != nil {
			if dErrors.HasCode(err, dErrors.CodePeriodClosed) {
				return dErrors.New(dErrors.CodeNoActivePeriod, "no sponsorship period is open")
			}
			return err
		}

		sponsored := true
		if _, err := store.FindSponsorshipByVoter(ctx, voter.ID, period.ID); errors.Is(err, sentinel.ErrNotFound) {
			sponsored = false
		} else if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check existing sponsorship")
		}
		result = models.NewEligibility(voter.ID, voter.LastName, voter.FirstName, voter.Region, voter.PollingStation, period.ID, sponsored)
		return nil
	})
	if err != nil {
		err = dErrors.Classify(err, "failed to check eligibility")
		s.metrics.IncrementOperation("eligibility", outcome(err))
		return nil, err
	}
	s.metrics.IncrementOperation("eligibility", "ok")
	return result, nil
}

// lockWindow share-locks the period whose window is open at now.
func lockWindow(ctx context.Context, store Store, now time.Time) (*periodmodels.Period, error) {
	p, err := store.LockWindowPeriod(ctx, now)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodePeriodClosed, "sponsorship period is closed")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to lock sponsorship period")
	}
	return p, nil
}

// requireWindow fails with PeriodClosed unless periodID is the period whose
// window is open at now.
func requireWindow(ctx context.Context, store Store, periodID id.PeriodID, now time.Time) error {
	p, err := lockWindow(ctx, store, now)
	if err != nil {
		return err
	}
	if p.ID != periodID {
		return dErrors.New(dErrors.CodePeriodClosed, "sponsorship period is closed")
	}
	return nil
}

func sponsorshipEvent(t events.Type, sp *models.Sponsorship, region string, now time.Time) events.Event {
	evt := events.New(t, sp.PeriodID, now)
	evt.SponsorshipID = sp.ID
	evt.VoterID = sp.VoterID
	evt.CandidateID = sp.CandidateID
	evt.Region = region
	return evt
}

func notFound(err error, message string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, message)
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "ledger read failed")
}

func outcome(err error) string {
	if de, ok := dErrors.As(err); ok {
		return string(de.Code)
	}
	return string(dErrors.CodeInternal)
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
