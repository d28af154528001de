package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"parrainage/internal/platform/postgres"
	rollmodels "parrainage/internal/rollimport/models"
	sponsormodels "parrainage/internal/sponsorship/models"
	id "parrainage/pkg/domain"
)

const sponsorshipColumns = `id, voter_id, candidate_id, period_id, verification_code, status, created_at, updated_at`

// CreateSponsorship inserts s. The (voter, period) and verification code
// constraints decide concurrent races; their violations surface as
// ErrSponsorshipExists and ErrVerificationCodeTaken.
func (s *Postgres) CreateSponsorship(ctx context.Context, sp *sponsormodels.Sponsorship) error {
	_, err := s.exec(ctx).ExecContext(ctx, `
		INSERT INTO sponsorships (`+sponsorshipColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		uuid.UUID(sp.ID),
		uuid.UUID(sp.VoterID),
		uuid.UUID(sp.CandidateID),
		uuid.UUID(sp.PeriodID),
		sp.VerificationCode,
		string(sp.Status),
		sp.CreatedAt,
		sp.UpdatedAt,
	)
	if err != nil {
		if constraint, ok := postgres.UniqueViolation(err); ok {
			switch constraint {
			case constraintVoterPeriod:
				return ErrSponsorshipExists
			case constraintVerificationCode:
				return ErrVerificationCodeTaken
			}
		}
		return fmt.Errorf("insert sponsorship: %w", err)
	}
	return nil
}

func (s *Postgres) FindSponsorshipByCode(ctx context.Context, code string) (*sponsormodels.Sponsorship, error) {
	return s.findSponsorship(ctx, `SELECT `+sponsorshipColumns+` FROM sponsorships WHERE verification_code = $1`, code)
}

func (s *Postgres) FindSponsorshipByVoter(ctx context.Context, voterID id.VoterID, periodID id.PeriodID) (*sponsormodels.Sponsorship, error) {
	return s.findSponsorship(ctx, `
		SELECT `+sponsorshipColumns+` FROM sponsorships WHERE voter_id = $1 AND period_id = $2
	`, uuid.UUID(voterID), uuid.UUID(periodID))
}

func (s *Postgres) findSponsorship(ctx context.Context, query string, args ...any) (*sponsormodels.Sponsorship, error) {
	var (
		sp                                  sponsormodels.Sponsorship
		rawID, rawVoter, rawCand, rawPeriod uuid.UUID
		status                              string
	)
	err := s.exec(ctx).QueryRowContext(ctx, query, args...).Scan(
		&rawID, &rawVoter, &rawCand, &rawPeriod, &sp.VerificationCode, &status, &sp.CreatedAt, &sp.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find sponsorship: %w", err)
	}
	sp.ID = id.SponsorshipID(rawID)
	sp.VoterID = id.VoterID(rawVoter)
	sp.CandidateID = id.CandidateID(rawCand)
	sp.PeriodID = id.PeriodID(rawPeriod)
	sp.Status = sponsormodels.Status(status)
	return &sp, nil
}

func (s *Postgres) UpdateSponsorshipStatus(ctx context.Context, sponsorshipID id.SponsorshipID, from, to sponsormodels.Status, now time.Time) (bool, error) {
	res, err := s.exec(ctx).ExecContext(ctx, `
		UPDATE sponsorships SET status = $3, updated_at = $4
		WHERE id = $1 AND status = $2
	`, uuid.UUID(sponsorshipID), string(from), string(to), now)
	if err != nil {
		return false, fmt.Errorf("update sponsorship status: %w", err)
	}
	return affected(res, "update sponsorship status")
}

func (s *Postgres) DeletePendingSponsorship(ctx context.Context, sponsorshipID id.SponsorshipID) (bool, error) {
	res, err := s.exec(ctx).ExecContext(ctx, `
		DELETE FROM sponsorships WHERE id = $1 AND status = 'PENDING'
	`, uuid.UUID(sponsorshipID))
	if err != nil {
		return false, fmt.Errorf("delete sponsorship: %w", err)
	}
	return affected(res, "delete sponsorship")
}

func (s *Postgres) RejectPendingSponsorships(ctx context.Context, periodID id.PeriodID, now time.Time) (int64, error) {
	res, err := s.exec(ctx).ExecContext(ctx, `
		UPDATE sponsorships SET status = 'REJECTED', updated_at = $2
		WHERE period_id = $1 AND status = 'PENDING'
	`, uuid.UUID(periodID), now)
	if err != nil {
		return 0, fmt.Errorf("reject pending sponsorships: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reject pending rows affected: %w", err)
	}
	return n, nil
}

func (s *Postgres) FindCandidate(ctx context.Context, candidateID id.CandidateID) (*sponsormodels.Candidate, error) {
	var (
		c     sponsormodels.Candidate
		rawID uuid.UUID
	)
	err := s.exec(ctx).QueryRowContext(ctx, `
		SELECT id, last_name, first_name, party, auth_code FROM candidates WHERE id = $1
	`, uuid.UUID(candidateID)).Scan(&rawID, &c.LastName, &c.FirstName, &c.Party, &c.AuthCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find candidate: %w", err)
	}
	c.ID = id.CandidateID(rawID)
	return &c, nil
}

// PutCandidate upserts reference data. Candidate administration lives outside
// the ledger; this exists for seeding.
func (s *Postgres) PutCandidate(ctx context.Context, c *sponsormodels.Candidate) error {
	_, err := s.exec(ctx).ExecContext(ctx, `
		INSERT INTO candidates (id, last_name, first_name, party, auth_code)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			last_name = EXCLUDED.last_name,
			first_name = EXCLUDED.first_name,
			party = EXCLUDED.party,
			auth_code = EXCLUDED.auth_code
	`, uuid.UUID(c.ID), c.LastName, c.FirstName, c.Party, c.AuthCode)
	if err != nil {
		return fmt.Errorf("put candidate: %w", err)
	}
	return nil
}

func (s *Postgres) FindVoter(ctx context.Context, voterID id.VoterID) (*rollmodels.Voter, error) {
	v, err := scanVoter(s.exec(ctx).QueryRowContext(ctx, `
		SELECT `+voterColumns+` FROM voters WHERE id = $1
	`, uuid.UUID(voterID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find voter: %w", err)
	}
	return v, nil
}

func (s *Postgres) FindVoterByKeys(ctx context.Context, cardNumber, nationalID string) (*rollmodels.Voter, error) {
	v, err := scanVoter(s.exec(ctx).QueryRowContext(ctx, `
		SELECT `+voterColumns+` FROM voters WHERE card_number = $1 AND national_id = $2
	`, cardNumber, nationalID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find voter by keys: %w", err)
	}
	return v, nil
}

func affected(res sql.Result, op string) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s rows affected: %w", op, err)
	}
	return n > 0, nil
}
