package models

import (
	"time"

	id "parrainage/pkg/domain"
	dErrors "parrainage/pkg/domain-errors"
)

// Status is the lifecycle status of a sponsorship.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusValidated Status = "VALIDATED"
	StatusRejected  Status = "REJECTED"
)

func (s Status) IsValid() bool {
	return s == StatusPending || s == StatusValidated || s == StatusRejected
}

// Sponsorship is a voter's support of one candidate within one period.
//
// Invariants:
//   - (VoterID, PeriodID) is unique, enforced by the store
//   - VerificationCode is unique and never changes
//   - Only PENDING sponsorships are validated, withdrawn, or rejected by a close
type Sponsorship struct {
	ID               id.SponsorshipID `json:"id"`
	VoterID          id.VoterID       `json:"voter_id"`
	CandidateID      id.CandidateID   `json:"candidate_id"`
	PeriodID         id.PeriodID      `json:"period_id"`
	VerificationCode string           `json:"verification_code"`
	Status           Status           `json:"status"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// NewSponsorship builds a PENDING sponsorship.
func NewSponsorship(sponsorshipID id.SponsorshipID, voterID id.VoterID, candidateID id.CandidateID, periodID id.PeriodID, code string, now time.Time) (*Sponsorship, error) {
	if voterID.IsNil() || candidateID.IsNil() || periodID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariant, "sponsorship requires voter, candidate and period")
	}
	if !IsVerificationCode(code) {
		return nil, dErrors.New(dErrors.CodeInvariant, "malformed verification code")
	}
	return &Sponsorship{
		ID:               sponsorshipID,
		VoterID:          voterID,
		CandidateID:      candidateID,
		PeriodID:         periodID,
		VerificationCode: code,
		Status:           StatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

func (s *Sponsorship) IsPending() bool {
	return s.Status == StatusPending
}

// CanValidate checks the PENDING -> VALIDATED transition.
func (s *Sponsorship) CanValidate() error {
	if !s.IsPending() {
		return dErrors.Newf(dErrors.CodeInvalidState, "sponsorship is %s", s.Status)
	}
	return nil
}

// ApplyValidation marks the sponsorship VALIDATED. Call CanValidate first.
func (s *Sponsorship) ApplyValidation(now time.Time) {
	s.Status = StatusValidated
	s.UpdatedAt = now
}

// Candidate is read-only reference data for the ledger.
type Candidate struct {
	ID        id.CandidateID `json:"id"`
	LastName  string         `json:"last_name"`
	FirstName string         `json:"first_name"`
	Party     string         `json:"party"`
	AuthCode  string         `json:"-"`
}

// SponsorshipView is what a verification lookup returns.
type SponsorshipView struct {
	SponsorshipID    id.SponsorshipID `json:"sponsorship_id"`
	VerificationCode string           `json:"verification_code"`
	Status           Status           `json:"status"`
	PeriodID         id.PeriodID      `json:"period_id"`
	CandidateID      id.CandidateID   `json:"candidate_id"`
	CandidateName    string           `json:"candidate_name"`
	Party            string           `json:"party"`
	CreatedAt        time.Time        `json:"created_at"`
}

// NewView combines a sponsorship with its candidate.
func NewView(s *Sponsorship, c *Candidate) *SponsorshipView {
	return &SponsorshipView{
		SponsorshipID:    s.ID,
		VerificationCode: s.VerificationCode,
		Status:           s.Status,
		PeriodID:         s.PeriodID,
		CandidateID:      c.ID,
		CandidateName:    c.FirstName + " " + c.LastName,
		Party:            c.Party,
		CreatedAt:        s.CreatedAt,
	}
}

// Eligibility is the answer to "may this voter sponsor right now".
type Eligibility struct {
	Eligible       bool        `json:"eligible"`
	Reason         string      `json:"reason,omitempty"`
	VoterID        id.VoterID  `json:"voter_id"`
	LastName       string      `json:"last_name"`
	FirstName      string      `json:"first_name"`
	Region         string      `json:"region"`
	PollingStation string      `json:"polling_station"`
	PeriodID       id.PeriodID `json:"period_id"`
}

// ReasonAlreadySponsored marks a voter who sponsored in the open period.
const ReasonAlreadySponsored = "already_sponsored"

func NewEligibility(voterID id.VoterID, lastName, firstName, region, pollingStation string, periodID id.PeriodID, sponsored bool) *Eligibility {
	e := &Eligibility{
		Eligible:       !sponsored,
		VoterID:        voterID,
		LastName:       lastName,
		FirstName:      firstName,
		Region:         region,
		PollingStation: pollingStation,
		PeriodID:       periodID,
	}
	if sponsored {
		e.Reason = ReasonAlreadySponsored
	}
	return e
}

// Receipt is the result of a successful creation.
type Receipt struct {
	SponsorshipID    id.SponsorshipID `json:"sponsorship_id"`
	VerificationCode string           `json:"verification_code"`
	PeriodID         id.PeriodID      `json:"period_id"`
}
