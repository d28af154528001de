// Package domain holds the typed identifiers and small value objects shared by
// every module of the sponsorship core.
package domain

import (
	"github.com/google/uuid"

	dErrors "parrainage/pkg/domain-errors"
)

// Typed IDs prevent passing a candidate ID where a voter ID is expected.
type (
	VoterID       uuid.UUID
	CandidateID   uuid.UUID
	PeriodID      uuid.UUID
	SponsorshipID uuid.UUID
	BatchID       uuid.UUID
)

func parseUUID(s, kind string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid "+kind)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" cannot be nil")
	}
	return u, nil
}

func ParseVoterID(s string) (VoterID, error) {
	u, err := parseUUID(s, "voter id")
	return VoterID(u), err
}

func ParseCandidateID(s string) (CandidateID, error) {
	u, err := parseUUID(s, "candidate id")
	return CandidateID(u), err
}

func ParsePeriodID(s string) (PeriodID, error) {
	u, err := parseUUID(s, "period id")
	return PeriodID(u), err
}

func ParseSponsorshipID(s string) (SponsorshipID, error) {
	u, err := parseUUID(s, "sponsorship id")
	return SponsorshipID(u), err
}

func ParseBatchID(s string) (BatchID, error) {
	u, err := parseUUID(s, "batch id")
	return BatchID(u), err
}

func (id VoterID) String() string       { return uuid.UUID(id).String() }
func (id CandidateID) String() string   { return uuid.UUID(id).String() }
func (id PeriodID) String() string      { return uuid.UUID(id).String() }
func (id SponsorshipID) String() string { return uuid.UUID(id).String() }
func (id BatchID) String() string       { return uuid.UUID(id).String() }

func (id VoterID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id CandidateID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id PeriodID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id SponsorshipID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id BatchID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }

// Text marshaling keeps typed IDs rendered as canonical UUID strings in JSON.

func (id VoterID) MarshalText() ([]byte, error)       { return uuid.UUID(id).MarshalText() }
func (id CandidateID) MarshalText() ([]byte, error)   { return uuid.UUID(id).MarshalText() }
func (id PeriodID) MarshalText() ([]byte, error)      { return uuid.UUID(id).MarshalText() }
func (id SponsorshipID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id BatchID) MarshalText() ([]byte, error)       { return uuid.UUID(id).MarshalText() }

func (id *VoterID) UnmarshalText(b []byte) error       { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *CandidateID) UnmarshalText(b []byte) error   { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *PeriodID) UnmarshalText(b []byte) error      { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *SponsorshipID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *BatchID) UnmarshalText(b []byte) error       { return (*uuid.UUID)(id).UnmarshalText(b) }
