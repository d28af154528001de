package store

import (
	"context"
	"maps"
	"slices"
	"sync"

	"parrainage/internal/events"
	periodmodels "parrainage/internal/period/models"
	rollmodels "parrainage/internal/rollimport/models"
	sponsormodels "parrainage/internal/sponsorship/models"
	id "parrainage/pkg/domain"
	dErrors "parrainage/pkg/domain-errors"
)

type voterPeriod struct {
	voter  id.VoterID
	period id.PeriodID
}

// memState holds values, not pointers, so a cloned state never aliases the
// committed one.
type memState struct {
	periods          map[id.PeriodID]periodmodels.Period
	candidates       map[id.CandidateID]sponsormodels.Candidate
	voters           map[id.VoterID]rollmodels.Voter
	votersByNational map[string]id.VoterID
	votersByCard     map[string]id.VoterID
	sponsorships     map[id.SponsorshipID]sponsormodels.Sponsorship
	byVoterPeriod    map[voterPeriod]id.SponsorshipID
	byCode           map[string]id.SponsorshipID
	batches          map[id.BatchID]rollmodels.Batch
	staging          map[id.BatchID][]rollmodels.StagedVoter
	attempts         []rollmodels.ImportAttempt
	outbox           []events.OutboxEntry
}

func newMemState() memState {
	return memState{
		periods:          make(map[id.PeriodID]periodmodels.Period),
		candidates:       make(map[id.CandidateID]sponsormodels.Candidate),
		voters:           make(map[id.VoterID]rollmodels.Voter),
		votersByNational: make(map[string]id.VoterID),
		votersByCard:     make(map[string]id.VoterID),
		sponsorships:     make(map[id.SponsorshipID]sponsormodels.Sponsorship),
		byVoterPeriod:    make(map[voterPeriod]id.SponsorshipID),
		byCode:           make(map[string]id.SponsorshipID),
		batches:          make(map[id.BatchID]rollmodels.Batch),
		staging:          make(map[id.BatchID][]rollmodels.StagedVoter),
	}
}

func (s memState) clone() memState {
	return memState{
		periods:          maps.Clone(s.periods),
		candidates:       maps.Clone(s.candidates),
		voters:           maps.Clone(s.voters),
		votersByNational: maps.Clone(s.votersByNational),
		votersByCard:     maps.Clone(s.votersByCard),
		sponsorships:     maps.Clone(s.sponsorships),
		byVoterPeriod:    maps.Clone(s.byVoterPeriod),
		byCode:           maps.Clone(s.byCode),
		batches:          maps.Clone(s.batches),
		staging:          maps.Clone(s.staging),
		attempts:         slices.Clone(s.attempts),
		outbox:           slices.Clone(s.outbox),
	}
}

// Memory is the in-process ledger store. Transactions run one at a time on a
// copy of the committed state, which replaces it only when fn succeeds, so a
// failed transaction leaves nothing behind.
type Memory struct {
	mu    sync.Mutex
	state memState
}

// NewMemory constructs an empty in-memory ledger store.
func NewMemory() *Memory {
	return &Memory{state: newMemState()}
}

func (m *Memory) RunInTx(ctx context.Context, fn func(ctx context.Context, l Ledger) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	work := m.state.clone()
	if err := fn(ctx, &memLedger{st: &work}); err != nil {
		return err
	}
	m.state = work
	return nil
}

// Health always succeeds.
func (m *Memory) Health(context.Context) error {
	return nil
}

// memLedger is the Ledger view over one transaction's working state.
type memLedger struct {
	st *memState
}
