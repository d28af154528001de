package store

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/google/uuid"

	"parrainage/internal/events"
	periodmodels "parrainage/internal/period/models"
	rollmodels "parrainage/internal/rollimport/models"
	sponsormodels "parrainage/internal/sponsorship/models"
	statsmodels "parrainage/internal/statistics/models"
	id "parrainage/pkg/domain"
)

// -----------------------------------------------------------------------------
// Periods
// -----------------------------------------------------------------------------

func (l *memLedger) CreatePeriod(_ context.Context, p *periodmodels.Period) error {
	l.st.periods[p.ID] = *p
	return nil
}

func (l *memLedger) FindPeriod(_ context.Context, periodID id.PeriodID) (*periodmodels.Period, error) {
	p, ok := l.st.periods[periodID]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (l *memLedger) FindPeriodForUpdate(ctx context.Context, periodID id.PeriodID) (*periodmodels.Period, error) {
	return l.FindPeriod(ctx, periodID)
}

func (l *memLedger) UpdatePeriod(_ context.Context, p *periodmodels.Period) error {
	if _, ok := l.st.periods[p.ID]; !ok {
		return ErrNotFound
	}
	l.st.periods[p.ID] = *p
	return nil
}

func (l *memLedger) ListOpenPeriods(_ context.Context) ([]*periodmodels.Period, error) {
	return l.periodsWhere(func(p periodmodels.Period) bool {
		return p.State == periodmodels.StateOpen
	}), nil
}

func (l *memLedger) FindOverlappingPeriod(_ context.Context, start, end time.Time) (*periodmodels.Period, error) {
	found := l.periodsWhere(func(p periodmodels.Period) bool {
		return p.State != periodmodels.StateTerminated && p.Overlaps(start, end)
	})
	if len(found) == 0 {
		return nil, ErrNotFound
	}
	return found[0], nil
}

func (l *memLedger) LockWindowPeriod(_ context.Context, now time.Time) (*periodmodels.Period, error) {
	found := l.periodsWhere(func(p periodmodels.Period) bool {
		return p.IsWindowOpen(now)
	})
	if len(found) == 0 {
		return nil, ErrNotFound
	}
	return found[0], nil
}

// LockPeriodTransitions is a no-op: memory transactions are already serial.
func (l *memLedger) LockPeriodTransitions(context.Context) error {
	return nil
}

func (l *memLedger) periodsWhere(match func(periodmodels.Period) bool) []*periodmodels.Period {
	var out []*periodmodels.Period
	for _, p := range l.st.periods {
		if match(p) {
			p := p
			out = append(out, &p)
		}
	}
	slices.SortFunc(out, func(a, b *periodmodels.Period) int {
		return a.Start.Compare(b.Start)
	})
	return out
}

// -----------------------------------------------------------------------------
// Sponsorships
// -----------------------------------------------------------------------------

func (l *memLedger) CreateSponsorship(_ context.Context, sp *sponsormodels.Sponsorship) error {
	key := voterPeriod{voter: sp.VoterID, period: sp.PeriodID}
	if _, taken := l.st.byVoterPeriod[key]; taken {
		return ErrSponsorshipExists
	}
	if _, taken := l.st.byCode[sp.VerificationCode]; taken {
		return ErrVerificationCodeTaken
	}
	l.st.sponsorships[sp.ID] = *sp
	l.st.byVoterPeriod[key] = sp.ID
	l.st.byCode[sp.VerificationCode] = sp.ID
	return nil
}

func (l *memLedger) FindSponsorshipByCode(_ context.Context, code string) (*sponsormodels.Sponsorship, error) {
	return l.sponsorship(l.st.byCode[code])
}

func (l *memLedger) FindSponsorshipByVoter(_ context.Context, voterID id.VoterID, periodID id.PeriodID) (*sponsormodels.Sponsorship, error) {
	return l.sponsorship(l.st.byVoterPeriod[voterPeriod{voter: voterID, period: periodID}])
}

func (l *memLedger) sponsorship(sponsorshipID id.SponsorshipID) (*sponsormodels.Sponsorship, error) {
	sp, ok := l.st.sponsorships[sponsorshipID]
	if !ok {
		return nil, ErrNotFound
	}
	return &sp, nil
}

func (l *memLedger) UpdateSponsorshipStatus(_ context.Context, sponsorshipID id.SponsorshipID, from, to sponsormodels.Status, now time.Time) (bool, error) {
	sp, ok := l.st.sponsorships[sponsorshipID]
	if !ok || sp.Status != from {
		return false, nil
	}
	sp.Status = to
	sp.UpdatedAt = now
	l.st.sponsorships[sponsorshipID] = sp
	return true, nil
}

func (l *memLedger) DeletePendingSponsorship(_ context.Context, sponsorshipID id.SponsorshipID) (bool, error) {
	sp, ok := l.st.sponsorships[sponsorshipID]
	if !ok || sp.Status != sponsormodels.StatusPending {
		return false, nil
	}
	delete(l.st.sponsorships, sponsorshipID)
	delete(l.st.byVoterPeriod, voterPeriod{voter: sp.VoterID, period: sp.PeriodID})
	delete(l.st.byCode, sp.VerificationCode)
	return true, nil
}

func (l *memLedger) RejectPendingSponsorships(_ context.Context, periodID id.PeriodID, now time.Time) (int64, error) {
	var n int64
	for key, sp := range l.st.sponsorships {
		if sp.PeriodID == periodID && sp.Status == sponsormodels.StatusPending {
			sp.Status = sponsormodels.StatusRejected
			sp.UpdatedAt = now
			l.st.sponsorships[key] = sp
			n++
		}
	}
	return n, nil
}

func (l *memLedger) FindCandidate(_ context.Context, candidateID id.CandidateID) (*sponsormodels.Candidate, error) {
	c, ok := l.st.candidates[candidateID]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (l *memLedger) PutCandidate(_ context.Context, c *sponsormodels.Candidate) error {
	l.st.candidates[c.ID] = *c
	return nil
}

func (l *memLedger) FindVoter(_ context.Context, voterID id.VoterID) (*rollmodels.Voter, error) {
	v, ok := l.st.voters[voterID]
	if !ok {
		return nil, ErrNotFound
	}
	return &v, nil
}

func (l *memLedger) FindVoterByKeys(_ context.Context, cardNumber, nationalID string) (*rollmodels.Voter, error) {
	for _, v := range l.st.voters {
		if v.CardNumber == cardNumber && v.NationalID == nationalID {
			return &v, nil
		}
	}
	return nil, ErrNotFound
}

// -----------------------------------------------------------------------------
// Roll imports
// -----------------------------------------------------------------------------

func (l *memLedger) CreateBatch(_ context.Context, b *rollmodels.Batch) error {
	l.st.batches[b.ID] = *b
	return nil
}

func (l *memLedger) FindBatch(_ context.Context, batchID id.BatchID) (*rollmodels.Batch, error) {
	b, ok := l.st.batches[batchID]
	if !ok {
		return nil, ErrNotFound
	}
	return &b, nil
}

func (l *memLedger) FindBatchForUpdate(ctx context.Context, batchID id.BatchID) (*rollmodels.Batch, error) {
	return l.FindBatch(ctx, batchID)
}

func (l *memLedger) UpdateBatch(_ context.Context, b *rollmodels.Batch) error {
	if _, ok := l.st.batches[b.ID]; !ok {
		return ErrNotFound
	}
	l.st.batches[b.ID] = *b
	return nil
}

func (l *memLedger) CountBatches(_ context.Context, state rollmodels.BatchState, exclude id.BatchID) (int, error) {
	n := 0
	for batchID, b := range l.st.batches {
		if b.State == state && batchID != exclude {
			n++
		}
	}
	return n, nil
}

func (l *memLedger) ListBatchesBefore(_ context.Context, state rollmodels.BatchState, cutoff time.Time) ([]*rollmodels.Batch, error) {
	var out []*rollmodels.Batch
	for _, b := range l.st.batches {
		if b.State == state && b.UpdatedAt.Before(cutoff) {
			b := b
			out = append(out, &b)
		}
	}
	slices.SortFunc(out, func(a, b *rollmodels.Batch) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out, nil
}

func (l *memLedger) DeleteTerminalBatchesBefore(_ context.Context, cutoff time.Time) (int64, error) {
	var n int64
	for batchID, b := range l.st.batches {
		if b.State.IsTerminal() && b.UpdatedAt.Before(cutoff) {
			delete(l.st.batches, batchID)
			delete(l.st.staging, batchID)
			n++
		}
	}
	return n, nil
}

// TryLockImport always succeeds: memory transactions are already serial.
func (l *memLedger) TryLockImport(context.Context) (bool, error) {
	return true, nil
}

func (l *memLedger) FindLiveVoters(_ context.Context, nationalIDs, cardNumbers []string) ([]*rollmodels.Voter, error) {
	seen := make(map[id.VoterID]bool)
	var out []*rollmodels.Voter
	add := func(voterID id.VoterID, ok bool) {
		if !ok || seen[voterID] {
			return
		}
		seen[voterID] = true
		v := l.st.voters[voterID]
		out = append(out, &v)
	}
	for _, n := range nationalIDs {
		voterID, ok := l.st.votersByNational[n]
		add(voterID, ok)
	}
	for _, c := range cardNumbers {
		voterID, ok := l.st.votersByCard[c]
		add(voterID, ok)
	}
	return out, nil
}

func (l *memLedger) PutVoter(_ context.Context, v *rollmodels.Voter) error {
	if _, taken := l.st.votersByNational[v.NationalID]; taken {
		return ErrVoterExists
	}
	if _, taken := l.st.votersByCard[v.CardNumber]; taken {
		return ErrVoterExists
	}
	l.st.voters[v.ID] = *v
	l.st.votersByNational[v.NationalID] = v.ID
	l.st.votersByCard[v.CardNumber] = v.ID
	return nil
}

func (l *memLedger) StageVoters(_ context.Context, rows []rollmodels.StagedVoter) error {
	for _, r := range rows {
		l.st.staging[r.BatchID] = append(slices.Clip(l.st.staging[r.BatchID]), r)
	}
	return nil
}

func (l *memLedger) CountStaged(_ context.Context, batchID id.BatchID) (int, error) {
	return len(l.st.staging[batchID]), nil
}

// PromoteStaged mirrors the transactional INSERT ... SELECT: on a collision the
// whole transaction fails, so partial writes to the working state are discarded.
func (l *memLedger) PromoteStaged(ctx context.Context, batchID id.BatchID) (int64, error) {
	rows := slices.Clone(l.st.staging[batchID])
	slices.SortFunc(rows, func(a, b rollmodels.StagedVoter) int {
		return cmp.Compare(a.Row, b.Row)
	})
	for _, r := range rows {
		v := r.Voter
		if err := l.PutVoter(ctx, &v); err != nil {
			return 0, err
		}
	}
	delete(l.st.staging, batchID)
	return int64(len(rows)), nil
}

func (l *memLedger) ClearStaged(_ context.Context, batchID id.BatchID) (int64, error) {
	n := int64(len(l.st.staging[batchID]))
	delete(l.st.staging, batchID)
	return n, nil
}

func (l *memLedger) RecordAttempt(_ context.Context, a *rollmodels.ImportAttempt) error {
	l.st.attempts = append(l.st.attempts, *a)
	return nil
}

func (l *memLedger) ListAttempts(_ context.Context, uploadedBy string) ([]*rollmodels.ImportAttempt, error) {
	var out []*rollmodels.ImportAttempt
	for _, a := range l.st.attempts {
		if a.UploadedBy == uploadedBy {
			a := a
			out = append(out, &a)
		}
	}
	slices.SortStableFunc(out, func(a, b *rollmodels.ImportAttempt) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

func (l *memLedger) DeleteAttemptsBefore(_ context.Context, cutoff time.Time) (int64, error) {
	before := len(l.st.attempts)
	l.st.attempts = slices.DeleteFunc(l.st.attempts, func(a rollmodels.ImportAttempt) bool {
		return a.CreatedAt.Before(cutoff)
	})
	return int64(before - len(l.st.attempts)), nil
}

// -----------------------------------------------------------------------------
// Statistics
// -----------------------------------------------------------------------------

func (l *memLedger) matching(f statsmodels.Filter, liveOnly bool) []sponsormodels.Sponsorship {
	var out []sponsormodels.Sponsorship
	for _, sp := range l.st.sponsorships {
		if liveOnly && sp.Status == sponsormodels.StatusRejected {
			continue
		}
		if f.PeriodID != nil && sp.PeriodID != *f.PeriodID {
			continue
		}
		if f.CandidateID != nil && sp.CandidateID != *f.CandidateID {
			continue
		}
		if f.Region != "" && l.st.voters[sp.VoterID].Region != f.Region {
			continue
		}
		out = append(out, sp)
	}
	return out
}

func (l *memLedger) CountByStatus(_ context.Context, f statsmodels.Filter) (statsmodels.StatusCounts, error) {
	var c statsmodels.StatusCounts
	for _, sp := range l.matching(f, false) {
		c.Total++
		switch sp.Status {
		case sponsormodels.StatusPending:
			c.Pending++
		case sponsormodels.StatusValidated:
			c.Validated++
		case sponsormodels.StatusRejected:
			c.Rejected++
		}
	}
	return c, nil
}

func (l *memLedger) CountByCandidate(_ context.Context, f statsmodels.Filter) ([]statsmodels.CandidateCount, error) {
	counts := make(map[id.CandidateID]int64)
	for _, sp := range l.matching(f, true) {
		counts[sp.CandidateID]++
	}
	out := []statsmodels.CandidateCount{}
	for candidateID, n := range counts {
		c := l.st.candidates[candidateID]
		out = append(out, statsmodels.CandidateCount{
			CandidateID: candidateID,
			LastName:    c.LastName,
			FirstName:   c.FirstName,
			Party:       c.Party,
			Count:       n,
		})
	}
	slices.SortFunc(out, func(a, b statsmodels.CandidateCount) int {
		return cmp.Or(cmp.Compare(b.Count, a.Count), cmp.Compare(a.LastName, b.LastName), cmp.Compare(a.FirstName, b.FirstName))
	})
	return out, nil
}

func (l *memLedger) CountByRegion(_ context.Context, f statsmodels.Filter) ([]statsmodels.RegionCount, error) {
	counts := make(map[string]int64)
	for _, sp := range l.matching(f, true) {
		counts[l.st.voters[sp.VoterID].Region]++
	}
	out := []statsmodels.RegionCount{}
	for region, n := range counts {
		out = append(out, statsmodels.RegionCount{Region: region, Count: n})
	}
	slices.SortFunc(out, func(a, b statsmodels.RegionCount) int {
		return cmp.Or(cmp.Compare(b.Count, a.Count), cmp.Compare(a.Region, b.Region))
	})
	return out, nil
}

func (l *memLedger) CountByDay(_ context.Context, f statsmodels.Filter) ([]statsmodels.DailyCount, error) {
	counts := make(map[string]int64)
	for _, sp := range l.matching(f, false) {
		counts[sp.CreatedAt.UTC().Format(time.DateOnly)]++
	}
	out := []statsmodels.DailyCount{}
	for day, n := range counts {
		out = append(out, statsmodels.DailyCount{Date: day, Count: n})
	}
	slices.SortFunc(out, func(a, b statsmodels.DailyCount) int {
		return cmp.Compare(a.Date, b.Date)
	})
	return out, nil
}

// -----------------------------------------------------------------------------
// Outbox
// -----------------------------------------------------------------------------

func (l *memLedger) AppendOutbox(_ context.Context, entries ...events.OutboxEntry) error {
	l.st.outbox = append(l.st.outbox, entries...)
	return nil
}

func (l *memLedger) FetchUnpublished(_ context.Context, limit int) ([]events.OutboxEntry, error) {
	var out []events.OutboxEntry
	for _, e := range l.st.outbox {
		if e.PublishedAt == nil {
			out = append(out, e)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (l *memLedger) MarkPublished(_ context.Context, ids []uuid.UUID, at time.Time) error {
	for i := range l.st.outbox {
		if slices.Contains(ids, l.st.outbox[i].ID) {
			published := at
			l.st.outbox[i].PublishedAt = &published
		}
	}
	return nil
}

func (l *memLedger) DeletePublishedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	before := len(l.st.outbox)
	l.st.outbox = slices.DeleteFunc(l.st.outbox, func(e events.OutboxEntry) bool {
		return e.PublishedAt != nil && e.PublishedAt.Before(cutoff)
	})
	return int64(before - len(l.st.outbox)), nil
}
