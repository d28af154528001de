package models

import (
	"time"

	id "parrainage/pkg/domain"
	dErrors "parrainage/pkg/domain-errors"
)

// State is the lifecycle state of a sponsorship period.
type State string

const (
	StateClosed     State = "CLOSED"
	StateOpen       State = "OPEN"
	StateTerminated State = "TERMINATED"
)

var transitions = map[State]map[State]bool{
	StateClosed: {StateOpen: true, StateTerminated: true},
	StateOpen:   {StateClosed: true, StateTerminated: true},
}

func (s State) IsValid() bool {
	return s == StateClosed || s == StateOpen || s == StateTerminated
}

// CanTransitionTo reports whether the lifecycle allows moving from s to next.
// TERMINATED has no outgoing transitions.
func (s State) CanTransitionTo(next State) bool {
	return transitions[s][next]
}

func (s State) String() string {
	return string(s)
}

// Period is an administrator-defined window during which sponsorships are accepted.
//
// Invariants:
//   - End is strictly after Start
//   - State changes only through the Can*/Apply* pairs below
//   - A period is never deleted once created
//
// The stored State alone does not decide whether sponsorships are accepted:
// a period may still be OPEN in storage after its End has passed if the expiry
// sweep has not run yet. Callers consult IsWindowOpen instead.
type Period struct {
	ID        id.PeriodID `json:"id"`
	Start     time.Time   `json:"start"`
	End       time.Time   `json:"end"`
	State     State       `json:"state"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// NewPeriod builds a CLOSED period over [start, end).
func NewPeriod(periodID id.PeriodID, start, end, now time.Time) (*Period, error) {
	if start.IsZero() || end.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariant, "period start and end are required")
	}
	if !end.After(start) {
		return nil, dErrors.New(dErrors.CodeInvariant, "period end must be after its start")
	}
	return &Period{
		ID:        periodID,
		Start:     start.UTC(),
		End:       end.UTC(),
		State:     StateClosed,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// IsWindowOpen is true iff the period is OPEN and start <= now < end.
func (p *Period) IsWindowOpen(now time.Time) bool {
	return p.State == StateOpen && !now.Before(p.Start) && now.Before(p.End)
}

// HasElapsed reports whether the period's end is at or before now.
func (p *Period) HasElapsed(now time.Time) bool {
	return !now.Before(p.End)
}

// Overlaps reports whether [p.Start, p.End) intersects [start, end).
func (p *Period) Overlaps(start, end time.Time) bool {
	return p.Start.Before(end) && start.Before(p.End)
}

// CanOpen validates the CLOSED -> OPEN transition at now.
func (p *Period) CanOpen(now time.Time) error {
	if p.State == StateOpen {
		return dErrors.New(dErrors.CodeInvalidState, "period is already open")
	}
	if !p.State.CanTransitionTo(StateOpen) {
		return dErrors.New(dErrors.CodeInvalidState, "period is terminated")
	}
	if p.HasElapsed(now) {
		return dErrors.New(dErrors.CodeExpired, "period end has already passed")
	}
	return nil
}

// CanClose validates the OPEN -> CLOSED transition.
func (p *Period) CanClose() error {
	if !p.State.CanTransitionTo(StateClosed) {
		return dErrors.Newf(dErrors.CodeInvalidState, "period is already %s", stateWord(p.State))
	}
	return nil
}

// CanTerminate validates the move to the terminal state.
func (p *Period) CanTerminate() error {
	if !p.State.CanTransitionTo(StateTerminated) {
		return dErrors.New(dErrors.CodeInvalidState, "period is already terminated")
	}
	return nil
}

// Apply moves the period to next and stamps UpdatedAt. Call the matching Can*
// check first.
func (p *Period) Apply(next State, now time.Time) {
	p.State = next
	p.UpdatedAt = now
}

func stateWord(s State) string {
	switch s {
	case StateClosed:
		return "closed"
	case StateTerminated:
		return "terminated"
	default:
		return "open"
	}
}
