package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "parrainage/pkg/domain"
	dErrors "parrainage/pkg/domain-errors"
)

var base = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

func newTestPeriod(t *testing.T, state State) *Period {
	t.Helper()
	p, err := NewPeriod(id.PeriodID(uuid.New()), base, base.Add(30*24*time.Hour), base)
	require.NoError(t, err)
	p.State = state
	return p
}

func TestNewPeriod(t *testing.T) {
	t.Run("rejects end before start", func(t *testing.T) {
		_, err := NewPeriod(id.PeriodID(uuid.New()), base, base.Add(-time.Hour), base)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariant))
	})
	t.Run("rejects empty range", func(t *testing.T) {
		_, err := NewPeriod(id.PeriodID(uuid.New()), base, base, base)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariant))
	})
	t.Run("starts closed", func(t *testing.T) {
		p := newTestPeriod(t, StateClosed)
		assert.Equal(t, StateClosed, p.State)
	})
}

func TestIsWindowOpen(t *testing.T) {
	p := newTestPeriod(t, StateOpen)

	assert.False(t, p.IsWindowOpen(base.Add(-time.Second)), "before start")
	assert.True(t, p.IsWindowOpen(base), "start is inclusive")
	assert.True(t, p.IsWindowOpen(p.End.Add(-time.Nanosecond)))
	assert.False(t, p.IsWindowOpen(p.End), "end is exclusive")

	p.State = StateClosed
	assert.False(t, p.IsWindowOpen(base.Add(time.Hour)), "closed in storage")
}

func TestTransitions(t *testing.T) {
	now := base.Add(time.Hour)

	t.Run("open from closed", func(t *testing.T) {
		assert.NoError(t, newTestPeriod(t, StateClosed).CanOpen(now))
	})
	t.Run("open twice", func(t *testing.T) {
		err := newTestPeriod(t, StateOpen).CanOpen(now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
	t.Run("open terminated", func(t *testing.T) {
		err := newTestPeriod(t, StateTerminated).CanOpen(now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
	t.Run("open after end", func(t *testing.T) {
		p := newTestPeriod(t, StateClosed)
		assert.True(t, dErrors.HasCode(p.CanOpen(p.End), dErrors.CodeExpired))
	})
	t.Run("close closed", func(t *testing.T) {
		assert.True(t, dErrors.HasCode(newTestPeriod(t, StateClosed).CanClose(), dErrors.CodeInvalidState))
	})
	t.Run("close terminated", func(t *testing.T) {
		assert.True(t, dErrors.HasCode(newTestPeriod(t, StateTerminated).CanClose(), dErrors.CodeInvalidState))
	})
	t.Run("terminate from open and closed", func(t *testing.T) {
		assert.NoError(t, newTestPeriod(t, StateOpen).CanTerminate())
		assert.NoError(t, newTestPeriod(t, StateClosed).CanTerminate())
		assert.Error(t, newTestPeriod(t, StateTerminated).CanTerminate())
	})
	t.Run("apply stamps updated at", func(t *testing.T) {
		p := newTestPeriod(t, StateClosed)
		p.Apply(StateOpen, now)
		assert.Equal(t, StateOpen, p.State)
		assert.Equal(t, now, p.UpdatedAt)
	})
}

func TestOverlaps(t *testing.T) {
	p := newTestPeriod(t, StateClosed)
	assert.True(t, p.Overlaps(base.Add(-time.Hour), base.Add(time.Hour)))
	assert.False(t, p.Overlaps(p.End, p.End.Add(time.Hour)), "adjacent ranges do not overlap")
	assert.False(t, p.Overlaps(base.Add(-time.Hour), base))
}
