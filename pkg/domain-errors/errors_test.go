package domainerrors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCode(t *testing.T) {
	t.Run("matches outermost code through fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("outer: %w", New(CodeAlreadySponsored, "already sponsored"))
		assert.True(t, HasCode(err, CodeAlreadySponsored))
		assert.False(t, HasCode(err, CodeConflict))
	})

	t.Run("plain errors carry no code", func(t *testing.T) {
		err := errors.New("boom")
		assert.False(t, HasCode(err, CodeInternal))
		assert.Equal(t, CodeInternal, CodeOf(err))
	})

	t.Run("nil is never coded", func(t *testing.T) {
		assert.False(t, HasCode(nil, CodeInternal))
	})
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("pq: connection reset")
	err := Wrap(cause, CodeInternal, "failed to create sponsorship")

	require.ErrorIs(t, err, cause)
	assert.Equal(t, "failed to create sponsorship", err.Message)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestClassify(t *testing.T) {
	assert.NoError(t, Classify(nil, "unused"))

	coded := New(CodeNotFound, "period not found")
	assert.Same(t, coded, Classify(coded, "failed"))

	err := Classify(fmt.Errorf("begin tx: %w", context.DeadlineExceeded), "failed")
	assert.True(t, HasCode(err, CodeTimeout))

	err = Classify(errors.New("driver: bad connection"), "failed to load period")
	assert.True(t, HasCode(err, CodeInternal))
	de, ok := As(err)
	require.True(t, ok)
	assert.Equal(t, "failed to load period", de.Message)
}
