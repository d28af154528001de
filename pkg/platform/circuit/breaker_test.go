package circuit

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreakerStartsClosed(t *testing.T) {
	b := New("cache-store")
	assert.False(t, b.IsOpen())
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, "cache-store", b.Name())
}

// step is one reported outcome and the breaker's expected answer to it.
type step struct {
	fail      bool
	fallback  bool
	opened    bool
	closed    bool
	wantState State
}

func TestBreakerTransitions(t *testing.T) {
	tests := []struct {
		name  string
		opts  []Option
		steps []step
	}{
		{
			name: "opens on the threshold failure",
			opts: []Option{WithFailureThreshold(3)},
			steps: []step{
				{fail: true, wantState: StateClosed},
				{fail: true, wantState: StateClosed},
				{fail: true, fallback: true, opened: true, wantState: StateOpen},
				{fail: true, fallback: true, wantState: StateOpen},
			},
		},
		{
			name: "a success clears the failure streak",
			opts: []Option{WithFailureThreshold(2)},
			steps: []step{
				{fail: true, wantState: StateClosed},
				{fail: false, wantState: StateClosed},
				{fail: true, wantState: StateClosed},
				{fail: true, fallback: true, opened: true, wantState: StateOpen},
			},
		},
		{
			name: "closes after consecutive successes",
			opts: []Option{WithFailureThreshold(1), WithSuccessThreshold(2)},
			steps: []step{
				{fail: true, fallback: true, opened: true, wantState: StateOpen},
				{fail: false, fallback: true, wantState: StateOpen},
				{fail: false, closed: true, wantState: StateClosed},
			},
		},
		{
			name: "a failure while open restarts the success streak",
			opts: []Option{WithFailureThreshold(1), WithSuccessThreshold(2)},
			steps: []step{
				{fail: true, fallback: true, opened: true, wantState: StateOpen},
				{fail: false, fallback: true, wantState: StateOpen},
				{fail: true, fallback: true, wantState: StateOpen},
				{fail: false, fallback: true, wantState: StateOpen},
				{fail: false, closed: true, wantState: StateClosed},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New("cache-store", tt.opts...)
			for i, s := range tt.steps {
				if s.fail {
					fallback, change := b.RecordFailure()
					assert.Equal(t, s.fallback, fallback, "step %d fallback", i)
					assert.Equal(t, s.opened, change.Opened, "step %d opened", i)
				} else {
					primary, change := b.RecordSuccess()
					assert.Equal(t, !s.fallback, primary, "step %d primary", i)
					assert.Equal(t, s.closed, change.Closed, "step %d closed", i)
				}
				require.Equal(t, s.wantState, b.State(), "step %d state", i)
			}
		})
	}
}

func TestBreakerReset(t *testing.T) {
	b := New("cache-store", WithFailureThreshold(1))
	b.RecordFailure()
	require.True(t, b.IsOpen())

	b.Reset()
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerOpensOnceUnderConcurrentFailures(t *testing.T) {
	b := New("cache-store", WithFailureThreshold(10))

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		opened int
	)
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, change := b.RecordFailure(); change.Opened {
				mu.Lock()
				opened++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, opened)
	assert.Equal(t, StateOpen, b.State())
}
