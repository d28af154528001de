package store_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"parrainage/internal/cache/store"
)

func TestMemoryContract(t *testing.T) {
	s := &contractSuite{}
	s.reset = func() { s.store = store.NewMemory() }
	suite.Run(t, s)
}

func TestMemoryExpiry(t *testing.T) {
	var (
		mu  sync.Mutex
		now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	advance := func(d time.Duration) {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(d)
	}

	ctx := context.Background()
	m := store.NewMemory(store.WithClock(clock))
	require.NoError(t, m.Set(ctx, "stats:global", []byte("1"), time.Minute))
	ok, err := m.SetNX(ctx, "lock:stats:global", "t", 5*time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	advance(5 * time.Second)
	ok, err = m.SetNX(ctx, "lock:stats:global", "t2", 5*time.Second)
	require.NoError(t, err)
	assert.True(t, ok, "expired lock can be taken again")

	advance(time.Minute)
	_, found, err := m.Get(ctx, "stats:global")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryFailWith(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	down := errors.New("connection refused")

	m.FailWith(down)
	_, _, err := m.Get(ctx, "k")
	assert.ErrorIs(t, err, down)
	assert.ErrorIs(t, m.Ping(ctx), down)

	m.FailWith(nil)
	assert.NoError(t, m.Ping(ctx))
}

func TestMemorySubscriptionClose(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	sub, err := m.Subscribe(ctx, "ch")
	require.NoError(t, err)
	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())

	_, open := <-sub.Messages()
	assert.False(t, open)
	assert.NoError(t, m.Publish(ctx, "ch", []byte("x")))
}
