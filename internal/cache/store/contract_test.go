package store_test

import (
	"context"
	"fmt"
	"time"

	"github.com/stretchr/testify/suite"

	"parrainage/internal/cache/store"
)

// contractSuite runs the same behavior checks against every Store.
type contractSuite struct {
	suite.Suite
	store store.Store
	reset func()
	ctx   context.Context
}

func (s *contractSuite) SetupTest() {
	s.ctx = context.Background()
	if s.reset != nil {
		s.reset()
	}
}

func (s *contractSuite) TestGetSet() {
	_, found, err := s.store.Get(s.ctx, "stats:global")
	s.Require().NoError(err)
	s.False(found)

	s.Require().NoError(s.store.Set(s.ctx, "stats:global", []byte(`{"total":3}`), time.Minute))
	got, found, err := s.store.Get(s.ctx, "stats:global")
	s.Require().NoError(err)
	s.True(found)
	s.JSONEq(`{"total":3}`, string(got))
}

func (s *contractSuite) TestSetNXIsExclusive() {
	ok, err := s.store.SetNX(s.ctx, "lock:stats:global", "token-a", time.Minute)
	s.Require().NoError(err)
	s.True(ok)

	ok, err = s.store.SetNX(s.ctx, "lock:stats:global", "token-b", time.Minute)
	s.Require().NoError(err)
	s.False(ok)
}

func (s *contractSuite) TestCompareAndDeleteChecksToken() {
	_, err := s.store.SetNX(s.ctx, "lock:stats:period", "token-a", time.Minute)
	s.Require().NoError(err)

	deleted, err := s.store.CompareAndDelete(s.ctx, "lock:stats:period", "token-b")
	s.Require().NoError(err)
	s.False(deleted)

	deleted, err = s.store.CompareAndDelete(s.ctx, "lock:stats:period", "token-a")
	s.Require().NoError(err)
	s.True(deleted)

	ok, err := s.store.SetNX(s.ctx, "lock:stats:period", "token-c", time.Minute)
	s.Require().NoError(err)
	s.True(ok)
}

func (s *contractSuite) TestDeletePrefix() {
	for i := range 3 {
		s.Require().NoError(s.store.Set(s.ctx, fmt.Sprintf("stats:region:%d", i), []byte("1"), time.Minute))
	}
	s.Require().NoError(s.store.Set(s.ctx, "stale:stats:global", []byte("1"), time.Minute))

	n, err := s.store.DeletePrefix(s.ctx, "stats:")
	s.Require().NoError(err)
	s.Equal(int64(3), n)

	_, found, err := s.store.Get(s.ctx, "stale:stats:global")
	s.Require().NoError(err)
	s.True(found)
}

func (s *contractSuite) TestDelete() {
	s.Require().NoError(s.store.Set(s.ctx, "a", []byte("1"), time.Minute))
	s.Require().NoError(s.store.Set(s.ctx, "b", []byte("1"), time.Minute))
	s.Require().NoError(s.store.Delete(s.ctx, "a", "b", "missing"))

	_, found, err := s.store.Get(s.ctx, "a")
	s.Require().NoError(err)
	s.False(found)
}

func (s *contractSuite) TestPublishSubscribe() {
	sub, err := s.store.Subscribe(s.ctx, "cache-invalidation")
	s.Require().NoError(err)
	defer sub.Close()

	s.Require().NoError(s.store.Publish(s.ctx, "cache-invalidation", []byte(`{"key":"stats:global"}`)))
	select {
	case msg := <-sub.Messages():
		s.JSONEq(`{"key":"stats:global"}`, string(msg))
	case <-time.After(2 * time.Second):
		s.Fail("no message received")
	}
}
