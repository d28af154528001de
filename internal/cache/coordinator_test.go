package cache_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"parrainage/internal/cache"
	cachemetrics "parrainage/internal/cache/metrics"
	"parrainage/internal/cache/store"
	dErrors "parrainage/pkg/domain-errors"
	"parrainage/pkg/platform/circuit"
)

type stats struct {
	Total int `json:"total"`
}

type CoordinatorSuite struct {
	suite.Suite
	shared  *store.Memory
	metrics *cachemetrics.Metrics
	ctx     context.Context
}

func TestCoordinatorSuite(t *testing.T) {
	suite.Run(t, new(CoordinatorSuite))
}

func (s *CoordinatorSuite) SetupTest() {
	s.shared = store.NewMemory()
	s.metrics = cachemetrics.New(prometheus.NewRegistry())
	s.ctx = context.Background()
}

func (s *CoordinatorSuite) coordinator(opts ...cache.Option) *cache.Coordinator {
	base := []cache.Option{cache.WithLocalTTL(0), cache.WithMetrics(s.metrics)}
	return cache.New(s.shared, append(base, opts...)...)
}

func counting(total int, calls *atomic.Int32) func(context.Context) (stats, error) {
	return func(context.Context) (stats, error) {
		calls.Add(1)
		return stats{Total: total}, nil
	}
}

func (s *CoordinatorSuite) TestMissComputesOnceThenServesFresh() {
	c := s.coordinator()
	var calls atomic.Int32

	got, err := cache.GetOrCompute(s.ctx, c, "stats:global", time.Minute, counting(7, &calls))
	s.Require().NoError(err)
	s.Equal(7, got.Total)

	got, err = cache.GetOrCompute(s.ctx, c, "stats:global", time.Minute, counting(8, &calls))
	s.Require().NoError(err)
	s.Equal(7, got.Total)
	s.Equal(int32(1), calls.Load())

	_, found, err := s.shared.Get(s.ctx, "stale:stats:global")
	s.Require().NoError(err)
	s.True(found, "stale shadow is written with the fresh copy")
	_, found, err = s.shared.Get(s.ctx, "lock:stats:global")
	s.Require().NoError(err)
	s.False(found, "lock is released after computing")

	s.InDelta(1, testutil.ToFloat64(s.metrics.Lookups.WithLabelValues(cachemetrics.ResultComputed)), 0)
	s.InDelta(1, testutil.ToFloat64(s.metrics.Lookups.WithLabelValues(cachemetrics.ResultFresh)), 0)
}

func (s *CoordinatorSuite) TestStampedeAcrossProcessesComputesOnce() {
	processes := []*cache.Coordinator{s.coordinator(), s.coordinator(), s.coordinator()}
	var calls atomic.Int32
	slow := func(context.Context) (stats, error) {
		calls.Add(1)
		time.Sleep(100 * time.Millisecond)
		return stats{Total: 42}, nil
	}

	const callers = 60
	var wg sync.WaitGroup
	results := make([]int, callers)
	errs := make([]error, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := cache.GetOrCompute(s.ctx, processes[i%len(processes)], "stats:global", time.Minute, slow)
			results[i], errs[i] = v.Total, err
		}()
	}
	wg.Wait()

	s.Equal(int32(1), calls.Load())
	for i := range callers {
		s.Require().NoError(errs[i])
		s.Equal(42, results[i])
	}
}

func (s *CoordinatorSuite) TestStaleServedWhileAnotherProcessHoldsTheLock() {
	s.Require().NoError(s.shared.Set(s.ctx, "stale:stats:global", []byte(`{"total":3}`), time.Minute))
	_, err := s.shared.SetNX(s.ctx, "lock:stats:global", "other-process", time.Minute)
	s.Require().NoError(err)

	var calls atomic.Int32
	got, err := cache.GetOrCompute(s.ctx, s.coordinator(), "stats:global", time.Minute, counting(9, &calls))
	s.Require().NoError(err)
	s.Equal(3, got.Total)
	s.Zero(calls.Load())
}

func (s *CoordinatorSuite) TestWaitDeadlineWithoutStale() {
	_, err := s.shared.SetNX(s.ctx, "lock:stats:global", "other-process", time.Minute)
	s.Require().NoError(err)

	c := s.coordinator(cache.WithWaitDeadline(150 * time.Millisecond))
	var calls atomic.Int32
	_, err = cache.GetOrCompute(s.ctx, c, "stats:global", time.Minute, counting(1, &calls))
	s.True(dErrors.HasCode(err, dErrors.CodeCacheUnavailable))
	s.Zero(calls.Load())
}

// lateStore publishes the fresh value only once the first lookup has missed.
type lateStore struct {
	*store.Memory
	key  string
	gets atomic.Int32
}

func (l *lateStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if key == l.key && l.gets.Add(1) == 2 {
		_ = l.Memory.Set(ctx, key, []byte(`{"total":9}`), time.Minute)
	}
	return l.Memory.Get(ctx, key)
}

func (s *CoordinatorSuite) TestShortWaitDeadlineStillRechecksOnce() {
	_, err := s.shared.SetNX(s.ctx, "lock:stats:global", "other-process", time.Minute)
	s.Require().NoError(err)

	late := &lateStore{Memory: s.shared, key: "stats:global"}
	c := cache.New(late, cache.WithLocalTTL(0), cache.WithMetrics(s.metrics), cache.WithWaitDeadline(2*time.Millisecond))

	var calls atomic.Int32
	got, err := cache.GetOrCompute(s.ctx, c, "stats:global", time.Minute, counting(1, &calls))
	s.Require().NoError(err)
	s.Equal(9, got.Total)
	s.Zero(calls.Load())
	s.Equal(int32(2), late.gets.Load())
}

func (s *CoordinatorSuite) TestWaiterPicksUpHolderResult() {
	_, err := s.shared.SetNX(s.ctx, "lock:stats:global", "other-process", time.Minute)
	s.Require().NoError(err)
	go func() {
		time.Sleep(80 * time.Millisecond)
		_ = s.shared.Set(context.Background(), "stats:global", []byte(`{"total":5}`), time.Minute)
	}()

	var calls atomic.Int32
	got, err := cache.GetOrCompute(s.ctx, s.coordinator(), "stats:global", time.Minute, counting(1, &calls))
	s.Require().NoError(err)
	s.Equal(5, got.Total)
	s.Zero(calls.Load())
}

func (s *CoordinatorSuite) TestExpiredLockCanBeRetaken() {
	_, err := s.shared.SetNX(s.ctx, "lock:stats:global", "crashed-holder", 50*time.Millisecond)
	s.Require().NoError(err)

	var calls atomic.Int32
	got, err := cache.GetOrCompute(s.ctx, s.coordinator(), "stats:global", time.Minute, counting(4, &calls))
	s.Require().NoError(err)
	s.Equal(4, got.Total)
	s.Equal(int32(1), calls.Load())
}

func (s *CoordinatorSuite) TestComputeErrorReleasesTheLock() {
	c := s.coordinator()
	boom := errors.New("ledger unavailable")
	_, err := cache.GetOrCompute(s.ctx, c, "stats:global", time.Minute, func(context.Context) (stats, error) {
		return stats{}, boom
	})
	s.ErrorIs(err, boom)

	ok, err := s.shared.SetNX(s.ctx, "lock:stats:global", "next", time.Minute)
	s.Require().NoError(err)
	s.True(ok)
}

func (s *CoordinatorSuite) TestStoreFailureComputesDirectly() {
	breaker := circuit.New("test", circuit.WithFailureThreshold(2))
	c := s.coordinator(cache.WithBreaker(breaker))
	s.shared.FailWith(errors.New("connection refused"))

	var calls atomic.Int32
	for range 3 {
		got, err := cache.GetOrCompute(s.ctx, c, "stats:global", time.Minute, counting(6, &calls))
		s.Require().NoError(err)
		s.Equal(6, got.Total)
	}
	s.Equal(int32(3), calls.Load())
	s.True(breaker.IsOpen())
	s.InDelta(1, testutil.ToFloat64(s.metrics.BreakerOpen), 0)

	s.shared.FailWith(nil)
	for range 2 {
		_, err := cache.GetOrCompute(s.ctx, c, "stats:global", time.Minute, counting(6, &calls))
		s.Require().NoError(err)
	}
	s.False(breaker.IsOpen())
	s.InDelta(0, testutil.ToFloat64(s.metrics.BreakerOpen), 0)
}

func (s *CoordinatorSuite) TestInvalidateForcesRecompute() {
	c := s.coordinator()
	var calls atomic.Int32
	_, err := cache.GetOrCompute(s.ctx, c, "stats:global", time.Minute, counting(1, &calls))
	s.Require().NoError(err)

	s.Require().NoError(c.Invalidate(s.ctx, "stats:global"))
	got, err := cache.GetOrCompute(s.ctx, c, "stats:global", time.Minute, counting(2, &calls))
	s.Require().NoError(err)
	s.Equal(2, got.Total)
	s.Equal(int32(2), calls.Load())
}

func (s *CoordinatorSuite) TestInvalidationReachesOtherProcesses() {
	writer := s.coordinator(cache.WithLocalTTL(time.Hour))
	reader := s.coordinator(cache.WithLocalTTL(time.Hour))

	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	ready := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- reader.Listen(ctx, ready) }()
	<-ready

	var calls atomic.Int32
	for _, key := range []string{"stats:global", "stats:region:Dakar"} {
		_, err := cache.GetOrCompute(s.ctx, reader, key, time.Minute, counting(1, &calls))
		s.Require().NoError(err)
	}

	s.Require().NoError(writer.Invalidate(s.ctx, "stats:global"))
	s.Eventually(func() bool {
		got, err := cache.GetOrCompute(s.ctx, reader, "stats:global", time.Minute, counting(2, &calls))
		return err == nil && got.Total == 2
	}, time.Second, 10*time.Millisecond)

	s.Require().NoError(writer.InvalidatePrefix(s.ctx, "stats:"))
	s.Eventually(func() bool {
		got, err := cache.GetOrCompute(s.ctx, reader, "stats:region:Dakar", time.Minute, counting(3, &calls))
		return err == nil && got.Total == 3
	}, time.Second, 10*time.Millisecond)

	cancel()
	s.NoError(<-done)
	s.Positive(testutil.ToFloat64(s.metrics.Invalidations.WithLabelValues("remote")))
}

func (s *CoordinatorSuite) TestCallerCancellation() {
	_, err := s.shared.SetNX(s.ctx, "lock:stats:global", "other-process", time.Minute)
	s.Require().NoError(err)

	ctx, cancel := context.WithTimeout(s.ctx, 30*time.Millisecond)
	defer cancel()
	var calls atomic.Int32
	_, err = cache.GetOrCompute(ctx, s.coordinator(), "stats:global", time.Minute, counting(1, &calls))
	s.True(dErrors.HasCode(err, dErrors.CodeTimeout))
}
