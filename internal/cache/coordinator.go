// Package cache coordinates the shared statistics cache across processes.
//
// A value lives under its key with the caller's TTL and under a stale shadow key
// with twice that TTL. Only the holder of lock:{key} recomputes a missing value;
// other callers serve the stale shadow when there is one and otherwise wait for
// the holder until a deadline. Concurrent callers inside one process share a
// single lookup, and a short-lived local copy fronts the shared store.
//
// Correctness never depends on the cache: when the shared store fails the
// coordinator computes the value directly.
package cache

import (
	"context"
	crand "crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/puzpuzpuz/xsync/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	cachemetrics "parrainage/internal/cache/metrics"
	"parrainage/internal/cache/store"
	dErrors "parrainage/pkg/domain-errors"
	"parrainage/pkg/platform/circuit"
)

const (
	lockPrefix  = "lock:"
	stalePrefix = "stale:"

	DefaultLockTTL      = 5 * time.Second
	DefaultWaitDeadline = 3 * time.Second
	DefaultLocalTTL     = 2 * time.Second
	DefaultChannel      = "cache-invalidation"

	backoffBase = 20 * time.Millisecond
	backoffMax  = 400 * time.Millisecond
	minPause    = time.Millisecond
)

var tracer = otel.Tracer("parrainage/cache")

// ComputeFunc produces the value for a missing key.
type ComputeFunc func(ctx context.Context) ([]byte, error)

type localEntry struct {
	value     []byte
	expiresAt time.Time
}

// invalidation is the message exchanged on the invalidation channel.
type invalidation struct {
	Key    string `json:"key,omitempty"`
	Prefix string `json:"prefix,omitempty"`
	Origin string `json:"origin,omitempty"`
}

// Coordinator serves cached values with stampede protection.
type Coordinator struct {
	store   store.Store
	breaker *circuit.Breaker
	group   singleflight.Group
	local   *xsync.Map[string, localEntry]

	lockTTL  time.Duration
	deadline time.Duration
	localTTL time.Duration
	channel  string
	instance string

	entropy io.Reader
	now     func() time.Time
	logger  *slog.Logger
	metrics *cachemetrics.Metrics
}

type Option func(*Coordinator)

func WithLockTTL(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.lockTTL = d
		}
	}
}

// WithWaitDeadline bounds how long a caller waits for another holder.
func WithWaitDeadline(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.deadline = d
		}
	}
}

// WithLocalTTL sets the lifetime of local copies. Zero disables them.
func WithLocalTTL(d time.Duration) Option {
	return func(c *Coordinator) {
		c.localTTL = d
	}
}

func WithChannel(channel string) Option {
	return func(c *Coordinator) {
		if channel != "" {
			c.channel = channel
		}
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(c *Coordinator) {
		c.breaker = b
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

func WithMetrics(m *cachemetrics.Metrics) Option {
	return func(c *Coordinator) {
		c.metrics = m
	}
}

// WithEntropy replaces crypto/rand as the lock token source.
func WithEntropy(r io.Reader) Option {
	return func(c *Coordinator) {
		c.entropy = r
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		c.now = now
	}
}

func New(s store.Store, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:    s,
		local:    xsync.NewMap[string, localEntry](),
		lockTTL:  DefaultLockTTL,
		deadline: DefaultWaitDeadline,
		localTTL: DefaultLocalTTL,
		channel:  DefaultChannel,
		entropy:  crand.Reader,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.breaker == nil {
		c.breaker = circuit.New("cache-store")
	}
	c.instance = c.newToken()
	return c
}

// GetOrCompute returns the cached value for key, computing it through compute
// when no fresh copy exists. Values are JSON encoded.
func GetOrCompute[T any](ctx context.Context, c *Coordinator, key string, ttl time.Duration, compute func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	raw, err := c.GetOrCompute(ctx, key, ttl, func(ctx context.Context) ([]byte, error) {
		v, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", key, err)
		}
		return b, nil
	})
	if err != nil {
		return zero, err
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return zero, fmt.Errorf("decode %s: %w", key, err)
	}
	return v, nil
}

// GetOrCompute is the byte-level form of the package-level GetOrCompute.
func (c *Coordinator) GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute ComputeFunc) ([]byte, error) {
	if v, ok := c.localGet(key); ok {
		c.metrics.IncrementLookup(cachemetrics.ResultLocal)
		return v, nil
	}

	ch := c.group.DoChan(key, func() (any, error) {
		return c.load(context.WithoutCancel(ctx), key, ttl, compute)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	case <-ctx.Done():
		return nil, dErrors.Wrap(ctx.Err(), dErrors.CodeTimeout, "statistics lookup cancelled")
	}
}

func (c *Coordinator) load(ctx context.Context, key string, ttl time.Duration, compute ComputeFunc) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "cache.load", trace.WithAttributes(attribute.String("cache.key", key)))
	defer span.End()

	deadline := c.now().Add(c.deadline)
	backoff := backoffBase
	var waitStart time.Time
	for {
		v, found, err := c.store.Get(ctx, key)
		if err != nil {
			return c.bypass(ctx, key, compute, err)
		}
		if c.storeHealthy() {
			if found {
				c.observeWait(waitStart)
				c.localPut(key, v)
				c.metrics.IncrementLookup(cachemetrics.ResultFresh)
				return v, nil
			}
		} else {
			if found {
				c.metrics.IncrementLookup(cachemetrics.ResultFresh)
				return v, nil
			}
			return c.bypass(ctx, key, compute, nil)
		}

		token := c.newToken()
		acquired, err := c.store.SetNX(ctx, lockPrefix+key, token, c.lockTTL)
		if err != nil {
			return c.bypass(ctx, key, compute, err)
		}
		if acquired {
			c.observeWait(waitStart)
			span.SetAttributes(attribute.Bool("cache.lock_holder", true))
			return c.computeAsHolder(ctx, key, ttl, token, compute)
		}

		stale, found, err := c.store.Get(ctx, stalePrefix+key)
		if err != nil {
			return c.bypass(ctx, key, compute, err)
		}
		if found {
			c.metrics.IncrementLookup(cachemetrics.ResultStale)
			return stale, nil
		}

		// Every waiter rechecks at least once, however short the deadline.
		remaining := deadline.Sub(c.now())
		if !waitStart.IsZero() && remaining <= 0 {
			c.observeWait(waitStart)
			c.metrics.IncrementLookup(cachemetrics.ResultUnavailable)
			c.logger.WarnContext(ctx, "cache wait deadline exceeded", "key", key, "deadline", c.deadline)
			return nil, dErrors.Newf(dErrors.CodeCacheUnavailable, "statistics for %s are being recomputed, retry shortly", key)
		}
		if waitStart.IsZero() {
			waitStart = c.now()
		}
		pause := min(jitter(backoff), max(remaining, minPause))
		if err := sleep(ctx, pause); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeTimeout, "statistics lookup cancelled")
		}
		backoff = min(backoff*2, backoffMax)
	}
}

// computeAsHolder computes under the lock, writes the fresh and stale copies
// and releases the lock if it is still ours.
func (c *Coordinator) computeAsHolder(ctx context.Context, key string, ttl time.Duration, token string, compute ComputeFunc) ([]byte, error) {
	defer func() {
		if _, err := c.store.CompareAndDelete(ctx, lockPrefix+key, token); err != nil {
			c.logger.WarnContext(ctx, "cache lock release failed", "key", key, "error", err)
		}
	}()

	v, err := compute(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.store.Set(ctx, key, v, ttl); err != nil {
		c.recordFailure(ctx, err)
	} else if err := c.store.Set(ctx, stalePrefix+key, v, 2*ttl); err != nil {
		c.recordFailure(ctx, err)
	}
	c.localPut(key, v)
	c.metrics.IncrementLookup(cachemetrics.ResultComputed)
	return v, nil
}

// bypass computes directly after a shared store failure. cause is nil when the
// breaker is already open.
func (c *Coordinator) bypass(ctx context.Context, key string, compute ComputeFunc, cause error) ([]byte, error) {
	if cause != nil {
		c.recordFailure(ctx, cause)
	}
	v, err := compute(ctx)
	if err != nil {
		return nil, err
	}
	c.localPut(key, v)
	c.metrics.IncrementLookup(cachemetrics.ResultBypass)
	return v, nil
}

// storeHealthy records a successful store call and reports whether the
// breaker lets the full protocol run.
func (c *Coordinator) storeHealthy() bool {
	usePrimary, change := c.breaker.RecordSuccess()
	if change.Closed {
		c.metrics.SetBreakerOpen(false)
		c.logger.Info("cache store recovered", "breaker", c.breaker.Name())
	}
	return usePrimary
}

func (c *Coordinator) recordFailure(ctx context.Context, err error) {
	_, change := c.breaker.RecordFailure()
	if change.Opened {
		c.metrics.SetBreakerOpen(true)
		c.logger.ErrorContext(ctx, "cache store unavailable, computing directly", "breaker", c.breaker.Name(), "error", err)
		return
	}
	c.logger.WarnContext(ctx, "cache store call failed", "error", err)
}

func (c *Coordinator) observeWait(start time.Time) {
	if start.IsZero() {
		return
	}
	c.metrics.ObserveLockWait(c.now().Sub(start))
}

// Invalidate drops key here and in the shared store, then tells the other
// processes to drop their local copies.
func (c *Coordinator) Invalidate(ctx context.Context, key string) error {
	c.local.Delete(key)
	c.metrics.IncrementInvalidation("local")
	if err := c.store.Delete(ctx, key); err != nil {
		c.recordFailure(ctx, err)
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return c.broadcast(ctx, invalidation{Key: key, Origin: c.instance})
}

// InvalidatePrefix drops every key starting with prefix.
func (c *Coordinator) InvalidatePrefix(ctx context.Context, prefix string) error {
	c.dropLocalPrefix(prefix)
	c.metrics.IncrementInvalidation("local")
	if _, err := c.store.DeletePrefix(ctx, prefix); err != nil {
		c.recordFailure(ctx, err)
		return fmt.Errorf("delete prefix %s: %w", prefix, err)
	}
	return c.broadcast(ctx, invalidation{Prefix: prefix, Origin: c.instance})
}

func (c *Coordinator) broadcast(ctx context.Context, msg invalidation) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode invalidation: %w", err)
	}
	if err := c.store.Publish(ctx, c.channel, b); err != nil {
		c.recordFailure(ctx, err)
		return fmt.Errorf("publish invalidation: %w", err)
	}
	return nil
}

// Listen applies invalidations published by other processes until ctx ends.
// ready, when non-nil, is closed once the subscription is active.
func (c *Coordinator) Listen(ctx context.Context, ready chan<- struct{}) error {
	sub, err := c.store.Subscribe(ctx, c.channel)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", c.channel, err)
	}
	defer sub.Close()
	if ready != nil {
		close(ready)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case raw, ok := <-sub.Messages():
			if !ok {
				return fmt.Errorf("subscription to %s closed", c.channel)
			}
			c.apply(raw)
		}
	}
}

func (c *Coordinator) apply(raw []byte) {
	var msg invalidation
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.logger.Warn("ignoring malformed invalidation", "error", err)
		return
	}
	if msg.Origin == c.instance {
		return
	}
	switch {
	case msg.Key != "":
		c.local.Delete(msg.Key)
	case msg.Prefix != "":
		c.dropLocalPrefix(msg.Prefix)
	default:
		return
	}
	c.metrics.IncrementInvalidation("remote")
}

func (c *Coordinator) localGet(key string) ([]byte, bool) {
	if c.localTTL <= 0 {
		return nil, false
	}
	e, ok := c.local.Load(key)
	if !ok {
		return nil, false
	}
	if !c.now().Before(e.expiresAt) {
		c.local.Delete(key)
		return nil, false
	}
	return e.value, true
}

func (c *Coordinator) localPut(key string, v []byte) {
	if c.localTTL <= 0 {
		return
	}
	c.local.Store(key, localEntry{value: v, expiresAt: c.now().Add(c.localTTL)})
}

func (c *Coordinator) dropLocalPrefix(prefix string) {
	c.local.Range(func(key string, _ localEntry) bool {
		if strings.HasPrefix(key, prefix) {
			c.local.Delete(key)
		}
		return true
	})
}

// Ping checks the shared store.
func (c *Coordinator) Ping(ctx context.Context) error {
	return c.store.Ping(ctx)
}

// newToken returns 128 random bits, hex encoded.
func (c *Coordinator) newToken() string {
	var b [16]byte
	if _, err := io.ReadFull(c.entropy, b[:]); err != nil {
		// Time-derived fallback; the lock TTL still bounds a stolen release.
		return fmt.Sprintf("%x", c.now().UnixNano())
	}
	return hex.EncodeToString(b[:])
}

func jitter(d time.Duration) time.Duration {
	return d/2 + time.Duration(rand.Int64N(int64(d/2)+1))
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
