package store

import (
	"context"
	"strings"
	"sync"
	"time"
)

type memEntry struct {
	value     []byte
	expiresAt time.Time
}

// Memory is a single-process Store. Several coordinators sharing one Memory
// behave like processes sharing one Redis.
type Memory struct {
	mu          sync.Mutex
	entries     map[string]memEntry
	subscribers map[string][]*memSubscription
	now         func() time.Time
	failing     error
}

// MemoryOption configures a Memory store.
type MemoryOption func(*Memory)

// WithClock replaces time.Now for expiry checks.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) {
		m.now = now
	}
}

func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		entries:     make(map[string]memEntry),
		subscribers: make(map[string][]*memSubscription),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// FailWith makes every later call return err until called again with nil.
func (m *Memory) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failing = err
}

// begin locks the store and returns the injected failure, if any.
func (m *Memory) begin(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	if m.failing != nil {
		err := m.failing
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *Memory) live(key string) (memEntry, bool) {
	e, ok := m.entries[key]
	if !ok {
		return memEntry{}, false
	}
	if !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt) {
		delete(m.entries, key)
		return memEntry{}, false
	}
	return e, true
}

func (m *Memory) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return m.now().Add(ttl)
}

func (m *Memory) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := m.begin(ctx); err != nil {
		return nil, false, err
	}
	defer m.mu.Unlock()
	e, ok := m.live(key)
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), e.value...), true, nil
}

func (m *Memory) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := m.begin(ctx); err != nil {
		return err
	}
	defer m.mu.Unlock()
	m.entries[key] = memEntry{value: append([]byte(nil), value...), expiresAt: m.expiry(ttl)}
	return nil
}

func (m *Memory) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	if err := m.begin(ctx); err != nil {
		return false, err
	}
	defer m.mu.Unlock()
	if _, ok := m.live(key); ok {
		return false, nil
	}
	m.entries[key] = memEntry{value: []byte(value), expiresAt: m.expiry(ttl)}
	return true, nil
}

func (m *Memory) CompareAndDelete(ctx context.Context, key, value string) (bool, error) {
	if err := m.begin(ctx); err != nil {
		return false, err
	}
	defer m.mu.Unlock()
	e, ok := m.live(key)
	if !ok || string(e.value) != value {
		return false, nil
	}
	delete(m.entries, key)
	return true, nil
}

func (m *Memory) Delete(ctx context.Context, keys ...string) error {
	if err := m.begin(ctx); err != nil {
		return err
	}
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.entries, k)
	}
	return nil
}

func (m *Memory) DeletePrefix(ctx context.Context, prefix string) (int64, error) {
	if err := m.begin(ctx); err != nil {
		return 0, err
	}
	defer m.mu.Unlock()
	var n int64
	for k := range m.entries {
		if strings.HasPrefix(k, prefix) {
			if _, ok := m.live(k); ok {
				n++
			}
			delete(m.entries, k)
		}
	}
	return n, nil
}

// Publish delivers to current subscribers. A subscriber whose buffer is full
// misses the message, as a slow Redis subscriber would be disconnected.
func (m *Memory) Publish(ctx context.Context, channel string, message []byte) error {
	if err := m.begin(ctx); err != nil {
		return err
	}
	defer m.mu.Unlock()
	for _, sub := range m.subscribers[channel] {
		select {
		case sub.out <- append([]byte(nil), message...):
		default:
		}
	}
	return nil
}

func (m *Memory) Subscribe(ctx context.Context, channel string) (Subscription, error) {
	if err := m.begin(ctx); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()
	sub := &memSubscription{store: m, channel: channel, out: make(chan []byte, 64)}
	m.subscribers[channel] = append(m.subscribers[channel], sub)
	return sub, nil
}

func (m *Memory) Ping(ctx context.Context) error {
	if err := m.begin(ctx); err != nil {
		return err
	}
	m.mu.Unlock()
	return nil
}

type memSubscription struct {
	store   *Memory
	channel string
	out     chan []byte
	once    sync.Once
}

func (s *memSubscription) Messages() <-chan []byte { return s.out }

func (s *memSubscription) Close() error {
	s.once.Do(func() {
		m := s.store
		m.mu.Lock()
		defer m.mu.Unlock()
		subs := m.subscribers[s.channel]
		for i, other := range subs {
			if other == s {
				m.subscribers[s.channel] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		close(s.out)
	})
	return nil
}
