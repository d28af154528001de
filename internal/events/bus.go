package events

import (
	"context"
	"log/slog"
	"sync"
)

// Publisher hands committed events to their consumers.
type Publisher interface {
	Publish(ctx context.Context, evts ...Event)
}

// Handler consumes one event.
type Handler interface {
	HandleEvent(ctx context.Context, evt Event) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, evt Event) error

func (f HandlerFunc) HandleEvent(ctx context.Context, evt Event) error {
	return f(ctx, evt)
}

// Bus dispatches events to in-process handlers. Handler failures are logged and
// never reach the publisher: the ledger write has already committed.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Type][]Handler
	all      []Handler
	logger   *slog.Logger
}

// NewBus creates an empty bus.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{handlers: make(map[Type][]Handler), logger: logger}
}

// Subscribe registers h for the given types, or for every type when none are given.
func (b *Bus) Subscribe(h Handler, types ...Type) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(types) == 0 {
		b.all = append(b.all, h)
		return
	}
	for _, t := range types {
		b.handlers[t] = append(b.handlers[t], h)
	}
}

// Publish delivers each event to its handlers in registration order.
func (b *Bus) Publish(ctx context.Context, evts ...Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, evt := range evts {
		for _, h := range b.handlers[evt.Type] {
			b.dispatch(ctx, h, evt)
		}
		for _, h := range b.all {
			b.dispatch(ctx, h, evt)
		}
	}
}

func (b *Bus) dispatch(ctx context.Context, h Handler, evt Event) {
	if err := h.HandleEvent(ctx, evt); err != nil {
		b.logger.WarnContext(ctx, "event handler failed",
			"event_id", evt.ID,
			"event_type", evt.Type,
			"error", err,
		)
	}
}

// HandleEvent republishes evt on the bus, so a Consumer can feed it.
func (b *Bus) HandleEvent(ctx context.Context, evt Event) error {
	b.Publish(ctx, evt)
	return nil
}

// Discard is a Publisher and Sink that drops everything. As a relay sink it
// marks outbox rows published when no broker is configured.
type Discard struct{}

func (Discard) Publish(context.Context, ...Event) {}

func (Discard) Send(context.Context, ...Message) error { return nil }
