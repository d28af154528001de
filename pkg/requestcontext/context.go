// Package requestcontext carries request-scoped values through services that
// must not import net/http: the caller asserted by the gateway, the request id
// and the clock reading that every operation in one request shares.
//
// Services and scheduler jobs read the clock with Now; tests pin it:
//
//	ctx = requestcontext.WithTime(ctx, time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))
package requestcontext

import (
	"context"
	"time"

	"github.com/google/uuid"

	id "parrainage/pkg/domain"
)

type (
	callerKey    struct{}
	requestIDKey struct{}
	clockKey     struct{}
)

type caller struct {
	id   uuid.UUID
	role id.Role
}

// WithCaller records who is acting. Both values come from the gateway.
func WithCaller(ctx context.Context, callerID uuid.UUID, role id.Role) context.Context {
	return context.WithValue(ctx, callerKey{}, caller{id: callerID, role: role})
}

// CallerID is uuid.Nil outside an identified request.
func CallerID(ctx context.Context) uuid.UUID {
	c, _ := ctx.Value(callerKey{}).(caller)
	return c.id
}

// CallerRole is empty outside an identified request.
func CallerRole(ctx context.Context) id.Role {
	c, _ := ctx.Value(callerKey{}).(caller)
	return c.role
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func RequestID(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey{}).(string)
	return v
}

// WithTime fixes the instant returned by Now for everything below ctx.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, clockKey{}, t)
}

// Now returns the pinned instant, or the wall clock when none was set.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(clockKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}
