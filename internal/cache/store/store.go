// Package store holds the shared cache backends used by the cache coordinator.
//
// Redis is used when several processes serve statistics; Memory backs unit
// tests and single-process runs. Neither is authoritative: every value can be
// recomputed from the ledger.
package store

import (
	"context"
	"time"
)

// Store is the shared key-value and pub/sub surface the coordinator needs.
type Store interface {
	// Get reports false when the key is absent or expired.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// SetNX stores value only when key is absent and reports whether it did.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	// CompareAndDelete deletes key only while it still holds value.
	CompareAndDelete(ctx context.Context, key, value string) (bool, error)
	Delete(ctx context.Context, keys ...string) error
	// DeletePrefix deletes every key starting with prefix and returns how many went.
	DeletePrefix(ctx context.Context, prefix string) (int64, error)
	Publish(ctx context.Context, channel string, message []byte) error
	Subscribe(ctx context.Context, channel string) (Subscription, error)
	Ping(ctx context.Context) error
}

// Subscription delivers messages published on one channel until closed.
type Subscription interface {
	Messages() <-chan []byte
	Close() error
}
