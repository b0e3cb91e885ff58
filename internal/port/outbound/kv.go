// Package outbound defines the outbound port interfaces for durable
// storefront state.
package outbound

import (
	"context"
	"errors"
)

// ErrStoreClosed is returned by operations on a closed store.
var ErrStoreClosed = errors.New("store is closed")

// KeyValueStore is the outbound port for durable key/value persistence.
// Values are opaque text; callers own the encoding. Adapters implement this
// for a JSON state file, an embedded SQLite database, and process memory.
type KeyValueStore interface {
	// Get returns the value stored under key.
	// ok is false when the key is absent; err is reserved for I/O failures.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Set stores value under key, replacing any previous value.
	// When Set returns nil the value survives a restart.
	Set(ctx context.Context, key, value string) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Keys returns all stored keys in ascending order.
	Keys(ctx context.Context) ([]string, error)

	// Close releases resources held by the store.
	Close() error
}
