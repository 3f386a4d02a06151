// Package storage defines the key/value record store used for saves,
// settings and profile data.
package storage

import (
	"context"
)

// Storage persists opaque records under string keys. Keys are scoped by the
// caller, for example "save:3" or "settings".
type Storage interface {
	// Health and lifecycle
	Ping(ctx context.Context) error
	Close() error

	// Get returns the record stored under key. A missing key returns
	// (nil, nil).
	Get(ctx context.Context, key string) ([]byte, error)
	// Put creates or replaces the record under key.
	Put(ctx context.Context, key string, data []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Keys lists stored keys with the given prefix in lexical order.
	Keys(ctx context.Context, prefix string) ([]string, error)
}
