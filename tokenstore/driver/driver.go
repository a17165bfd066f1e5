// Package driver defines the storage contract implemented by token store backends.
package driver

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when no live value exists for the key.
var ErrNotFound = errors.New("tokenstore: record not found")

// Backend is a byte-oriented key/value store.
type Backend interface {
	// Get retrieves a value by key, or ErrNotFound
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value; ttl <= 0 means no expiry
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Ping checks if the backend is reachable
	Ping(ctx context.Context) error

	// Close releases the backend's resources
	Close() error
}
