// Package cacheinfra contains the cache backend adapters. A Backend moves
// opaque byte payloads; serialization, compression, and metrics live one
// level up in the cache package, so backends stay interchangeable.
package cacheinfra

import (
	"context"
	"errors"
	"time"
)

// ErrKeyNotFound reports a cache miss. Backends return it from Get so the
// caller can distinguish "absent" from a transport failure.
var ErrKeyNotFound = errors.New("cacheinfra: key not found")

// Backend is the byte-level contract every cache backend implements.
type Backend interface {
	// Get returns the stored payload, or ErrKeyNotFound when the key is
	// absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores the payload under key. A zero ttl means the backend's
	// default expiry applies.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a single key, reporting whether it existed.
	Delete(ctx context.Context, key string) (bool, error)

	// DeletePattern removes every key matching the glob pattern and returns
	// how many were removed.
	DeletePattern(ctx context.Context, pattern string) (int, error)

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases the backend's resources.
	Close() error
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}
