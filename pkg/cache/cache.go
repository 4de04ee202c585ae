// Package cache provides small key-value caches for lookups that are
// expensive to repeat across runs, such as resolving a font family to a file
// on disk.
//
// Two implementations are provided:
//   - [FileCache]: JSON entries under a directory (~/.cache/watermarker/)
//   - [NullCache]: never stores anything (--no-cache)
//
// Keys are produced by a [Keyer] so that callers never build raw strings.
//
// Downloaded images are never cached.
package cache

import (
	"context"
	"time"
)

// Cache stores opaque byte values under string keys.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns the value for key and whether it was found.
	// Expired and corrupt entries are reported as misses.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A zero ttl means the entry never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases resources held by the cache.
	Close() error
}

// Keyer generates cache keys.
type Keyer interface {
	// FontKey returns the key under which a resolved font path is stored.
	FontKey(family string) string
}

// DefaultKeyer generates hashed, namespaced keys.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// FontKey hashes the family name so keys are filesystem safe.
func (DefaultKeyer) FontKey(family string) string {
	return hashKey("font", family)
}
