// Package cache stores rendered graph artifacts between CLI runs.
//
// Rendering a large graph through graphviz is the slow part of the dot
// command. Artifacts are keyed by a hash of the DOT source and the render
// options, so an unchanged graph is served from disk.
package cache

import (
	"context"
	"time"
)

// Cache is a byte store with optional expiry.
type Cache interface {
	// Get returns the value for key. A miss is not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key. A zero ttl never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// DefaultTTL is how long rendered artifacts are kept.
const DefaultTTL = 7 * 24 * time.Hour

// RenderKey returns the key of an artifact rendered from dot.
func RenderKey(format, dot string, scale float64) string {
	return hashKey("render:"+format, Hash([]byte(dot)), scale)
}
