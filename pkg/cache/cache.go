// Package cache stores serialized layout documents and rendered artifacts
// keyed by flow content and geometry.
//
// A layout is a pure function of the flow tree and the geometry table, so a
// cached document is valid for as long as both are unchanged; TTLs only bound
// storage growth.
//
// # Backends
//
//   - [NullCache]: caching disabled
//   - [FileCache]: one JSON file per entry, for the CLI
//   - [RedisCache]: shared cache for `flowcanvas serve`
//   - [MongoCache]: shared cache with a TTL index, for deployments that
//     already run MongoDB
//
// # Keys
//
// Keys come from a [Keyer]. [DefaultKeyer] hashes the flow content hash
// together with every geometry field; [ScopedKeyer] adds a namespace prefix.
package cache

import (
	"context"
	"time"
)

// Default time-to-live per entry kind.
const (
	TTLLayout   = 7 * 24 * time.Hour
	TTLArtifact = 24 * time.Hour
)

// Cache is a byte-oriented key/value store with per-entry expiry.
//
// Get reports a miss as (nil, false, nil); an error means the backend itself
// failed. A ttl of zero means the entry does not expire.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}
