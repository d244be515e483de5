// Package tier defines the storage abstraction behind carecache.
//
// Implementations MUST be byte-for-byte transparent: Get must return exactly
// the same []byte that was previously passed to Set for a key (no prepended
// or appended metadata, no re-encoding, no mutation). Serialization is owned
// by the layer above; a tier only moves opaque bytes with a TTL.
//
// Tiers differ in availability semantics: the in-process tier is always
// reachable, while a network-backed tier may come and go. Callers are
// expected to consult Available before issuing operations and to treat an
// unavailable tier as a universal miss, never as an error.
package tier

import (
	"context"
	"time"
)

// Tier is a byte store with TTLs and prefix enumeration.
// Must be safe for concurrent use.
type Tier interface {
	// Get returns (value, true, nil) on hit; (nil, false, nil) on miss.
	// IO/remote failures surface as (nil, false, err); expired entries
	// are a plain miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key for the given TTL. A non-positive TTL
	// means the tier's own default. Overwrites silently.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Del removes a key (best-effort; absent key is not an error).
	Del(ctx context.Context, key string) error

	// Keys returns a point-in-time snapshot of keys starting with prefix.
	// The snapshot is not linearizable under concurrent mutation.
	Keys(ctx context.Context, prefix string) ([]string, error)

	// Flush removes every entry owned by this tier.
	Flush(ctx context.Context) error

	// Len reports the current entry count (approximate for remote tiers).
	Len(ctx context.Context) (int64, error)

	// Available reports whether the tier can currently serve operations.
	Available() bool

	// Close releases resources.
	Close(ctx context.Context) error
}
