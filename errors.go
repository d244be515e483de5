package carecache

import (
	"errors"
	"fmt"
)

// Degraded-condition taxonomy. None of these cross the public Get/Set
// boundary: the cache reports misses and booleans and logs diagnostics, so a
// cache outage only ever shows up as a slower response, never a failed one.
// They exist for log/hook classification and for tests.
var (
	// ErrTierUnavailable marks an operation skipped because the
	// distributed tier is absent or disconnected.
	ErrTierUnavailable = errors.New("carecache: tier unavailable")

	// ErrDecode marks a corrupt or schema-incompatible payload. Treated
	// as a miss; the offending entry is deleted.
	ErrDecode = errors.New("carecache: payload decode failed")
)

// OperationError records a single tier's failure during a multi-tier
// operation. The other tiers proceed regardless.
type OperationError struct {
	Op   string // "set", "delete", "invalidate", "flush"
	Tier string // "memory" or "distributed"
	Key  string
	Err  error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("carecache: %s on %s tier failed for %q: %v", e.Op, e.Tier, e.Key, e.Err)
}

func (e *OperationError) Unwrap() error { return e.Err }
