package carecache

// Hooks are lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking; the cache calls them on
// hot paths.
type Hooks interface {
	// An entry was deleted by the cache on read because its payload could
	// not be decoded.
	SelfHeal(storageKey string)

	// A distributed-tier hit was copied into the memory tier.
	Promoted(storageKey string)

	// One tier's write failed during Set; the other tiers proceeded.
	WriteFailed(storageKey, tier string, err error)

	// The distributed tier was skipped because it is unavailable.
	TierSkipped(storageKey string)

	// A pattern invalidation pass completed. removed counts both tiers.
	PatternInvalidated(prefix string, removed int)
}

// NopHooks is the default no-op.
type NopHooks struct{}

func (NopHooks) SelfHeal(string)                    {}
func (NopHooks) Promoted(string)                    {}
func (NopHooks) WriteFailed(string, string, error)  {}
func (NopHooks) TierSkipped(string)                 {}
func (NopHooks) PatternInvalidated(string, int)     {}
