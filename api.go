package carecache

import (
	"context"
	"time"

	"github.com/oakmed/carecache/tier"
)

// Level expresses caching intent without naming tiers. Callers say how
// broadly a value should be cached; the Manager translates that into
// concrete tier flags for whatever tiers exist in the current deployment.
type Level int

const (
	// LevelDefault defers to the Manager's global default.
	LevelDefault Level = iota
	// LevelMemory caches in the process-local tier only.
	LevelMemory
	// LevelDistributed caches in the shared tier only.
	LevelDistributed
	// LevelAll caches in every configured tier.
	LevelAll
)

func (l Level) String() string {
	switch l {
	case LevelMemory:
		return "memory"
	case LevelDistributed:
		return "distributed"
	case LevelAll:
		return "all"
	default:
		return "default"
	}
}

// Options tune a single cache operation. The zero value is usable: default
// namespace, service default TTL, Manager default level, all tiers enabled.
//
// Tier flag precedence: explicit Memory/Distributed pointer > Level-derived
// default > global default.
type Options struct {
	Namespace string
	TTL       time.Duration
	Level     Level

	// Explicit tier overrides. nil means "derive from Level".
	Memory      *bool
	Distributed *bool
}

// Bool is a convenience for building explicit tier overrides in Options
// literals.
func Bool(v bool) *bool { return &v }

// Stats is a point-in-time observability snapshot.
type Stats struct {
	Hits            uint64 `json:"hits"`
	Misses          uint64 `json:"misses"`
	Promotions      uint64 `json:"promotions"`
	WriteFailures   uint64 `json:"write_failures"`
	MemoryKeys      int64  `json:"memory_keys"`
	DistributedKeys int64  `json:"distributed_keys"`
}

// Status is the aggregate health of the cache. There is no "down" state:
// losing the distributed tier degrades the cache, it never takes it out.
type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusDegraded Status = "degraded"
)

// Health reports aggregate status plus per-tier detail.
type Health struct {
	Status  Status            `json:"status"`
	Details map[string]string `json:"details"`
}

// ByteCache is the tier-flag-aware byte surface shared by Cache and
// Manager. The generic Get/Set helpers accept either.
type ByteCache interface {
	GetBytes(ctx context.Context, key string, opts Options) ([]byte, bool)
	SetBytes(ctx context.Context, key string, value []byte, opts Options) bool
	Delete(ctx context.Context, key, namespace string) bool
}

// ServiceOptions configure a Cache. Only Memory is required; a nil
// Distributed tier puts the cache in memory-only mode.
type ServiceOptions struct {
	Memory      tier.Tier
	Distributed tier.Tier

	Logger     Logger        // nil => NopLogger
	Hooks      Hooks         // nil => NopHooks
	DefaultTTL time.Duration // 0 => 10m
}

// New constructs the cache service. Build one instance at process bootstrap
// and pass it to collaborators explicitly.
func New(opts ServiceOptions) (*Cache, error) {
	return newCache(opts)
}
