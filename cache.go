package carecache

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/oakmed/carecache/internal/keyutil"
	"github.com/oakmed/carecache/tier"
)

const defaultTTL = 10 * time.Minute

const (
	tierMemory      = "memory"
	tierDistributed = "distributed"
)

// Cache orchestrates the process-local tier and the optional distributed
// tier: tier selection, write-through promotion on read, prefix
// invalidation, health aggregation.
//
// Consistency is deliberately "best tier available": writes go to each
// enabled tier independently and a distributed failure is logged, not
// surfaced. Two tiers can therefore diverge briefly; reads prefer memory.
type Cache struct {
	memory      tier.Tier
	distributed tier.Tier // nil when not configured
	log         Logger
	hooks       Hooks
	ttl         time.Duration

	hits          atomic.Uint64
	misses        atomic.Uint64
	promotions    atomic.Uint64
	writeFailures atomic.Uint64
}

var _ ByteCache = (*Cache)(nil)

func newCache(opts ServiceOptions) (*Cache, error) {
	if opts.Memory == nil {
		return nil, fmt.Errorf("carecache: memory tier is required")
	}
	c := &Cache{
		memory:      opts.Memory,
		distributed: opts.Distributed,
	}
	c.log = coalesce[Logger](opts.Logger, NopLogger{})
	c.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	c.ttl = coalesce[time.Duration](opts.DefaultTTL, defaultTTL)
	return c, nil
}

// Distributed reports whether a distributed tier was configured at all,
// regardless of its current availability.
func (c *Cache) Distributed() bool { return c.distributed != nil }

// Close releases both tiers (best effort on memory).
func (c *Cache) Close(ctx context.Context) error {
	_ = c.memory.Close(ctx)
	if c.distributed != nil {
		return c.distributed.Close(ctx)
	}
	return nil
}

// tierFlags are the concrete per-call tier switches after Options
// resolution.
type tierFlags struct {
	memory      bool
	distributed bool
}

// resolve applies the service-level defaults: every configured tier is
// enabled unless an explicit override says otherwise. Level resolution is
// the Manager's job; by the time Options reach the service only the
// explicit pointers matter.
func (c *Cache) resolve(opts Options) tierFlags {
	f := tierFlags{memory: true, distributed: c.distributed != nil}
	if opts.Memory != nil {
		f.memory = *opts.Memory
	}
	if opts.Distributed != nil {
		f.distributed = *opts.Distributed && c.distributed != nil
	}
	return f
}

// GetBytes reads the raw payload for key. Memory tier first; on miss the
// distributed tier is consulted if enabled and available, and a hit there
// is promoted into the memory tier with the call's TTL before being
// returned. A miss in both tiers is (nil, false) - never an error.
func (c *Cache) GetBytes(ctx context.Context, key string, opts Options) ([]byte, bool) {
	f := c.resolve(opts)
	k := keyutil.Join(opts.Namespace, key)

	if f.memory {
		if b, ok, err := c.memory.Get(ctx, k); err == nil && ok {
			c.hits.Add(1)
			return b, true
		}
	}

	if f.distributed {
		if !c.distributed.Available() {
			c.hooks.TierSkipped(k)
		} else if b, ok, err := c.distributed.Get(ctx, k); err != nil {
			c.log.Warn("distributed get failed", Fields{"key": k, "err": err})
		} else if ok {
			c.hits.Add(1)
			if f.memory {
				c.promote(ctx, k, b, c.entryTTL(opts))
			}
			return b, true
		}
	}

	c.misses.Add(1)
	return nil, false
}

// promote copies a distributed hit into the memory tier. Two concurrent
// misses on the same key may both promote; the second overwrite is
// idempotent and harmless.
func (c *Cache) promote(ctx context.Context, storageKey string, value []byte, ttl time.Duration) {
	if err := c.memory.Set(ctx, storageKey, value, ttl); err != nil {
		c.log.Debug("promotion skipped", Fields{"key": storageKey, "err": err})
		return
	}
	c.promotions.Add(1)
	c.hooks.Promoted(storageKey)
}

// SetBytes writes value independently to every enabled tier and reports
// whether at least one requested tier accepted it. A distributed-write
// failure is logged and does not fail the call.
func (c *Cache) SetBytes(ctx context.Context, key string, value []byte, opts Options) bool {
	f := c.resolve(opts)
	k := keyutil.Join(opts.Namespace, key)
	ttl := c.entryTTL(opts)

	wrote := false
	if f.memory {
		if err := c.memory.Set(ctx, k, value, ttl); err != nil {
			c.writeFailure("set", tierMemory, k, err)
		} else {
			wrote = true
		}
	}
	if f.distributed {
		if !c.distributed.Available() {
			c.hooks.TierSkipped(k)
			c.log.Debug("distributed set skipped (unavailable)", Fields{"key": k})
		} else if err := c.distributed.Set(ctx, k, value, ttl); err != nil {
			c.writeFailure("set", tierDistributed, k, err)
		} else {
			wrote = true
		}
	}
	return wrote
}

// Delete removes key from both tiers. An absent key is not an error.
func (c *Cache) Delete(ctx context.Context, key, namespace string) bool {
	k := keyutil.Join(namespace, key)
	if err := c.memory.Del(ctx, k); err != nil {
		c.writeFailure("delete", tierMemory, k, err)
	}
	if c.distributed != nil && c.distributed.Available() {
		if err := c.distributed.Del(ctx, k); err != nil {
			c.writeFailure("delete", tierDistributed, k, err)
		}
	}
	return true
}

// InvalidatePattern removes every key under "<namespace>:<pattern>" from
// both tiers. The scan runs over a point-in-time key snapshot, so keys
// inserted concurrently may survive: invalidation is best-effort, not
// linearizable. This is the sole primitive behind tag invalidation.
func (c *Cache) InvalidatePattern(ctx context.Context, pattern, namespace string) bool {
	prefix := keyutil.Prefix(namespace, pattern)
	removed := 0

	keys, err := c.memory.Keys(ctx, prefix)
	if err != nil {
		c.log.Error("memory key scan failed", Fields{"prefix": prefix, "err": err})
		return false
	}
	for _, k := range keys {
		if err := c.memory.Del(ctx, k); err == nil {
			removed++
		}
	}

	if c.distributed != nil && c.distributed.Available() {
		dkeys, err := c.distributed.Keys(ctx, prefix)
		if err != nil {
			c.log.Warn("distributed key scan failed", Fields{"prefix": prefix, "err": err})
		} else {
			for _, k := range dkeys {
				if err := c.distributed.Del(ctx, k); err != nil {
					c.writeFailure("invalidate", tierDistributed, k, err)
				} else {
					removed++
				}
			}
		}
	}

	c.hooks.PatternInvalidated(prefix, removed)
	c.log.Debug("pattern invalidated", Fields{"prefix": prefix, "removed": removed})
	return true
}

// Flush clears every tier. Administrative/test use only - never on the
// request path.
func (c *Cache) Flush(ctx context.Context) bool {
	ok := true
	if err := c.memory.Flush(ctx); err != nil {
		c.writeFailure("flush", tierMemory, "", err)
		ok = false
	}
	if c.distributed != nil && c.distributed.Available() {
		if err := c.distributed.Flush(ctx); err != nil {
			c.writeFailure("flush", tierDistributed, "", err)
			ok = false
		}
	}
	return ok
}

// Stats returns hit/miss/key counts. Key counts are approximate for the
// distributed tier and zero when it is unreachable.
func (c *Cache) Stats(ctx context.Context) Stats {
	s := Stats{
		Hits:          c.hits.Load(),
		Misses:        c.misses.Load(),
		Promotions:    c.promotions.Load(),
		WriteFailures: c.writeFailures.Load(),
	}
	if n, err := c.memory.Len(ctx); err == nil {
		s.MemoryKeys = n
	}
	if c.distributed != nil && c.distributed.Available() {
		if n, err := c.distributed.Len(ctx); err == nil {
			s.DistributedKeys = n
		}
	}
	return s
}

// HealthCheck aggregates tier availability. Healthy iff the memory tier is
// up and the distributed tier is either absent or connected; anything else
// is degraded. The cache never reports itself down.
func (c *Cache) HealthCheck(ctx context.Context) Health {
	h := Health{Status: StatusHealthy, Details: map[string]string{}}

	if c.memory.Available() {
		h.Details[tierMemory] = "ok"
	} else {
		h.Details[tierMemory] = "unavailable"
		h.Status = StatusDegraded
	}

	switch {
	case c.distributed == nil:
		h.Details[tierDistributed] = "not configured"
	case c.distributed.Available():
		h.Details[tierDistributed] = "connected"
	default:
		h.Details[tierDistributed] = "disconnected"
		h.Status = StatusDegraded
	}
	return h
}

func (c *Cache) entryTTL(opts Options) time.Duration {
	return coalesce[time.Duration](opts.TTL, c.ttl)
}

// selfHeal records the removal of an undecodable entry; the delete itself
// is issued by the typed read path.
func (c *Cache) selfHeal(key, ns string) {
	k := keyutil.Join(ns, key)
	c.hooks.SelfHeal(k)
	c.log.Warn("removed undecodable entry", Fields{"key": k, "err": ErrDecode})
}

func (c *Cache) writeFailure(op, t, key string, err error) {
	c.writeFailures.Add(1)
	c.hooks.WriteFailed(key, t, err)
	oe := &OperationError{Op: op, Tier: t, Key: key, Err: err}
	c.log.Warn("tier operation failed", Fields{"op": op, "tier": t, "key": key, "err": oe})
}
