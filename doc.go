// Package carecache implements the multi-tier cache behind the platform's
// API layer: a bounded in-process tier backed optionally by a shared
// distributed tier, with namespacing, TTLs, prefix-based invalidation,
// proactive warming (warm/) and HTTP edge-cache headers (httpcache/).
//
// Components:
//   - tier.Tier: byte store with TTL and prefix enumeration
//     (tier/memory on ristretto, tier/redis on go-redis).
//   - Cache: orchestrates the tiers - memory first, distributed on miss
//     with write-through promotion, best-effort multi-tier writes.
//   - Manager: policy facade mapping a cache Level intent onto tier flags.
//   - codec.Codec[V]: (de)serializes V <-> []byte; a failed decode is a
//     miss, never an error.
//
// Keys are "<namespace>:<key>"; tags are key prefixes and bulk
// invalidation is prefix deletion.
//
// The governing invariant: a cache outage or corrupt payload may only ever
// make a request slower (forcing a source-of-truth read), never make it
// fail. The distributed tier degrades silently when absent or unreachable
// and health reports "degraded", not "down".
package carecache
