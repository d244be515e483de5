package carecache

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/oakmed/carecache/tier"
)

type fakeEntry struct {
	v   []byte
	exp time.Time // zero => no TTL
}

// fakeTier is an in-memory tier.Tier with switchable availability and
// injectable write failures.
type fakeTier struct {
	mu        sync.Mutex
	m         map[string]fakeEntry
	available bool
	setErr    error
}

var _ tier.Tier = (*fakeTier)(nil)

func newFakeTier() *fakeTier {
	return &fakeTier{m: make(map[string]fakeEntry), available: true}
}

func (p *fakeTier) Get(_ context.Context, key string) ([]byte, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.m[key]
	if !ok {
		return nil, false, nil
	}
	if !e.exp.IsZero() && time.Now().After(e.exp) {
		delete(p.m, key)
		return nil, false, nil
	}
	return e.v, true, nil
}

func (p *fakeTier) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if p.setErr != nil {
		return p.setErr
	}
	var exp time.Time
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	p.mu.Lock()
	p.m[key] = fakeEntry{v: value, exp: exp}
	p.mu.Unlock()
	return nil
}

func (p *fakeTier) Del(_ context.Context, key string) error {
	p.mu.Lock()
	delete(p.m, key)
	p.mu.Unlock()
	return nil
}

func (p *fakeTier) Keys(_ context.Context, prefix string) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for k := range p.m {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	return out, nil
}

func (p *fakeTier) Flush(_ context.Context) error {
	p.mu.Lock()
	p.m = make(map[string]fakeEntry)
	p.mu.Unlock()
	return nil
}

func (p *fakeTier) Len(_ context.Context) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return int64(len(p.m)), nil
}

func (p *fakeTier) Available() bool               { return p.available }
func (p *fakeTier) Close(_ context.Context) error { return nil }

func (p *fakeTier) has(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.m[key]
	return ok
}

type provider struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func newTestCache(t *testing.T, mem, dist tier.Tier) *Cache {
	t.Helper()
	c, err := New(ServiceOptions{Memory: mem, Distributed: dist})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

// ==============================
// Round-trip and expiry
// ==============================

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t, newFakeTier(), nil)

	v := provider{ID: "p1", Name: "Dr. Reyes"}
	if !Set(ctx, c, "providers:p1", v, Options{}) {
		t.Fatalf("Set returned false")
	}
	got, ok := Get[provider](ctx, c, "providers:p1", Options{})
	if !ok || got != v {
		t.Fatalf("Get: ok=%v got=%+v want=%+v", ok, got, v)
	}
}

func TestGetMiss(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t, newFakeTier(), nil)

	if _, ok := Get[provider](ctx, c, "providers:absent", Options{}); ok {
		t.Fatalf("expected miss")
	}
	if s := c.Stats(ctx); s.Misses != 1 {
		t.Fatalf("misses = %d, want 1", s.Misses)
	}
}

func TestExpiry(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t, newFakeTier(), nil)

	Set(ctx, c, "k", "v", Options{TTL: 20 * time.Millisecond})
	if _, ok := Get[string](ctx, c, "k", Options{}); !ok {
		t.Fatalf("expected hit before TTL")
	}
	time.Sleep(40 * time.Millisecond)
	if _, ok := Get[string](ctx, c, "k", Options{}); ok {
		t.Fatalf("expected miss after TTL elapsed")
	}
}

// ==============================
// Promotion
// ==============================

// TestPromotion verifies that a key present only in the distributed tier
// becomes readable from the memory tier after one Get.
func TestPromotion(t *testing.T) {
	ctx := context.Background()
	mem, dist := newFakeTier(), newFakeTier()
	c := newTestCache(t, mem, dist)

	if err := dist.Set(ctx, "cache:claims:c9", []byte(`"pending"`), time.Minute); err != nil {
		t.Fatalf("seed distributed: %v", err)
	}

	got, ok := Get[string](ctx, c, "claims:c9", Options{})
	if !ok || got != "pending" {
		t.Fatalf("Get: ok=%v got=%q", ok, got)
	}
	if !mem.has("cache:claims:c9") {
		t.Fatalf("hit was not promoted into memory tier")
	}
	if s := c.Stats(ctx); s.Promotions != 1 {
		t.Fatalf("promotions = %d, want 1", s.Promotions)
	}

	// second read served from memory
	if _, ok := Get[string](ctx, c, "claims:c9", Options{}); !ok {
		t.Fatalf("expected memory hit after promotion")
	}
}

// ==============================
// Pattern invalidation and namespaces
// ==============================

func TestInvalidatePattern(t *testing.T) {
	ctx := context.Background()
	mem, dist := newFakeTier(), newFakeTier()
	c := newTestCache(t, mem, dist)

	Set(ctx, c, "orders:1", 1, Options{})
	Set(ctx, c, "orders:2", 2, Options{})
	Set(ctx, c, "other:1", 3, Options{})

	if !c.InvalidatePattern(ctx, "orders", "") {
		t.Fatalf("InvalidatePattern returned false")
	}

	if _, ok := Get[int](ctx, c, "orders:1", Options{}); ok {
		t.Fatalf("orders:1 survived invalidation")
	}
	if _, ok := Get[int](ctx, c, "orders:2", Options{}); ok {
		t.Fatalf("orders:2 survived invalidation")
	}
	if got, ok := Get[int](ctx, c, "other:1", Options{}); !ok || got != 3 {
		t.Fatalf("other:1 should be intact, ok=%v got=%d", ok, got)
	}
	if dist.has("cache:orders:1") {
		t.Fatalf("distributed copy survived invalidation")
	}
}

func TestNamespaceIsolation(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t, newFakeTier(), nil)

	Set(ctx, c, "x", "v1", Options{Namespace: "a"})
	Set(ctx, c, "x", "v2", Options{Namespace: "b"})

	got1, _ := Get[string](ctx, c, "x", Options{Namespace: "a"})
	got2, _ := Get[string](ctx, c, "x", Options{Namespace: "b"})
	if got1 != "v1" || got2 != "v2" {
		t.Fatalf("namespaces collided: a=%q b=%q", got1, got2)
	}

	c.InvalidatePattern(ctx, "x", "a")
	if _, ok := Get[string](ctx, c, "x", Options{Namespace: "a"}); ok {
		t.Fatalf("a:x survived its invalidation")
	}
	if _, ok := Get[string](ctx, c, "x", Options{Namespace: "b"}); !ok {
		t.Fatalf("b:x was hit by a's invalidation")
	}
}

// ==============================
// Degraded mode
// ==============================

// TestMemoryOnlyMode checks that with no distributed tier configured every
// operation succeeds memory-only and health reports healthy.
func TestMemoryOnlyMode(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t, newFakeTier(), nil)

	if !Set(ctx, c, "k", "v", Options{}) {
		t.Fatalf("memory-only Set failed")
	}
	if _, ok := Get[string](ctx, c, "k", Options{}); !ok {
		t.Fatalf("memory-only Get missed")
	}
	if !c.Delete(ctx, "k", "") {
		t.Fatalf("memory-only Delete failed")
	}
	if h := c.HealthCheck(ctx); h.Status != StatusHealthy {
		t.Fatalf("health = %v, want healthy", h.Status)
	}
}

func TestDistributedUnavailableDegrades(t *testing.T) {
	ctx := context.Background()
	mem, dist := newFakeTier(), newFakeTier()
	dist.available = false
	c := newTestCache(t, mem, dist)

	if !Set(ctx, c, "k", "v", Options{}) {
		t.Fatalf("Set should succeed via memory when distributed is down")
	}
	if _, ok := Get[string](ctx, c, "k", Options{}); !ok {
		t.Fatalf("Get should hit memory when distributed is down")
	}
	if dist.has("cache:k") {
		t.Fatalf("write reached unavailable tier")
	}

	h := c.HealthCheck(ctx)
	if h.Status != StatusDegraded {
		t.Fatalf("health = %v, want degraded", h.Status)
	}
	if h.Details["distributed"] != "disconnected" {
		t.Fatalf("details = %v", h.Details)
	}
}

// TestDistributedWriteFailureDoesNotFailSet covers the best-tier-available
// write model: one tier failing is logged, not surfaced.
func TestDistributedWriteFailureDoesNotFailSet(t *testing.T) {
	ctx := context.Background()
	mem, dist := newFakeTier(), newFakeTier()
	dist.setErr = context.DeadlineExceeded
	c := newTestCache(t, mem, dist)

	if !Set(ctx, c, "k", "v", Options{}) {
		t.Fatalf("Set must succeed when memory accepted the write")
	}
	if s := c.Stats(ctx); s.WriteFailures != 1 {
		t.Fatalf("write failures = %d, want 1", s.WriteFailures)
	}
}

// ==============================
// Decode failures
// ==============================

// TestDecodeFailureIsMiss injects an undecodable payload and expects a
// plain miss plus removal of the corrupt entry.
func TestDecodeFailureIsMiss(t *testing.T) {
	ctx := context.Background()
	mem := newFakeTier()
	c := newTestCache(t, mem, nil)

	if err := mem.Set(ctx, "cache:bad", []byte("{not json"), time.Minute); err != nil {
		t.Fatalf("inject: %v", err)
	}
	if _, ok := Get[provider](ctx, c, "bad", Options{}); ok {
		t.Fatalf("undecodable payload must read as a miss")
	}
	if mem.has("cache:bad") {
		t.Fatalf("corrupt entry was not self-healed")
	}
}

// ==============================
// Tier flags
// ==============================

func TestExplicitTierFlags(t *testing.T) {
	ctx := context.Background()
	mem, dist := newFakeTier(), newFakeTier()
	c := newTestCache(t, mem, dist)

	Set(ctx, c, "k", "v", Options{Memory: Bool(false)})
	if mem.has("cache:k") {
		t.Fatalf("memory write happened despite Memory=false")
	}
	if !dist.has("cache:k") {
		t.Fatalf("distributed write missing")
	}

	Set(ctx, c, "k2", "v", Options{Distributed: Bool(false)})
	if dist.has("cache:k2") {
		t.Fatalf("distributed write happened despite Distributed=false")
	}
}

// ==============================
// Scenario from the API playbook
// ==============================

func TestProvidersListScenario(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t, newFakeTier(), newFakeTier())

	list := []provider{{ID: "p1"}, {ID: "p2"}}
	if !Set(ctx, c, "api:providers", list, Options{TTL: time.Hour}) {
		t.Fatalf("Set failed")
	}

	got, ok := Get[[]provider](ctx, c, "api:providers", Options{})
	if !ok || len(got) != 2 || got[0] != list[0] || got[1] != list[1] {
		t.Fatalf("Get: ok=%v got=%+v", ok, got)
	}

	c.InvalidatePattern(ctx, "api:providers", "")
	if _, ok := Get[[]provider](ctx, c, "api:providers", Options{}); ok {
		t.Fatalf("expected miss after invalidation")
	}
}

func TestFlushAndStats(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t, newFakeTier(), newFakeTier())

	Set(ctx, c, "a", 1, Options{})
	Set(ctx, c, "b", 2, Options{})

	s := c.Stats(ctx)
	if s.MemoryKeys != 2 || s.DistributedKeys != 2 {
		t.Fatalf("key counts = %d/%d, want 2/2", s.MemoryKeys, s.DistributedKeys)
	}

	if !c.Flush(ctx) {
		t.Fatalf("Flush failed")
	}
	s = c.Stats(ctx)
	if s.MemoryKeys != 0 || s.DistributedKeys != 0 {
		t.Fatalf("key counts after flush = %d/%d", s.MemoryKeys, s.DistributedKeys)
	}
}
