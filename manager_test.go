package carecache

import (
	"context"
	"testing"
)

func boolVal(p *bool, name string, t *testing.T) bool {
	t.Helper()
	if p == nil {
		t.Fatalf("%s flag unresolved", name)
	}
	return *p
}

func TestManagerDefaultLevel(t *testing.T) {
	memOnly := newTestCache(t, newFakeTier(), nil)
	both := newTestCache(t, newFakeTier(), newFakeTier())

	if m := NewManager(memOnly, ManagerOptions{}); m.defaultLevel != LevelMemory {
		t.Fatalf("memory-only default = %v, want memory", m.defaultLevel)
	}
	if m := NewManager(both, ManagerOptions{}); m.defaultLevel != LevelAll {
		t.Fatalf("two-tier default = %v, want all", m.defaultLevel)
	}
}

func TestManagerResolvePrecedence(t *testing.T) {
	m := NewManager(newTestCache(t, newFakeTier(), newFakeTier()), ManagerOptions{})

	// level-derived defaults
	r := m.Resolve(Options{Level: LevelMemory})
	if !boolVal(r.Memory, "memory", t) || boolVal(r.Distributed, "distributed", t) {
		t.Fatalf("LevelMemory resolved to mem=%v dist=%v", *r.Memory, *r.Distributed)
	}

	r = m.Resolve(Options{Level: LevelDistributed})
	if boolVal(r.Memory, "memory", t) || !boolVal(r.Distributed, "distributed", t) {
		t.Fatalf("LevelDistributed resolved to mem=%v dist=%v", *r.Memory, *r.Distributed)
	}

	// global default (LevelAll here)
	r = m.Resolve(Options{})
	if !*r.Memory || !*r.Distributed {
		t.Fatalf("global default resolved to mem=%v dist=%v", *r.Memory, *r.Distributed)
	}

	// explicit option beats the level
	r = m.Resolve(Options{Level: LevelMemory, Distributed: Bool(true)})
	if !*r.Distributed {
		t.Fatalf("explicit Distributed=true lost to LevelMemory")
	}
	r = m.Resolve(Options{Level: LevelAll, Memory: Bool(false)})
	if *r.Memory {
		t.Fatalf("explicit Memory=false lost to LevelAll")
	}
}

// TestManagerRouting checks that intent actually steers writes.
func TestManagerRouting(t *testing.T) {
	ctx := context.Background()
	mem, dist := newFakeTier(), newFakeTier()
	m := NewManager(newTestCache(t, mem, dist), ManagerOptions{})

	Set(ctx, m, "a", 1, Options{Level: LevelMemory})
	if dist.has("cache:a") {
		t.Fatalf("LevelMemory write reached distributed tier")
	}
	if !mem.has("cache:a") {
		t.Fatalf("LevelMemory write missing from memory tier")
	}

	Set(ctx, m, "b", 2, Options{Level: LevelDistributed})
	if mem.has("cache:b") {
		t.Fatalf("LevelDistributed write reached memory tier")
	}
	if !dist.has("cache:b") {
		t.Fatalf("LevelDistributed write missing from distributed tier")
	}

	Set(ctx, m, "c", 3, Options{})
	if !mem.has("cache:c") || !dist.has("cache:c") {
		t.Fatalf("default level should write both tiers")
	}
}
