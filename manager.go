package carecache

import (
	"context"
)

// Manager is the policy facade in front of the cache service. Callers
// express intent through a Level ("cache this broadly") and the Manager
// turns that into concrete tier flags, so call sites never care whether a
// distributed store exists in the current deployment.
type Manager struct {
	svc          *Cache
	defaultLevel Level
	log          Logger
}

var _ ByteCache = (*Manager)(nil)

// ManagerOptions tune the facade. DefaultLevel zero means "pick for me":
// LevelAll when a distributed tier was configured, else LevelMemory.
type ManagerOptions struct {
	DefaultLevel Level
	Logger       Logger
}

// NewManager wraps svc. One Manager per process, built at bootstrap next to
// its service.
func NewManager(svc *Cache, opts ManagerOptions) *Manager {
	m := &Manager{
		svc:          svc,
		defaultLevel: opts.DefaultLevel,
		log:          coalesce[Logger](opts.Logger, NopLogger{}),
	}
	if m.defaultLevel == LevelDefault {
		if svc.Distributed() {
			m.defaultLevel = LevelAll
		} else {
			m.defaultLevel = LevelMemory
		}
	}
	return m
}

// Resolve maps Options onto explicit tier flags. Precedence:
// explicit option > level-derived default > global default.
func (m *Manager) Resolve(opts Options) Options {
	level := opts.Level
	if level == LevelDefault {
		level = m.defaultLevel
	}

	mem, dist := true, true
	switch level {
	case LevelMemory:
		dist = false
	case LevelDistributed:
		mem = false
	case LevelAll:
	}

	if opts.Memory == nil {
		opts.Memory = &mem
	}
	if opts.Distributed == nil {
		opts.Distributed = &dist
	}
	return opts
}

func (m *Manager) GetBytes(ctx context.Context, key string, opts Options) ([]byte, bool) {
	return m.svc.GetBytes(ctx, key, m.Resolve(opts))
}

func (m *Manager) SetBytes(ctx context.Context, key string, value []byte, opts Options) bool {
	return m.svc.SetBytes(ctx, key, value, m.Resolve(opts))
}

func (m *Manager) Delete(ctx context.Context, key, namespace string) bool {
	return m.svc.Delete(ctx, key, namespace)
}

func (m *Manager) InvalidatePattern(ctx context.Context, pattern, namespace string) bool {
	return m.svc.InvalidatePattern(ctx, pattern, namespace)
}

func (m *Manager) Flush(ctx context.Context) bool { return m.svc.Flush(ctx) }

func (m *Manager) Stats(ctx context.Context) Stats { return m.svc.Stats(ctx) }

func (m *Manager) HealthCheck(ctx context.Context) Health { return m.svc.HealthCheck(ctx) }

func (m *Manager) selfHeal(key, ns string) { m.svc.selfHeal(key, ns) }
