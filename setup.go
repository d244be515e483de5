package carecache

import (
	"github.com/oakmed/carecache/tier/memory"
	tierredis "github.com/oakmed/carecache/tier/redis"
)

// FromConfig builds the whole cache stack for one process: bounded memory
// tier, optional redis tier when cfg.RedisURL is set, the service, and its
// Manager. This is the bootstrap entry point; nothing here is a hidden
// singleton, the caller owns and passes the returned Manager.
func FromConfig(cfg *Config, log Logger) (*Manager, *Cache, error) {
	mem, err := memory.New(memory.Config{
		MaxCostMB:  cfg.MemoryMaxCostMB,
		DefaultTTL: cfg.DefaultTTL,
	})
	if err != nil {
		return nil, nil, err
	}

	opts := ServiceOptions{
		Memory:     mem,
		Logger:     log,
		DefaultTTL: cfg.DefaultTTL,
	}
	if cfg.RedisURL != "" {
		dist, err := tierredis.NewFromURL(cfg.RedisURL, 0)
		if err != nil {
			return nil, nil, err
		}
		opts.Distributed = dist
	}

	svc, err := New(opts)
	if err != nil {
		return nil, nil, err
	}
	return NewManager(svc, ManagerOptions{Logger: log}), svc, nil
}
