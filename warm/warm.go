// Package warm proactively populates the cache from backing-store
// collaborators, so the first reads after a deploy or an invalidation storm
// do not all pay cold-cache latency. One task per entity type; tasks are
// isolated, a failing one never aborts the rest.
package warm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/oakmed/carecache"
	"github.com/oakmed/carecache/codec"
)

// listKeySuffix is the key under which a task stores the full collection,
// alongside the per-item keys.
const listKeySuffix = "all"

// Task is one unit of proactive population. Build with NewTask.
type Task struct {
	Entity string
	run    func(ctx context.Context, c carecache.ByteCache) error
}

// TaskConfig tunes one task beyond the policy-table defaults.
type TaskConfig struct {
	// Namespace for the written keys; empty uses the cache default.
	Namespace string
	// Level routes warm writes; LevelDefault defers to the Manager, which
	// picks the broadest tier set the deployment has.
	Level carecache.Level
	// TTL overrides the entity policy's TTL when non-zero.
	TTL time.Duration
}

// NewTask describes warming for one entity type: fetch the full collection
// once, store it under "<entity>:all", then store each item under
// "<entity>:<keyFn(item)>". The TTL comes from the entity policy table so
// warming policy stays auditable in one place.
func NewTask[V any](entity string, fetch func(ctx context.Context) ([]V, error), keyFn func(V) string, cfg TaskConfig) Task {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = carecache.PolicyFor(entity).TTL
	}
	opts := carecache.Options{
		Namespace: cfg.Namespace,
		TTL:       ttl,
		Level:     cfg.Level,
	}
	cd := codec.JSON[V]{}
	listCd := codec.JSON[[]V]{}

	return Task{
		Entity: entity,
		run: func(ctx context.Context, c carecache.ByteCache) error {
			items, err := fetch(ctx)
			if err != nil {
				return fmt.Errorf("fetch %s: %w", entity, err)
			}
			if !carecache.SetWith(ctx, c, listCd, entity+":"+listKeySuffix, items, opts) {
				return fmt.Errorf("store %s list: no tier accepted the write", entity)
			}
			for _, item := range items {
				key := entity + ":" + keyFn(item)
				if !carecache.SetWith(ctx, c, cd, key, item, opts) {
					return fmt.Errorf("store %s: no tier accepted the write", key)
				}
			}
			return nil
		},
	}
}

// Warmer runs a fixed set of tasks, immediately and on a schedule.
type Warmer struct {
	cache carecache.ByteCache
	tasks []Task
	log   carecache.Logger
}

func NewWarmer(cache carecache.ByteCache, log carecache.Logger, tasks ...Task) *Warmer {
	if log == nil {
		log = carecache.NopLogger{}
	}
	return &Warmer{cache: cache, tasks: tasks, log: log}
}

// WarmAll runs every task concurrently. Each task is isolated: an error or
// panic is caught and logged without aborting the others. The returned map
// holds the failures by entity, for observability only.
func (w *Warmer) WarmAll(ctx context.Context) map[string]error {
	var (
		mu       sync.Mutex
		failures = make(map[string]error)
		wg       sync.WaitGroup
	)

	started := time.Now()
	for _, t := range w.tasks {
		wg.Add(1)
		go func(t Task) {
			defer wg.Done()
			if err := w.runOne(ctx, t); err != nil {
				mu.Lock()
				failures[t.Entity] = err
				mu.Unlock()
				w.log.Error("warm task failed", carecache.Fields{"entity": t.Entity, "err": err})
			}
		}(t)
	}
	wg.Wait()

	w.log.Info("warm pass complete", carecache.Fields{
		"tasks":    len(w.tasks),
		"failed":   len(failures),
		"duration": time.Since(started),
	})
	return failures
}

func (w *Warmer) runOne(ctx context.Context, t Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("warm %s panicked: %v", t.Entity, r)
		}
	}()
	return t.run(ctx, w.cache)
}

// Schedule performs one immediate pass and then repeats every interval.
// The returned stop function cancels future passes; it does not interrupt
// a pass already in flight. Passes are not mutually excluded: a pass
// outlasting the interval can overlap the next one.
func (w *Warmer) Schedule(ctx context.Context, interval time.Duration) (stop func()) {
	go w.WarmAll(ctx)

	c := cron.New()
	c.Schedule(cron.Every(interval), cron.FuncJob(func() {
		w.WarmAll(ctx)
	}))
	c.Start()

	return func() { c.Stop() }
}
