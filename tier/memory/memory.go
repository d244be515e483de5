// Package memory implements the process-local cache tier on top of
// ristretto. Ristretto provides the bounded store with per-entry TTLs; a
// side index of live keys makes prefix enumeration possible, which
// ristretto itself cannot do.
package memory

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto"

	"github.com/oakmed/carecache/tier"
)

const (
	defaultMaxCostMB   = 64
	defaultNumCounters = 1 << 17
	defaultSweep       = time.Minute
	defaultTTL         = 10 * time.Minute
)

// ErrRejected is returned when ristretto refuses a write under memory
// pressure. Callers treat it like any other tier write failure.
var ErrRejected = errors.New("memory tier: write rejected under pressure")

// entry carries its own key so the eviction callback can prune the index;
// ristretto only hands back a hash of the key.
type entry struct {
	key string
	val []byte
}

type Config struct {
	MaxCostMB     int64         // total byte budget; 0 => 64
	NumCounters   int64         // ristretto frequency counters; 0 => 1<<17
	SweepInterval time.Duration // expired-index sweep; 0 => 1m
	DefaultTTL    time.Duration // applied when Set gets a non-positive TTL; 0 => 10m
}

// Tier is a bounded in-process byte store. Safe for concurrent use.
type Tier struct {
	c   *ristretto.Cache
	ttl time.Duration

	mu    sync.RWMutex
	index map[string]time.Time // key -> absolute expiry

	ticker    *time.Ticker
	stopCh    chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

var _ tier.Tier = (*Tier)(nil)

func New(cfg Config) (*Tier, error) {
	maxCost := cfg.MaxCostMB
	if maxCost <= 0 {
		maxCost = defaultMaxCostMB
	}
	counters := cfg.NumCounters
	if counters <= 0 {
		counters = defaultNumCounters
	}
	sweep := cfg.SweepInterval
	if sweep <= 0 {
		sweep = defaultSweep
	}

	t := &Tier{
		index:  make(map[string]time.Time),
		stopCh: make(chan struct{}),
	}
	t.ttl = cfg.DefaultTTL
	if t.ttl <= 0 {
		t.ttl = defaultTTL
	}

	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: counters,
		MaxCost:     maxCost << 20,
		BufferItems: 64,
		OnEvict: func(item *ristretto.Item) {
			if e, ok := item.Value.(entry); ok {
				t.mu.Lock()
				delete(t.index, e.key)
				t.mu.Unlock()
			}
		},
	})
	if err != nil {
		return nil, err
	}
	t.c = c

	t.ticker = time.NewTicker(sweep)
	t.wg.Add(1)
	go t.sweepLoop()
	return t, nil
}

// Get returns the stored bytes for key. Expiry is checked lazily against
// the index before touching ristretto, so an expired entry is never
// returned even if the sweep has not reached it yet.
func (t *Tier) Get(_ context.Context, key string) ([]byte, bool, error) {
	t.mu.RLock()
	exp, ok := t.index[key]
	t.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !exp.IsZero() && time.Now().After(exp) {
		t.remove(key)
		return nil, false, nil
	}

	v, ok := t.c.Get(key)
	if !ok {
		// evicted under pressure before the callback pruned the index
		t.mu.Lock()
		delete(t.index, key)
		t.mu.Unlock()
		return nil, false, nil
	}
	e, ok := v.(entry)
	if !ok {
		t.remove(key)
		return nil, false, nil
	}
	return e.val, true, nil
}

// Set stores value for ttl. The value bytes are not copied; callers must
// treat anything later returned by Get as a read-only snapshot.
func (t *Tier) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = t.ttl
	}
	cost := int64(len(key) + len(value))

	t.mu.Lock()
	t.index[key] = time.Now().Add(ttl)
	t.mu.Unlock()

	if !t.c.SetWithTTL(key, entry{key: key, val: value}, cost, ttl) {
		t.mu.Lock()
		delete(t.index, key)
		t.mu.Unlock()
		return ErrRejected
	}
	// ristretto applies sets asynchronously; Wait makes the write visible
	// to the next Get, which the service's read-your-write path relies on
	t.c.Wait()
	return nil
}

func (t *Tier) Del(_ context.Context, key string) error {
	t.remove(key)
	return nil
}

// Keys returns a point-in-time snapshot of live keys under prefix. Keys
// inserted concurrently with the scan may or may not appear.
func (t *Tier) Keys(_ context.Context, prefix string) ([]string, error) {
	now := time.Now()
	var out []string
	t.mu.RLock()
	for k, exp := range t.index {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		if !exp.IsZero() && now.After(exp) {
			continue
		}
		out = append(out, k)
	}
	t.mu.RUnlock()
	return out, nil
}

func (t *Tier) Flush(_ context.Context) error {
	t.mu.Lock()
	t.index = make(map[string]time.Time)
	t.mu.Unlock()
	t.c.Clear()
	return nil
}

func (t *Tier) Len(_ context.Context) (int64, error) {
	t.mu.RLock()
	n := len(t.index)
	t.mu.RUnlock()
	return int64(n), nil
}

// Available always reports true: the in-process tier has no remote to lose.
func (t *Tier) Available() bool { return true }

func (t *Tier) Close(_ context.Context) error {
	t.closeOnce.Do(func() {
		close(t.stopCh)
		t.wg.Wait()
		t.ticker.Stop()
		t.c.Close()
	})
	return nil
}

func (t *Tier) remove(key string) {
	t.mu.Lock()
	delete(t.index, key)
	t.mu.Unlock()
	t.c.Del(key)
}

func (t *Tier) sweepLoop() {
	defer t.wg.Done()
	for {
		select {
		case <-t.ticker.C:
			t.sweep()
		case <-t.stopCh:
			return
		}
	}
}

// sweep drops entries whose TTL elapsed since the last pass. Get also
// checks expiry lazily, so the sweep only reclaims memory for keys nobody
// reads anymore.
func (t *Tier) sweep() {
	now := time.Now()
	var expired []string

	t.mu.RLock()
	for k, exp := range t.index {
		if !exp.IsZero() && exp.Before(now) {
			expired = append(expired, k)
		}
	}
	t.mu.RUnlock()

	for _, k := range expired {
		t.remove(k)
	}
}
