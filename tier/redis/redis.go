// Package redis implements the optional distributed cache tier on
// go-redis. The tier is built to disappear gracefully: absent configuration
// or a dropped connection silently disables it, and every operation is
// preceded by an availability check instead of an error path. No timeout or
// backoff logic is layered on top of the client; reconnection is the
// client's job.
package redis

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/oakmed/carecache/tier"
)

const (
	defaultPingInterval = 15 * time.Second
	connectTimeout      = 5 * time.Second
)

var (
	ErrNilClient = errors.New("redis tier: nil client")

	// ErrUnavailable is returned by mutating operations issued while the
	// connection is down. Reads report a plain miss instead.
	ErrUnavailable = errors.New("redis tier: unavailable")
)

type Config struct {
	Client       goredis.UniversalClient
	CloseClient  bool          // set true only if this tier exclusively owns the client
	PingInterval time.Duration // availability re-probe; 0 => 15s
}

// Tier is a shared byte store reachable from every process instance.
// One Tier (and one client) per process.
type Tier struct {
	rdb         goredis.UniversalClient
	closeClient bool
	connected   atomic.Bool

	ticker    *time.Ticker
	stopCh    chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

var _ tier.Tier = (*Tier)(nil)

func New(cfg Config) (*Tier, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	interval := cfg.PingInterval
	if interval <= 0 {
		interval = defaultPingInterval
	}

	t := &Tier{
		rdb:         cfg.Client,
		closeClient: cfg.CloseClient,
		stopCh:      make(chan struct{}),
	}
	t.rdb.AddHook(stateHook{t: t})

	// First probe: an unreachable server is not a construction error, the
	// tier just starts out unavailable.
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	t.connected.Store(t.rdb.Ping(ctx).Err() == nil)

	t.ticker = time.NewTicker(interval)
	t.wg.Add(1)
	go t.pingLoop()
	return t, nil
}

// NewFromURL builds a tier that owns its client. rawURL follows the
// redis:// URL scheme.
func NewFromURL(rawURL string, pingInterval time.Duration) (*Tier, error) {
	opts, err := goredis.ParseURL(rawURL)
	if err != nil {
		return nil, err
	}
	return New(Config{
		Client:       goredis.NewClient(opts),
		CloseClient:  true,
		PingInterval: pingInterval,
	})
}

// Available reports the last observed connection state. State flips on
// command results and on the periodic ping, both observed through client
// hooks.
func (t *Tier) Available() bool { return t.connected.Load() }

func (t *Tier) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if !t.Available() {
		return nil, false, nil
	}
	b, err := t.rdb.Get(ctx, key).Bytes()
	if err == goredis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (t *Tier) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if !t.Available() {
		return ErrUnavailable
	}
	if ttl < 0 {
		ttl = 0 // no expiry
	}
	return t.rdb.Set(ctx, key, value, ttl).Err()
}

func (t *Tier) Del(ctx context.Context, key string) error {
	if !t.Available() {
		return ErrUnavailable
	}
	return t.rdb.Del(ctx, key).Err()
}

// Keys SCANs for prefix-matching keys. The scan is cursor-based and
// non-blocking on the server; the result is a best-effort snapshot.
func (t *Tier) Keys(ctx context.Context, prefix string) ([]string, error) {
	if !t.Available() {
		return nil, nil
	}
	var keys []string
	iter := t.rdb.Scan(ctx, 0, prefix+"*", 256).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	return keys, iter.Err()
}

// Flush clears the whole database. The tier assumes it owns its logical DB,
// which deployment keeps separate from any other redis use.
func (t *Tier) Flush(ctx context.Context) error {
	if !t.Available() {
		return ErrUnavailable
	}
	return t.rdb.FlushDB(ctx).Err()
}

func (t *Tier) Len(ctx context.Context) (int64, error) {
	if !t.Available() {
		return 0, nil
	}
	return t.rdb.DBSize(ctx).Result()
}

func (t *Tier) Close(ctx context.Context) error {
	var err error
	t.closeOnce.Do(func() {
		close(t.stopCh)
		t.wg.Wait()
		t.ticker.Stop()
		if t.closeClient {
			if cerr := t.rdb.Close(); cerr != nil && !errors.Is(cerr, goredis.ErrClosed) {
				err = cerr
			}
		}
	})
	return err
}

// pingLoop re-probes the server so a recovered connection flips the tier
// back to available without waiting for request traffic.
func (t *Tier) pingLoop() {
	defer t.wg.Done()
	for {
		select {
		case <-t.ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
			err := t.rdb.Ping(ctx).Err()
			cancel()
			t.observe(err)
		case <-t.stopCh:
			return
		}
	}
}

// observe updates the availability flag from a command result. redis.Nil
// and caller-side context cancellation say nothing about the server, so
// they leave the state alone.
func (t *Tier) observe(err error) {
	switch {
	case err == nil, err == goredis.Nil:
		t.connected.Store(true)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
	default:
		t.connected.Store(false)
	}
}

// stateHook feeds every command outcome into the tier's availability flag.
type stateHook struct{ t *Tier }

var _ goredis.Hook = stateHook{}

func (h stateHook) DialHook(next goredis.DialHook) goredis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := next(ctx, network, addr)
		h.t.observe(err)
		return conn, err
	}
}

func (h stateHook) ProcessHook(next goredis.ProcessHook) goredis.ProcessHook {
	return func(ctx context.Context, cmd goredis.Cmder) error {
		err := next(ctx, cmd)
		h.t.observe(err)
		return err
	}
}

func (h stateHook) ProcessPipelineHook(next goredis.ProcessPipelineHook) goredis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []goredis.Cmder) error {
		err := next(ctx, cmds)
		h.t.observe(err)
		return err
	}
}
