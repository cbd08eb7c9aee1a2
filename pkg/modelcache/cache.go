package modelcache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"sync"
)

// DefaultHighWaterMark is the accelerator utilisation above which the current entry
// is released before a different one is loaded.
const DefaultHighWaterMark = 0.80

// Config configures a Cache.
type Config struct {
	// Name labels log lines, e.g. "classifier" or "encoder".
	Name string
	// HighWaterMark is a fraction in (0, 1]. Zero means DefaultHighWaterMark.
	HighWaterMark float64
	// Monitor reports accelerator memory. Nil means no pressure checks.
	Monitor MemoryMonitor
	Logger  *slog.Logger
}

// Stats counts cache transitions.
type Stats struct {
	Hits              int64 `json:"hits"`
	Misses            int64 `json:"misses"`
	Evictions         int64 `json:"evictions"`
	PressureEvictions int64 `json:"pressure_evictions"`
	LoadFailures      int64 `json:"load_failures"`
	ActiveLeases      int   `json:"active_leases"`
	PendingSwitches   int   `json:"pending_switches"`
	Loaded            bool  `json:"loaded"`
}

type entry[K comparable, V io.Closer] struct {
	key   K
	value V
	refs  int
}

// Cache is a single-slot model cache. It is safe for concurrent use.
type Cache[K comparable, V io.Closer] struct {
	mu   sync.Mutex
	cond *sync.Cond

	load   func(ctx context.Context, key K) (V, error)
	cfg    Config
	logger *slog.Logger

	current *entry[K, V]
	busy    bool
	// switching counts Acquire calls blocked on a key other than current's. While
	// it is non-zero no new hits are granted, so the slot drains and the switch runs.
	switching int
	stats     Stats
}

// New creates an empty cache that builds values with load.
func New[K comparable, V io.Closer](load func(ctx context.Context, key K) (V, error), cfg Config) *Cache[K, V] {
	if cfg.HighWaterMark <= 0 || cfg.HighWaterMark > 1 {
		cfg.HighWaterMark = DefaultHighWaterMark
	}
	if cfg.Monitor == nil {
		cfg.Monitor = NoopMonitor{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	c := &Cache[K, V]{
		load:   load,
		cfg:    cfg,
		logger: logger.With("cache", cfg.Name),
	}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// Lease is a reference to a cached value. Release must be called exactly once;
// further calls are no-ops.
type Lease[K comparable, V io.Closer] struct {
	cache *Cache[K, V]
	entry *entry[K, V]
	once  sync.Once
}

// Value returns the leased value.
func (l *Lease[K, V]) Value() V {
	return l.entry.value
}

// Key returns the key the value was loaded for.
func (l *Lease[K, V]) Key() K {
	return l.entry.key
}

// Release returns the lease to the cache.
func (l *Lease[K, V]) Release() {
	l.once.Do(func() {
		l.cache.mu.Lock()
		l.entry.refs--
		l.cache.mu.Unlock()
		l.cache.cond.Broadcast()
	})
}

// Acquire returns a lease on the value for key, loading it if needed. While a
// different key is leased, Acquire blocks until those leases are released or ctx ends.
// Once a caller is waiting to switch keys, new leases on the current key wait too.
func (c *Cache[K, V]) Acquire(ctx context.Context, key K) (*Lease[K, V], error) {
	stop := context.AfterFunc(ctx, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.cond.Broadcast()
	})
	defer stop()

	c.mu.Lock()
	waiting := false
	setWaiting := func(w bool) {
		if w == waiting {
			return
		}
		waiting = w
		if w {
			c.switching++
		} else {
			c.switching--
			c.cond.Broadcast()
		}
	}
	for {
		if err := ctx.Err(); err != nil {
			setWaiting(false)
			c.mu.Unlock()
			return nil, err
		}
		if !c.busy && c.current != nil && c.current.key == key {
			setWaiting(false)
			if c.switching == 0 {
				c.current.refs++
				c.stats.Hits++
				lease := &Lease[K, V]{cache: c, entry: c.current}
				c.mu.Unlock()
				c.logger.Debug("model cache hit", "key", key)
				return lease, nil
			}
		}
		if !c.busy && (c.current == nil || (c.current.refs == 0 && c.current.key != key)) {
			break
		}
		setWaiting(c.current != nil && c.current.key != key)
		c.cond.Wait()
	}
	setWaiting(false)

	c.busy = true
	c.stats.Misses++
	old := c.current
	c.mu.Unlock()

	e, err := c.replace(ctx, old, key)

	c.mu.Lock()
	c.busy = false
	if err != nil {
		c.stats.LoadFailures++
	} else {
		e.refs = 1
	}
	c.current = e
	c.mu.Unlock()
	c.cond.Broadcast()

	if err != nil {
		return nil, err
	}
	return &Lease[K, V]{cache: c, entry: e}, nil
}

// replace runs with busy set and no outstanding leases on old. It returns the entry
// that becomes current: the new one on success; on failure the old one if it is
// still open, or nil.
func (c *Cache[K, V]) replace(ctx context.Context, old *entry[K, V], key K) (*entry[K, V], error) {
	if old != nil && c.underPressure(ctx) {
		c.logger.Info("accelerator memory above high-water mark, releasing model before load",
			"evicting", old.key, "loading", key, "high_water_mark", c.cfg.HighWaterMark)
		c.closeEntry(old)
		c.countEviction(true)
		ReleaseMemory()
		old = nil
	}

	c.logger.Info("loading model", "key", key)
	value, err := c.load(ctx, key)
	if err != nil {
		c.logger.Error("model load failed", "key", key, "error", err)
		return old, err
	}

	if old != nil {
		c.closeEntry(old)
		c.countEviction(false)
	}
	return &entry[K, V]{key: key, value: value}, nil
}

func (c *Cache[K, V]) underPressure(ctx context.Context) bool {
	usage, err := c.cfg.Monitor.Utilization(ctx)
	if errors.Is(err, ErrNoAccelerator) {
		return false
	}
	if err != nil {
		c.logger.Warn("accelerator memory query failed", "error", err)
		return false
	}
	return usage > c.cfg.HighWaterMark
}

func (c *Cache[K, V]) countEviction(pressure bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.Evictions++
	if pressure {
		c.stats.PressureEvictions++
	}
}

func (c *Cache[K, V]) closeEntry(e *entry[K, V]) {
	if err := e.value.Close(); err != nil {
		c.logger.Warn("failed to close cached model", "key", e.key, "error", err)
		return
	}
	c.logger.Info("model evicted", "key", e.key)
}

// Clear waits for outstanding leases, then closes and drops the current value.
func (c *Cache[K, V]) Clear(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.cond.Broadcast()
	})
	defer stop()

	c.mu.Lock()
	for c.busy || (c.current != nil && c.current.refs > 0) {
		if err := ctx.Err(); err != nil {
			c.mu.Unlock()
			return fmt.Errorf("clear %s cache: %w", c.cfg.Name, err)
		}
		c.cond.Wait()
	}
	old := c.current
	c.current = nil
	if old != nil {
		c.stats.Evictions++
	}
	c.mu.Unlock()

	if old == nil {
		return nil
	}
	c.closeEntry(old)
	ReleaseMemory()
	return nil
}

// Current reports the loaded key, if any.
func (c *Cache[K, V]) Current() (K, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		var zero K
		return zero, false
	}
	return c.current.key, true
}

// Stats returns a snapshot of the counters.
func (c *Cache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	if c.current != nil {
		s.Loaded = true
		s.ActiveLeases = c.current.refs
	}
	s.PendingSwitches = c.switching
	return s
}

// ReleaseMemory returns freed heap to the operating system.
func ReleaseMemory() {
	debug.FreeOSMemory()
}
