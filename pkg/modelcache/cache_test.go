package modelcache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeModel struct {
	key    string
	closed atomic.Bool
}

func (m *fakeModel) Close() error {
	m.closed.Store(true)
	return nil
}

type fakeLoader struct {
	mu     sync.Mutex
	loads  []string
	models map[string]*fakeModel
	fail   map[string]error
	// onLoad runs inside the load call.
	onLoad func(key string)
}

func newFakeLoader() *fakeLoader {
	return &fakeLoader{models: map[string]*fakeModel{}, fail: map[string]error{}}
}

func (l *fakeLoader) load(_ context.Context, key string) (*fakeModel, error) {
	l.mu.Lock()
	l.loads = append(l.loads, key)
	err := l.fail[key]
	hook := l.onLoad
	l.mu.Unlock()
	if hook != nil {
		hook(key)
	}
	if err != nil {
		return nil, err
	}
	m := &fakeModel{key: key}
	l.mu.Lock()
	l.models[key] = m
	l.mu.Unlock()
	return m, nil
}

func (l *fakeLoader) loadCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.loads)
}

func (l *fakeLoader) model(key string) *fakeModel {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.models[key]
}

type staticMonitor struct {
	usage atomic.Value
}

func newStaticMonitor(v float64) *staticMonitor {
	m := &staticMonitor{}
	m.usage.Store(v)
	return m
}

func (m *staticMonitor) Utilization(context.Context) (float64, error) {
	return m.usage.Load().(float64), nil
}

func TestCacheHitAndMiss(t *testing.T) {
	ctx := context.Background()
	loader := newFakeLoader()
	cache := New(loader.load, Config{Name: "test"})

	lease, err := cache.Acquire(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "a", lease.Value().key)
	lease.Release()

	lease, err = cache.Acquire(ctx, "a")
	require.NoError(t, err)
	lease.Release()
	lease.Release()

	assert.Equal(t, 1, loader.loadCount(), "hit must not reload")
	stats := cache.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Zero(t, stats.ActiveLeases, "double release must be a no-op")

	lease, err = cache.Acquire(ctx, "b")
	require.NoError(t, err)
	lease.Release()
	assert.True(t, loader.model("a").closed.Load(), "replaced model must be closed")
	assert.False(t, loader.model("b").closed.Load())
	key, ok := cache.Current()
	assert.True(t, ok)
	assert.Equal(t, "b", key)
	assert.Equal(t, int64(1), cache.Stats().Evictions)
}

func TestCacheWaitsForLeasesBeforeSwitching(t *testing.T) {
	ctx := context.Background()
	loader := newFakeLoader()
	cache := New(loader.load, Config{Name: "test"})

	leaseA, err := cache.Acquire(ctx, "a")
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		lease, err := cache.Acquire(ctx, "b")
		if err == nil {
			lease.Release()
		}
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("switch must wait for the outstanding lease")
	case <-time.After(50 * time.Millisecond):
	}
	assert.False(t, leaseA.Value().closed.Load(), "model must not be closed while leased")

	leaseA.Release()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("switch did not proceed after release")
	}
	assert.True(t, loader.model("a").closed.Load())
}

func TestCachePendingSwitchBlocksNewHits(t *testing.T) {
	ctx := context.Background()
	loader := newFakeLoader()
	cache := New(loader.load, Config{Name: "test"})

	first, err := cache.Acquire(ctx, "a")
	require.NoError(t, err)

	switched := make(chan *Lease[string, *fakeModel], 1)
	go func() {
		lease, err := cache.Acquire(ctx, "b")
		if err != nil {
			close(switched)
			return
		}
		switched <- lease
	}()
	require.Eventually(t, func() bool { return cache.Stats().PendingSwitches == 1 },
		time.Second, 5*time.Millisecond)

	// Overlapping leases on "a" must not keep the slot busy forever.
	shortCtx, cancel := context.WithTimeout(ctx, 30*time.Millisecond)
	defer cancel()
	_, err = cache.Acquire(shortCtx, "a")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, cache.Stats().PendingSwitches, "a cancelled hit must not clear the pending switch")

	first.Release()
	select {
	case lease, ok := <-switched:
		require.True(t, ok, "switch failed")
		assert.Equal(t, "b", lease.Key())
		lease.Release()
	case <-time.After(time.Second):
		t.Fatal("switch did not proceed after the existing lease was released")
	}

	stats := cache.Stats()
	assert.Zero(t, stats.PendingSwitches)
	assert.Equal(t, int64(0), stats.Hits)
	assert.Equal(t, int64(2), stats.Misses)
}

func TestCacheSameKeyWaiterReusesSwitchedModel(t *testing.T) {
	ctx := context.Background()
	loader := newFakeLoader()
	cache := New(loader.load, Config{Name: "test"})

	leaseA, err := cache.Acquire(ctx, "a")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lease, err := cache.Acquire(ctx, "b")
			if assert.NoError(t, err) {
				assert.Equal(t, "b", lease.Key())
				lease.Release()
			}
		}()
	}
	require.Eventually(t, func() bool { return cache.Stats().PendingSwitches == 4 },
		time.Second, 5*time.Millisecond)

	leaseA.Release()
	wg.Wait()

	assert.Equal(t, []string{"a", "b"}, loader.loads, "waiters for the same key share one load")
	assert.Zero(t, cache.Stats().PendingSwitches)
}

func TestCacheConcurrentHits(t *testing.T) {
	ctx := context.Background()
	loader := newFakeLoader()
	cache := New(loader.load, Config{Name: "test"})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lease, err := cache.Acquire(ctx, "a")
			if !assert.NoError(t, err) {
				return
			}
			assert.False(t, lease.Value().closed.Load())
			lease.Release()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, loader.loadCount())
	assert.Zero(t, cache.Stats().ActiveLeases)
}

func TestCacheAcquireHonoursContext(t *testing.T) {
	loader := newFakeLoader()
	cache := New(loader.load, Config{Name: "test"})

	lease, err := cache.Acquire(context.Background(), "a")
	require.NoError(t, err)
	defer lease.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = cache.Acquire(ctx, "b")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, loader.loadCount())
}

func TestCachePressureEviction(t *testing.T) {
	ctx := context.Background()
	loader := newFakeLoader()
	monitor := newStaticMonitor(0.95)
	cache := New(loader.load, Config{Name: "test", Monitor: monitor})

	lease, err := cache.Acquire(ctx, "a")
	require.NoError(t, err)
	lease.Release()

	loader.onLoad = func(key string) {
		if key == "b" {
			assert.True(t, loader.model("a").closed.Load(), "old model must be released before loading under pressure")
		}
	}
	lease, err = cache.Acquire(ctx, "b")
	require.NoError(t, err)
	lease.Release()

	stats := cache.Stats()
	assert.Equal(t, int64(1), stats.PressureEvictions)
	assert.Equal(t, int64(1), stats.Evictions)

	monitor.usage.Store(0.10)
	loader.onLoad = func(key string) {
		if key == "c" {
			assert.False(t, loader.model("b").closed.Load(), "without pressure the old model stays until the new one loads")
		}
	}
	lease, err = cache.Acquire(ctx, "c")
	require.NoError(t, err)
	lease.Release()
	assert.True(t, loader.model("b").closed.Load())
	assert.Equal(t, int64(1), cache.Stats().PressureEvictions)
}

func TestCacheLoadFailure(t *testing.T) {
	ctx := context.Background()
	loader := newFakeLoader()
	loader.fail["bad"] = errors.New("missing weights")
	cache := New(loader.load, Config{Name: "test"})

	lease, err := cache.Acquire(ctx, "a")
	require.NoError(t, err)
	lease.Release()

	_, err = cache.Acquire(ctx, "bad")
	assert.EqualError(t, err, "missing weights")

	key, ok := cache.Current()
	assert.True(t, ok)
	assert.Equal(t, "a", key, "failed load keeps the previous model")
	assert.False(t, loader.model("a").closed.Load())
	assert.Equal(t, int64(1), cache.Stats().LoadFailures)
}

func TestCacheClear(t *testing.T) {
	ctx := context.Background()
	loader := newFakeLoader()
	cache := New(loader.load, Config{Name: "test"})

	require.NoError(t, cache.Clear(ctx), "clearing an empty cache is a no-op")

	lease, err := cache.Acquire(ctx, "a")
	require.NoError(t, err)

	timeout, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, cache.Clear(timeout), context.DeadlineExceeded)
	assert.False(t, lease.Value().closed.Load())

	lease.Release()
	require.NoError(t, cache.Clear(ctx))
	assert.True(t, loader.model("a").closed.Load())
	_, ok := cache.Current()
	assert.False(t, ok)

	lease, err = cache.Acquire(ctx, "a")
	require.NoError(t, err)
	lease.Release()
	assert.Equal(t, 2, loader.loadCount(), "clear forces a reload")
}

func TestNoopMonitor(t *testing.T) {
	_, err := NoopMonitor{}.Utilization(context.Background())
	assert.ErrorIs(t, err, ErrNoAccelerator)
}
