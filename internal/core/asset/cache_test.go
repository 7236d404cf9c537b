package asset

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alchemy-engine/alchemy/internal/core/events/bus"
)

type fakeAsset struct {
	path     string
	cleanups atomic.Int32
	err      error
}

func (a *fakeAsset) Path() string { return a.path }

func (a *fakeAsset) Cleanup() error {
	a.cleanups.Add(1)
	return a.err
}

type countingLoader struct {
	mu    sync.Mutex
	loads map[string]int
	delay time.Duration
	fail  map[string]error
}

func newCountingLoader() *countingLoader {
	return &countingLoader{loads: make(map[string]int), fail: make(map[string]error)}
}

func (l *countingLoader) Load(ctx context.Context, path string) (Asset, error) {
	l.mu.Lock()
	l.loads[path]++
	err := l.fail[path]
	l.mu.Unlock()

	if l.delay > 0 {
		select {
		case <-time.After(l.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return &fakeAsset{path: path}, nil
}

func (l *countingLoader) count(path string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loads[path]
}

func TestCacheReturnsSameInstance(t *testing.T) {
	loader := newCountingLoader()
	cache := NewCache(loader)
	ctx := context.Background()

	first, err := cache.GetOrLoad(ctx, "tex/hero.png")
	require.NoError(t, err)
	second, err := cache.GetOrLoad(ctx, "./tex//hero.png")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, loader.count("tex/hero.png"))
	assert.True(t, cache.Contains(`tex\hero.png`))

	stats := cache.Stats()
	assert.Equal(t, uint64(1), stats.Loads)
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, 1, stats.Entries)
}

func TestCacheConcurrentMissesLoadOnce(t *testing.T) {
	loader := newCountingLoader()
	loader.delay = 20 * time.Millisecond
	cache := NewCache(loader)

	const callers = 32
	results := make([]Asset, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, err := cache.GetOrLoad(context.Background(), "snd/jump.wav")
			assert.NoError(t, err)
			results[i] = a
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, loader.count("snd/jump.wav"))
	for _, a := range results {
		assert.Same(t, results[0], a)
	}
}

func TestCacheReleaseCleansUpOnce(t *testing.T) {
	loader := newCountingLoader()
	cache := NewCache(loader)
	ctx := context.Background()

	a, err := cache.GetOrLoad(ctx, "tex/hero.png")
	require.NoError(t, err)

	require.NoError(t, cache.Release("tex/hero.png"))
	require.NoError(t, cache.Release("tex/hero.png"))
	assert.Equal(t, int32(1), a.(*fakeAsset).cleanups.Load())
	assert.False(t, cache.Contains("tex/hero.png"))

	b, err := cache.GetOrLoad(ctx, "tex/hero.png")
	require.NoError(t, err)
	assert.NotSame(t, a, b)
	assert.Equal(t, 2, loader.count("tex/hero.png"))
	assert.Equal(t, uint64(1), cache.Stats().Releases)
}

func TestCacheReleaseAbsentIsNoop(t *testing.T) {
	cache := NewCache(newCountingLoader())
	assert.NoError(t, cache.Release("never/loaded.png"))
	assert.NoError(t, cache.Release(""))
	assert.Zero(t, cache.Stats().Releases)
}

func TestCacheReleaseReportsResourceError(t *testing.T) {
	cache := NewCache(newCountingLoader())
	cause := errors.New("device busy")
	require.NoError(t, cache.Put(&fakeAsset{path: "snd/loop.wav", err: cause}))

	err := cache.Release("snd/loop.wav")
	var re *ResourceError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "snd/loop.wav", re.Path)
	assert.ErrorIs(t, err, cause)
	assert.False(t, cache.Contains("snd/loop.wav"))
}

func TestCacheLoadFailure(t *testing.T) {
	loader := newCountingLoader()
	cause := errors.New("no such file")
	loader.fail["tex/missing.png"] = cause
	cache := NewCache(loader)

	_, err := cache.GetOrLoad(context.Background(), "tex/missing.png")
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, "tex/missing.png", le.Path)
	assert.ErrorIs(t, err, cause)
	assert.False(t, cache.Contains("tex/missing.png"))
	assert.Equal(t, uint64(1), cache.Stats().Failures)

	// Failures are not cached.
	_, err = cache.GetOrLoad(context.Background(), "tex/missing.png")
	assert.Error(t, err)
	assert.Equal(t, 2, loader.count("tex/missing.png"))
}

func TestCacheRejectsEmptyPath(t *testing.T) {
	cache := NewCache(newCountingLoader())
	_, err := cache.GetOrLoad(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrEmptyPath)
}

func TestCachePathMismatch(t *testing.T) {
	cache := NewCache(LoaderFunc(func(ctx context.Context, path string) (Asset, error) {
		return &fakeAsset{path: "other.png"}, nil
	}))
	_, err := cache.GetOrLoad(context.Background(), "tex/hero.png")
	assert.ErrorIs(t, err, ErrPathMismatch)
}

func TestCachePut(t *testing.T) {
	cache := NewCache(newCountingLoader())
	a := &fakeAsset{path: "tex/generated.png"}

	require.NoError(t, cache.Put(a))
	assert.ErrorIs(t, cache.Put(&fakeAsset{path: "tex/generated.png"}), ErrAlreadyCached)
	assert.ErrorIs(t, cache.Put(&fakeAsset{path: "./tex/x.png"}), ErrPathMismatch)

	got, err := cache.GetOrLoad(context.Background(), "tex/generated.png")
	require.NoError(t, err)
	assert.Same(t, a, got)
}

func TestCachePreloadAndPaths(t *testing.T) {
	loader := newCountingLoader()
	cache := NewCache(loader, WithPreloadWorkers(2), WithShards(3))

	paths := make([]string, 10)
	for i := range paths {
		paths[i] = fmt.Sprintf("tex/%02d.png", i)
	}
	require.NoError(t, cache.Preload(context.Background(), paths...))

	assert.Equal(t, paths, cache.Paths())
	assert.Equal(t, 10, cache.Len())
}

func TestCacheCloseReleasesEverything(t *testing.T) {
	cache := NewCache(newCountingLoader())
	ctx := context.Background()
	a, _ := cache.GetOrLoad(ctx, "a.png")
	b, _ := cache.GetOrLoad(ctx, "b.png")

	require.NoError(t, cache.Close())
	require.NoError(t, cache.Close())

	assert.Equal(t, int32(1), a.(*fakeAsset).cleanups.Load())
	assert.Equal(t, int32(1), b.(*fakeAsset).cleanups.Load())
	assert.Zero(t, cache.Len())

	_, err := cache.GetOrLoad(ctx, "a.png")
	assert.ErrorIs(t, err, ErrCacheClosed)
}

// gatedLoader blocks every load until release is closed.
type gatedLoader struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
	loads   atomic.Int32
	asset   *fakeAsset
}

func newGatedLoader(path string) *gatedLoader {
	return &gatedLoader{
		started: make(chan struct{}),
		release: make(chan struct{}),
		asset:   &fakeAsset{path: path},
	}
}

func (l *gatedLoader) Load(ctx context.Context, _ string) (Asset, error) {
	l.loads.Add(1)
	l.once.Do(func() { close(l.started) })
	select {
	case <-l.release:
		return l.asset, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestCacheCloseDuringLoadCleansUp(t *testing.T) {
	loader := newGatedLoader("tex/hero.png")
	cache := NewCache(loader)

	errCh := make(chan error, 1)
	go func() {
		_, err := cache.GetOrLoad(context.Background(), "tex/hero.png")
		errCh <- err
	}()

	<-loader.started
	require.NoError(t, cache.Close())
	close(loader.release)

	err := <-errCh
	assert.ErrorIs(t, err, ErrCacheClosed)
	var le *LoadError
	assert.ErrorAs(t, err, &le)
	assert.Equal(t, int32(1), loader.asset.cleanups.Load())
	assert.Zero(t, cache.Len())
	assert.False(t, cache.Contains("tex/hero.png"))
}

func TestCachePutAfterClose(t *testing.T) {
	cache := NewCache(newCountingLoader())
	require.NoError(t, cache.Close())

	assert.ErrorIs(t, cache.Put(&fakeAsset{path: "a.png"}), ErrCacheClosed)
	assert.Zero(t, cache.Len())
}

func TestCacheSharedLoadOutlivesCancelledCaller(t *testing.T) {
	loader := newGatedLoader("snd/jump.wav")
	cache := NewCache(loader)

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := cache.GetOrLoad(ctx, "snd/jump.wav")
		firstErr <- err
	}()
	<-loader.started

	type result struct {
		a   Asset
		err error
	}
	second := make(chan result, 1)
	go func() {
		a, err := cache.GetOrLoad(context.Background(), "snd/jump.wav")
		second <- result{a, err}
	}()

	cancel()
	err := <-firstErr
	assert.ErrorIs(t, err, context.Canceled)

	close(loader.release)
	res := <-second
	require.NoError(t, res.err)
	assert.Same(t, loader.asset, res.a)
	assert.Equal(t, int32(1), loader.loads.Load())
	assert.True(t, cache.Contains("snd/jump.wav"))
}

func TestCachePublishesEvents(t *testing.T) {
	events := bus.New()
	var mu sync.Mutex
	var seen []string
	record := func(e bus.Event) error {
		mu.Lock()
		seen = append(seen, e.Type()+":"+e.Data().(string))
		mu.Unlock()
		return nil
	}
	for _, typ := range []string{EventLoaded, EventLoadFailed, EventReleased} {
		_, err := events.Subscribe(typ, record)
		require.NoError(t, err)
	}

	loader := newCountingLoader()
	loader.fail["bad.png"] = errors.New("corrupt")
	cache := NewCache(loader, WithEventBus(events))

	_, _ = cache.GetOrLoad(context.Background(), "good.png")
	_, _ = cache.GetOrLoad(context.Background(), "bad.png")
	_ = cache.Release("good.png")

	assert.Equal(t, []string{
		"asset.loaded:good.png",
		"asset.load_failed:bad.png",
		"asset.released:good.png",
	}, seen)
}
