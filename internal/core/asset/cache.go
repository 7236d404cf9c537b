package asset

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/singleflight"

	"github.com/alchemy-engine/alchemy/internal/core/events/bus"
	"github.com/alchemy-engine/alchemy/internal/core/observability/log"
	"github.com/alchemy-engine/alchemy/pkg/concurrent"
)

const (
	defaultShardCount     = 16
	defaultPreloadWorkers = 4
)

// Cache maps normalized paths to loaded assets.
//
// For any path at most one live Asset exists: a miss loads through the Loader
// exactly once, concurrent misses for the same path share that load, and hits
// return the cached instance. Entries live until Release or Close; there is no
// eviction policy. The Cache owns the lifetime of every asset it hands out.
type Cache struct {
	loader Loader
	shards []*shard
	group  singleflight.Group

	logger         log.Log
	events         bus.EventBus
	preloadWorkers int

	closed atomic.Bool

	loads    atomic.Uint64
	hits     atomic.Uint64
	releases atomic.Uint64
	failures atomic.Uint64
}

type shard struct {
	mu      sync.RWMutex
	entries map[string]Asset
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Loads    uint64
	Hits     uint64
	Releases uint64
	Failures uint64
	Entries  int
}

type Option func(*Cache)

func WithLogger(l log.Log) Option {
	return func(c *Cache) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithEventBus publishes EventLoaded, EventLoadFailed and EventReleased on b.
func WithEventBus(b bus.EventBus) Option {
	return func(c *Cache) { c.events = b }
}

func WithShards(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.shards = newShards(n)
		}
	}
}

func WithPreloadWorkers(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.preloadWorkers = n
		}
	}
}

// NewCache creates an empty cache resolving misses through loader.
func NewCache(loader Loader, opts ...Option) *Cache {
	c := &Cache{
		loader:         loader,
		shards:         newShards(defaultShardCount),
		logger:         log.Provide(),
		preloadWorkers: defaultPreloadWorkers,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.Named("asset.cache")
	return c
}

func newShards(n int) []*shard {
	shards := make([]*shard, n)
	for i := range shards {
		shards[i] = &shard{entries: make(map[string]Asset)}
	}
	return shards
}

func (c *Cache) shardFor(key string) *shard {
	return c.shards[xxhash.Sum64String(key)%uint64(len(c.shards))]
}

func (c *Cache) lookup(key string) (Asset, bool) {
	sh := c.shardFor(key)
	sh.mu.RLock()
	a, ok := sh.entries[key]
	sh.mu.RUnlock()
	return a, ok
}

// GetOrLoad returns the asset cached under path, loading it on a miss.
// Failures are reported as *LoadError.
//
// Concurrent misses share one load, which keeps running while any caller
// waits. A caller whose ctx ends stops waiting without failing the others.
func (c *Cache) GetOrLoad(ctx context.Context, path string) (Asset, error) {
	key, err := NormalizePath(path)
	if err != nil {
		return nil, &LoadError{Path: path, Cause: err}
	}
	if c.closed.Load() {
		return nil, &LoadError{Path: key, Cause: ErrCacheClosed}
	}

	if a, ok := c.lookup(key); ok {
		c.hits.Add(1)
		return a, nil
	}

	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		// A flight for this key may have completed between lookup and DoChan.
		if a, ok := c.lookup(key); ok {
			c.hits.Add(1)
			return a, nil
		}
		return c.load(loadCtx, key)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(Asset), nil
	case <-ctx.Done():
		return nil, &LoadError{Path: key, Cause: ctx.Err()}
	}
}

func (c *Cache) load(ctx context.Context, key string) (Asset, error) {
	a, err := c.loader.Load(ctx, key)
	if err == nil && a == nil {
		err = fmt.Errorf("%w: loader returned no asset", ErrDecode)
	}
	if err == nil && a.Path() != key {
		_ = a.Cleanup()
		err = fmt.Errorf("%w: %q", ErrPathMismatch, a.Path())
	}
	if err != nil {
		c.failures.Add(1)
		c.logger.Warn("asset load failed", log.String("path", key), log.Error(err))
		c.publish(EventLoadFailed, key)
		return nil, wrapLoad(key, err)
	}

	sh := c.shardFor(key)
	sh.mu.Lock()
	if c.closed.Load() {
		sh.mu.Unlock()
		_ = a.Cleanup()
		return nil, &LoadError{Path: key, Cause: ErrCacheClosed}
	}
	if existing, ok := sh.entries[key]; ok {
		// Registered through Put while the loader was running.
		sh.mu.Unlock()
		_ = a.Cleanup()
		return existing, nil
	}
	sh.entries[key] = a
	sh.mu.Unlock()

	c.loads.Add(1)
	c.logger.Debug("asset loaded", log.String("path", key))
	c.publish(EventLoaded, key)
	return a, nil
}

// Put registers an asset created outside the cache. Its path must already be
// normalized and must not be cached yet.
func (c *Cache) Put(a Asset) error {
	key, err := NormalizePath(a.Path())
	if err != nil {
		return err
	}
	if key != a.Path() {
		return fmt.Errorf("%w: %q is not normalized", ErrPathMismatch, a.Path())
	}
	sh := c.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	// Close flips closed before draining shards, so this check cannot race it.
	if c.closed.Load() {
		return ErrCacheClosed
	}
	if _, ok := sh.entries[key]; ok {
		return fmt.Errorf("%w: %q", ErrAlreadyCached, key)
	}
	sh.entries[key] = a
	return nil
}

// Get returns the cached asset without triggering a load.
func (c *Cache) Get(path string) (Asset, bool) {
	key, err := NormalizePath(path)
	if err != nil {
		return nil, false
	}
	return c.lookup(key)
}

func (c *Cache) Contains(path string) bool {
	_, ok := c.Get(path)
	return ok
}

// Release removes the entry for path and cleans the evicted asset up exactly
// once. Releasing an absent path is a no-op. The returned error, if any, is the
// *ResourceError reported by the asset's Cleanup.
func (c *Cache) Release(path string) error {
	key, err := NormalizePath(path)
	if err != nil {
		return nil
	}

	sh := c.shardFor(key)
	sh.mu.Lock()
	a, ok := sh.entries[key]
	if ok {
		delete(sh.entries, key)
	}
	sh.mu.Unlock()

	if !ok {
		return nil
	}
	return c.cleanup(key, a)
}

func (c *Cache) cleanup(key string, a Asset) error {
	c.releases.Add(1)
	c.publish(EventReleased, key)

	if err := a.Cleanup(); err != nil {
		var re *ResourceError
		if !errors.As(err, &re) {
			err = &ResourceError{Path: key, Op: "cleanup", Cause: err}
		}
		c.logger.Error("asset cleanup failed", log.String("path", key), log.Error(err))
		return err
	}

	c.logger.Debug("asset released", log.String("path", key))
	return nil
}

// Preload warms the cache with paths, loading cold ones in parallel.
func (c *Cache) Preload(ctx context.Context, paths ...string) error {
	return concurrent.ForEach(ctx, paths, c.preloadWorkers, func(ctx context.Context, p string) error {
		_, err := c.GetOrLoad(ctx, p)
		return err
	})
}

// Paths lists the cached paths in sorted order.
func (c *Cache) Paths() []string {
	var out []string
	for _, sh := range c.shards {
		sh.mu.RLock()
		for key := range sh.entries {
			out = append(out, key)
		}
		sh.mu.RUnlock()
	}
	sort.Strings(out)
	return out
}

func (c *Cache) Len() int {
	n := 0
	for _, sh := range c.shards {
		sh.mu.RLock()
		n += len(sh.entries)
		sh.mu.RUnlock()
	}
	return n
}

func (c *Cache) Stats() Stats {
	return Stats{
		Loads:    c.loads.Load(),
		Hits:     c.hits.Load(),
		Releases: c.releases.Load(),
		Failures: c.failures.Load(),
		Entries:  c.Len(),
	}
}

// Close releases every cached asset and rejects further loads. Cleanup
// failures are joined.
func (c *Cache) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}

	var all error
	for _, sh := range c.shards {
		sh.mu.Lock()
		entries := sh.entries
		sh.entries = make(map[string]Asset)
		sh.mu.Unlock()

		for key, a := range entries {
			if err := c.cleanup(key, a); err != nil {
				all = errors.Join(all, err)
			}
		}
	}
	return all
}

func (c *Cache) publish(eventType, key string) {
	if c.events == nil {
		return
	}
	if err := c.events.Publish(bus.NewEvent(eventType, eventSource, key)); err != nil {
		c.logger.Warn("asset event handler failed",
			log.String("event", eventType),
			log.String("path", key),
			log.Error(err))
	}
}
