// Package setcache holds one normalized catalog per set key, built lazily
// from the catalog source and memoized for the rest of the session.
package setcache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/ramonehamilton/swu-binder/internal/cards"
	"github.com/ramonehamilton/swu-binder/internal/cards/source"
	"github.com/ramonehamilton/swu-binder/internal/events"
)

// ErrUnknownSet is returned when a set key is not listed in the manifest.
var ErrUnknownSet = errors.New("unknown set")

// Config configures the catalog cache.
type Config struct {
	Source    source.Source
	Synonyms  *cards.Synonyms
	Logger    *slog.Logger
	Publisher events.Publisher

	// FetchTimeout bounds one set build (fetch + parse + normalize).
	// Default: 60 seconds
	FetchTimeout time.Duration

	// PrewarmWorkers limits concurrent builds during Prewarm.
	// Default: 4
	PrewarmWorkers int
}

// Cache lazily builds and memoizes one catalog per set key.
// Concurrent requests for the same uncached key share a single build.
// Failed builds are not recorded, so the next request retries.
type Cache struct {
	src       source.Source
	syn       *cards.Synonyms
	logger    *slog.Logger
	publisher events.Publisher
	timeout   time.Duration
	workers   int

	group singleflight.Group

	mu       sync.RWMutex
	catalogs map[string]*cards.Catalog
	manifest *source.Manifest
}

// New creates a catalog cache. A nil Source is allowed for caches that are
// only ever seeded directly.
func New(cfg Config) *Cache {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 60 * time.Second
	}
	if cfg.PrewarmWorkers <= 0 {
		cfg.PrewarmWorkers = 4
	}
	if cfg.Synonyms == nil {
		cfg.Synonyms = cards.DefaultSynonyms()
	}

	return &Cache{
		src:       cfg.Source,
		syn:       cfg.Synonyms,
		logger:    cfg.Logger,
		publisher: cfg.Publisher,
		timeout:   cfg.FetchTimeout,
		workers:   cfg.PrewarmWorkers,
		catalogs:  make(map[string]*cards.Catalog),
	}
}

func cacheKey(setKey string) string {
	return strings.ToLower(strings.TrimSpace(setKey))
}

// Manifest returns the source manifest, fetching it on first use.
func (c *Cache) Manifest(ctx context.Context) (*source.Manifest, error) {
	c.mu.RLock()
	m := c.manifest
	c.mu.RUnlock()
	if m != nil {
		return m, nil
	}
	if c.src == nil {
		return nil, fmt.Errorf("no catalog source configured")
	}

	v, err := c.do(ctx, "\x00manifest", func(bctx context.Context) (any, error) {
		m, err := c.src.Manifest(bctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.manifest = m
		c.mu.Unlock()
		return m, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*source.Manifest), nil
}

// Get returns the catalog for setKey, building it on first access.
func (c *Cache) Get(ctx context.Context, setKey string) (*cards.Catalog, error) {
	if cat, ok := c.Peek(setKey); ok {
		return cat, nil
	}

	m, err := c.Manifest(ctx)
	if err != nil {
		return nil, fmt.Errorf("load manifest: %w", err)
	}
	entry, ok := m.Find(setKey)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSet, setKey)
	}

	v, err := c.do(ctx, cacheKey(entry.Key), func(bctx context.Context) (any, error) {
		// Another caller may have finished a build between Peek and here.
		if cat, ok := c.Peek(entry.Key); ok {
			return cat, nil
		}
		return c.build(bctx, entry)
	})
	if err != nil {
		return nil, err
	}
	return v.(*cards.Catalog), nil
}

// do runs fn once per key among concurrent callers. The build runs on a
// context detached from any single caller so one caller giving up does not
// fail the others; each caller still stops waiting when its own ctx ends.
func (c *Cache) do(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error) {
	ch := c.group.DoChan(key, func() (any, error) {
		bctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		return fn(bctx)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		return res.Val, res.Err
	}
}

func (c *Cache) build(ctx context.Context, entry source.SetEntry) (*cards.Catalog, error) {
	start := time.Now()
	c.logger.Debug("building catalog", "set", entry.Key, "file", entry.File)

	data, err := c.src.SetFile(ctx, entry)
	if err != nil {
		c.fail(ctx, entry.Key, err)
		return nil, fmt.Errorf("fetch set %s: %w", entry.Key, err)
	}

	records, err := cards.ParseSetFile(data)
	if err != nil {
		c.fail(ctx, entry.Key, err)
		return nil, fmt.Errorf("parse set %s: %w", entry.Key, err)
	}

	cat := cards.Normalize(entry.Key, records, c.syn)
	c.store(cat)

	elapsed := time.Since(start)
	c.logger.Info("catalog loaded",
		"set", entry.Key,
		"printings", len(cat.AllCards),
		"baseCards", len(cat.BaseCards),
		"dropped", len(records)-len(cat.AllCards),
		"elapsed", elapsed)
	if c.publisher != nil {
		c.publisher.Dispatch(events.New(ctx, events.CatalogLoaded, events.CatalogLoadedEvent{
			SetKey:    cat.SetKey,
			Printings: len(cat.AllCards),
			BaseCards: len(cat.BaseCards),
			Elapsed:   elapsed,
		}))
	}
	return cat, nil
}

func (c *Cache) fail(ctx context.Context, setKey string, err error) {
	c.logger.Warn("catalog build failed", "set", setKey, "error", err)
	if c.publisher != nil {
		c.publisher.Dispatch(events.New(ctx, events.CatalogFailed, events.CatalogFailedEvent{
			SetKey: setKey,
			Error:  err.Error(),
		}))
	}
}

func (c *Cache) store(cat *cards.Catalog) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.catalogs[cacheKey(cat.SetKey)] = cat
}

// Seed installs an already-built catalog, replacing nothing that exists.
// It returns false when the key was already cached.
func (c *Cache) Seed(cat *cards.Catalog) bool {
	if cat == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	k := cacheKey(cat.SetKey)
	if _, ok := c.catalogs[k]; ok {
		return false
	}
	c.catalogs[k] = cat
	return true
}

// Peek returns a cached catalog without triggering a build.
func (c *Cache) Peek(setKey string) (*cards.Catalog, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cat, ok := c.catalogs[cacheKey(setKey)]
	return cat, ok
}

// Loaded returns every cached catalog ordered by set key.
func (c *Cache) Loaded() []*cards.Catalog {
	c.mu.RLock()
	out := make([]*cards.Catalog, 0, len(c.catalogs))
	for _, cat := range c.catalogs {
		out = append(out, cat)
	}
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return cacheKey(out[i].SetKey) < cacheKey(out[j].SetKey)
	})
	return out
}

// Prewarm builds the given sets, or every manifest set when none are given.
// Builds run concurrently; failures are collected and do not stop other sets.
func (c *Cache) Prewarm(ctx context.Context, setKeys ...string) error {
	if len(setKeys) == 0 {
		m, err := c.Manifest(ctx)
		if err != nil {
			return fmt.Errorf("load manifest: %w", err)
		}
		setKeys = m.Keys()
	}

	var (
		mu   sync.Mutex
		errs []error
		g    errgroup.Group
	)
	g.SetLimit(c.workers)

	for _, key := range setKeys {
		g.Go(func() error {
			if _, err := c.Get(ctx, key); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(errs...)
}
