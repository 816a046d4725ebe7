package isocache

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/PhilipMathieu/coffee-milk-beer/internal/core/model"
	"github.com/PhilipMathieu/coffee-milk-beer/internal/core/observability"
	"github.com/PhilipMathieu/coffee-milk-beer/internal/isokeys"
)

// Loader performs the actual resolution and source registration on a
// cache miss.
type Loader func(ctx context.Context) (model.ResultDescriptor, error)

type Cache struct {
	store Store
	log   *slog.Logger
}

func New(store Store, log *slog.Logger) *Cache {
	return &Cache{store: store, log: log}
}

// GetOrLoad returns the memoized descriptor for the exact (category,
// location) pair, invoking loader only on a miss. Zero-feature results
// are stored like any other; failed loads leave no entry, so the next
// call retries.
func (c *Cache) GetOrLoad(ctx context.Context, cat model.Category, loc model.Location, loader Loader) (model.ResultDescriptor, error) {
	key := isokeys.CacheKey(cat, loc)

	desc, ok, err := c.store.Get(ctx, key)
	if err != nil {
		// A broken store degrades to always-load rather than failing
		// the query.
		c.log.Warn("cache get failed, loading fresh", "key", key, "err", err)
	} else if ok {
		observability.IncCacheHit()
		return desc, nil
	}

	observability.IncCacheMiss()
	desc, err = loader(ctx)
	if err != nil {
		return model.ResultDescriptor{}, fmt.Errorf("load %s at %s: %w", cat, loc, err)
	}
	if err := c.store.Set(ctx, key, desc); err != nil {
		c.log.Warn("cache set failed", "key", key, "err", err)
	}
	return desc, nil
}

// Get performs a lookup without loading.
func (c *Cache) Get(ctx context.Context, cat model.Category, loc model.Location) (model.ResultDescriptor, bool) {
	desc, ok, err := c.store.Get(ctx, isokeys.CacheKey(cat, loc))
	if err != nil {
		c.log.Warn("cache get failed", "category", cat.String(), "err", err)
		return model.ResultDescriptor{}, false
	}
	return desc, ok
}

// InvalidateAll clears every entry and returns the layer ids the
// lifecycle manager must now tear down. Cache and layers stay
// consistent because the caller removes exactly what is returned.
func (c *Cache) InvalidateAll(ctx context.Context) ([]string, error) {
	entries, err := c.store.Entries(ctx)
	if err != nil {
		return nil, fmt.Errorf("list cache entries: %w", err)
	}

	seen := make(map[string]struct{})
	var ids []string
	for _, e := range entries {
		for _, id := range isokeys.LayerIDs(e.Category, e.Bands) {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}

	if err := c.store.Clear(ctx); err != nil {
		return nil, fmt.Errorf("clear cache: %w", err)
	}
	return ids, nil
}
