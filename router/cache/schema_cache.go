package cache

import (
	"context"
	"sync"

	"github.com/nsrs/shardgate/pkg/catalog"
	"github.com/nsrs/shardgate/pkg/sglog"
)

// CatalogCache memoizes table existence probes for the duration of one
// maintenance operation. The shard set can change between restarts, so a
// cache must not outlive the operation that created it.
type CatalogCache struct {
	existsCache sync.Map
	catalog     catalog.Catalog
}

func NewCatalogCache(c catalog.Catalog) *CatalogCache {
	return &CatalogCache{
		catalog:     c,
		existsCache: sync.Map{},
	}
}

// TableExists probes the catalog once per table name. Probe errors are
// reported as absent and are not cached.
func (c *CatalogCache) TableExists(ctx context.Context, name string) bool {
	if v, ok := c.existsCache.Load(name); ok {
		return v.(bool)
	}

	ok, err := c.catalog.TableExists(ctx, name)
	if err != nil {
		sglog.Zero.Error().
			Err(err).
			Str("table", name).
			Msg("cache: table existence probe failed")
		return false
	}

	c.existsCache.Store(name, ok)
	return ok
}

// ExistingTables filters names down to the tables present in the catalog,
// preserving order.
func (c *CatalogCache) ExistingTables(ctx context.Context, names []string) []string {
	res := make([]string, 0, len(names))
	for _, n := range names {
		if c.TableExists(ctx, n) {
			res = append(res, n)
		}
	}
	return res
}
