package qrouter

import (
	"context"
	"math/rand/v2"
	"regexp"
	"slices"

	"go.uber.org/atomic"

	"github.com/nsrs/shardgate/pkg/catalog"
	"github.com/nsrs/shardgate/pkg/config"
	"github.com/nsrs/shardgate/pkg/models/sgerror"
	"github.com/nsrs/shardgate/pkg/models/shardkey"
	"github.com/nsrs/shardgate/pkg/sglog"
	"github.com/nsrs/shardgate/router/cache"
	"github.com/nsrs/shardgate/router/shardmap"
	"github.com/nsrs/shardgate/router/statistics"
)

// Base tables of the inventory schema.
const (
	NumberResource    = "number_resource"
	NumberImsiBinding = "number_imsi_binding"
	SimCard           = "sim_card"
	ImsiResource      = "imsi_resource"
)

// PostgreSQL truncates identifiers longer than this.
const maxIdentifierLen = 63

var plausibleTable = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

type route struct {
	cfg      config.TableCfg
	resolver shardkey.Resolver
	shards   *shardmap.ShardMap
}

// allTables lists every shard table plus the default table.
func (rt *route) allTables() []string {
	tables := rt.shards.Tables()
	if !slices.Contains(tables, rt.shards.DefaultTable()) {
		tables = append(tables, rt.shards.DefaultTable())
	}
	return tables
}

type snapshot struct {
	routes           map[string]*route
	baseTables       []string
	maxSampledTables int
}

// TableRouter maps logical keys to physical tables. It is safe for
// concurrent use; Reload swaps the whole routing snapshot at once.
type TableRouter struct {
	snap *atomic.Pointer[snapshot]

	catalog catalog.Catalog
	shuffle func(n int, swap func(i, j int))
}

type Option func(*TableRouter)

// WithCatalog sets the catalog used by TableExists and maintenance sessions.
func WithCatalog(c catalog.Catalog) Option {
	return func(r *TableRouter) {
		r.catalog = c
	}
}

// WithShuffle replaces the permutation used by RandomTableOrder.
func WithShuffle(shuffle func(n int, swap func(i, j int))) Option {
	return func(r *TableRouter) {
		r.shuffle = shuffle
	}
}

func NewTableRouter(cfg *config.Sharding, opts ...Option) (*TableRouter, error) {
	r := &TableRouter{
		catalog: noCatalog{},
		shuffle: rand.Shuffle,
	}
	for _, opt := range opts {
		opt(r)
	}

	s, err := buildSnapshot(cfg)
	if err != nil {
		return nil, err
	}
	r.snap = atomic.NewPointer(s)
	return r, nil
}

func buildSnapshot(cfg *config.Sharding) (*snapshot, error) {
	s := &snapshot{
		routes:           make(map[string]*route, len(cfg.Tables)),
		maxSampledTables: cfg.MaxSampledTables,
	}
	if s.maxSampledTables <= 0 {
		s.maxSampledTables = config.DefaultMaxSampledTables
	}

	for _, tcfg := range cfg.Tables {
		if _, ok := s.routes[tcfg.BaseTable]; ok {
			return nil, sgerror.Newf(sgerror.SG_CONFIG_ERROR, "base table %q configured twice", tcfg.BaseTable)
		}
		resolver, err := shardkey.NewResolver(&tcfg)
		if err != nil {
			return nil, err
		}
		s.routes[tcfg.BaseTable] = &route{
			cfg:      tcfg,
			resolver: resolver,
			shards:   shardmap.Build(&tcfg),
		}
		s.baseTables = append(s.baseTables, tcfg.BaseTable)
	}
	return s, nil
}

// Reload rebuilds every shard map from cfg and replaces the current
// snapshot. On error the previous snapshot stays in place.
func (r *TableRouter) Reload(cfg *config.Sharding) error {
	s, err := buildSnapshot(cfg)
	if err != nil {
		return err
	}
	r.snap.Store(s)
	sglog.Zero.Info().
		Strs("base tables", s.baseTables).
		Msg("qrouter: routing snapshot reloaded")
	return nil
}

// BaseTables lists the configured base tables in configuration order.
func (r *TableRouter) BaseTables() []string {
	return slices.Clone(r.snap.Load().baseTables)
}

// ShardKey returns the shard key of key under baseTable's strategy, or
// shardkey.NOSHARD.
func (r *TableRouter) ShardKey(baseTable, key string) string {
	rt, ok := r.snap.Load().routes[baseTable]
	if !ok {
		return shardkey.NOSHARD
	}
	return rt.resolver.ShardKey(key)
}

// Resolve returns the physical table holding key. It never fails: keys that
// cannot be placed go to the table's default table, and an unknown base
// table is returned as is.
func (r *TableRouter) Resolve(baseTable, key string) string {
	rt, ok := r.snap.Load().routes[baseTable]
	if !ok {
		sglog.Zero.Warn().
			Str("base table", baseTable).
			Msg("qrouter: base table is not sharded, routing to itself")
		statistics.RecordResolve(baseTable, statistics.ResolveUnknownTable)
		return baseTable
	}

	sk := rt.resolver.ShardKey(key)
	if sk == shardkey.NOSHARD {
		sglog.Zero.Warn().
			Str("base table", baseTable).
			Str("key", key).
			Str("default table", rt.shards.DefaultTable()).
			Msg("qrouter: key has no shard key, routing to default table")
		statistics.RecordResolve(baseTable, statistics.ResolveDefault)
		return rt.shards.DefaultTable()
	}

	if t, ok := rt.shards.Lookup(sk); ok {
		statistics.RecordResolve(baseTable, statistics.ResolveHit)
		return t
	}

	if rt.cfg.AllowUnlisted {
		if name := shardmap.TableName(baseTable, sk); isPlausibleTable(name) {
			sglog.Zero.Debug().
				Str("table", name).
				Msg("qrouter: routing to unlisted shard table")
			statistics.RecordResolve(baseTable, statistics.ResolveUnlisted)
			return name
		}
	}

	sglog.Zero.Warn().
		Str("base table", baseTable).
		Str("shard key", sk).
		Str("default table", rt.shards.DefaultTable()).
		Msg("qrouter: shard key is not in the shard map, routing to default table")
	statistics.RecordResolve(baseTable, statistics.ResolveDefault)
	return rt.shards.DefaultTable()
}

func isPlausibleTable(name string) bool {
	return len(name) <= maxIdentifierLen && plausibleTable.MatchString(name)
}

// ListAllTables returns every shard table of baseTable followed by its
// default table when that is not a shard itself.
func (r *TableRouter) ListAllTables(baseTable string) []string {
	rt, ok := r.snap.Load().routes[baseTable]
	if !ok {
		return []string{baseTable}
	}
	return rt.allTables()
}

// RandomTableOrder returns the shard tables of baseTable in random order,
// for sampling rows from anywhere in the inventory.
func (r *TableRouter) RandomTableOrder(baseTable string) []string {
	rt, ok := r.snap.Load().routes[baseTable]
	if !ok {
		return []string{baseTable}
	}
	tables := rt.shards.Tables()
	r.shuffle(len(tables), func(i, j int) {
		tables[i], tables[j] = tables[j], tables[i]
	})
	return tables
}

// RandomTables is RandomTableOrder capped at limit tables. A non-positive
// limit uses the configured max_sampled_tables.
func (r *TableRouter) RandomTables(baseTable string, limit int) []string {
	if limit <= 0 {
		limit = r.snap.Load().maxSampledTables
	}
	tables := r.RandomTableOrder(baseTable)
	if len(tables) > limit {
		tables = tables[:limit]
	}
	return tables
}

// IsPrefixSupported reports whether prefix is a configured shard key of
// baseTable.
func (r *TableRouter) IsPrefixSupported(baseTable, prefix string) bool {
	rt, ok := r.snap.Load().routes[baseTable]
	if !ok {
		return false
	}
	return rt.shards.Contains(prefix)
}

// IsNumberPrefixSupported reports whether the phone number's prefix has its
// own number_resource shard.
func (r *TableRouter) IsNumberPrefixSupported(number string) bool {
	sk := r.ShardKey(NumberResource, number)
	if sk == shardkey.NOSHARD {
		return false
	}
	return r.IsPrefixSupported(NumberResource, sk)
}

// TableExists probes the catalog once, without caching. Probe failures
// count as absent.
func (r *TableRouter) TableExists(ctx context.Context, name string) bool {
	ok, err := r.catalog.TableExists(ctx, name)
	if err != nil {
		sglog.Zero.Error().
			Err(err).
			Str("table", name).
			Msg("qrouter: table existence probe failed")
		return false
	}
	return ok
}

// NewMaintenanceSession returns a probe cache to be dropped when the
// maintenance operation ends.
func (r *TableRouter) NewMaintenanceSession() *cache.CatalogCache {
	return cache.NewCatalogCache(r.catalog)
}

type noCatalog struct{}

func (noCatalog) TableExists(context.Context, string) (bool, error) {
	return false, sgerror.New(sgerror.SG_ROUTING_ERROR, "catalog is not configured")
}
