// Package shardmap holds the immutable shard key -> physical table mapping
// of one base table and parses the data node descriptors it is built from.
package shardmap

import (
	"slices"

	"github.com/nsrs/shardgate/pkg/config"
	"github.com/nsrs/shardgate/pkg/sglog"
)

// DefaultNumberPrefixes is the shard set a prefix-sharded table falls back
// to when its descriptor is empty or cannot be parsed.
var DefaultNumberPrefixes = []string{
	"139", "177", "138", "136", "135", "134",
	"150", "151", "152", "153", "155", "156",
	"157", "158", "159", "180", "181", "182",
	"183", "184", "185", "186", "187", "188", "189",
}

// DefaultHashBuckets is the fallback shard set of hash-mod tables.
var DefaultHashBuckets = []string{"0", "1", "2", "3", "4", "5", "6", "7", "8", "9"}

// DefaultKeys returns a copy of the fallback shard set for strategy.
func DefaultKeys(strategy config.Strategy) []string {
	if strategy == config.StrategyHashMod {
		return slices.Clone(DefaultHashBuckets)
	}
	return slices.Clone(DefaultNumberPrefixes)
}

// TableName is the physical table holding shardKey of baseTable.
func TableName(baseTable, shardKey string) string {
	return baseTable + "_" + shardKey
}

type ShardMap struct {
	baseTable    string
	defaultTable string

	keys   []string
	tables map[string]string
}

// New builds a shard map over keys in the given order. Duplicate keys are
// kept once.
func New(baseTable, defaultTable string, keys []string) *ShardMap {
	m := &ShardMap{
		baseTable:    baseTable,
		defaultTable: defaultTable,
		keys:         make([]string, 0, len(keys)),
		tables:       make(map[string]string, len(keys)),
	}
	if m.defaultTable == "" {
		m.defaultTable = baseTable
	}
	for _, k := range keys {
		if _, ok := m.tables[k]; ok {
			continue
		}
		m.keys = append(m.keys, k)
		m.tables[k] = TableName(baseTable, k)
	}
	return m
}

// Build parses the table's data node descriptor. Routing must stay
// available, so an empty descriptor falls back to DefaultKeys with a warning
// and an unparseable one falls back with an error logged.
func Build(cfg *config.TableCfg) *ShardMap {
	keys, err := ParseDataNodes(cfg.ActualDataNodes)
	switch {
	case err == ErrEmptyDescriptor:
		sglog.Zero.Warn().
			Str("base table", cfg.BaseTable).
			Msg("shardmap: no data nodes configured, using default shard list")
		keys = DefaultKeys(cfg.Strategy)
	case err != nil:
		sglog.Zero.Error().
			Err(err).
			Str("base table", cfg.BaseTable).
			Str("descriptor", cfg.ActualDataNodes).
			Msg("shardmap: failed to parse data nodes, using default shard list")
		keys = DefaultKeys(cfg.Strategy)
	}

	m := New(cfg.BaseTable, cfg.DefaultTable, keys)
	sglog.Zero.Debug().
		Str("base table", cfg.BaseTable).
		Strs("shard keys", m.keys).
		Str("default table", m.defaultTable).
		Msg("shardmap: built")
	return m
}

func (m *ShardMap) BaseTable() string {
	return m.baseTable
}

func (m *ShardMap) DefaultTable() string {
	return m.defaultTable
}

// Lookup returns the physical table of shardKey.
func (m *ShardMap) Lookup(shardKey string) (string, bool) {
	t, ok := m.tables[shardKey]
	return t, ok
}

func (m *ShardMap) Contains(shardKey string) bool {
	_, ok := m.tables[shardKey]
	return ok
}

// Keys returns the shard keys in configured order.
func (m *ShardMap) Keys() []string {
	return slices.Clone(m.keys)
}

// Tables returns the shard tables in configured order, without the default
// table unless it is itself a shard.
func (m *ShardMap) Tables() []string {
	res := make([]string, 0, len(m.keys))
	for _, k := range m.keys {
		res = append(res, m.tables[k])
	}
	return res
}

func (m *ShardMap) Len() int {
	return len(m.keys)
}
