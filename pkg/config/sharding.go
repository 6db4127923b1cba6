package config

import (
	"github.com/nsrs/shardgate/pkg/models/sgerror"
)

type Strategy string

const (
	StrategyPrefix  = Strategy("prefix")
	StrategyHashMod = Strategy("hash_mod")
)

const (
	DefaultPrefixLength     = 3
	DefaultMaxSampledTables = 10
)

type TableCfg struct {
	BaseTable    string   `json:"base_table" toml:"base_table" yaml:"base_table"`
	Strategy     Strategy `json:"strategy" toml:"strategy" yaml:"strategy"`
	PrefixLength int      `json:"prefix_length,omitempty" toml:"prefix_length" yaml:"prefix_length"`
	SuffixLength int      `json:"suffix_length,omitempty" toml:"suffix_length" yaml:"suffix_length"`
	Modulus      int      `json:"modulus,omitempty" toml:"modulus" yaml:"modulus"`
	// HashFunction is empty (numeric suffix), "murmur" or "city".
	HashFunction    string `json:"hash_function,omitempty" toml:"hash_function" yaml:"hash_function"`
	ActualDataNodes string `json:"actual_data_nodes" toml:"actual_data_nodes" yaml:"actual_data_nodes"`
	DefaultTable    string `json:"default_table,omitempty" toml:"default_table" yaml:"default_table"`
	AllowUnlisted   bool   `json:"allow_unlisted,omitempty" toml:"allow_unlisted" yaml:"allow_unlisted"`
}

type Sharding struct {
	Tables           []TableCfg `json:"tables" toml:"tables" yaml:"tables"`
	MaxSampledTables int        `json:"max_sampled_tables" toml:"max_sampled_tables" yaml:"max_sampled_tables" env:"SHARDGATE_MAX_SAMPLED_TABLES, overwrite"`
}

// DefaultTables describes the inventory tables of a stock deployment.
func DefaultTables() []TableCfg {
	return []TableCfg{
		{
			BaseTable:       "number_resource",
			Strategy:        StrategyPrefix,
			PrefixLength:    DefaultPrefixLength,
			ActualDataNodes: "ds0.number_resource_${['139','177','138','136','135','134','150','151','152','153','155','156','157','158','159','180','181','182','183','184','185','186','187','188','189']}",
			DefaultTable:    "number_resource",
		},
		{
			BaseTable:       "number_imsi_binding",
			Strategy:        StrategyPrefix,
			PrefixLength:    DefaultPrefixLength,
			ActualDataNodes: "ds0.number_imsi_binding_${['139','177','138','136','135','134','150','151','152','153','155','156','157','158','159','180','181','182','183','184','185','186','187','188','189']}",
			DefaultTable:    "number_imsi_binding",
			AllowUnlisted:   true,
		},
		{
			BaseTable:       "sim_card",
			Strategy:        StrategyHashMod,
			SuffixLength:    3,
			Modulus:         10,
			ActualDataNodes: "ds0.sim_card_${0..9}",
			DefaultTable:    "sim_card_0",
		},
		{
			BaseTable:       "imsi_resource",
			Strategy:        StrategyHashMod,
			SuffixLength:    2,
			Modulus:         10,
			ActualDataNodes: "ds0.imsi_resource_${0..9}",
			DefaultTable:    "imsi_resource_0",
		},
	}
}

func (s *Sharding) applyDefaults() {
	if len(s.Tables) == 0 {
		s.Tables = DefaultTables()
	}
	if s.MaxSampledTables <= 0 {
		s.MaxSampledTables = DefaultMaxSampledTables
	}
	for i := range s.Tables {
		s.Tables[i].applyDefaults()
	}
}

func (t *TableCfg) applyDefaults() {
	if t.DefaultTable == "" {
		t.DefaultTable = t.BaseTable
	}
	if t.Strategy == "" {
		t.Strategy = StrategyPrefix
	}
	switch t.Strategy {
	case StrategyPrefix:
		if t.PrefixLength <= 0 {
			t.PrefixLength = DefaultPrefixLength
		}
	case StrategyHashMod:
		if t.Modulus <= 0 {
			t.Modulus = 10
		}
	}
}

func (s *Sharding) Validate() error {
	seen := map[string]struct{}{}
	for _, t := range s.Tables {
		if t.BaseTable == "" {
			return sgerror.New(sgerror.SG_CONFIG_ERROR, "sharding table without base_table")
		}
		if _, ok := seen[t.BaseTable]; ok {
			return sgerror.Newf(sgerror.SG_CONFIG_ERROR, "base table %q configured twice", t.BaseTable)
		}
		seen[t.BaseTable] = struct{}{}

		switch t.Strategy {
		case StrategyPrefix:
		case StrategyHashMod:
			if t.SuffixLength < 0 {
				return sgerror.Newf(sgerror.SG_CONFIG_ERROR, "table %q: negative suffix_length", t.BaseTable)
			}
			switch t.HashFunction {
			case "", "ident", "murmur", "city":
			default:
				return sgerror.Newf(sgerror.SG_CONFIG_ERROR, "table %q: unknown hash_function %q", t.BaseTable, t.HashFunction)
			}
		default:
			return sgerror.Newf(sgerror.SG_CONFIG_ERROR, "table %q: unknown strategy %q", t.BaseTable, t.Strategy)
		}
	}
	return nil
}

// Table returns the configuration of baseTable, if any.
func (s *Sharding) Table(baseTable string) (*TableCfg, bool) {
	for i := range s.Tables {
		if s.Tables[i].BaseTable == baseTable {
			return &s.Tables[i], true
		}
	}
	return nil, false
}
