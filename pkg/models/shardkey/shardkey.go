// Package shardkey maps logical inventory keys (phone numbers, ICCIDs,
// IMSIs) onto shard keys. Resolvers are pure and safe for concurrent use.
package shardkey

import (
	"strconv"

	"github.com/nsrs/shardgate/pkg/config"
	"github.com/nsrs/shardgate/pkg/models/hashfunction"
	"github.com/nsrs/shardgate/pkg/models/sgerror"
)

// NOSHARD is returned when a key carries no usable shard key and the
// caller should fall back to the default table.
const NOSHARD = ""

type Strategy = config.Strategy

type Resolver interface {
	ShardKey(key string) string
	Strategy() Strategy
}

// PrefixResolver takes the first Length characters of the key.
type PrefixResolver struct {
	Length int
}

var _ Resolver = PrefixResolver{}

func (r PrefixResolver) ShardKey(key string) string {
	if r.Length <= 0 || len(key) < r.Length {
		return NOSHARD
	}
	return key[:r.Length]
}

func (PrefixResolver) Strategy() Strategy {
	return config.StrategyPrefix
}

// HashModResolver reduces the last SuffixLength characters of the key
// modulo Modulus. With the identity function the suffix must be decimal;
// SuffixLength of zero means the whole key.
type HashModResolver struct {
	SuffixLength int
	Modulus      int
	HashFunction hashfunction.HashFunctionType
}

var _ Resolver = HashModResolver{}

func (r HashModResolver) ShardKey(key string) string {
	if r.Modulus <= 0 || key == "" || len(key) < r.SuffixLength {
		return NOSHARD
	}
	suffix := key
	if r.SuffixLength > 0 {
		suffix = key[len(key)-r.SuffixLength:]
	}

	v, err := hashfunction.ApplyHashFunction(suffix, r.HashFunction)
	if err != nil {
		return NOSHARD
	}
	return strconv.FormatUint(v%uint64(r.Modulus), 10)
}

func (HashModResolver) Strategy() Strategy {
	return config.StrategyHashMod
}

// NewResolver builds the resolver configured for a base table.
func NewResolver(cfg *config.TableCfg) (Resolver, error) {
	switch cfg.Strategy {
	case config.StrategyPrefix, "":
		length := cfg.PrefixLength
		if length <= 0 {
			length = config.DefaultPrefixLength
		}
		return PrefixResolver{Length: length}, nil
	case config.StrategyHashMod:
		hf, err := hashfunction.HashFunctionByName(cfg.HashFunction)
		if err != nil {
			return nil, sgerror.Newf(sgerror.SG_CONFIG_ERROR, "table %q: %s", cfg.BaseTable, err)
		}
		if cfg.Modulus <= 0 {
			return nil, sgerror.Newf(sgerror.SG_CONFIG_ERROR, "table %q: modulus must be positive", cfg.BaseTable)
		}
		return HashModResolver{
			SuffixLength: cfg.SuffixLength,
			Modulus:      cfg.Modulus,
			HashFunction: hf,
		}, nil
	default:
		return nil, sgerror.Newf(sgerror.SG_CONFIG_ERROR, "table %q: unknown strategy %q", cfg.BaseTable, cfg.Strategy)
	}
}
