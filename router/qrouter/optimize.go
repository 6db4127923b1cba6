package qrouter

import (
	"strings"

	"github.com/nsrs/shardgate/pkg/models/kr"
	"github.com/nsrs/shardgate/pkg/models/shardkey"
	"github.com/nsrs/shardgate/pkg/sglog"
	"github.com/nsrs/shardgate/router/plan"
	"github.com/nsrs/shardgate/router/statistics"
)

// Optimize narrows a range predicate on the sharding column of baseTable to
// the tables that can hold matching rows. Pruning happens only when the
// range provably covers whole key prefixes; anything else visits every
// table, default table included, so no row is ever missed.
func (r *TableRouter) Optimize(baseTable string, rng kr.KeyRange) plan.Plan {
	rt, ok := r.snap.Load().routes[baseTable]
	if !ok {
		return recordPlan(baseTable, plan.ScatterPlan{
			TableList: []string{baseTable},
			Reason:    "base table is not sharded",
		})
	}

	scatter := func(reason string) plan.Plan {
		sglog.Zero.Debug().
			Str("base table", baseTable).
			Str("range", rng.String()).
			Str("reason", reason).
			Msg("qrouter: range is not prunable, scattering")
		return recordPlan(baseTable, plan.ScatterPlan{
			TableList: rt.allTables(),
			Reason:    reason,
		})
	}

	pr, ok := rt.resolver.(shardkey.PrefixResolver)
	if !ok {
		return scatter("table is not prefix sharded")
	}
	if !rng.IsBounded() {
		return scatter("single-sided bound")
	}
	if !kr.CmpRangesLessEqual(rng.LowerBound, rng.UpperBound) {
		return scatter("inverted bounds")
	}
	p, ok := rng.CleanPrefix()
	if !ok {
		return scatter("range is not a clean prefix range")
	}

	if len(p) >= pr.Length {
		sk := p[:pr.Length]
		t, ok := rt.shards.Lookup(sk)
		if !ok {
			return scatter("shard key " + sk + " is not in the shard map")
		}
		return recordPlan(baseTable, plan.ShardDispatchPlan{Table: t, ShardKey: sk})
	}

	var tables []string
	for _, k := range rt.shards.Keys() {
		if strings.HasPrefix(k, p) {
			t, _ := rt.shards.Lookup(k)
			tables = append(tables, t)
		}
	}
	if len(tables) == 0 {
		return scatter("no shard starts with " + p)
	}
	return recordPlan(baseTable, plan.PrunedScatterPlan{Prefix: p, TableList: tables})
}

// OptimizeAny plans a disjunction of ranges. No ranges means no predicate,
// which visits everything.
func (r *TableRouter) OptimizeAny(baseTable string, ranges ...kr.KeyRange) plan.Plan {
	if len(ranges) == 0 {
		return r.Optimize(baseTable, kr.KeyRange{})
	}
	var p plan.Plan
	for _, rng := range ranges {
		p = plan.Combine(p, r.Optimize(baseTable, rng))
	}
	return p
}

func recordPlan(baseTable string, p plan.Plan) plan.Plan {
	kind := "scatter"
	switch p.(type) {
	case plan.ShardDispatchPlan:
		kind = "dispatch"
	case plan.PrunedScatterPlan:
		kind = "pruned"
	}
	statistics.RecordPlan(baseTable, kind, len(p.Tables()))
	return p
}
