package plan

import (
	"slices"

	"github.com/nsrs/shardgate/pkg/sglog"
)

// Plan is the set of physical tables a range query has to visit.
type Plan interface {
	iPlan()
	Tables() []string
}

// ShardDispatchPlan sends the query to exactly one shard table.
type ShardDispatchPlan struct {
	Table    string
	ShardKey string
}

func (ShardDispatchPlan) iPlan() {}

func (p ShardDispatchPlan) Tables() []string {
	return []string{p.Table}
}

// PrunedScatterPlan visits the shard tables whose key starts with Prefix.
type PrunedScatterPlan struct {
	Prefix    string
	TableList []string
}

func (PrunedScatterPlan) iPlan() {}

func (p PrunedScatterPlan) Tables() []string {
	return slices.Clone(p.TableList)
}

// ScatterPlan visits every known table of the base table, default table
// included. Used whenever pruning cannot be proven safe.
type ScatterPlan struct {
	TableList []string
	Reason    string
}

func (ScatterPlan) iPlan() {}

func (p ScatterPlan) Tables() []string {
	return slices.Clone(p.TableList)
}

// Combine merges the plans of two predicates OR-ed over the same base
// table. A scatter absorbs anything; otherwise the table sets are united
// in first-seen order.
func Combine(p1, p2 Plan) Plan {
	if p1 == nil && p2 == nil {
		return nil
	}
	if p1 == nil {
		return p2
	}
	if p2 == nil {
		return p1
	}

	sglog.Zero.Debug().
		Interface("plan1", p1).
		Interface("plan2", p2).
		Msg("plan: combine two plans")

	switch shq1 := p1.(type) {
	case ScatterPlan:
		return p1
	case ShardDispatchPlan:
		switch shq2 := p2.(type) {
		case ScatterPlan:
			return p2
		case ShardDispatchPlan:
			if shq1.Table == shq2.Table {
				return p1
			}
		}
	default:
		if _, ok := p2.(ScatterPlan); ok {
			return p2
		}
	}

	return PrunedScatterPlan{TableList: union(p1.Tables(), p2.Tables())}
}

func union(a, b []string) []string {
	res := make([]string, 0, len(a)+len(b))
	seen := make(map[string]struct{}, len(a)+len(b))
	for _, t := range append(slices.Clone(a), b...) {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		res = append(res, t)
	}
	return res
}
