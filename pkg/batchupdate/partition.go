// Package batchupdate groups multi-key writes by shard and builds the
// per-shard UPDATE statements that apply them.
package batchupdate

// Group holds the items routed to one shard, in input order.
type Group[T any] struct {
	Shard string
	Items []T
}

// Partition groups items by shardFn(keyFn(item)). Items keep their relative
// order within a group.
func Partition[T any](items []T, keyFn func(T) string, shardFn func(string) string) map[string][]T {
	res := make(map[string][]T)
	for _, it := range items {
		shard := shardFn(keyFn(it))
		res[shard] = append(res[shard], it)
	}
	return res
}

// PartitionOrdered is Partition with groups listed in the order their shard
// was first seen, for deterministic execution order.
func PartitionOrdered[T any](items []T, keyFn func(T) string, shardFn func(string) string) []Group[T] {
	var groups []Group[T]
	index := make(map[string]int)
	for _, it := range items {
		shard := shardFn(keyFn(it))
		i, ok := index[shard]
		if !ok {
			i = len(groups)
			index[shard] = i
			groups = append(groups, Group[T]{Shard: shard})
		}
		groups[i].Items = append(groups[i].Items, it)
	}
	return groups
}
