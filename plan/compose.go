package plan

import (
	"fmt"

	"github.com/go-sif/sifplan/accumulators"
	"github.com/go-sif/sifplan/errors"
	"github.com/go-sif/sifplan/operations"
)

// Repartition redistributes the Rows of child into n Partitions through a shuffle.
// scheme must be FanoutByHashKind, which requires key columns, or FanoutRandomKind.
func Repartition(child Node, scheme Kind, n int, columns ...string) (*ReduceMergeNode, error) {
	var fanout *FanoutNode
	var err error
	switch scheme {
	case FanoutByHashKind:
		fanout, err = FanoutByHash(child, n, columns...)
	case FanoutRandomKind:
		fanout, err = FanoutRandom(child, n)
	default:
		return nil, &errors.ConfigurationError{Op: "repartition", Reason: fmt.Sprintf("unsupported scheme %s", scheme)}
	}
	if err != nil {
		return nil, err
	}
	return ReduceMerge(fanout)
}

// TwoPhaseAggregate aggregates child by computing partial aggregates per Partition,
// co-locating partials with equal group keys across n buckets and merging them. A
// global aggregation needs no shuffle, since its merge drains every partial.
func TwoPhaseAggregate(child Node, groupBy []string, funcs []accumulators.Func, n int) (*AggregateNode, error) {
	partial, err := Aggregate(child, operations.PartialAggregate, groupBy, funcs)
	if err != nil {
		return nil, err
	}
	var merged Node = partial
	if len(groupBy) > 0 {
		merged, err = Repartition(partial, FanoutByHashKind, n, groupBy...)
		if err != nil {
			return nil, err
		}
	}
	return Aggregate(merged, operations.MergeAggregate, groupBy, funcs)
}

// Distinct produces the distinct combinations of the named columns of child, or of
// every column if none are named
func Distinct(child Node, n int, columns ...string) (*AggregateNode, error) {
	if err := requireChild(AggregateKind, child); err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		columns = child.Schema().ColumnNames()
	}
	return TwoPhaseAggregate(child, columns, nil, n)
}
