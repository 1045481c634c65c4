package operations

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-sif/sifplan"
	"github.com/go-sif/sifplan/accumulators"
	"github.com/go-sif/sifplan/errors"
	"github.com/go-sif/sifplan/expr"
	"github.com/go-sif/sifplan/internal/iterator"
	"github.com/go-sif/sifplan/internal/partition"
	iutil "github.com/go-sif/sifplan/internal/util"
	"github.com/go-sif/sifplan/schema"
)

// AggregateMode selects the phase of a two-phase aggregation performed by an Aggregator
type AggregateMode int

const (
	// PartialAggregate produces one Row of group columns and Accumulators per group present in each input Partition
	PartialAggregate AggregateMode = iota
	// MergeAggregate merges the Accumulators produced by PartialAggregate and finalizes them
	MergeAggregate
	// FullAggregate accumulates and finalizes in a single step
	FullAggregate
)

func (m AggregateMode) String() string {
	switch m {
	case PartialAggregate:
		return "partial"
	case MergeAggregate:
		return "merge"
	case FullAggregate:
		return "full"
	}
	return fmt.Sprintf("AggregateMode(%d)", int(m))
}

// ParseAggregateMode parses the name of an AggregateMode
func ParseAggregateMode(s string) (AggregateMode, error) {
	switch strings.ToLower(s) {
	case "partial":
		return PartialAggregate, nil
	case "merge":
		return MergeAggregate, nil
	case "full", "":
		return FullAggregate, nil
	}
	return FullAggregate, &errors.ConfigurationError{Op: "aggregate", Reason: fmt.Sprintf("unknown aggregate mode %q", s)}
}

// An Aggregator describes one phase of an aggregation over an input Schema
type Aggregator struct {
	mode      AggregateMode
	groupBy   []string
	funcs     []accumulators.Func
	groupCols []int
	factories []sifplan.AccumulatorFactory // fresh Accumulators, one per function
	accCols   []int                        // offsets of the Accumulator columns of a MergeAggregate's input
	compose   sifplan.AccumulatorFactory   // produces a Composed Accumulator over factories
	keyFn     sifplan.KeyingOperation
	input     sifplan.Schema
	output    sifplan.Schema
}

// NewAggregator binds grouping columns and aggregate functions to an input Schema. The
// input of a MergeAggregate must be the output of the matching PartialAggregate.
func NewAggregator(input sifplan.Schema, mode AggregateMode, groupBy []string, funcs []accumulators.Func) (*Aggregator, error) {
	if len(groupBy) == 0 && len(funcs) == 0 {
		return nil, &errors.ConfigurationError{Op: "aggregate", Reason: "at least one grouping column or aggregate function is required"}
	}
	a := &Aggregator{
		mode:      mode,
		groupBy:   groupBy,
		funcs:     funcs,
		groupCols: make([]int, len(groupBy)),
		factories: make([]sifplan.AccumulatorFactory, len(funcs)),
		keyFn:     iutil.SafeKeyingOperation(expr.KeyColumns(groupBy...)),
		input:     input,
	}
	output := schema.CreateSchema()
	for i, name := range groupBy {
		col, err := input.GetOffset(name)
		if err != nil {
			return nil, &errors.SchemaMismatchError{Op: "aggregate", Reason: err.Error()}
		}
		if _, ok := col.Type().(*sifplan.AccumulatorColumnType); ok {
			return nil, &errors.SchemaMismatchError{Op: "aggregate", Reason: fmt.Sprintf("cannot group by column %s of type %s", name, col.Type())}
		}
		a.groupCols[i] = col.Index()
		if _, err := output.CreateColumn(name, col.Type()); err != nil {
			return nil, &errors.ConfigurationError{Op: "aggregate", Reason: err.Error()}
		}
	}
	switch mode {
	case PartialAggregate, FullAggregate:
		for i, f := range funcs {
			factory, resultType, err := f.Bind(input)
			if err != nil {
				return nil, err
			}
			a.factories[i] = factory
			var outType sifplan.ColumnType = resultType
			if mode == PartialAggregate {
				outType = &sifplan.AccumulatorColumnType{Name: f.String(), Factory: factory, Result: resultType}
			}
			if _, err := output.CreateColumn(f.OutputName(), outType); err != nil {
				return nil, &errors.ConfigurationError{Op: "aggregate", Reason: err.Error()}
			}
		}
	case MergeAggregate:
		a.accCols = make([]int, len(funcs))
		for i, f := range funcs {
			col, err := input.GetOffset(f.OutputName())
			if err != nil {
				return nil, &errors.SchemaMismatchError{Op: "aggregate", Reason: err.Error()}
			}
			accType, ok := col.Type().(*sifplan.AccumulatorColumnType)
			if !ok || accType.Factory == nil {
				return nil, &errors.SchemaMismatchError{Op: "aggregate", Reason: fmt.Sprintf("column %s of type %s does not hold partial aggregates", col.Name(), col.Type())}
			}
			a.accCols[i] = col.Index()
			a.factories[i] = accType.Factory
			if _, err := output.CreateColumn(f.OutputName(), accType.Result); err != nil {
				return nil, &errors.ConfigurationError{Op: "aggregate", Reason: err.Error()}
			}
		}
	default:
		return nil, &errors.ConfigurationError{Op: "aggregate", Reason: fmt.Sprintf("unknown aggregate mode %d", mode)}
	}
	a.output = output
	a.compose = accumulators.Compose(a.factories...)
	return a, nil
}

// Mode returns the phase performed by this Aggregator
func (a *Aggregator) Mode() AggregateMode { return a.mode }

// GroupBy returns the grouping columns of this Aggregator
func (a *Aggregator) GroupBy() []string { return a.groupBy }

// Funcs returns the aggregate functions of this Aggregator
func (a *Aggregator) Funcs() []accumulators.Func { return a.funcs }

// Schema returns the Schema of Partitions produced by this Aggregator
func (a *Aggregator) Schema() sifplan.Schema { return a.output }

// group is the running state of one group
type group struct {
	values []interface{}
	state  *accumulators.Composed
}

func (a *Aggregator) newState() *accumulators.Composed {
	return a.compose().(*accumulators.Composed)
}

// groups tracks groups in first-seen order
type groups struct {
	agg   *Aggregator
	index map[string]*group
	order []*group
}

func (a *Aggregator) newGroups() *groups {
	return &groups{agg: a, index: make(map[string]*group)}
}

func (g *groups) get(row sifplan.Row) (*group, error) {
	key, err := g.agg.keyFn(row)
	if err != nil {
		return nil, err
	}
	if existing, ok := g.index[string(key)]; ok {
		return existing, nil
	}
	created := &group{
		values: make([]interface{}, len(g.agg.groupCols)),
		state:  g.agg.newState(),
	}
	for i, offset := range g.agg.groupCols {
		created.values[i] = row.Value(offset)
	}
	g.index[string(key)] = created
	g.order = append(g.order, created)
	return created, nil
}

// add folds one input Row into its group, accumulating raw Rows or merging partial Accumulators
func (g *groups) add(row sifplan.Row) error {
	grp, err := g.get(row)
	if err != nil {
		return err
	}
	if g.agg.mode != MergeAggregate {
		return iutil.SafeAccumulate(grp.state, row)
	}
	partials := make([]sifplan.Accumulator, len(g.agg.accCols))
	for i, offset := range g.agg.accCols {
		switch v := row.Value(offset).(type) {
		case sifplan.Accumulator:
			partials[i] = v
		case nil:
			// a null partial contributes nothing
			partials[i] = g.agg.factories[i]()
		default:
			return fmt.Errorf("column %s does not contain an Accumulator", g.agg.input.ColumnNames()[offset])
		}
	}
	return iutil.SafeMerge(grp.state, accumulators.FromParts(partials...))
}

func (g *groups) addPartition(part sifplan.Partition) error {
	return part.ForEachRow(g.add)
}

// emit produces a Partition holding one Row per group. Accumulators are finalized
// unless this is a PartialAggregate.
func (g *groups) emit() (sifplan.Partition, error) {
	if len(g.order) == 0 && len(g.agg.groupCols) == 0 && g.agg.mode != PartialAggregate {
		// global aggregation over an empty input yields each function's identity
		g.order = append(g.order, &group{state: g.agg.newState()})
	}
	part := partition.CreateBuildablePartition(len(g.order), g.agg.output)
	for _, grp := range g.order {
		accs := grp.state.GetResults()
		values := make([]interface{}, 0, len(grp.values)+len(accs))
		values = append(values, grp.values...)
		for _, acc := range accs {
			if g.agg.mode == PartialAggregate {
				values = append(values, acc)
			} else {
				values = append(values, acc.Result())
			}
		}
		if err := part.AppendRowValues(values); err != nil {
			return nil, err
		}
	}
	return part, nil
}

// Aggregate performs one phase of an aggregation. A PartialAggregate produces one
// Partition per input Partition. MergeAggregate and FullAggregate drain their input
// and produce a single Partition with one Row per group, in first-seen order. With no
// grouping columns, they produce exactly one Row, even from an empty input.
func Aggregate(child sifplan.PartitionIterator, agg *Aggregator) sifplan.PartitionIterator {
	if agg.mode == PartialAggregate {
		return newTransformIterator(child, func(part sifplan.Partition) (sifplan.Partition, error) {
			g := agg.newGroups()
			if err := g.addPartition(part); err != nil {
				return nil, &errors.EvaluationError{Op: "aggregate", Err: err}
			}
			return g.emit()
		})
	}
	return newBufferedIterator(child, func(ctx context.Context, input sifplan.PartitionIterator) ([]sifplan.Partition, error) {
		g := agg.newGroups()
		err := iterator.ForEach(ctx, input, func(part sifplan.Partition) error {
			if err := g.addPartition(part); err != nil {
				return &errors.EvaluationError{Op: "aggregate", Err: err}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		part, err := g.emit()
		if err != nil {
			return nil, err
		}
		return []sifplan.Partition{part}, nil
	})
}
