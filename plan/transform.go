package plan

import (
	"fmt"
	"strings"

	"github.com/go-sif/sifplan"
	"github.com/go-sif/sifplan/accumulators"
	"github.com/go-sif/sifplan/errors"
	"github.com/go-sif/sifplan/operations"
)

func requireChild(kind Kind, child Node) error {
	if child == nil {
		return &errors.ConfigurationError{Op: kind.String(), Reason: "a child node is required"}
	}
	return nil
}

// FilterNode retains the Rows of its child which satisfy a predicate
type FilterNode struct {
	base
	pred sifplan.FilterOperation
	text string
}

// Filter produces a FilterNode. text describes the predicate, for display.
func Filter(child Node, pred sifplan.FilterOperation, text string) (*FilterNode, error) {
	if err := requireChild(FilterKind, child); err != nil {
		return nil, err
	}
	if pred == nil {
		return nil, &errors.ConfigurationError{Op: FilterKind.String(), Reason: "a predicate is required"}
	}
	return &FilterNode{base: base{kind: FilterKind, child: child, schema: child.Schema()}, pred: pred, text: text}, nil
}

// Predicate returns the predicate of this FilterNode
func (n *FilterNode) Predicate() sifplan.FilterOperation {
	return n.pred
}

func (n *FilterNode) String() string {
	return fmt.Sprintf("filter(%s)", n.text)
}

// ProjectNode narrows or reorders the columns of its child
type ProjectNode struct {
	base
	columns []string
}

// Project produces a ProjectNode retaining the named columns, in order
func Project(child Node, columns ...string) (*ProjectNode, error) {
	if err := requireChild(ProjectKind, child); err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, &errors.ConfigurationError{Op: ProjectKind.String(), Reason: "at least one column is required"}
	}
	output, err := child.Schema().Project(columns...)
	if err != nil {
		return nil, &errors.SchemaMismatchError{Op: ProjectKind.String(), Reason: err.Error()}
	}
	return &ProjectNode{base: base{kind: ProjectKind, child: child, schema: output}, columns: columns}, nil
}

func (n *ProjectNode) String() string {
	return fmt.Sprintf("project(%s)", strings.Join(n.columns, ", "))
}

// LimitNode truncates its child to at most N Rows
type LimitNode struct {
	base
	n int
}

// Limit produces a LimitNode. A limit of zero or less produces no Rows.
func Limit(child Node, n int) (*LimitNode, error) {
	if err := requireChild(LimitKind, child); err != nil {
		return nil, err
	}
	return &LimitNode{base: base{kind: LimitKind, child: child, schema: child.Schema()}, n: n}, nil
}

// N returns the maximum number of Rows produced by this LimitNode
func (n *LimitNode) N() int {
	return n.n
}

func (n *LimitNode) String() string {
	return fmt.Sprintf("limit(%d)", n.n)
}

// SortNode globally orders its child into NumPartitions range-partitioned Partitions
type SortNode struct {
	base
	keys          []operations.SortKey
	numPartitions int
	sampleSize    int
}

// Sort produces a SortNode. A sampleSize of 0 uses operations.DefaultSortSampleSize.
func Sort(child Node, keys []operations.SortKey, numPartitions int, sampleSize int) (*SortNode, error) {
	if err := requireChild(SortKind, child); err != nil {
		return nil, err
	}
	conf := operations.SortConf{Schema: child.Schema(), Keys: keys, NumPartitions: numPartitions, SampleSize: sampleSize}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return &SortNode{
		base:          base{kind: SortKind, child: child, schema: child.Schema()},
		keys:          keys,
		numPartitions: numPartitions,
		sampleSize:    sampleSize,
	}, nil
}

// Conf returns the configuration of this SortNode, seeded with seed and parking input in spill
func (n *SortNode) Conf(seed int64, spill operations.Spill) operations.SortConf {
	return operations.SortConf{
		Schema:        n.child.Schema(),
		Keys:          n.keys,
		NumPartitions: n.numPartitions,
		SampleSize:    n.sampleSize,
		Seed:          seed,
		Spill:         spill,
	}
}

// Keys returns the sort keys of this SortNode
func (n *SortNode) Keys() []operations.SortKey {
	return n.keys
}

func (n *SortNode) String() string {
	keys := make([]string, len(n.keys))
	for i, k := range n.keys {
		keys[i] = k.String()
	}
	return fmt.Sprintf("sort(%s) into %d", strings.Join(keys, ", "), n.numPartitions)
}

// AggregateNode performs one phase of a grouped aggregation
type AggregateNode struct {
	base
	agg *operations.Aggregator
}

// Aggregate produces an AggregateNode
func Aggregate(child Node, mode operations.AggregateMode, groupBy []string, funcs []accumulators.Func) (*AggregateNode, error) {
	if err := requireChild(AggregateKind, child); err != nil {
		return nil, err
	}
	agg, err := operations.NewAggregator(child.Schema(), mode, groupBy, funcs)
	if err != nil {
		return nil, err
	}
	return &AggregateNode{base: base{kind: AggregateKind, child: child, schema: agg.Schema()}, agg: agg}, nil
}

// Aggregator returns the bound Aggregator of this AggregateNode
func (n *AggregateNode) Aggregator() *operations.Aggregator {
	return n.agg
}

func (n *AggregateNode) String() string {
	funcs := make([]string, len(n.agg.Funcs()))
	for i, f := range n.agg.Funcs() {
		funcs[i] = f.String()
	}
	return fmt.Sprintf("aggregate[%s](by=[%s] %s)", n.agg.Mode(), strings.Join(n.agg.GroupBy(), ", "), strings.Join(funcs, ", "))
}

// SplitNode re-chunks its child into exactly M Partitions
type SplitNode struct {
	base
	m int
}

// Split produces a SplitNode
func Split(child Node, m int) (*SplitNode, error) {
	if err := requireChild(SplitKind, child); err != nil {
		return nil, err
	}
	if m <= 0 {
		return nil, &errors.ConfigurationError{Op: SplitKind.String(), Reason: fmt.Sprintf("partition count must be positive, was %d", m)}
	}
	return &SplitNode{base: base{kind: SplitKind, child: child, schema: child.Schema()}, m: m}, nil
}

// M returns the number of Partitions produced by this SplitNode
func (n *SplitNode) M() int {
	return n.m
}

func (n *SplitNode) String() string {
	return fmt.Sprintf("split(%d)", n.m)
}

// CoalesceNode merges adjacent Partitions of its child into at most M Partitions
type CoalesceNode struct {
	base
	m int
}

// Coalesce produces a CoalesceNode
func Coalesce(child Node, m int) (*CoalesceNode, error) {
	if err := requireChild(CoalesceKind, child); err != nil {
		return nil, err
	}
	if m <= 0 {
		return nil, &errors.ConfigurationError{Op: CoalesceKind.String(), Reason: fmt.Sprintf("partition count must be positive, was %d", m)}
	}
	return &CoalesceNode{base: base{kind: CoalesceKind, child: child, schema: child.Schema()}, m: m}, nil
}

// M returns the maximum number of Partitions produced by this CoalesceNode
func (n *CoalesceNode) M() int {
	return n.m
}

func (n *CoalesceNode) String() string {
	return fmt.Sprintf("coalesce(%d)", n.m)
}
