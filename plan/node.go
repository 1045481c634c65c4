package plan

import (
	"fmt"

	"github.com/go-sif/sifplan"
)

// Kind identifies the operator performed by a Node
type Kind int

// Node kinds
const (
	InMemoryScanKind Kind = iota
	CsvScanKind
	JSONScanKind
	ParquetScanKind
	FilterKind
	ProjectKind
	LimitKind
	SortKind
	AggregateKind
	FanoutByHashKind
	FanoutByRangeKind
	FanoutRandomKind
	ReduceMergeKind
	SplitKind
	CoalesceKind
)

var kindNames = map[Kind]string{
	InMemoryScanKind:  "in_memory_scan",
	CsvScanKind:       "csv_scan",
	JSONScanKind:      "json_scan",
	ParquetScanKind:   "parquet_scan",
	FilterKind:        "filter",
	ProjectKind:       "project",
	LimitKind:         "limit",
	SortKind:          "sort",
	AggregateKind:     "aggregate",
	FanoutByHashKind:  "fanout_by_hash",
	FanoutByRangeKind: "fanout_by_range",
	FanoutRandomKind:  "fanout_random",
	ReduceMergeKind:   "reduce_merge",
	SplitKind:         "split",
	CoalesceKind:      "coalesce",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind converts the name of a Kind back into a Kind
func ParseKind(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name == s {
			return k, true
		}
	}
	return 0, false
}

// IsScan returns true iff this Kind is a leaf which reads a source
func (k Kind) IsScan() bool {
	return k <= ParquetScanKind
}

// IsFanout returns true iff this Kind is the sending side of a shuffle
func (k Kind) IsFanout() bool {
	return k == FanoutByHashKind || k == FanoutByRangeKind || k == FanoutRandomKind
}

// A Node is one operator of a physical plan. Nodes are immutable once constructed,
// and the set of Node implementations is closed: every Node is one of the types in
// this package.
type Node interface {
	Kind() Kind             // Kind returns the operator performed by this Node
	Children() []Node       // Children returns the inputs of this Node, which are empty for scans
	Schema() sifplan.Schema // Schema returns the Schema of Partitions produced by this Node
	String() string         // String describes this Node and its configuration
	sealed()
}

// base holds the state shared by all Nodes
type base struct {
	kind   Kind
	child  Node
	schema sifplan.Schema
}

func (b *base) Kind() Kind {
	return b.kind
}

func (b *base) Children() []Node {
	if b.child == nil {
		return nil
	}
	return []Node{b.child}
}

// Child returns the single input of this Node, or nil for a scan
func (b *base) Child() Node {
	return b.child
}

func (b *base) Schema() sifplan.Schema {
	return b.schema
}

func (b *base) sealed() {}
