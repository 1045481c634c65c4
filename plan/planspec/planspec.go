// Package planspec decodes physical plans from YAML documents, as handed over by an
// optimizer. Each node of the document names its kind, its configuration and its
// child:
//
//	kind: limit
//	limit: 10
//	child:
//	  kind: filter
//	  predicate: {column: v, op: gt, value: 3}
//	  child:
//	    kind: csv_scan
//	    paths: [data/*.csv]
//	    schema:
//	      - {name: k, type: varstring}
//	      - {name: v, type: int64}
//
// Besides the kinds of package plan, the composite kinds repartition,
// two_phase_aggregate and distinct are accepted.
package planspec

import (
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/go-sif/sifplan"
	"github.com/go-sif/sifplan/accumulators"
	"github.com/go-sif/sifplan/datasource/parser/dsv"
	"github.com/go-sif/sifplan/datasource/parser/jsonl"
	"github.com/go-sif/sifplan/datasource/parser/parquet"
	"github.com/go-sif/sifplan/errors"
	"github.com/go-sif/sifplan/internal/partition"
	"github.com/go-sif/sifplan/operations"
	"github.com/go-sif/sifplan/plan"
	"github.com/go-sif/sifplan/schema"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v2"
)

// ColumnSpec declares one column of a Schema
type ColumnSpec struct {
	Name   string `yaml:"name"`
	Type   string `yaml:"type"`
	Format string `yaml:"format,omitempty"` // layout of time columns
}

// NodeSpec describes one plan node. Only the fields relevant to Kind are used.
type NodeSpec struct {
	Kind  string    `yaml:"kind"`
	Child *NodeSpec `yaml:"child,omitempty"`

	// scans
	Paths         []string        `yaml:"paths,omitempty"`
	Schema        []ColumnSpec    `yaml:"schema,omitempty"`
	Columns       []string        `yaml:"columns,omitempty"`
	Where         *PredicateSpec  `yaml:"where,omitempty"`
	PartitionSize int             `yaml:"partition_size,omitempty"`
	HeaderLines   int             `yaml:"header_lines,omitempty"`
	Delimiter     string          `yaml:"delimiter,omitempty"`
	Comment       string          `yaml:"comment,omitempty"`
	NilValue      string          `yaml:"nil_value,omitempty"`
	MaxBufferSize int             `yaml:"max_buffer_size,omitempty"`
	Partitions    [][]interface{} `yaml:"partitions,omitempty"` // rows of an in_memory_scan, one list of rows per partition
	Rows          []interface{}   `yaml:"rows,omitempty"`       // rows of a single-partition in_memory_scan

	Predicate  *PredicateSpec       `yaml:"predicate,omitempty"`
	Limit      int                  `yaml:"limit,omitempty"` // limit count, or scan pushdown
	Keys       []operations.SortKey `yaml:"keys,omitempty"`
	Count      int                  `yaml:"count,omitempty"` // output partitions of sort, split and coalesce
	SampleSize int                  `yaml:"sample_size,omitempty"`
	Mode       string               `yaml:"mode,omitempty"`
	GroupBy    []string             `yaml:"group_by,omitempty"`
	Aggregates []accumulators.Func  `yaml:"aggregates,omitempty"`
	Buckets    int                  `yaml:"buckets,omitempty"`
	Boundaries [][]interface{}      `yaml:"boundaries,omitempty"`
	Scheme     string               `yaml:"scheme,omitempty"` // fanout kind of a repartition
}

// Options supply the environment of decoded plans
type Options struct {
	Fs             afero.Fs // Fs contains scanned files. Defaults to the OS filesystem.
	PartitionSize  int      // PartitionSize applies to scans which do not set partition_size
	SortSampleSize int      // SortSampleSize applies to sorts which do not set sample_size
}

// Decode reads a YAML plan document and builds a Plan
func Decode(r io.Reader, opts Options) (*plan.Plan, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var spec NodeSpec
	if err := yaml.UnmarshalStrict(data, &spec); err != nil {
		return nil, &errors.ConfigurationError{Op: "plan", Reason: err.Error()}
	}
	root, err := Build(&spec, opts)
	if err != nil {
		return nil, err
	}
	return plan.New(root)
}

// DecodeFile reads a YAML plan document from a file within opts.Fs
func DecodeFile(path string, opts Options) (*plan.Plan, error) {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	f, err := opts.Fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f, opts)
}

// ParseColumnType converts the name of a ColumnType into a ColumnType
func ParseColumnType(name string, format string) (sifplan.ColumnType, error) {
	switch name {
	case "bool":
		return &sifplan.BoolColumnType{}, nil
	case "int32":
		return &sifplan.Int32ColumnType{}, nil
	case "int64", "int":
		return &sifplan.Int64ColumnType{}, nil
	case "float32":
		return &sifplan.Float32ColumnType{}, nil
	case "float64", "float":
		return &sifplan.Float64ColumnType{}, nil
	case "varstring", "string":
		return &sifplan.VarStringColumnType{}, nil
	case "varbytes", "bytes":
		return &sifplan.VarBytesColumnType{}, nil
	case "time":
		return &sifplan.TimeColumnType{Format: format}, nil
	}
	return nil, fmt.Errorf("unknown column type %q", name)
}

func buildSchema(op string, cols []ColumnSpec) (sifplan.Schema, error) {
	if len(cols) == 0 {
		return nil, &errors.ConfigurationError{Op: op, Reason: "a schema is required"}
	}
	s := schema.CreateSchema()
	for _, c := range cols {
		colType, err := ParseColumnType(c.Type, c.Format)
		if err != nil {
			return nil, &errors.ConfigurationError{Op: op, Reason: err.Error()}
		}
		if _, err := s.CreateColumn(c.Name, colType); err != nil {
			return nil, &errors.ConfigurationError{Op: op, Reason: err.Error()}
		}
	}
	return s, nil
}

func singleRune(op string, field string, s string) (rune, error) {
	if len(s) == 0 {
		return 0, nil
	}
	r, size := utf8.DecodeRuneInString(s)
	if size != len(s) {
		return 0, &errors.ConfigurationError{Op: op, Reason: fmt.Sprintf("%s must be a single character, was %q", field, s)}
	}
	return r, nil
}

// Build converts a NodeSpec tree into plan Nodes
func Build(spec *NodeSpec, opts Options) (plan.Node, error) {
	if spec == nil {
		return nil, &errors.ConfigurationError{Op: "plan", Reason: "a node is required"}
	}
	switch spec.Kind {
	case "repartition", "two_phase_aggregate", "distinct":
		return buildComposite(spec, opts)
	}
	kind, ok := plan.ParseKind(spec.Kind)
	if !ok {
		return nil, &errors.ConfigurationError{Op: "plan", Reason: fmt.Sprintf("unknown node kind %q", spec.Kind)}
	}
	if kind.IsScan() {
		if spec.Child != nil {
			return nil, &errors.ConfigurationError{Op: spec.Kind, Reason: "scans cannot have a child"}
		}
		return buildScan(kind, spec, opts)
	}
	child, err := Build(spec.Child, opts)
	if err != nil {
		return nil, err
	}
	switch kind {
	case plan.FilterKind:
		if spec.Predicate == nil {
			return nil, &errors.ConfigurationError{Op: spec.Kind, Reason: "a predicate is required"}
		}
		pred, err := spec.Predicate.Build()
		if err != nil {
			return nil, err
		}
		return plan.Filter(child, pred, spec.Predicate.String())
	case plan.ProjectKind:
		return plan.Project(child, spec.Columns...)
	case plan.LimitKind:
		return plan.Limit(child, spec.Limit)
	case plan.SortKind:
		sampleSize := spec.SampleSize
		if sampleSize == 0 {
			sampleSize = opts.SortSampleSize
		}
		return plan.Sort(child, spec.Keys, spec.Count, sampleSize)
	case plan.AggregateKind:
		mode, err := operations.ParseAggregateMode(spec.Mode)
		if err != nil {
			return nil, err
		}
		return plan.Aggregate(child, mode, spec.GroupBy, spec.Aggregates)
	case plan.FanoutByHashKind:
		return plan.FanoutByHash(child, spec.Buckets, spec.Columns...)
	case plan.FanoutByRangeKind:
		return plan.FanoutByRange(child, spec.Keys, spec.Boundaries)
	case plan.FanoutRandomKind:
		return plan.FanoutRandom(child, spec.Buckets)
	case plan.ReduceMergeKind:
		return plan.ReduceMerge(child)
	case plan.SplitKind:
		return plan.Split(child, spec.Count)
	case plan.CoalesceKind:
		return plan.Coalesce(child, spec.Count)
	}
	return nil, &errors.ConfigurationError{Op: "plan", Reason: fmt.Sprintf("node kind %q cannot be described", spec.Kind)}
}

func buildComposite(spec *NodeSpec, opts Options) (plan.Node, error) {
	child, err := Build(spec.Child, opts)
	if err != nil {
		return nil, err
	}
	switch spec.Kind {
	case "repartition":
		scheme, ok := plan.ParseKind(spec.Scheme)
		if !ok {
			return nil, &errors.ConfigurationError{Op: spec.Kind, Reason: fmt.Sprintf("unknown scheme %q", spec.Scheme)}
		}
		return plan.Repartition(child, scheme, spec.Buckets, spec.Columns...)
	case "two_phase_aggregate":
		return plan.TwoPhaseAggregate(child, spec.GroupBy, spec.Aggregates, spec.Buckets)
	default:
		return plan.Distinct(child, spec.Buckets, spec.Columns...)
	}
}

func buildScan(kind plan.Kind, spec *NodeSpec, opts Options) (plan.Node, error) {
	s, err := buildSchema(spec.Kind, spec.Schema)
	if err != nil {
		return nil, err
	}
	if kind == plan.InMemoryScanKind {
		return buildInMemoryScan(spec, s)
	}
	desc := plan.Descriptor{
		Paths:         spec.Paths,
		Schema:        s,
		Columns:       spec.Columns,
		Limit:         spec.Limit,
		PartitionSize: spec.PartitionSize,
		Fs:            opts.Fs,
	}
	if desc.PartitionSize == 0 {
		desc.PartitionSize = opts.PartitionSize
	}
	if spec.Where != nil {
		if desc.Predicate, err = spec.Where.Build(); err != nil {
			return nil, err
		}
		desc.PredicateText = spec.Where.String()
	}
	switch kind {
	case plan.CsvScanKind:
		delimiter, err := singleRune(spec.Kind, "delimiter", spec.Delimiter)
		if err != nil {
			return nil, err
		}
		comment, err := singleRune(spec.Kind, "comment", spec.Comment)
		if err != nil {
			return nil, err
		}
		if comment != 0 && comment == delimiter {
			return nil, &errors.ConfigurationError{Op: spec.Kind, Reason: "comment and delimiter must differ"}
		}
		return plan.TabularScanCsv(desc, dsv.ParserConf{
			HeaderLines: spec.HeaderLines,
			Delimiter:   delimiter,
			Comment:     comment,
			NilValue:    spec.NilValue,
		})
	case plan.JSONScanKind:
		return plan.TabularScanJson(desc, jsonl.ParserConf{HeaderLines: spec.HeaderLines, MaxBufferSize: spec.MaxBufferSize})
	default:
		return plan.TabularScanParquet(desc, parquet.ParserConf{})
	}
}

func buildInMemoryScan(spec *NodeSpec, s sifplan.Schema) (plan.Node, error) {
	groups := spec.Partitions
	if len(spec.Rows) > 0 {
		groups = append(groups, spec.Rows)
	}
	parts := make([]sifplan.Partition, 0, len(groups))
	for i, rows := range groups {
		part := partition.CreateBuildablePartition(len(rows), s)
		for j, row := range rows {
			values, ok := row.([]interface{})
			if !ok {
				return nil, &errors.ConfigurationError{Op: spec.Kind, Reason: fmt.Sprintf("partition %d row %d is not a list", i, j)}
			}
			if err := part.AppendRowValues(values); err != nil {
				return nil, &errors.ConfigurationError{Op: spec.Kind, Reason: fmt.Sprintf("partition %d row %d: %s", i, j, err)}
			}
		}
		parts = append(parts, part)
	}
	return plan.InMemoryScan(s, parts...)
}
