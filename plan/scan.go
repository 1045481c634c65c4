package plan

import (
	"fmt"
	"strings"

	"github.com/go-sif/sifplan"
	"github.com/go-sif/sifplan/datasource"
	"github.com/go-sif/sifplan/datasource/file"
	"github.com/go-sif/sifplan/datasource/memory"
	"github.com/go-sif/sifplan/datasource/parser/dsv"
	"github.com/go-sif/sifplan/datasource/parser/jsonl"
	"github.com/go-sif/sifplan/datasource/parser/parquet"
	"github.com/go-sif/sifplan/errors"
	"github.com/spf13/afero"
)

// Descriptor describes the source of a tabular scan
type Descriptor struct {
	Paths         []string                // Paths are glob patterns, which may contain **
	Schema        sifplan.Schema          // Schema is the declared Schema of the source files
	Columns       []string                // Columns projects the output to the named columns. Defaults to every column.
	Predicate     sifplan.FilterOperation // Predicate is pushed down into the scan. Defaults to none.
	PredicateText string                  // PredicateText describes Predicate, for display
	Limit         int                     // Limit stops reading after this many rows. Defaults to 0 (no limit).
	PartitionSize int                     // PartitionSize overrides the parser's maximum number of rows per Partition
	Fs            afero.Fs                // Fs contains the source files. Defaults to the OS filesystem.
}

// Options returns the pushdowns of this Descriptor
func (d Descriptor) Options() datasource.ScanOptions {
	return datasource.ScanOptions{
		Columns:   d.Columns,
		Predicate: d.Predicate,
		Limit:     d.Limit,
	}
}

// ScanNode is a leaf which reads Partitions from a DataSource
type ScanNode struct {
	base
	desc   Descriptor
	source sifplan.DataSource
	parser sifplan.DataSourceParser
}

// Descriptor returns the source description of this ScanNode
func (n *ScanNode) Descriptor() Descriptor {
	return n.desc
}

// Source returns the DataSource read by this ScanNode
func (n *ScanNode) Source() sifplan.DataSource {
	return n.source
}

// Parser returns the DataSourceParser used by this ScanNode, which is nil for InMemoryScan
func (n *ScanNode) Parser() sifplan.DataSourceParser {
	return n.parser
}

func (n *ScanNode) String() string {
	var sb strings.Builder
	sb.WriteString(n.kind.String())
	if n.kind == InMemoryScanKind {
		fmt.Fprintf(&sb, "(%d partitions)", len(n.source.(*memory.DataSource).Partitions()))
		return sb.String()
	}
	fmt.Fprintf(&sb, "(%s", strings.Join(n.desc.Paths, ", "))
	if len(n.desc.Columns) > 0 {
		fmt.Fprintf(&sb, " columns=[%s]", strings.Join(n.desc.Columns, ", "))
	}
	if n.desc.Predicate != nil {
		fmt.Fprintf(&sb, " where=%q", n.desc.PredicateText)
	}
	if n.desc.Limit > 0 {
		fmt.Fprintf(&sb, " limit=%d", n.desc.Limit)
	}
	sb.WriteString(")")
	return sb.String()
}

// InMemoryScan produces a scan over already-resident Partitions, which must all share schema
func InMemoryScan(schema sifplan.Schema, parts ...sifplan.Partition) (*ScanNode, error) {
	if schema == nil {
		return nil, &errors.ConfigurationError{Op: InMemoryScanKind.String(), Reason: "a schema is required"}
	}
	source, err := memory.CreateDataSource(schema, parts...)
	if err != nil {
		return nil, err
	}
	return &ScanNode{
		base:   base{kind: InMemoryScanKind, schema: schema},
		desc:   Descriptor{Schema: schema},
		source: source,
	}, nil
}

func tabularScan(kind Kind, desc Descriptor, parser sifplan.DataSourceParser) (*ScanNode, error) {
	if len(desc.Paths) == 0 {
		return nil, &errors.ConfigurationError{Op: kind.String(), Reason: "at least one path is required"}
	}
	if desc.Schema == nil {
		return nil, &errors.ConfigurationError{Op: kind.String(), Reason: "a schema is required"}
	}
	if desc.Limit < 0 {
		return nil, &errors.ConfigurationError{Op: kind.String(), Reason: fmt.Sprintf("limit must not be negative, was %d", desc.Limit)}
	}
	output, err := desc.Options().OutputSchema(desc.Schema)
	if err != nil {
		return nil, &errors.SchemaMismatchError{Op: kind.String(), Reason: err.Error()}
	}
	return &ScanNode{
		base:   base{kind: kind, schema: output},
		desc:   desc,
		source: file.CreateDataSource(desc.Fs, desc.Paths...),
		parser: parser,
	}, nil
}

// TabularScanCsv produces a scan over delimiter-separated files
func TabularScanCsv(desc Descriptor, conf dsv.ParserConf) (*ScanNode, error) {
	if desc.PartitionSize > 0 {
		conf.PartitionSize = desc.PartitionSize
	}
	return tabularScan(CsvScanKind, desc, dsv.CreateParser(&conf))
}

// TabularScanJson produces a scan over JSON lines files
func TabularScanJson(desc Descriptor, conf jsonl.ParserConf) (*ScanNode, error) {
	if desc.PartitionSize > 0 {
		conf.PartitionSize = desc.PartitionSize
	}
	return tabularScan(JSONScanKind, desc, jsonl.CreateParser(&conf))
}

// TabularScanParquet produces a scan over Parquet files
func TabularScanParquet(desc Descriptor, conf parquet.ParserConf) (*ScanNode, error) {
	if desc.PartitionSize > 0 {
		conf.PartitionSize = desc.PartitionSize
	}
	return tabularScan(ParquetScanKind, desc, parquet.CreateParser(&conf))
}
