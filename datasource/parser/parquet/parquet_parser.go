package parquet

import (
	"fmt"
	"strings"

	"github.com/go-sif/sifplan"
	"github.com/go-sif/sifplan/datasource"
	pq "github.com/parquet-go/parquet-go"
)

// ParserConf configures a Parquet Parser
type ParserConf struct {
	PartitionSize int // The maximum number of rows per Partition. Defaults to 128.
}

// Parser produces partitions from Parquet files
type Parser struct {
	conf *ParserConf
}

// CreateParser returns a new Parquet Parser
func CreateParser(conf *ParserConf) *Parser {
	if conf.PartitionSize == 0 {
		conf.PartitionSize = 128
	}
	return &Parser{conf: conf}
}

// PartitionSize returns the maximum size in rows of Partitions produced by this Parser
func (p *Parser) PartitionSize() int {
	return p.conf.PartitionSize
}

// Parse opens a Parquet file and produces Partitions from its rows. Every Schema
// column must correspond to a leaf column of the file.
func (p *Parser) Parse(f sifplan.SourceFile, schema sifplan.Schema, onIteratorEnd func()) (sifplan.PartitionIterator, error) {
	stat, err := f.Stat()
	if err != nil {
		return nil, datasource.ReadError(f.Name(), err)
	}
	file, err := pq.OpenFile(f, stat.Size())
	if err != nil {
		return nil, datasource.ReadError(f.Name(), err)
	}
	// maps parquet leaf column indices to schema offsets
	leaves := make(map[int]int, schema.NumColumns())
	for i, name := range schema.ColumnNames() {
		leaf, ok := file.Schema().Lookup(strings.Split(name, ".")...)
		if !ok {
			return nil, datasource.ReadError(f.Name(), fmt.Errorf("file does not contain column %s", name))
		}
		leaves[leaf.ColumnIndex] = i
	}
	iterator := &parquetFilePartitionIterator{
		parser:  p,
		reader:  pq.NewReader(file),
		path:    f.Name(),
		leaves:  leaves,
		hasNext: true,
		schema:  schema,
		buf:     make([]pq.Row, p.conf.PartitionSize),
	}
	if onIteratorEnd != nil {
		iterator.OnEnd(onIteratorEnd)
	}
	return iterator, nil
}
