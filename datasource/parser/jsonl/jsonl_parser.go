package jsonl

import (
	"bufio"

	"github.com/go-sif/sifplan"
	"github.com/go-sif/sifplan/datasource"
)

// ParserConf configures a JSONL Parser, suitable for JSON lines data
type ParserConf struct {
	PartitionSize int // The maximum number of rows per Partition. Defaults to 128.
	HeaderLines   int // The number of lines to ignore from the beginning of each file. Defaults to 0.
	MaxBufferSize int // Maximum size in bytes of the buffer used to read lines from the file
}

// Parser produces partitions from JSONL data
type Parser struct {
	conf *ParserConf
}

// CreateParser returns a new JSONL Parser. Columns are parsed from each row of JSON using their column name, which should be a gjson path. Values within the JSON which do not correspond to a Schema column are ignored, and missing values are null.
func CreateParser(conf *ParserConf) *Parser {
	if conf.PartitionSize == 0 {
		conf.PartitionSize = 128
	}
	if conf.MaxBufferSize == 0 {
		conf.MaxBufferSize = bufio.MaxScanTokenSize
	}
	return &Parser{conf: conf}
}

// PartitionSize returns the maximum size in rows of Partitions produced by this Parser
func (p *Parser) PartitionSize() int {
	return p.conf.PartitionSize
}

// Parse parses JSONL data to produce Partitions
func (p *Parser) Parse(f sifplan.SourceFile, schema sifplan.Schema, onIteratorEnd func()) (sifplan.PartitionIterator, error) {
	// start parsing by creating a scanner
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 4096), p.conf.MaxBufferSize)
	line := 0
	// ignore header lines, if configured to do so
	for i := 0; i < p.conf.HeaderLines; i++ {
		scanner.Scan()
		line++
		if err := scanner.Err(); err != nil {
			return nil, datasource.ReadError(f.Name(), err)
		}
	}

	iterator := &jsonlFilePartitionIterator{
		parser:  p,
		scanner: scanner,
		path:    f.Name(),
		line:    line,
		hasNext: true,
		schema:  schema,
	}
	if onIteratorEnd != nil {
		iterator.OnEnd(onIteratorEnd)
	}
	return iterator, nil
}
