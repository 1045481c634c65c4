package file

import (
	"fmt"

	"github.com/go-sif/sifplan"
	"github.com/go-sif/sifplan/errors"
)

// PartitionLoader is capable of loading partitions of data from a file
type PartitionLoader struct {
	path   string
	source *DataSource
}

// ToString returns a string representation of this PartitionLoader
func (pl *PartitionLoader) ToString() string {
	return fmt.Sprintf("File loader filename: %s", pl.path)
}

// Path returns the path of the file loaded by this PartitionLoader
func (pl *PartitionLoader) Path() string {
	return pl.path
}

// Load is capable of loading partitions of data from a file. The file is closed when the
// resulting PartitionIterator ends or is Closed.
func (pl *PartitionLoader) Load(parser sifplan.DataSourceParser, schema sifplan.Schema) (sifplan.PartitionIterator, error) {
	if parser == nil {
		return nil, &errors.ConfigurationError{Op: "scan", Reason: "file sources require a parser"}
	}
	f, err := pl.source.fs.Open(pl.path)
	if err != nil {
		return nil, &errors.SourceReadError{Path: pl.path, Err: err}
	}
	closed := false
	pi, err := parser.Parse(f, schema, func() {
		if !closed {
			closed = true
			f.Close()
		}
	})
	if err != nil {
		f.Close()
		return nil, &errors.SourceReadError{Path: pl.path, Err: err}
	}
	return pi, nil
}
