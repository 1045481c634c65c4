package memory

import (
	"fmt"

	"github.com/go-sif/sifplan"
	"github.com/go-sif/sifplan/internal/iterator"
)

// PartitionLoader produces the resident Partitions of a DataSource, without copying them
type PartitionLoader struct {
	source *DataSource
}

// ToString returns a string representation of this PartitionLoader
func (pl *PartitionLoader) ToString() string {
	return fmt.Sprintf("Memory loader partitions: %d", len(pl.source.parts))
}

// Load produces an iterator over resident Partitions. The parser is ignored.
func (pl *PartitionLoader) Load(parser sifplan.DataSourceParser, schema sifplan.Schema) (sifplan.PartitionIterator, error) {
	return iterator.CreatePartitionSliceIterator(pl.source.parts), nil
}
