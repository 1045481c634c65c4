// Package memory provides a DataSource over Partitions which are already resident in memory.
package memory

import (
	"fmt"

	"github.com/go-sif/sifplan"
	"github.com/go-sif/sifplan/errors"
)

// DataSource is a set of resident Partitions which will be scanned by a physical plan
type DataSource struct {
	parts  []sifplan.Partition
	schema sifplan.Schema
}

// CreateDataSource is a factory for DataSources. Every Partition must match schema.
func CreateDataSource(schema sifplan.Schema, parts ...sifplan.Partition) (*DataSource, error) {
	for i, p := range parts {
		if err := schema.Equals(p.Schema()); err != nil {
			return nil, &errors.SchemaMismatchError{Op: "in-memory scan", Reason: fmt.Sprintf("partition %d: %s", i, err)}
		}
	}
	return &DataSource{parts: parts, schema: schema}, nil
}

// Schema returns the Schema shared by all Partitions in this DataSource
func (ds *DataSource) Schema() sifplan.Schema {
	return ds.schema
}

// Partitions returns the Partitions in this DataSource
func (ds *DataSource) Partitions() []sifplan.Partition {
	return ds.parts
}

// Analyze returns a PartitionMap with a single PartitionLoader producing every resident Partition, in order
func (ds *DataSource) Analyze() (sifplan.PartitionMap, error) {
	return &PartitionMap{
		source: ds,
	}, nil
}
