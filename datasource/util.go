package datasource

import (
	"github.com/go-sif/sifplan"
	"github.com/go-sif/sifplan/errors"
	"github.com/go-sif/sifplan/internal/iterator"
	"github.com/go-sif/sifplan/internal/partition"
)

// CreateBuildablePartition produces a fresh Partition (useful for the implementation of parsers)
func CreateBuildablePartition(capacity int, schema sifplan.Schema) sifplan.BuildablePartition {
	return partition.CreateBuildablePartition(capacity, schema)
}

// EndListeners can be embedded in PartitionIterators implemented by parsers, to
// provide OnEnd semantics consistent with the rest of sifplan
type EndListeners = iterator.EndListeners

// ReadError wraps err in a SourceReadError for path, unless it already is one
func ReadError(path string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*errors.SourceReadError); ok {
		return err
	}
	return &errors.SourceReadError{Path: path, Err: err}
}
