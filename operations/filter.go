package operations

import (
	"github.com/go-sif/sifplan"
	"github.com/go-sif/sifplan/errors"
	"github.com/go-sif/sifplan/internal/partition"
	iutil "github.com/go-sif/sifplan/internal/util"
)

// Filter retains the Rows of each Partition which satisfy pred, preserving their
// order. A Partition is produced for every input Partition, even when no Rows survive.
func Filter(child sifplan.PartitionIterator, pred sifplan.FilterOperation) sifplan.PartitionIterator {
	safe := iutil.SafeFilterOperation(pred)
	return newTransformIterator(child, func(part sifplan.Partition) (sifplan.Partition, error) {
		result, err := partition.Operable(part).FilterRows(safe)
		if err != nil {
			return nil, &errors.EvaluationError{Op: "filter", Err: iutil.FormatRowErrors(err)}
		}
		return result, nil
	})
}

// Project narrows and reorders the columns of each Partition to match schema
func Project(child sifplan.PartitionIterator, schema sifplan.Schema) sifplan.PartitionIterator {
	return newTransformIterator(child, func(part sifplan.Partition) (sifplan.Partition, error) {
		result, err := partition.Operable(part).Project(schema)
		if err != nil {
			return nil, &errors.SchemaMismatchError{Op: "project", Reason: err.Error()}
		}
		return result, nil
	})
}
