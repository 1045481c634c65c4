package iterator

import (
	"context"

	"github.com/go-sif/sifplan"
	"github.com/go-sif/sifplan/errors"
)

// Drain pulls every remaining Partition from an iterator, in order. The iterator is
// Closed if an error occurs.
func Drain(ctx context.Context, it sifplan.PartitionIterator) ([]sifplan.Partition, error) {
	var result []sifplan.Partition
	err := ForEach(ctx, it, func(part sifplan.Partition) error {
		result = append(result, part)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ForEach calls fn with every remaining Partition from an iterator, in order. The
// iterator is Closed if either it or fn return an error.
func ForEach(ctx context.Context, it sifplan.PartitionIterator, fn func(sifplan.Partition) error) error {
	for {
		part, err := it.NextPartition(ctx)
		if errors.IsNoMorePartitions(err) {
			return nil
		} else if err != nil {
			it.Close()
			return err
		}
		if err = fn(part); err != nil {
			it.Close()
			return err
		}
	}
}
