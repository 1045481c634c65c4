package operations

import (
	"context"
	"fmt"

	"github.com/go-sif/sifplan"
	"github.com/go-sif/sifplan/errors"
	"github.com/go-sif/sifplan/internal/iterator"
	"github.com/go-sif/sifplan/internal/partition"
)

// Split re-chunks its input into exactly m Partitions, preserving Row order. With T
// input Rows, output i holds Rows [i*T/m, (i+1)*T/m), so sizes differ by at most one.
func Split(child sifplan.PartitionIterator, schema sifplan.Schema, m int) (sifplan.PartitionIterator, error) {
	if m <= 0 {
		return nil, &errors.ConfigurationError{Op: "split", Reason: fmt.Sprintf("partition count must be positive, was %d", m)}
	}
	return newBufferedIterator(child, func(ctx context.Context, input sifplan.PartitionIterator) ([]sifplan.Partition, error) {
		parts, err := iterator.Drain(ctx, input)
		if err != nil {
			return nil, err
		}
		all, err := partition.Concat(schema, parts...)
		if err != nil {
			return nil, &errors.SchemaMismatchError{Op: "split", Reason: err.Error()}
		}
		total := all.GetNumRows()
		result := make([]sifplan.Partition, m)
		for i := range result {
			chunk, err := all.Slice(i*total/m, (i+1)*total/m)
			if err != nil {
				return nil, err
			}
			result[i] = chunk
		}
		return result, nil
	}), nil
}

// Coalesce reduces its input to at most m Partitions by concatenating runs of adjacent
// input Partitions, preserving Row order. If there are no more than m inputs, they are
// produced unchanged.
func Coalesce(child sifplan.PartitionIterator, schema sifplan.Schema, m int) (sifplan.PartitionIterator, error) {
	if m <= 0 {
		return nil, &errors.ConfigurationError{Op: "coalesce", Reason: fmt.Sprintf("partition count must be positive, was %d", m)}
	}
	return newBufferedIterator(child, func(ctx context.Context, input sifplan.PartitionIterator) ([]sifplan.Partition, error) {
		parts, err := iterator.Drain(ctx, input)
		if err != nil {
			return nil, err
		}
		k := len(parts)
		if k <= m {
			return parts, nil
		}
		result := make([]sifplan.Partition, m)
		for j := range result {
			merged, err := partition.Concat(schema, parts[j*k/m:(j+1)*k/m]...)
			if err != nil {
				return nil, &errors.SchemaMismatchError{Op: "coalesce", Reason: err.Error()}
			}
			result[j] = merged
		}
		return result, nil
	}), nil
}
