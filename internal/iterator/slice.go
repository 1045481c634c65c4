package iterator

import (
	"context"
	"sync"

	"github.com/go-sif/sifplan"
	"github.com/go-sif/sifplan/errors"
)

// partitionSliceIterator produces a simple iterator for Partitions stored in a slice
type partitionSliceIterator struct {
	EndListeners
	partitions []sifplan.Partition
	next       int
	lock       sync.Mutex
}

// CreatePartitionSliceIterator produces a new PartitionIterator for iterating over a slice of Partitions.
// The iterator owns a copy of the slice, and releases each Partition of its copy as it is produced,
// so the caller's slice is left untouched.
func CreatePartitionSliceIterator(partitions []sifplan.Partition) sifplan.PartitionIterator {
	owned := make([]sifplan.Partition, len(partitions))
	copy(owned, partitions)
	return &partitionSliceIterator{
		partitions: owned,
		next:       0,
	}
}

// CreateEmptyPartitionIterator produces an empty PartitionIterator
func CreateEmptyPartitionIterator() sifplan.PartitionIterator {
	return CreatePartitionSliceIterator(nil)
}

// HasNextPartition returns true iff this PartitionIterator can produce another Partition
func (psi *partitionSliceIterator) HasNextPartition() bool {
	psi.lock.Lock()
	defer psi.lock.Unlock()
	return psi.next < len(psi.partitions)
}

// NextPartition returns the next Partition if one is available, or an error
func (psi *partitionSliceIterator) NextPartition(ctx context.Context) (sifplan.Partition, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	psi.lock.Lock()
	if psi.next >= len(psi.partitions) {
		psi.lock.Unlock()
		psi.Fire()
		return nil, errors.NoMorePartitionsError{}
	}
	part := psi.partitions[psi.next]
	psi.partitions[psi.next] = nil
	psi.next++
	psi.lock.Unlock()
	return part, nil
}

// Close discards any remaining Partitions
func (psi *partitionSliceIterator) Close() error {
	psi.lock.Lock()
	psi.partitions = nil
	psi.next = 0
	psi.lock.Unlock()
	psi.Fire()
	return nil
}
