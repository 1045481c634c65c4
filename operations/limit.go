package operations

import (
	"context"
	"sync"

	"github.com/go-sif/sifplan"
	"github.com/go-sif/sifplan/errors"
	"github.com/go-sif/sifplan/internal/iterator"
	"github.com/go-sif/sifplan/internal/partition"
)

type limitIterator struct {
	iterator.EndListeners
	lock      sync.Mutex
	child     sifplan.PartitionIterator
	remaining int
	done      bool
}

// Limit produces at most n Rows from its child, in order. The Partition which crosses
// the limit is truncated, after which the child is Closed and never pulled again.
// When n <= 0, the child is Closed immediately and nothing is produced.
func Limit(child sifplan.PartitionIterator, n int) sifplan.PartitionIterator {
	li := &limitIterator{child: child, remaining: n}
	if n <= 0 {
		li.done = true
		child.Close()
	}
	return li
}

func (li *limitIterator) HasNextPartition() bool {
	li.lock.Lock()
	defer li.lock.Unlock()
	return !li.done && li.child.HasNextPartition()
}

func (li *limitIterator) NextPartition(ctx context.Context) (sifplan.Partition, error) {
	li.lock.Lock()
	if li.done {
		li.lock.Unlock()
		li.Fire()
		return nil, errors.NoMorePartitionsError{}
	}
	part, err := li.child.NextPartition(ctx)
	if err != nil {
		li.done = true
		if !errors.IsNoMorePartitions(err) {
			li.child.Close()
		}
		li.lock.Unlock()
		li.Fire()
		return nil, err
	}
	if part.GetNumRows() >= li.remaining {
		if part.GetNumRows() > li.remaining {
			part, err = partition.Operable(part).Slice(0, li.remaining)
		}
		li.remaining = 0
		li.done = true
		li.child.Close()
		li.lock.Unlock()
		if err != nil {
			li.Fire()
			return nil, err
		}
		return part, nil
	}
	li.remaining -= part.GetNumRows()
	li.lock.Unlock()
	return part, nil
}

func (li *limitIterator) Close() error {
	li.lock.Lock()
	li.done = true
	err := li.child.Close()
	li.lock.Unlock()
	li.Fire()
	return err
}
