package operations

import (
	"context"
	"sync"

	"github.com/go-sif/sifplan"
	"github.com/go-sif/sifplan/errors"
	"github.com/go-sif/sifplan/internal/iterator"
)

// transformIterator applies a function to every Partition of a child stream, one at a time
type transformIterator struct {
	iterator.EndListeners
	lock  sync.Mutex
	child sifplan.PartitionIterator
	fn    func(sifplan.Partition) (sifplan.Partition, error)
	done  bool
}

func newTransformIterator(child sifplan.PartitionIterator, fn func(sifplan.Partition) (sifplan.Partition, error)) *transformIterator {
	return &transformIterator{child: child, fn: fn}
}

func (ti *transformIterator) HasNextPartition() bool {
	ti.lock.Lock()
	defer ti.lock.Unlock()
	return !ti.done && ti.child.HasNextPartition()
}

func (ti *transformIterator) NextPartition(ctx context.Context) (sifplan.Partition, error) {
	ti.lock.Lock()
	if ti.done {
		ti.lock.Unlock()
		ti.Fire()
		return nil, errors.NoMorePartitionsError{}
	}
	part, err := ti.child.NextPartition(ctx)
	if err == nil {
		part, err = ti.fn(part)
	}
	if err != nil {
		ti.done = true
		if !errors.IsNoMorePartitions(err) {
			ti.child.Close()
		}
		ti.lock.Unlock()
		ti.Fire()
		return nil, err
	}
	ti.lock.Unlock()
	return part, nil
}

func (ti *transformIterator) Close() error {
	ti.lock.Lock()
	ti.done = true
	err := ti.child.Close()
	ti.lock.Unlock()
	ti.Fire()
	return err
}

// bufferedIterator drains its child on the first pull, then emits the Partitions
// produced by a function of the entire input
type bufferedIterator struct {
	iterator.EndListeners
	lock    sync.Mutex
	child   sifplan.PartitionIterator
	fn      func(ctx context.Context, input sifplan.PartitionIterator) ([]sifplan.Partition, error)
	output  []sifplan.Partition
	started bool
	done    bool
}

func newBufferedIterator(child sifplan.PartitionIterator, fn func(ctx context.Context, input sifplan.PartitionIterator) ([]sifplan.Partition, error)) *bufferedIterator {
	return &bufferedIterator{child: child, fn: fn}
}

func (bi *bufferedIterator) HasNextPartition() bool {
	bi.lock.Lock()
	defer bi.lock.Unlock()
	return !bi.done
}

func (bi *bufferedIterator) NextPartition(ctx context.Context) (sifplan.Partition, error) {
	bi.lock.Lock()
	if !bi.started && !bi.done {
		bi.started = true
		output, err := bi.fn(ctx, bi.child)
		if err != nil {
			bi.done = true
			bi.child.Close()
			bi.lock.Unlock()
			bi.Fire()
			return nil, err
		}
		bi.output = output
	}
	if bi.done || len(bi.output) == 0 {
		bi.done = true
		bi.output = nil
		bi.lock.Unlock()
		bi.Fire()
		return nil, errors.NoMorePartitionsError{}
	}
	next := bi.output[0]
	bi.output[0] = nil
	bi.output = bi.output[1:]
	bi.lock.Unlock()
	return next, nil
}

func (bi *bufferedIterator) Close() error {
	bi.lock.Lock()
	bi.done = true
	bi.output = nil
	err := bi.child.Close()
	bi.lock.Unlock()
	bi.Fire()
	return err
}
