package operations

import (
	"context"
	"sync"

	"github.com/go-sif/sifplan"
	"github.com/go-sif/sifplan/errors"
	"github.com/go-sif/sifplan/internal/iterator"
	"github.com/go-sif/sifplan/internal/partition"
)

type fanoutIterator struct {
	iterator.EndListeners
	lock   sync.Mutex
	child  sifplan.PartitionIterator
	router Router
	done   bool
}

// Fanout splits every Partition of its child into Router.NumBuckets() sub-Partitions,
// preserving the relative order of Rows within each bucket
func Fanout(child sifplan.PartitionIterator, router Router) sifplan.FanoutIterator {
	return &fanoutIterator{child: child, router: router}
}

// SplitByBucket splits a Partition into numBuckets sub-Partitions according to a bucket
// assignment for each Row
func SplitByBucket(part sifplan.OperablePartition, assignments []int, numBuckets int) ([]sifplan.Partition, error) {
	indices := make([][]int, numBuckets)
	for row, b := range assignments {
		indices[b] = append(indices[b], row)
	}
	result := make([]sifplan.Partition, numBuckets)
	for b, idx := range indices {
		sub, err := part.Take(idx)
		if err != nil {
			return nil, err
		}
		result[b] = sub
	}
	return result, nil
}

func (fi *fanoutIterator) NumBuckets() int {
	return fi.router.NumBuckets()
}

func (fi *fanoutIterator) HasNextPartition() bool {
	fi.lock.Lock()
	defer fi.lock.Unlock()
	return !fi.done && fi.child.HasNextPartition()
}

func (fi *fanoutIterator) NextFanout(ctx context.Context) ([]sifplan.Partition, error) {
	fi.lock.Lock()
	if fi.done {
		fi.lock.Unlock()
		fi.Fire()
		return nil, errors.NoMorePartitionsError{}
	}
	part, err := fi.child.NextPartition(ctx)
	if err != nil {
		return nil, fi.fail(err)
	}
	fi.lock.Unlock()
	// routing does not touch iterator state, so concurrent producers may overlap here
	op := partition.Operable(part)
	assignments, err := fi.router.Route(op)
	if err != nil {
		fi.lock.Lock()
		return nil, fi.fail(&errors.EvaluationError{Op: "fanout", Err: err})
	}
	return SplitByBucket(op, assignments, fi.router.NumBuckets())
}

// fail ends iteration and releases the lock, which must be held
func (fi *fanoutIterator) fail(err error) error {
	fi.done = true
	if !errors.IsNoMorePartitions(err) {
		fi.child.Close()
	}
	fi.lock.Unlock()
	fi.Fire()
	return err
}

func (fi *fanoutIterator) Close() error {
	fi.lock.Lock()
	fi.done = true
	err := fi.child.Close()
	fi.lock.Unlock()
	fi.Fire()
	return err
}
