package operations

import (
	"context"
	"sync"

	"github.com/go-sif/sifplan"
	"github.com/go-sif/sifplan/errors"
	"github.com/go-sif/sifplan/internal/iterator"
	"github.com/go-sif/sifplan/internal/partition"
)

// A BucketSource provides, for each bucket, the sub-Partitions sent to it by every
// producer of a shuffle. Collect may block until every producer has finished.
type BucketSource interface {
	NumBuckets() int
	Collect(ctx context.Context, bucket int) ([]sifplan.Partition, error)
}

// MergeBucket concatenates the sub-Partitions addressed to one bucket, in the order given
func MergeBucket(schema sifplan.Schema, parts []sifplan.Partition) (sifplan.Partition, error) {
	merged, err := partition.Concat(schema, parts...)
	if err != nil {
		return nil, &errors.SchemaMismatchError{Op: "reduce_merge", Reason: err.Error()}
	}
	return merged, nil
}

type reduceMergeIterator struct {
	iterator.EndListeners
	lock   sync.Mutex
	source BucketSource
	schema sifplan.Schema
	next   int
	done   bool
}

// ReduceMerge produces one Partition per bucket of a shuffle, in bucket order
func ReduceMerge(source BucketSource, schema sifplan.Schema) sifplan.PartitionIterator {
	return &reduceMergeIterator{source: source, schema: schema}
}

func (ri *reduceMergeIterator) HasNextPartition() bool {
	ri.lock.Lock()
	defer ri.lock.Unlock()
	return !ri.done && ri.next < ri.source.NumBuckets()
}

func (ri *reduceMergeIterator) NextPartition(ctx context.Context) (sifplan.Partition, error) {
	ri.lock.Lock()
	if ri.done || ri.next >= ri.source.NumBuckets() {
		ri.done = true
		ri.lock.Unlock()
		ri.Fire()
		return nil, errors.NoMorePartitionsError{}
	}
	bucket := ri.next
	ri.next++
	ri.lock.Unlock()
	parts, err := ri.source.Collect(ctx, bucket)
	var merged sifplan.Partition
	if err == nil {
		merged, err = MergeBucket(ri.schema, parts)
	}
	if err != nil {
		ri.lock.Lock()
		ri.done = true
		ri.lock.Unlock()
		ri.Fire()
		return nil, err
	}
	return merged, nil
}

func (ri *reduceMergeIterator) Close() error {
	ri.lock.Lock()
	ri.done = true
	ri.lock.Unlock()
	ri.Fire()
	return nil
}
