package sifplan

import "context"

// PartitionIterator is the pull contract shared by every physical operator: a consumer
// repeatedly asks for the next Partition until an errors.NoMorePartitionsError is returned.
type PartitionIterator interface {
	HasNextPartition() bool                               // HasNextPartition is a hint; NextPartition may still report that the iterator is exhausted
	NextPartition(ctx context.Context) (Partition, error) // NextPartition returns the next Partition, or errors.NoMorePartitionsError at the end of the stream
	OnEnd(onEnd func())                                   // OnEnd registers a listener which fires once when this iterator runs out of Partitions
	Close() error                                         // Close stops production and releases any resources (such as open files) held by this iterator
}

// FanoutIterator is the send side of a shuffle. Each input Partition is split into
// exactly NumBuckets() sub-Partitions, some of which may be empty, such that every
// input row appears in exactly one of them.
type FanoutIterator interface {
	HasNextPartition() bool                              // HasNextPartition is a hint; NextFanout may still report that the iterator is exhausted
	NextFanout(ctx context.Context) ([]Partition, error) // NextFanout returns the buckets of the next input Partition, indexed by bucket id
	NumBuckets() int                                     // NumBuckets returns the number of buckets produced for each input Partition
	OnEnd(onEnd func())                                  // OnEnd registers a listener which fires once when this iterator runs out of Partitions
	Close() error                                        // Close stops production and closes the underlying PartitionIterator
}
