// Package shuffle moves the buckets produced by Fanout operators to the ReduceMerge
// operators which consume them. An Exchange addresses every sub-Partition by producer
// and bucket, and a bucket is released to its consumer only once every expected
// producer has sealed its output.
package shuffle

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-sif/sifplan"
	"github.com/go-sif/sifplan/errors"
)

// An Exchange routes sub-Partitions from the producers of a shuffle to the consumers of its buckets
type Exchange interface {
	NumBuckets() int                                                                  // NumBuckets returns the number of buckets in this shuffle
	Send(ctx context.Context, producer int, bucket int, part sifplan.Partition) error // Send addresses a sub-Partition from a producer to a bucket
	Seal(ctx context.Context, producer int) error                                     // Seal signals that a producer will send nothing further
	Collect(ctx context.Context, bucket int) ([]sifplan.Partition, error)             // Collect waits for every producer to Seal, then returns the sub-Partitions addressed to a bucket
}

// MemoryExchange is an in-process Exchange. Collected sub-Partitions are ordered by the
// order in which their producers sealed, and then by the order in which they were sent.
type MemoryExchange struct {
	lock       sync.Mutex
	numBuckets int
	producers  int
	sent       [][][]sifplan.Partition // producer -> bucket -> sub-Partitions
	sealed     []bool
	sealOrder  []int
	collected  []bool
	ready      chan struct{}
}

// NewMemoryExchange creates a MemoryExchange for numBuckets buckets, fed by expectedProducers producers
func NewMemoryExchange(numBuckets int, expectedProducers int) (*MemoryExchange, error) {
	if numBuckets <= 0 {
		return nil, &errors.ConfigurationError{Op: "shuffle", Reason: fmt.Sprintf("bucket count must be positive, was %d", numBuckets)}
	}
	if expectedProducers <= 0 {
		return nil, &errors.ConfigurationError{Op: "shuffle", Reason: fmt.Sprintf("producer count must be positive, was %d", expectedProducers)}
	}
	sent := make([][][]sifplan.Partition, expectedProducers)
	for i := range sent {
		sent[i] = make([][]sifplan.Partition, numBuckets)
	}
	return &MemoryExchange{
		numBuckets: numBuckets,
		producers:  expectedProducers,
		sent:       sent,
		sealed:     make([]bool, expectedProducers),
		collected:  make([]bool, numBuckets),
		ready:      make(chan struct{}),
	}, nil
}

// NumBuckets returns the number of buckets in this shuffle
func (ex *MemoryExchange) NumBuckets() int {
	return ex.numBuckets
}

func (ex *MemoryExchange) checkProducer(producer int) error {
	if producer < 0 || producer >= ex.producers {
		return &errors.ConfigurationError{Op: "shuffle", Reason: fmt.Sprintf("producer %d is out of range [0, %d)", producer, ex.producers)}
	}
	if ex.sealed[producer] {
		return &errors.ConfigurationError{Op: "shuffle", Reason: fmt.Sprintf("producer %d has already sealed", producer)}
	}
	return nil
}

// Send addresses a sub-Partition from a producer to a bucket
func (ex *MemoryExchange) Send(ctx context.Context, producer int, bucket int, part sifplan.Partition) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ex.lock.Lock()
	defer ex.lock.Unlock()
	if err := ex.checkProducer(producer); err != nil {
		return err
	}
	if bucket < 0 || bucket >= ex.numBuckets {
		return &errors.ConfigurationError{Op: "shuffle", Reason: fmt.Sprintf("bucket %d is out of range [0, %d)", bucket, ex.numBuckets)}
	}
	ex.sent[producer][bucket] = append(ex.sent[producer][bucket], part)
	return nil
}

// Seal signals that a producer will send nothing further
func (ex *MemoryExchange) Seal(ctx context.Context, producer int) error {
	ex.lock.Lock()
	defer ex.lock.Unlock()
	if err := ex.checkProducer(producer); err != nil {
		return err
	}
	ex.sealed[producer] = true
	ex.sealOrder = append(ex.sealOrder, producer)
	if len(ex.sealOrder) == ex.producers {
		close(ex.ready)
	}
	return nil
}

// Sealed returns true iff every expected producer has sealed
func (ex *MemoryExchange) Sealed() bool {
	select {
	case <-ex.ready:
		return true
	default:
		return false
	}
}

// Collect waits for every producer to Seal, then returns the sub-Partitions addressed
// to a bucket. Each bucket may be collected exactly once.
func (ex *MemoryExchange) Collect(ctx context.Context, bucket int) ([]sifplan.Partition, error) {
	if bucket < 0 || bucket >= ex.numBuckets {
		return nil, &errors.ConfigurationError{Op: "shuffle", Reason: fmt.Sprintf("bucket %d is out of range [0, %d)", bucket, ex.numBuckets)}
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-ex.ready:
	}
	ex.lock.Lock()
	defer ex.lock.Unlock()
	if ex.collected[bucket] {
		return nil, errors.BucketAlreadyCollectedError{Bucket: bucket}
	}
	ex.collected[bucket] = true
	var result []sifplan.Partition
	for _, producer := range ex.sealOrder {
		result = append(result, ex.sent[producer][bucket]...)
		ex.sent[producer][bucket] = nil
	}
	return result, nil
}
