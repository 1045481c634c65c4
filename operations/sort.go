package operations

import (
	"context"
	"fmt"
	"math/rand"
	"sort"

	"github.com/go-sif/sifplan"
	"github.com/go-sif/sifplan/errors"
	"github.com/go-sif/sifplan/internal/iterator"
	"github.com/go-sif/sifplan/internal/partition"
)

// DefaultSortSampleSize is the number of Rows sampled to estimate Sort boundaries
const DefaultSortSampleSize = 1024

// SortConf configures a Sort
type SortConf struct {
	Schema        sifplan.Schema
	Keys          []SortKey
	NumPartitions int   // The number of (range-partitioned) output Partitions
	SampleSize    int   // The maximum number of sampled Rows. Defaults to DefaultSortSampleSize.
	Seed          int64 // Seeds the reservoir sample
	Spill         Spill // Parks input Partitions while sampling. Defaults to memory.
}

// Validate checks a SortConf against its Schema
func (conf *SortConf) Validate() error {
	if conf.NumPartitions <= 0 {
		return &errors.ConfigurationError{Op: "sort", Reason: fmt.Sprintf("partition count must be positive, was %d", conf.NumPartitions)}
	}
	if conf.SampleSize < 0 {
		return &errors.ConfigurationError{Op: "sort", Reason: fmt.Sprintf("sample size must not be negative, was %d", conf.SampleSize)}
	}
	_, err := bindSortKeys(conf.Schema, conf.Keys)
	return err
}

// Sort globally orders its input. The input is drained while a bounded reservoir
// sample of sort keys is taken, NumPartitions-1 boundaries are chosen at the sample's
// quantiles and every Row is routed by a RangeRouter over those boundaries. Each bucket
// is then stably sorted, so that ties retain input order, and exactly NumPartitions
// Partitions are produced in boundary order. Skewed keys may produce empty Partitions.
func Sort(child sifplan.PartitionIterator, conf SortConf) (sifplan.PartitionIterator, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	if conf.SampleSize == 0 {
		conf.SampleSize = DefaultSortSampleSize
	}
	if conf.Spill == nil {
		conf.Spill = make(memorySpill)
	}
	comparator, _ := bindSortKeys(conf.Schema, conf.Keys)
	s := &sorter{conf: conf, comparator: comparator}
	return newBufferedIterator(child, s.run), nil
}

type sorter struct {
	conf       SortConf
	comparator keyComparator
}

func (s *sorter) run(ctx context.Context, input sifplan.PartitionIterator) ([]sifplan.Partition, error) {
	rng := rand.New(rand.NewSource(s.conf.Seed))
	sample := make([][]interface{}, 0, s.conf.SampleSize)
	seen := 0
	parked := 0
	err := iterator.ForEach(ctx, input, func(part sifplan.Partition) error {
		if part.GetNumRows() == 0 {
			return nil
		}
		err := part.ForEachRow(func(row sifplan.Row) error {
			// reservoir sampling keeps each Row with probability SampleSize/seen
			if len(sample) < s.conf.SampleSize {
				sample = append(sample, s.comparator.extract(row))
			} else if j := rng.Intn(seen + 1); j < s.conf.SampleSize {
				sample[j] = s.comparator.extract(row)
			}
			seen++
			return nil
		})
		if err != nil {
			return err
		}
		if err = s.conf.Spill.Put(parked, part); err != nil {
			return err
		}
		parked++
		return nil
	})
	if err != nil {
		return nil, err
	}

	router, err := s.router(sample)
	if err != nil {
		return nil, err
	}
	buckets := make([][]sifplan.Partition, router.NumBuckets())
	for seq := 0; seq < parked; seq++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		part, err := s.conf.Spill.Take(seq)
		if err != nil {
			return nil, err
		}
		op := partition.Operable(part)
		assignments, err := router.Route(op)
		if err != nil {
			return nil, &errors.EvaluationError{Op: "sort", Err: err}
		}
		subs, err := SplitByBucket(op, assignments, router.NumBuckets())
		if err != nil {
			return nil, err
		}
		for b, sub := range subs {
			if sub.GetNumRows() > 0 {
				buckets[b] = append(buckets[b], sub)
			}
		}
	}

	result := make([]sifplan.Partition, len(buckets))
	for b, parts := range buckets {
		sorted, err := s.sortBucket(parts)
		if err != nil {
			return nil, err
		}
		result[b] = sorted
	}
	return result, nil
}

// router chooses boundaries at the quantiles of the sample
func (s *sorter) router(sample [][]interface{}) (*RangeRouter, error) {
	var sortErr error
	sort.SliceStable(sample, func(i, j int) bool {
		c, err := s.comparator.safeCompare(sample[i], sample[j])
		if err != nil && sortErr == nil {
			sortErr = err
		}
		return c < 0
	})
	if sortErr != nil {
		return nil, &errors.EvaluationError{Op: "sort", Err: sortErr}
	}
	n := s.conf.NumPartitions
	boundaries := make([][]interface{}, 0, n-1)
	for i := 1; i < n; i++ {
		if len(sample) == 0 {
			boundaries = append(boundaries, make([]interface{}, len(s.conf.Keys)))
			continue
		}
		boundaries = append(boundaries, sample[i*len(sample)/n])
	}
	return &RangeRouter{keys: s.conf.Keys, comparator: s.comparator, boundaries: boundaries}, nil
}

// sortBucket concatenates the sub-Partitions routed to one bucket, in arrival order,
// and stably sorts the result
func (s *sorter) sortBucket(parts []sifplan.Partition) (sifplan.Partition, error) {
	merged, err := partition.Concat(s.conf.Schema, parts...)
	if err != nil {
		return nil, err
	}
	keys := make([][]interface{}, 0, merged.GetNumRows())
	merged.ForEachRow(func(row sifplan.Row) error {
		keys = append(keys, s.comparator.extract(row))
		return nil
	})
	order := make([]int, len(keys))
	for i := range order {
		order[i] = i
	}
	var sortErr error
	sort.SliceStable(order, func(i, j int) bool {
		c, err := s.comparator.safeCompare(keys[order[i]], keys[order[j]])
		if err != nil && sortErr == nil {
			sortErr = err
		}
		return c < 0
	})
	if sortErr != nil {
		return nil, &errors.EvaluationError{Op: "sort", Err: sortErr}
	}
	return merged.Take(order)
}
