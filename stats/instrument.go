package stats

import (
	"context"
	"time"

	"github.com/go-sif/sifplan"
)

type instrumentedIterator struct {
	sifplan.PartitionIterator
	node      int
	kind      string
	stats     *RunStatistics
	collector *Collector
}

// Instrument wraps a PartitionIterator so that every Partition it emits is counted
// against the given plan node. Either of stats and collector may be nil.
func Instrument(it sifplan.PartitionIterator, node int, kind string, stats *RunStatistics, collector *Collector) sifplan.PartitionIterator {
	if stats == nil && collector == nil {
		return it
	}
	return &instrumentedIterator{
		PartitionIterator: it,
		node:              node,
		kind:              kind,
		stats:             stats,
		collector:         collector,
	}
}

func (ii *instrumentedIterator) NextPartition(ctx context.Context) (sifplan.Partition, error) {
	start := time.Now()
	part, err := ii.PartitionIterator.NextPartition(ctx)
	if err != nil {
		return nil, err
	}
	if ii.stats != nil {
		ii.stats.EndPartition(ii.node, part.GetNumRows(), time.Since(start))
	}
	ii.collector.ObservePartition(ii.kind, part.GetNumRows())
	return part, nil
}
