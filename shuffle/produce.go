package shuffle

import (
	"context"

	"github.com/go-sif/sifplan"
	"github.com/go-sif/sifplan/errors"
)

// Produce drains a FanoutIterator into an Exchange on behalf of one producer, sending
// every non-empty bucket, and Seals the producer once the iterator is exhausted.
// Several producers may share one FanoutIterator.
func Produce(ctx context.Context, fanout sifplan.FanoutIterator, ex Exchange, producer int) error {
	for {
		buckets, err := fanout.NextFanout(ctx)
		if errors.IsNoMorePartitions(err) {
			return ex.Seal(ctx, producer)
		} else if err != nil {
			return err
		}
		for b, part := range buckets {
			if part.GetNumRows() == 0 {
				continue
			}
			if err := ex.Send(ctx, producer, b, part); err != nil {
				fanout.Close()
				return err
			}
		}
	}
}
