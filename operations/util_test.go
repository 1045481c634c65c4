package operations

import (
	"context"
	"testing"

	"github.com/go-sif/sifplan"
	"github.com/go-sif/sifplan/internal/iterator"
	"github.com/go-sif/sifplan/internal/partition"
	"github.com/go-sif/sifplan/schema"
	"github.com/stretchr/testify/require"
)

// trackingIterator counts pulls and records whether it was Closed
type trackingIterator struct {
	sifplan.PartitionIterator
	pulls  int
	closed bool
}

func (ti *trackingIterator) NextPartition(ctx context.Context) (sifplan.Partition, error) {
	ti.pulls++
	return ti.PartitionIterator.NextPartition(ctx)
}

func (ti *trackingIterator) Close() error {
	ti.closed = true
	return ti.PartitionIterator.Close()
}

func kvSchema() sifplan.Schema {
	return schema.Of(
		schema.Col("k", &sifplan.VarStringColumnType{}),
		schema.Col("v", &sifplan.Int64ColumnType{}),
	)
}

func intSchema() sifplan.Schema {
	return schema.Of(
		schema.Col("a", &sifplan.Int64ColumnType{}),
		schema.Col("seq", &sifplan.Int64ColumnType{}),
	)
}

func makePart(t *testing.T, s sifplan.Schema, rows ...[]interface{}) sifplan.Partition {
	part, err := partition.FromRows(s, rows...)
	require.Nil(t, err)
	return part
}

// intParts builds Partitions of (a, seq) rows, numbering rows in input order
func intParts(t *testing.T, values ...[]interface{}) []sifplan.Partition {
	seq := 0
	parts := make([]sifplan.Partition, len(values))
	for i, vs := range values {
		rows := make([][]interface{}, len(vs))
		for j, v := range vs {
			rows[j] = []interface{}{v, seq}
			seq++
		}
		parts[i] = makePart(t, intSchema(), rows...)
	}
	return parts
}

func track(parts ...sifplan.Partition) *trackingIterator {
	return &trackingIterator{PartitionIterator: iterator.CreatePartitionSliceIterator(parts)}
}

func drain(t *testing.T, it sifplan.PartitionIterator) []sifplan.Partition {
	parts, err := iterator.Drain(context.Background(), it)
	require.Nil(t, err)
	return parts
}

func column(t *testing.T, parts []sifplan.Partition, name string) []interface{} {
	var result []interface{}
	for _, p := range parts {
		require.Nil(t, p.ForEachRow(func(row sifplan.Row) error {
			v, err := row.Get(name)
			result = append(result, v)
			return err
		}))
	}
	return result
}

func totalRows(parts []sifplan.Partition) int {
	total := 0
	for _, p := range parts {
		total += p.GetNumRows()
	}
	return total
}
