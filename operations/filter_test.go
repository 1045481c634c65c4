package operations

import (
	"context"
	"fmt"
	"testing"

	"github.com/go-sif/sifplan"
	"github.com/go-sif/sifplan/errors"
	"github.com/go-sif/sifplan/expr"
	"github.com/go-sif/sifplan/schema"
	"github.com/stretchr/testify/require"
)

func TestFilterPreservesOrderAndEmptyPartitions(t *testing.T) {
	parts := intParts(t, []interface{}{1, 2, 3, 4}, []interface{}{5, 7}, []interface{}{8, 9, 10})
	out := drain(t, Filter(track(parts...), expr.Not(expr.Eq("a", 0))))
	require.Len(t, out, 3)
	require.Equal(t, []interface{}{int64(1), int64(2), int64(3), int64(4), int64(5), int64(7), int64(8), int64(9), int64(10)}, column(t, out, "a"))

	even := func(row sifplan.Row) (bool, error) {
		a, err := row.GetInt64("a")
		return a%2 == 0, err
	}
	out = drain(t, Filter(track(parts...), even))
	require.Len(t, out, 3)
	require.Equal(t, 0, out[1].GetNumRows())
	require.Equal(t, []interface{}{int64(2), int64(4), int64(8), int64(10)}, column(t, out, "a"))
}

func TestFilterErrorsAbort(t *testing.T) {
	parts := intParts(t, []interface{}{1, 2}, []interface{}{3})
	child := track(parts...)
	it := Filter(child, func(row sifplan.Row) (bool, error) {
		return false, fmt.Errorf("boom")
	})
	_, err := it.NextPartition(context.Background())
	require.IsType(t, &errors.EvaluationError{}, err)
	require.True(t, child.closed)
	_, err = it.NextPartition(context.Background())
	require.True(t, errors.IsNoMorePartitions(err))
}

func TestFilterTypeMismatchIsAnError(t *testing.T) {
	parts := intParts(t, []interface{}{1})
	_, err := Filter(track(parts...), expr.Eq("a", "not a number")).NextPartition(context.Background())
	require.IsType(t, &errors.EvaluationError{}, err)
}

func TestProject(t *testing.T) {
	parts := intParts(t, []interface{}{1, 2})
	projected := schema.Of(schema.Col("seq", &sifplan.Int64ColumnType{}))
	out := drain(t, Project(track(parts...), projected))
	require.Len(t, out, 1)
	require.Equal(t, []interface{}{int64(1)}, out[0].GetRow(1).Values())
}
