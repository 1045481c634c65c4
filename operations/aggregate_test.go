package operations

import (
	"context"
	"math/rand"
	"testing"

	"github.com/go-sif/sifplan"
	"github.com/go-sif/sifplan/accumulators"
	"github.com/go-sif/sifplan/errors"
	"github.com/go-sif/sifplan/schema"
	"github.com/stretchr/testify/require"
)

func sumByK() []accumulators.Func {
	return []accumulators.Func{{Op: accumulators.SumOp, Column: "v", As: "v"}}
}

func finalByKey(t *testing.T, parts []sifplan.Partition, col string) map[string]interface{} {
	result := make(map[string]interface{})
	for _, p := range parts {
		require.Nil(t, p.ForEachRow(func(row sifplan.Row) error {
			k, err := row.GetVarString("k")
			require.Nil(t, err)
			v, err := row.Get(col)
			result[k] = v
			return err
		}))
	}
	return result
}

func TestTwoPhaseAggregate(t *testing.T) {
	parts := []sifplan.Partition{
		makePart(t, kvSchema(), []interface{}{"x", 1}),
		makePart(t, kvSchema(), []interface{}{"x", 2}, []interface{}{"y", 5}),
	}
	partial, err := NewAggregator(kvSchema(), PartialAggregate, []string{"k"}, sumByK())
	require.Nil(t, err)
	partials := drain(t, Aggregate(track(parts...), partial))
	require.Len(t, partials, 2)
	require.Equal(t, 1, partials[0].GetNumRows())
	require.Equal(t, 2, partials[1].GetNumRows())
	acc, err := partials[1].GetRow(0).GetAccumulator("v")
	require.Nil(t, err)
	require.Equal(t, int64(2), acc.Result())

	merge, err := NewAggregator(partial.Schema(), MergeAggregate, []string{"k"}, sumByK())
	require.Nil(t, err)
	final := drain(t, Aggregate(track(partials...), merge))
	require.Len(t, final, 1)
	require.Equal(t, map[string]interface{}{"x": int64(3), "y": int64(5)}, finalByKey(t, final, "v"))
	// groups are emitted in first-seen order
	require.Equal(t, []interface{}{"x", "y"}, column(t, final, "k"))
	require.Equal(t, "{k: varstring, v: int64}", merge.Schema().String())
}

func TestAggregateMergeIsOrderIndependent(t *testing.T) {
	funcs := []accumulators.Func{
		{Op: accumulators.SumOp, Column: "v"},
		{Op: accumulators.CountOp},
		{Op: accumulators.MinOp, Column: "v"},
		{Op: accumulators.MaxOp, Column: "v"},
		{Op: accumulators.MeanOp, Column: "v"},
	}
	rng := rand.New(rand.NewSource(11))
	keys := []string{"a", "b", "c", "d"}
	rows := make([][]interface{}, 200)
	for i := range rows {
		rows[i] = []interface{}{keys[rng.Intn(len(keys))], rng.Intn(100)}
	}
	run := func() map[string][]interface{} {
		// split the rows randomly into partitions, then merge partials in a random order
		shuffled := make([][]interface{}, len(rows))
		copy(shuffled, rows)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		var parts []sifplan.Partition
		for len(shuffled) > 0 {
			n := 1 + rng.Intn(30)
			if n > len(shuffled) {
				n = len(shuffled)
			}
			parts = append(parts, makePart(t, kvSchema(), shuffled[:n]...))
			shuffled = shuffled[n:]
		}
		partial, err := NewAggregator(kvSchema(), PartialAggregate, []string{"k"}, funcs)
		require.Nil(t, err)
		partials := drain(t, Aggregate(track(parts...), partial))
		rng.Shuffle(len(partials), func(i, j int) { partials[i], partials[j] = partials[j], partials[i] })
		merge, err := NewAggregator(partial.Schema(), MergeAggregate, []string{"k"}, funcs)
		require.Nil(t, err)
		final := drain(t, Aggregate(track(partials...), merge))
		result := make(map[string][]interface{})
		for _, p := range final {
			require.Nil(t, p.ForEachRow(func(row sifplan.Row) error {
				values := row.Values()
				result[values[0].(string)] = values[1:]
				return nil
			}))
		}
		return result
	}
	expected := run()
	require.Len(t, expected, 4)
	for i := 0; i < 10; i++ {
		require.Equal(t, expected, run())
	}
}

func TestFullAggregateMatchesTwoPhase(t *testing.T) {
	parts := []sifplan.Partition{
		makePart(t, kvSchema(), []interface{}{"x", 1}, []interface{}{"y", nil}),
		makePart(t, kvSchema(), []interface{}{"x", 2}, []interface{}{"y", 5}),
	}
	full, err := NewAggregator(kvSchema(), FullAggregate, []string{"k"}, sumByK())
	require.Nil(t, err)
	final := drain(t, Aggregate(track(parts...), full))
	require.Equal(t, map[string]interface{}{"x": int64(3), "y": int64(5)}, finalByKey(t, final, "v"))
}

func TestAggregateEmptyInput(t *testing.T) {
	funcs := []accumulators.Func{
		{Op: accumulators.CountOp, As: "n"},
		{Op: accumulators.SumOp, Column: "v", As: "total"},
		{Op: accumulators.MinOp, Column: "v", As: "lo"},
		{Op: accumulators.MaxOp, Column: "v", As: "hi"},
	}
	global, err := NewAggregator(kvSchema(), FullAggregate, nil, funcs)
	require.Nil(t, err)
	out := drain(t, Aggregate(track(), global))
	require.Len(t, out, 1)
	require.Equal(t, 1, out[0].GetNumRows())
	require.Equal(t, []interface{}{int64(0), int64(0), nil, nil}, out[0].GetRow(0).Values())

	grouped, err := NewAggregator(kvSchema(), FullAggregate, []string{"k"}, funcs)
	require.Nil(t, err)
	out = drain(t, Aggregate(track(), grouped))
	require.Equal(t, 0, totalRows(out))
}

func TestDistinctAggregate(t *testing.T) {
	parts := []sifplan.Partition{
		makePart(t, kvSchema(), []interface{}{"x", 1}, []interface{}{"y", 1}, []interface{}{nil, 1}),
		makePart(t, kvSchema(), []interface{}{"x", 2}, []interface{}{nil, 2}),
	}
	distinct, err := NewAggregator(kvSchema(), FullAggregate, []string{"k"}, nil)
	require.Nil(t, err)
	out := drain(t, Aggregate(track(parts...), distinct))
	require.Equal(t, []interface{}{"x", "y", nil}, column(t, out, "k"))
}

func TestAggregateConfiguration(t *testing.T) {
	_, err := NewAggregator(kvSchema(), FullAggregate, nil, nil)
	require.IsType(t, &errors.ConfigurationError{}, err)
	_, err = NewAggregator(kvSchema(), FullAggregate, []string{"missing"}, sumByK())
	require.IsType(t, &errors.SchemaMismatchError{}, err)
	_, err = NewAggregator(kvSchema(), FullAggregate, nil, []accumulators.Func{{Op: accumulators.SumOp, Column: "k"}})
	require.IsType(t, &errors.SchemaMismatchError{}, err)
	// merging requires partial aggregates
	_, err = NewAggregator(kvSchema(), MergeAggregate, []string{"k"}, sumByK())
	require.IsType(t, &errors.SchemaMismatchError{}, err)
	_, err = ParseAggregateMode("sideways")
	require.IsType(t, &errors.ConfigurationError{}, err)
}

func TestAggregateEvaluationError(t *testing.T) {
	parts := []sifplan.Partition{makePart(t, kvSchema(), []interface{}{"x", 1})}
	partial, err := NewAggregator(kvSchema(), PartialAggregate, []string{"k"}, sumByK())
	require.Nil(t, err)
	partials := drain(t, Aggregate(track(parts...), partial))

	// a merge which expects counts cannot merge sums
	countSchema := schema.Of(
		schema.Col("k", &sifplan.VarStringColumnType{}),
		schema.Col("v", &sifplan.AccumulatorColumnType{Name: "count", Factory: accumulators.Counter(""), Result: &sifplan.Int64ColumnType{}}),
	)
	merge, err := NewAggregator(countSchema, MergeAggregate, []string{"k"}, []accumulators.Func{{Op: accumulators.CountOp, As: "v"}})
	require.Nil(t, err)
	child := track(partials...)
	_, err = Aggregate(child, merge).NextPartition(context.Background())
	require.IsType(t, &errors.EvaluationError{}, err)
	require.True(t, child.closed)
}

func TestAggregateMergeSkipsNullPartials(t *testing.T) {
	funcs := []accumulators.Func{{Op: accumulators.SumOp, Column: "v"}, {Op: accumulators.CountOp}}
	partial, err := NewAggregator(kvSchema(), PartialAggregate, []string{"k"}, funcs)
	require.Nil(t, err)
	partials := drain(t, Aggregate(track(makePart(t, kvSchema(), []interface{}{"x", 4}, []interface{}{"x", 6})), partial))
	partials = append(partials, makePart(t, partial.Schema(), []interface{}{"x", nil, nil}))

	merge, err := NewAggregator(partial.Schema(), MergeAggregate, []string{"k"}, funcs)
	require.Nil(t, err)
	final := drain(t, Aggregate(track(partials...), merge))
	require.Len(t, final, 1)
	require.Equal(t, 1, final[0].GetNumRows())
	require.Equal(t, []interface{}{"x", int64(10), int64(2)}, final[0].GetRow(0).Values())
}
