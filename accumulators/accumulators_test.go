package accumulators

import (
	"testing"

	"github.com/go-sif/sifplan"
	"github.com/go-sif/sifplan/internal/partition"
	"github.com/go-sif/sifplan/schema"
	"github.com/stretchr/testify/require"
)

func testPartition(t *testing.T) sifplan.Partition {
	s := schema.Of(
		schema.Col("i", &sifplan.Int64ColumnType{}),
		schema.Col("f", &sifplan.Float64ColumnType{}),
		schema.Col("s", &sifplan.VarStringColumnType{}),
	)
	part, err := partition.FromRows(s,
		[]interface{}{1, 0.5, "b"},
		[]interface{}{nil, 1.5, "a"},
		[]interface{}{4, nil, "c"},
	)
	require.Nil(t, err)
	return part
}

func accumulateAll(t *testing.T, factory sifplan.AccumulatorFactory, part sifplan.Partition) sifplan.Accumulator {
	acc := factory()
	require.Nil(t, part.ForEachRow(acc.Accumulate))
	return acc
}

func roundTrip(t *testing.T, acc sifplan.Accumulator) sifplan.Accumulator {
	buf, err := acc.ToBytes()
	require.Nil(t, err)
	result, err := acc.FromBytes(buf)
	require.Nil(t, err)
	return result
}

func TestCount(t *testing.T) {
	part := testPartition(t)
	require.Equal(t, int64(3), accumulateAll(t, Counter(""), part).Result())
	acc := accumulateAll(t, Counter("i"), part)
	require.Equal(t, int64(2), acc.Result())
	require.Equal(t, int64(2), roundTrip(t, acc).Result())
	require.Equal(t, int64(0), Counter("i")().Result())
}

func TestSum(t *testing.T) {
	part := testPartition(t)
	isum := accumulateAll(t, Adder("i", true), part)
	require.Equal(t, int64(5), isum.Result())
	fsum := accumulateAll(t, Adder("f", false), part)
	require.Equal(t, 2.0, fsum.Result())
	require.Nil(t, isum.Merge(roundTrip(t, isum)))
	require.Equal(t, int64(10), isum.Result())
	require.NotNil(t, isum.Merge(Counter("")()))
	require.Equal(t, int64(0), Adder("i", true)().Result())
	_, err := isum.FromBytes([]byte{1})
	require.NotNil(t, err)
}

func TestMinMax(t *testing.T) {
	part := testPartition(t)
	lo := accumulateAll(t, Minimizer("s", &sifplan.VarStringColumnType{}), part)
	hi := accumulateAll(t, Maximizer("i", &sifplan.Int64ColumnType{}), part)
	require.Equal(t, "a", lo.Result())
	require.Equal(t, int64(4), hi.Result())
	require.Equal(t, int64(4), roundTrip(t, hi).Result())
	empty := Minimizer("s", &sifplan.VarStringColumnType{})()
	require.Nil(t, empty.Result())
	require.Nil(t, roundTrip(t, empty).Result())
	require.Nil(t, empty.Merge(lo))
	require.Equal(t, "a", empty.Result())
	require.NotNil(t, lo.Merge(hi))
}

func TestMean(t *testing.T) {
	part := testPartition(t)
	mean := accumulateAll(t, Averager("i"), part)
	require.Equal(t, 2.5, mean.Result())
	other := accumulateAll(t, Averager("i"), part)
	require.Nil(t, mean.Merge(roundTrip(t, other)))
	require.Equal(t, 2.5, mean.Result())
	require.Nil(t, Averager("i")().Result())
}

func TestMergeIsOrderIndependent(t *testing.T) {
	part := testPartition(t)
	a := accumulateAll(t, Adder("i", true), part)
	b := Adder("i", true)()
	c := accumulateAll(t, Adder("i", true), part)
	left := Adder("i", true)()
	require.Nil(t, left.Merge(a))
	require.Nil(t, left.Merge(b))
	require.Nil(t, left.Merge(c))
	right := Adder("i", true)()
	require.Nil(t, right.Merge(c))
	require.Nil(t, right.Merge(a))
	require.Nil(t, right.Merge(b))
	require.Equal(t, left.Result(), right.Result())
}

func TestComposed(t *testing.T) {
	part := testPartition(t)
	factory := Compose(Counter(""), Adder("i", true), Maximizer("s", &sifplan.VarStringColumnType{}))
	acc := accumulateAll(t, factory, part)
	require.Equal(t, []interface{}{int64(3), int64(5), "c"}, acc.Result())
	restored := roundTrip(t, acc)
	require.Nil(t, restored.Merge(acc))
	require.Equal(t, []interface{}{int64(6), int64(10), "c"}, restored.Result())
	require.NotNil(t, restored.Merge(FromParts(Counter("")())))
}

func TestFuncBind(t *testing.T) {
	s := testPartition(t).Schema()
	_, ct, err := Func{Op: SumOp, Column: "i"}.Bind(s)
	require.Nil(t, err)
	require.IsType(t, &sifplan.Int64ColumnType{}, ct)
	_, ct, err = Func{Op: SumOp, Column: "f"}.Bind(s)
	require.Nil(t, err)
	require.IsType(t, &sifplan.Float64ColumnType{}, ct)
	_, ct, err = Func{Op: MinOp, Column: "s"}.Bind(s)
	require.Nil(t, err)
	require.IsType(t, &sifplan.VarStringColumnType{}, ct)
	_, _, err = Func{Op: SumOp, Column: "s"}.Bind(s)
	require.NotNil(t, err)
	_, _, err = Func{Op: MeanOp, Column: "missing"}.Bind(s)
	require.NotNil(t, err)
	_, _, err = Func{Op: "median", Column: "i"}.Bind(s)
	require.NotNil(t, err)
	_, _, err = Func{Op: CountOp}.Bind(s)
	require.Nil(t, err)
	require.Equal(t, "count", Func{Op: CountOp}.OutputName())
	require.Equal(t, "sum_i", Func{Op: SumOp, Column: "i"}.OutputName())
	require.Equal(t, "total", Func{Op: SumOp, Column: "i", As: "total"}.OutputName())
}
