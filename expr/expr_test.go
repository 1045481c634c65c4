package expr

import (
	"testing"

	"github.com/go-sif/sifplan"
	"github.com/go-sif/sifplan/internal/partition"
	"github.com/go-sif/sifplan/schema"
	"github.com/stretchr/testify/require"
)

func testRows(t *testing.T) sifplan.Partition {
	s := schema.Of(
		schema.Col("a", &sifplan.Int64ColumnType{}),
		schema.Col("k", &sifplan.VarStringColumnType{}),
	)
	part, err := partition.FromRows(s,
		[]interface{}{1, "x"},
		[]interface{}{2, "y"},
		[]interface{}{nil, "x"},
		[]interface{}{4, nil},
	)
	require.Nil(t, err)
	return part
}

func matching(t *testing.T, part sifplan.Partition, pred sifplan.FilterOperation) []int {
	var result []int
	for i := 0; i < part.GetNumRows(); i++ {
		ok, err := pred(part.GetRow(i))
		require.Nil(t, err)
		if ok {
			result = append(result, i)
		}
	}
	return result
}

func TestComparisons(t *testing.T) {
	part := testRows(t)
	require.Equal(t, []int{1, 3}, matching(t, part, Gt("a", 1)))
	require.Equal(t, []int{0, 1}, matching(t, part, LtEq("a", "2")))
	require.Equal(t, []int{0}, matching(t, part, Eq("a", int32(1))))
	require.Equal(t, []int{1, 3}, matching(t, part, NotEq("a", 1)))
	require.Equal(t, []int{0, 1}, matching(t, part, Lt("a", 4)))
	require.Equal(t, []int{3}, matching(t, part, GtEq("a", 4)))
	require.Equal(t, []int{0, 2}, matching(t, part, Eq("k", "x")))
}

func TestNullsAndBooleans(t *testing.T) {
	part := testRows(t)
	require.Equal(t, []int{2}, matching(t, part, IsNull("a")))
	require.Equal(t, []int{0, 1, 2}, matching(t, part, NotNull("k")))
	require.Equal(t, []int{0}, matching(t, part, And(Eq("k", "x"), NotNull("a"))))
	require.Equal(t, []int{0, 1, 3}, matching(t, part, Or(Gt("a", 1), Eq("a", 1))))
	require.Equal(t, []int{1, 3}, matching(t, part, Not(Eq("k", "x"))))
}

func TestComparisonErrors(t *testing.T) {
	part := testRows(t)
	_, err := Gt("a", "not a number")(part.GetRow(0))
	require.NotNil(t, err)
	_, err = Gt("missing", 1)(part.GetRow(0))
	require.NotNil(t, err)
	_, err = Compare("a", "between", 1)(part.GetRow(0))
	require.NotNil(t, err)
}

func TestKeyColumns(t *testing.T) {
	part := testRows(t)
	kfn := KeyColumns("k")
	k0, err := kfn(part.GetRow(0))
	require.Nil(t, err)
	k2, err := kfn(part.GetRow(2))
	require.Nil(t, err)
	k3, err := kfn(part.GetRow(3))
	require.Nil(t, err)
	require.Equal(t, k0, k2)
	require.NotEqual(t, k0, k3)
	_, err = KeyColumns("missing")(part.GetRow(0))
	require.NotNil(t, err)
}
