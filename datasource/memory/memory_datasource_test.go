package memory

import (
	"context"
	"testing"

	"github.com/go-sif/sifplan"
	"github.com/go-sif/sifplan/datasource"
	"github.com/go-sif/sifplan/expr"
	"github.com/go-sif/sifplan/internal/iterator"
	"github.com/go-sif/sifplan/internal/partition"
	"github.com/go-sif/sifplan/schema"
	"github.com/stretchr/testify/require"
)

func testSchema() sifplan.Schema {
	return schema.Of(
		schema.Col("a", &sifplan.Int64ColumnType{}),
		schema.Col("b", &sifplan.VarStringColumnType{}),
	)
}

func testSource(t *testing.T) *DataSource {
	s := testSchema()
	p1, err := partition.FromRows(s, []interface{}{1, "x"}, []interface{}{2, "y"})
	require.Nil(t, err)
	p2, err := partition.FromRows(s, []interface{}{3, "z"})
	require.Nil(t, err)
	source, err := CreateDataSource(s, p1, p2)
	require.Nil(t, err)
	return source
}

func TestScanIsZeroCopy(t *testing.T) {
	source := testSource(t)
	it, err := datasource.Scan(source, nil, source.Schema(), datasource.ScanOptions{})
	require.Nil(t, err)
	parts, err := iterator.Drain(context.Background(), it)
	require.Nil(t, err)
	require.Len(t, parts, 2)
	require.Same(t, source.Partitions()[0], parts[0])
	require.Same(t, source.Partitions()[1], parts[1])
}

func TestScanPushdowns(t *testing.T) {
	source := testSource(t)
	it, err := datasource.Scan(source, nil, source.Schema(), datasource.ScanOptions{
		Columns:   []string{"b"},
		Predicate: expr.Gt("a", 1),
		Limit:     1,
	})
	require.Nil(t, err)
	parts, err := iterator.Drain(context.Background(), it)
	require.Nil(t, err)
	require.Len(t, parts, 1)
	require.Equal(t, 1, parts[0].GetNumRows())
	require.Equal(t, []interface{}{"y"}, parts[0].GetRow(0).Values())
	require.False(t, it.HasNextPartition())
}

func TestSchemaMismatch(t *testing.T) {
	other := schema.Of(schema.Col("a", &sifplan.BoolColumnType{}))
	part, err := partition.FromRows(other, []interface{}{true})
	require.Nil(t, err)
	_, err = CreateDataSource(testSchema(), part)
	require.NotNil(t, err)
	_, err = datasource.Scan(testSource(t), nil, testSchema(), datasource.ScanOptions{Columns: []string{"nope"}})
	require.NotNil(t, err)
}
