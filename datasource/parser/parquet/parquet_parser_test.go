package parquet

import (
	"bytes"
	"context"
	"testing"

	"github.com/go-sif/sifplan"
	"github.com/go-sif/sifplan/datasource"
	"github.com/go-sif/sifplan/datasource/file"
	"github.com/go-sif/sifplan/errors"
	"github.com/go-sif/sifplan/internal/iterator"
	"github.com/go-sif/sifplan/schema"
	pq "github.com/parquet-go/parquet-go"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

type record struct {
	Name  string   `parquet:"name"`
	Count int64    `parquet:"count"`
	Score *float64 `parquet:"score,optional"`
}

func writeFixture(t *testing.T, fs afero.Fs, path string, rows []record) {
	var buf bytes.Buffer
	require.Nil(t, pq.Write(&buf, rows))
	require.Nil(t, afero.WriteFile(fs, path, buf.Bytes(), 0644))
}

func TestParquetDatasourceParser(t *testing.T) {
	score := 2.5
	fs := afero.NewMemMapFs()
	rows := make([]record, 0, 10)
	for i := 0; i < 10; i++ {
		r := record{Name: "row", Count: int64(i)}
		if i%2 == 0 {
			r.Score = &score
		}
		rows = append(rows, r)
	}
	writeFixture(t, fs, "/data/a.parquet", rows)

	s := schema.Of(
		schema.Col("count", &sifplan.Int64ColumnType{}),
		schema.Col("name", &sifplan.VarStringColumnType{}),
		schema.Col("score", &sifplan.Float64ColumnType{}),
	)
	parser := CreateParser(&ParserConf{PartitionSize: 4})
	it, err := datasource.Scan(file.CreateDataSource(fs, "/data/*.parquet"), parser, s, datasource.ScanOptions{})
	require.Nil(t, err)
	parts, err := iterator.Drain(context.Background(), it)
	require.Nil(t, err)
	require.Len(t, parts, 3)
	require.Equal(t, 4, parts[0].GetNumRows())
	require.Equal(t, 2, parts[2].GetNumRows())
	require.Equal(t, []interface{}{int64(0), "row", 2.5}, parts[0].GetRow(0).Values())
	require.Equal(t, []interface{}{int64(1), "row", nil}, parts[0].GetRow(1).Values())
	require.Equal(t, []interface{}{int64(9), "row", nil}, parts[2].GetRow(1).Values())
}

func TestParquetProjectionAndLimit(t *testing.T) {
	fs := afero.NewMemMapFs()
	rows := make([]record, 0, 10)
	for i := 0; i < 10; i++ {
		rows = append(rows, record{Name: "row", Count: int64(i)})
	}
	writeFixture(t, fs, "/data/a.parquet", rows)
	s := schema.Of(
		schema.Col("count", &sifplan.Int64ColumnType{}),
		schema.Col("name", &sifplan.VarStringColumnType{}),
	)
	it, err := datasource.Scan(file.CreateDataSource(fs, "/data/a.parquet"), CreateParser(&ParserConf{}), s, datasource.ScanOptions{
		Columns: []string{"count"},
		Limit:   3,
	})
	require.Nil(t, err)
	parts, err := iterator.Drain(context.Background(), it)
	require.Nil(t, err)
	require.Len(t, parts, 1)
	require.Equal(t, 3, parts[0].GetNumRows())
	require.Equal(t, []interface{}{int64(2)}, parts[0].GetRow(2).Values())
}

func TestParquetMissingColumn(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFixture(t, fs, "/data/a.parquet", []record{{Name: "a", Count: 1}})
	s := schema.Of(schema.Col("missing", &sifplan.Int64ColumnType{}))
	it, err := datasource.Scan(file.CreateDataSource(fs, "/data/a.parquet"), CreateParser(&ParserConf{}), s, datasource.ScanOptions{})
	require.Nil(t, err)
	_, err = iterator.Drain(context.Background(), it)
	require.IsType(t, &errors.SourceReadError{}, err)
}

func TestParquetCorruptFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.Nil(t, afero.WriteFile(fs, "/data/a.parquet", []byte("not parquet"), 0644))
	s := schema.Of(schema.Col("count", &sifplan.Int64ColumnType{}))
	it, err := datasource.Scan(file.CreateDataSource(fs, "/data/a.parquet"), CreateParser(&ParserConf{}), s, datasource.ScanOptions{})
	require.Nil(t, err)
	_, err = iterator.Drain(context.Background(), it)
	require.IsType(t, &errors.SourceReadError{}, err)
}
