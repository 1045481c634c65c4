package arena

import (
	"testing"

	"github.com/go-kit/log"
	"github.com/go-sif/sifplan"
	"github.com/go-sif/sifplan/internal/partition"
	"github.com/go-sif/sifplan/schema"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func testPart(t *testing.T, n int) sifplan.Partition {
	s := schema.Of(
		schema.Col("key", &sifplan.Int32ColumnType{}),
		schema.Col("val", &sifplan.VarStringColumnType{}),
	)
	part := partition.CreateBuildablePartition(n, s)
	for i := 0; i < n; i++ {
		require.Nil(t, part.AppendRowValues([]interface{}{i, "v"}))
	}
	return part
}

func TestArenaSpillsToMemory(t *testing.T) {
	a, err := New(Config{InMemoryPartitions: 2}, log.NewNopLogger())
	require.Nil(t, err)
	defer a.Close()

	parts := make([]sifplan.Partition, 5)
	for i := range parts {
		parts[i] = testPart(t, i+1)
		require.Nil(t, a.Put(Key{Node: 1, Seq: i}, parts[i]))
	}
	require.Equal(t, 5, a.Len())
	require.Equal(t, 3, a.Spilled())
	require.NotNil(t, a.Put(Key{Node: 1, Seq: 0}, parts[0]))

	for i := range parts {
		part, err := a.Take(Key{Node: 1, Seq: i})
		require.Nil(t, err)
		require.Equal(t, parts[i].ID(), part.ID())
		require.Equal(t, i+1, part.GetNumRows())
		require.Equal(t, parts[i].GetRow(i).Values(), part.GetRow(i).Values())
	}
	require.Equal(t, 0, a.Len())
	_, err = a.Take(Key{Node: 1, Seq: 0})
	require.NotNil(t, err)
}

func TestArenaSpillsToDisk(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.Nil(t, fs.MkdirAll("/tmp/spill", 0755))
	a, err := New(Config{InMemoryPartitions: 1, TempDir: "/tmp/spill", Fs: fs}, nil)
	require.Nil(t, err)

	spill := a.ForNode(7)
	require.Nil(t, spill.Put(0, testPart(t, 3)))
	require.Nil(t, spill.Put(1, testPart(t, 4)))
	require.Nil(t, spill.Put(2, testPart(t, 5)))
	files, err := afero.ReadDir(fs, "/tmp/spill")
	require.Nil(t, err)
	require.Len(t, files, 2)

	part, err := spill.Take(0)
	require.Nil(t, err)
	require.Equal(t, 3, part.GetNumRows())
	files, err = afero.ReadDir(fs, "/tmp/spill")
	require.Nil(t, err)
	require.Len(t, files, 1)

	require.Nil(t, a.Close())
	files, err = afero.ReadDir(fs, "/tmp/spill")
	require.Nil(t, err)
	require.Len(t, files, 0)
}
