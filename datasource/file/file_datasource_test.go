package file

import (
	"testing"

	"github.com/go-sif/sifplan/errors"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func createTestFs(t *testing.T) afero.Fs {
	fs := afero.NewMemMapFs()
	for _, p := range []string{"/data/b.csv", "/data/a.csv", "/data/nested/c.csv", "/data/notes.txt"} {
		require.Nil(t, afero.WriteFile(fs, p, []byte("1\n"), 0644))
	}
	return fs
}

func loaderPaths(pm *PartitionMap) []string {
	var paths []string
	for pm.HasNext() {
		paths = append(paths, pm.Next().(*PartitionLoader).Path())
	}
	return paths
}

func TestAnalyzeSortsMatches(t *testing.T) {
	source := CreateDataSource(createTestFs(t), "/data/*.csv")
	pm, err := source.Analyze()
	require.Nil(t, err)
	require.Equal(t, []string{"/data/a.csv", "/data/b.csv"}, loaderPaths(pm.(*PartitionMap)))
}

func TestAnalyzeRecursiveAndDeduplicated(t *testing.T) {
	source := CreateDataSource(createTestFs(t), "/data/b.csv", "/data/**/*.csv")
	pm, err := source.Analyze()
	require.Nil(t, err)
	require.Equal(t, []string{"/data/b.csv", "/data/a.csv", "/data/nested/c.csv"}, loaderPaths(pm.(*PartitionMap)))
}

func TestAnalyzeNoMatches(t *testing.T) {
	source := CreateDataSource(createTestFs(t), "/data/*.parquet")
	_, err := source.Analyze()
	require.NotNil(t, err)
	require.IsType(t, &errors.SourceReadError{}, err)
	require.Contains(t, err.Error(), "produced 0 files")

	_, err = CreateDataSource(createTestFs(t)).Analyze()
	require.IsType(t, &errors.ConfigurationError{}, err)
}

func TestLoadRequiresParser(t *testing.T) {
	source := CreateDataSource(createTestFs(t), "/data/a.csv")
	pm, err := source.Analyze()
	require.Nil(t, err)
	_, err = pm.Next().Load(nil, nil)
	require.NotNil(t, err)
}
