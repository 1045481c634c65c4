package file

import (
	"fmt"
	"path"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-sif/sifplan"
	"github.com/go-sif/sifplan/errors"
	"github.com/spf13/afero"
)

// DataSource is a set of files containing data which will be scanned by a physical plan
type DataSource struct {
	fs       afero.Fs
	patterns []string
}

// CreateDataSource is a factory for DataSources. If fs is nil, the OS filesystem is used.
func CreateDataSource(fs afero.Fs, patterns ...string) *DataSource {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &DataSource{fs: fs, patterns: patterns}
}

// Glob expands a single pattern into the sorted list of matching files
func Glob(fs afero.Fs, pattern string) ([]string, error) {
	pattern = path.Clean(pattern)
	base, rest := doublestar.SplitPattern(pattern)
	root := fs
	if base != "." {
		root = afero.NewBasePathFs(fs, base)
	}
	matches, err := doublestar.Glob(afero.NewIOFS(root), rest, doublestar.WithFilesOnly())
	if err != nil {
		return nil, err
	}
	result := make([]string, len(matches))
	for i, m := range matches {
		if base == "." {
			result[i] = m
		} else {
			result[i] = path.Join(base, m)
		}
	}
	sort.Strings(result)
	return result, nil
}

// Analyze returns a PartitionMap, describing how the source files will be divided into Partitions.
// Files are produced in pattern order, and in sorted path order within a pattern. A file matched
// by several patterns is only read once.
func (fs *DataSource) Analyze() (sifplan.PartitionMap, error) {
	if len(fs.patterns) == 0 {
		return nil, &errors.ConfigurationError{Op: "scan", Reason: "at least one path is required"}
	}
	seen := make(map[string]bool)
	var toRead []string
	for _, pattern := range fs.patterns {
		matches, err := Glob(fs.fs, pattern)
		if err != nil {
			return nil, &errors.SourceReadError{Path: pattern, Err: err}
		}
		if len(matches) == 0 {
			return nil, &errors.SourceReadError{Path: pattern, Err: fmt.Errorf("glob %s produced 0 files", pattern)}
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				toRead = append(toRead, m)
			}
		}
	}
	return &PartitionMap{
		files:  toRead,
		source: fs,
	}, nil
}
