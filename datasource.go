package sifplan

import (
	"io"
	"os"
)

// SourceFile is an open file being scanned. It is satisfied by afero.File.
type SourceFile interface {
	io.Reader
	io.ReaderAt
	io.Closer
	Name() string
	Stat() (os.FileInfo, error)
}

// DataSourceParser turns an open SourceFile into a stream of Partitions
// conforming to a Schema.
type DataSourceParser interface {
	PartitionSize() int                                                                 // PartitionSize returns the maximum size in rows of Partitions produced by this DataSourceParser
	Parse(f SourceFile, schema Schema, onIteratorEnd func()) (PartitionIterator, error) // Parse begins parsing f. onIteratorEnd fires when parsing completes.
}

// PartitionLoader is a description of how to load specific Partitions of data from a particular DataSource.
// DataSources implement this interface to implement data-loading logic.
type PartitionLoader interface {
	ToString() string                                                       // for logging
	Load(parser DataSourceParser, schema Schema) (PartitionIterator, error) // how to actually load data
}

// PartitionMap is an interface describing an iterator for PartitionLoaders,
// returned by DataSource.Analyze(). PartitionLoaders are produced in source order.
type PartitionMap interface {
	HasNext() bool
	Next() PartitionLoader
}

// DataSource is a source of data which will be scanned by a physical plan.
// It represents information about how to load data from the source as Partitions.
type DataSource interface {
	Analyze() (PartitionMap, error)
}
