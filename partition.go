package sifplan

// A Partition is an ordered, bounded collection of Rows sharing a Schema.
// Partitions are the unit of data exchanged between physical operators,
// and are immutable once produced.
type Partition interface {
	ID() string                         // ID retrieves the ID of this Partition
	Schema() Schema                     // Schema retrieves the Schema of this Partition
	GetNumRows() int                    // GetNumRows retrieves the number of rows in this Partition
	GetRow(rowNum int) Row              // GetRow retrieves a specific row from this Partition
	ForEachRow(fn func(Row) error) error // ForEachRow iterates over Rows in a Partition, in order
}

// An OperablePartition can be operated on. Every operation produces a new Partition,
// leaving the receiver untouched.
type OperablePartition interface {
	Partition
	FilterRows(fn FilterOperation) (OperablePartition, error)  // FilterRows retains only the Rows for which fn returns true, preserving order
	Slice(start int, end int) (OperablePartition, error)       // Slice returns the Rows in [start, end)
	Take(indices []int) (OperablePartition, error)             // Take returns the Rows at the given indices, in the given order
	Project(newSchema Schema) (OperablePartition, error)       // Project narrows or reorders columns to match newSchema, whose columns must exist in this Partition
	KeyRows(kfn KeyingOperation) ([]uint64, error)             // KeyRows produces a hash key for every Row, deterministic across processes
}

// A BuildablePartition can be built. Used in the implementation of DataSources, parsers
// and operators which produce new Rows. A BuildablePartition must not be modified once it
// has been handed to a consumer.
type BuildablePartition interface {
	OperablePartition
	AppendRowValues(values []interface{}) error // AppendRowValues coerces values according to the Schema and appends them as a new Row
	AppendRow(row Row) error                    // AppendRow appends a copy of a Row with a compatible Schema
}
