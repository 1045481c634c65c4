package sifplan

import "time"

// Row is a read-only view of a single record within a Partition. Typed
// getters return an errors.NilValueError when the value is null.
type Row interface {
	Schema() Schema                                        // Schema returns the Schema of this Row
	Get(colName string) (interface{}, error)               // Get returns the canonical value of a column, or nil if it is null
	Value(idx int) interface{}                             // Value returns the canonical value at a column index, or nil if it is null
	Values() []interface{}                                 // Values returns a copy of all values in this Row, in column order
	IsNil(colName string) bool                             // IsNil returns true iff the given column is null (or missing)
	GetBool(colName string) (bool, error)                  // GetBool returns the value of a BoolColumnType column
	GetInt32(colName string) (int32, error)                // GetInt32 returns the value of an Int32ColumnType column
	GetInt64(colName string) (int64, error)                // GetInt64 returns the value of an Int64ColumnType column
	GetFloat32(colName string) (float32, error)            // GetFloat32 returns the value of a Float32ColumnType column
	GetFloat64(colName string) (float64, error)            // GetFloat64 returns the value of a Float64ColumnType column
	GetVarString(colName string) (string, error)           // GetVarString returns the value of a VarStringColumnType column
	GetVarBytes(colName string) ([]byte, error)            // GetVarBytes returns the value of a VarBytesColumnType column
	GetTime(colName string) (time.Time, error)             // GetTime returns the value of a TimeColumnType column
	GetAccumulator(colName string) (Accumulator, error)    // GetAccumulator returns the intermediate state held in an AccumulatorColumnType column
	ToString() string                                      // ToString returns a human-readable representation of this Row
}
