package sifplan

// Column describes the position, name and type of a field in a Row.
type Column interface {
	Index() int       // Index returns the index of this Column within a Schema
	Name() string     // Name returns the name of this Column
	Type() ColumnType // Type returns the ColumnType of this Column
}
