package sifplan

// Schema is an ordered sequence of named, typed columns. It allows one to
// obtain columns by name, define new columns, remove columns, etc.
// CreateColumn, RenameColumn and RemoveColumn modify the Schema in place;
// Clone first if the original must be preserved.
type Schema interface {
	Equals(otherSchema Schema) error // Equals returns nil iff both Schemas have the same names and types in the same order
	Clone() Schema
	NumColumns() int
	GetOffset(colName string) (offset Column, err error)
	HasColumn(colName string) bool
	CreateColumn(colName string, columnType ColumnType) (newSchema Schema, err error)
	RenameColumn(oldName string, newName string) (newSchema Schema, err error)
	RemoveColumn(colName string) (newSchema Schema, err error)
	Project(colNames ...string) (newSchema Schema, err error) // Project returns a new Schema holding only the named columns, in the given order
	ColumnNames() []string
	ColumnTypes() []ColumnType
	ForEachColumn(fn func(name string, col Column) error) error // ForEachColumn iterates over columns in index order
	String() string
}
