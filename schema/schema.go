package schema

import (
	"fmt"
	"strings"

	"github.com/go-sif/sifplan"
	"github.com/go-sif/sifplan/errors"
)

// column describes the position, name and type of a field in a Row.
type column struct {
	idx     int
	name    string
	colType sifplan.ColumnType
}

// Index returns the index of this Column within a Schema
func (c *column) Index() int {
	return c.idx
}

// Name returns the name of this Column
func (c *column) Name() string {
	return c.name
}

// Type returns the ColumnType of this Column
func (c *column) Type() sifplan.ColumnType {
	return c.colType
}

// schema is an ordered list of columns, indexed by name.
type schema struct {
	cols   []*column
	byName map[string]*column
}

// CreateSchema is a factory for Schemas
func CreateSchema() sifplan.Schema {
	return &schema{
		byName: make(map[string]*column),
	}
}

// Def is a column definition, used with Of
type Def struct {
	Name string
	Type sifplan.ColumnType
}

// Of builds a Schema from a list of column definitions. Panics on duplicate column names.
func Of(defs ...Def) sifplan.Schema {
	s := CreateSchema()
	for _, d := range defs {
		if _, err := s.CreateColumn(d.Name, d.Type); err != nil {
			panic(err)
		}
	}
	return s
}

// Equals returns nil iff this and another Schema have equal names and types, in the same order
func (s *schema) Equals(otherSchema sifplan.Schema) error {
	if otherSchema == nil {
		return fmt.Errorf("Schema is nil")
	}
	if s.NumColumns() != otherSchema.NumColumns() {
		return fmt.Errorf("Schemas have unequal numbers of columns (%d vs %d)", s.NumColumns(), otherSchema.NumColumns())
	}
	otherNames := otherSchema.ColumnNames()
	otherTypes := otherSchema.ColumnTypes()
	for i, c := range s.cols {
		if c.name != otherNames[i] {
			return fmt.Errorf("Column %d names do not match (%s vs %s)", i, c.name, otherNames[i])
		}
		if !sifplan.SameColumnType(c.colType, otherTypes[i]) {
			return fmt.Errorf("Column %s types do not match (%s vs %s)", c.name, c.colType, otherTypes[i])
		}
	}
	return nil
}

// Clone returns a copy of this Schema
func (s *schema) Clone() sifplan.Schema {
	result := &schema{
		cols:   make([]*column, len(s.cols)),
		byName: make(map[string]*column, len(s.cols)),
	}
	for i, c := range s.cols {
		nc := &column{c.idx, c.name, c.colType}
		result.cols[i] = nc
		result.byName[nc.name] = nc
	}
	return result
}

// NumColumns returns the number of columns in this Schema
func (s *schema) NumColumns() int {
	return len(s.cols)
}

// GetOffset returns the Column with the given name
func (s *schema) GetOffset(colName string) (sifplan.Column, error) {
	c, ok := s.byName[colName]
	if !ok {
		return nil, errors.MissingColumnError{Name: colName}
	}
	return c, nil
}

// HasColumn returns true iff this schema contains a column with the given name
func (s *schema) HasColumn(colName string) bool {
	_, ok := s.byName[colName]
	return ok
}

// CreateColumn defines a new column at the end of the Schema
func (s *schema) CreateColumn(colName string, columnType sifplan.ColumnType) (sifplan.Schema, error) {
	if len(colName) == 0 {
		return nil, fmt.Errorf("Column name must not be empty")
	}
	if columnType == nil {
		return nil, fmt.Errorf("Column %s must have a type", colName)
	}
	if _, ok := s.byName[colName]; ok {
		return nil, fmt.Errorf("Schema already contains column with name %s", colName)
	}
	c := &column{idx: len(s.cols), name: colName, colType: columnType}
	s.cols = append(s.cols, c)
	s.byName[colName] = c
	return s, nil
}

// RenameColumn renames a column within the Schema
func (s *schema) RenameColumn(oldName string, newName string) (sifplan.Schema, error) {
	c, ok := s.byName[oldName]
	if !ok {
		return nil, errors.MissingColumnError{Name: oldName}
	}
	if _, exists := s.byName[newName]; exists && newName != oldName {
		return nil, fmt.Errorf("Schema already contains column with name %s", newName)
	}
	delete(s.byName, oldName)
	c.name = newName
	s.byName[newName] = c
	return s, nil
}

// RemoveColumn removes a column from the Schema, shifting later columns down
func (s *schema) RemoveColumn(colName string) (sifplan.Schema, error) {
	c, ok := s.byName[colName]
	if !ok {
		return nil, errors.MissingColumnError{Name: colName}
	}
	delete(s.byName, colName)
	s.cols = append(s.cols[:c.idx], s.cols[c.idx+1:]...)
	for i := c.idx; i < len(s.cols); i++ {
		s.cols[i].idx = i
	}
	return s, nil
}

// Project returns a new Schema containing only the named columns, in the given order
func (s *schema) Project(colNames ...string) (sifplan.Schema, error) {
	result := CreateSchema()
	for _, name := range colNames {
		c, ok := s.byName[name]
		if !ok {
			return nil, errors.MissingColumnError{Name: name}
		}
		if _, err := result.CreateColumn(name, c.colType); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// ColumnNames returns the names in the schema, in index order
func (s *schema) ColumnNames() []string {
	names := make([]string, len(s.cols))
	for i, c := range s.cols {
		names[i] = c.name
	}
	return names
}

// ColumnTypes returns the types in the schema, in index order
func (s *schema) ColumnTypes() []sifplan.ColumnType {
	types := make([]sifplan.ColumnType, len(s.cols))
	for i, c := range s.cols {
		types[i] = c.colType
	}
	return types
}

// ForEachColumn iterates over the columns in this Schema, in index order
func (s *schema) ForEachColumn(fn func(name string, col sifplan.Column) error) error {
	for _, c := range s.cols {
		if err := fn(c.name, c); err != nil {
			return err
		}
	}
	return nil
}

func (s *schema) String() string {
	var b strings.Builder
	b.WriteString("{")
	for i, c := range s.cols {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(c.name)
		b.WriteString(": ")
		b.WriteString(c.colType.String())
	}
	b.WriteString("}")
	return b.String()
}

// Col is shorthand for a column definition
func Col(name string, colType sifplan.ColumnType) Def {
	return Def{Name: name, Type: colType}
}
