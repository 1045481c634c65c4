package partition

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-sif/sifplan"
	"github.com/go-sif/sifplan/errors"
)

// rowImpl is a representation of a single row of data (a slice of
// a Partition), along with a reference to the Schema for that row.
// A nil value represents a null column.
type rowImpl struct {
	values []interface{}
	schema sifplan.Schema
}

// CreateRow builds a new row from values which are already in canonical form
func CreateRow(values []interface{}, schema sifplan.Schema) sifplan.Row {
	return &rowImpl{values: values, schema: schema}
}

// Schema returns the schema for a row
func (r *rowImpl) Schema() sifplan.Schema {
	return r.schema
}

// ToString returns a string representation of this row
func (r *rowImpl) ToString() string {
	var res strings.Builder
	fmt.Fprint(&res, "{")
	types := r.schema.ColumnTypes()
	for i, name := range r.schema.ColumnNames() {
		val := "nil"
		if r.values[i] != nil {
			val = types[i].ToString(r.values[i])
		}
		if i > 0 {
			fmt.Fprint(&res, ", ")
		}
		fmt.Fprintf(&res, "\"%s\": %s", name, val)
	}
	fmt.Fprint(&res, "}")
	return res.String()
}

// IsNil returns true iff the given column value is nil in this row. Missing columns are considered nil.
func (r *rowImpl) IsNil(colName string) bool {
	col, err := r.schema.GetOffset(colName)
	if err != nil {
		return true
	}
	return r.values[col.Index()] == nil
}

// Get returns the value of a column, or nil if it is null
func (r *rowImpl) Get(colName string) (interface{}, error) {
	col, err := r.schema.GetOffset(colName)
	if err != nil {
		return nil, err
	}
	return r.values[col.Index()], nil
}

// Value returns the value at a column index
func (r *rowImpl) Value(idx int) interface{} {
	return r.values[idx]
}

// Values returns a copy of the values in this row
func (r *rowImpl) Values() []interface{} {
	result := make([]interface{}, len(r.values))
	copy(result, r.values)
	return result
}

func (r *rowImpl) getNonNil(colName string) (interface{}, error) {
	v, err := r.Get(colName)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, errors.NilValueError{Name: colName}
	}
	return v, nil
}

func typeError(colName string, want string, v interface{}) error {
	return fmt.Errorf("Column %s is not a %s. Was: %#v", colName, want, v)
}

// GetBool retrieves a single bool column from this row
func (r *rowImpl) GetBool(colName string) (bool, error) {
	v, err := r.getNonNil(colName)
	if err != nil {
		return false, err
	}
	bv, ok := v.(bool)
	if !ok {
		return false, typeError(colName, "bool", v)
	}
	return bv, nil
}

// GetInt32 retrieves a single int32 column from this row
func (r *rowImpl) GetInt32(colName string) (int32, error) {
	v, err := r.getNonNil(colName)
	if err != nil {
		return 0, err
	}
	iv, ok := v.(int32)
	if !ok {
		return 0, typeError(colName, "int32", v)
	}
	return iv, nil
}

// GetInt64 retrieves a single int64 column from this row
func (r *rowImpl) GetInt64(colName string) (int64, error) {
	v, err := r.getNonNil(colName)
	if err != nil {
		return 0, err
	}
	iv, ok := v.(int64)
	if !ok {
		return 0, typeError(colName, "int64", v)
	}
	return iv, nil
}

// GetFloat32 retrieves a single float32 column from this row
func (r *rowImpl) GetFloat32(colName string) (float32, error) {
	v, err := r.getNonNil(colName)
	if err != nil {
		return 0, err
	}
	fv, ok := v.(float32)
	if !ok {
		return 0, typeError(colName, "float32", v)
	}
	return fv, nil
}

// GetFloat64 retrieves a single float64 column from this row
func (r *rowImpl) GetFloat64(colName string) (float64, error) {
	v, err := r.getNonNil(colName)
	if err != nil {
		return 0, err
	}
	fv, ok := v.(float64)
	if !ok {
		return 0, typeError(colName, "float64", v)
	}
	return fv, nil
}

// GetVarString retrieves a single string column from this row
func (r *rowImpl) GetVarString(colName string) (string, error) {
	v, err := r.getNonNil(colName)
	if err != nil {
		return "", err
	}
	sv, ok := v.(string)
	if !ok {
		return "", typeError(colName, "string", v)
	}
	return sv, nil
}

// GetVarBytes retrieves a single []byte column from this row
func (r *rowImpl) GetVarBytes(colName string) ([]byte, error) {
	v, err := r.getNonNil(colName)
	if err != nil {
		return nil, err
	}
	bv, ok := v.([]byte)
	if !ok {
		return nil, typeError(colName, "[]byte", v)
	}
	return bv, nil
}

// GetTime retrieves a single time column from this row
func (r *rowImpl) GetTime(colName string) (time.Time, error) {
	v, err := r.getNonNil(colName)
	if err != nil {
		return time.Time{}, err
	}
	tv, ok := v.(time.Time)
	if !ok {
		return time.Time{}, typeError(colName, "time.Time", v)
	}
	return tv, nil
}

// GetAccumulator retrieves the intermediate aggregate state held in a column of this row
func (r *rowImpl) GetAccumulator(colName string) (sifplan.Accumulator, error) {
	v, err := r.getNonNil(colName)
	if err != nil {
		return nil, err
	}
	av, ok := v.(sifplan.Accumulator)
	if !ok {
		return nil, typeError(colName, "Accumulator", v)
	}
	return av, nil
}
