package partition

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/go-sif/sifplan"
	"github.com/go-sif/sifplan/errors"
	uuid "github.com/gofrs/uuid"
	"github.com/hashicorp/go-multierror"
)

// partitionImpl is sifplan's internal implementation of Partition. Rows are
// stored as slices of canonical values and are never modified once appended,
// so derived Partitions share row storage with their parents.
type partitionImpl struct {
	id     string
	rows   [][]interface{}
	schema sifplan.Schema
}

func newID() string {
	return uuid.Must(uuid.NewV4()).String()
}

// createPartitionImpl creates a new, empty Partition with room for capacity rows
func createPartitionImpl(capacity int, schema sifplan.Schema) *partitionImpl {
	if capacity < 0 {
		capacity = 0
	}
	return &partitionImpl{
		id:     newID(),
		rows:   make([][]interface{}, 0, capacity),
		schema: schema,
	}
}

// CreateBuildablePartition creates a new, empty Partition which can be appended to
func CreateBuildablePartition(capacity int, schema sifplan.Schema) sifplan.BuildablePartition {
	return createPartitionImpl(capacity, schema)
}

// FromRows builds a Partition from raw values, coercing them according to schema
func FromRows(schema sifplan.Schema, rows ...[]interface{}) (sifplan.OperablePartition, error) {
	part := createPartitionImpl(len(rows), schema)
	for _, r := range rows {
		if err := part.AppendRowValues(r); err != nil {
			return nil, err
		}
	}
	return part, nil
}

// Empty returns a Partition with no Rows
func Empty(schema sifplan.Schema) sifplan.OperablePartition {
	return createPartitionImpl(0, schema)
}

// Operable returns an OperablePartition equivalent to part, copying it only if necessary
func Operable(part sifplan.Partition) sifplan.OperablePartition {
	if op, ok := part.(sifplan.OperablePartition); ok {
		return op
	}
	result := createPartitionImpl(part.GetNumRows(), part.Schema())
	for i := 0; i < part.GetNumRows(); i++ {
		result.rows = append(result.rows, part.GetRow(i).Values())
	}
	return result
}

// Concat concatenates Partitions sharing a Schema, preserving order
func Concat(schema sifplan.Schema, parts ...sifplan.Partition) (sifplan.OperablePartition, error) {
	total := 0
	for _, p := range parts {
		if err := schema.Equals(p.Schema()); err != nil {
			return nil, fmt.Errorf("cannot concatenate partition %s: %w", p.ID(), err)
		}
		total += p.GetNumRows()
	}
	result := createPartitionImpl(total, schema)
	for _, p := range parts {
		if pi, ok := p.(*partitionImpl); ok {
			result.rows = append(result.rows, pi.rows...)
			continue
		}
		for i := 0; i < p.GetNumRows(); i++ {
			result.rows = append(result.rows, p.GetRow(i).Values())
		}
	}
	return result, nil
}

// ID retrieves the ID of this Partition
func (p *partitionImpl) ID() string {
	return p.id
}

// Schema retrieves the Schema of this Partition
func (p *partitionImpl) Schema() sifplan.Schema {
	return p.schema
}

// GetNumRows returns the number of rows in this Partition
func (p *partitionImpl) GetNumRows() int {
	return len(p.rows)
}

// GetRow retrieves a specific row from this Partition
func (p *partitionImpl) GetRow(rowNum int) sifplan.Row {
	return &rowImpl{values: p.rows[rowNum], schema: p.schema}
}

// ForEachRow iterates over Rows in a Partition
func (p *partitionImpl) ForEachRow(fn func(sifplan.Row) error) error {
	for _, values := range p.rows {
		if err := fn(&rowImpl{values: values, schema: p.schema}); err != nil {
			return err
		}
	}
	return nil
}

// AppendRowValues coerces values according to the Schema, and appends them as a new Row
func (p *partitionImpl) AppendRowValues(values []interface{}) error {
	if len(values) != p.schema.NumColumns() {
		return errors.IncompatibleRowError{Expected: p.schema.NumColumns(), Actual: len(values)}
	}
	types := p.schema.ColumnTypes()
	names := p.schema.ColumnNames()
	row := make([]interface{}, len(values))
	for i, v := range values {
		if v == nil {
			continue
		}
		cv, err := types[i].Coerce(v)
		if err != nil {
			return fmt.Errorf("Column %s: %w", names[i], err)
		}
		row[i] = cv
	}
	p.rows = append(p.rows, row)
	return nil
}

// AppendRow appends a copy of a Row whose columns match this Partition's Schema
func (p *partitionImpl) AppendRow(row sifplan.Row) error {
	if row.Schema().NumColumns() != p.schema.NumColumns() {
		return errors.IncompatibleRowError{Expected: p.schema.NumColumns(), Actual: row.Schema().NumColumns()}
	}
	p.rows = append(p.rows, row.Values())
	return nil
}

// FilterRows filters the Rows in the current Partition, creating a new one
func (p *partitionImpl) FilterRows(fn sifplan.FilterOperation) (sifplan.OperablePartition, error) {
	var multierr *multierror.Error
	result := createPartitionImpl(len(p.rows), p.schema)
	for _, values := range p.rows {
		shouldKeep, err := fn(&rowImpl{values: values, schema: p.schema})
		if err != nil {
			multierr = multierror.Append(multierr, err)
			continue
		}
		if shouldKeep {
			result.rows = append(result.rows, values)
		}
	}
	return result, multierr.ErrorOrNil()
}

// Slice returns a new Partition containing the rows in [start, end)
func (p *partitionImpl) Slice(start int, end int) (sifplan.OperablePartition, error) {
	if start < 0 || end > len(p.rows) || start > end {
		return nil, fmt.Errorf("slice [%d, %d) out of range for partition with %d rows", start, end, len(p.rows))
	}
	result := createPartitionImpl(end-start, p.schema)
	result.rows = append(result.rows, p.rows[start:end]...)
	return result, nil
}

// Take returns a new Partition containing the rows at the given indices
func (p *partitionImpl) Take(indices []int) (sifplan.OperablePartition, error) {
	result := createPartitionImpl(len(indices), p.schema)
	for _, idx := range indices {
		if idx < 0 || idx >= len(p.rows) {
			return nil, fmt.Errorf("row %d out of range for partition with %d rows", idx, len(p.rows))
		}
		result.rows = append(result.rows, p.rows[idx])
	}
	return result, nil
}

// Project narrows or reorders the columns of this Partition to match newSchema
func (p *partitionImpl) Project(newSchema sifplan.Schema) (sifplan.OperablePartition, error) {
	if newSchema.Equals(p.schema) == nil {
		return p, nil
	}
	indices := make([]int, newSchema.NumColumns())
	err := newSchema.ForEachColumn(func(name string, col sifplan.Column) error {
		src, err := p.schema.GetOffset(name)
		if err != nil {
			return err
		}
		if !sifplan.SameColumnType(src.Type(), col.Type()) {
			return fmt.Errorf("Column %s has type %s, not %s", name, src.Type(), col.Type())
		}
		indices[col.Index()] = src.Index()
		return nil
	})
	if err != nil {
		return nil, err
	}
	result := createPartitionImpl(len(p.rows), newSchema)
	for _, values := range p.rows {
		projected := make([]interface{}, len(indices))
		for i, src := range indices {
			projected[i] = values[src]
		}
		result.rows = append(result.rows, projected)
	}
	return result, nil
}

// KeyRows hashes the key bytes produced by kfn for every Row
func (p *partitionImpl) KeyRows(kfn sifplan.KeyingOperation) ([]uint64, error) {
	var multierr *multierror.Error
	keys := make([]uint64, len(p.rows))
	for i, values := range p.rows {
		key, err := kfn(&rowImpl{values: values, schema: p.schema})
		if err != nil {
			multierr = multierror.Append(multierr, err)
			continue
		}
		keys[i] = xxhash.Sum64(key)
	}
	return keys, multierr.ErrorOrNil()
}
