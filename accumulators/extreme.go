package accumulators

import (
	"fmt"

	"github.com/go-sif/sifplan"
	"github.com/go-sif/sifplan/internal/partition"
	"github.com/go-sif/sifplan/schema"
)

// Minimizer returns a new Extreme Accumulator tracking the smallest non-null value in a column
func Minimizer(colName string, colType sifplan.ColumnType) sifplan.AccumulatorFactory {
	return func() sifplan.Accumulator {
		return &Extreme{colName: colName, colType: colType}
	}
}

// Maximizer returns a new Extreme Accumulator tracking the largest non-null value in a column
func Maximizer(colName string, colType sifplan.ColumnType) sifplan.AccumulatorFactory {
	return func() sifplan.Accumulator {
		return &Extreme{colName: colName, colType: colType, max: true}
	}
}

// Extreme tracks the minimum or maximum value of a column, according to its ColumnType
type Extreme struct {
	colName string
	colType sifplan.ColumnType
	max     bool
	value   interface{}
}

func (a *Extreme) offer(v interface{}) {
	if v == nil {
		return
	}
	if a.value == nil {
		a.value = v
		return
	}
	cmp := a.colType.Compare(v, a.value)
	if (a.max && cmp > 0) || (!a.max && cmp < 0) {
		a.value = v
	}
}

// Accumulate adds a row to this Accumulator
func (a *Extreme) Accumulate(row sifplan.Row) error {
	v, err := row.Get(a.colName)
	if err != nil {
		return err
	}
	a.offer(v)
	return nil
}

// Merge merges another Accumulator into this one
func (a *Extreme) Merge(o sifplan.Accumulator) error {
	ea, ok := o.(*Extreme)
	if !ok || ea.max != a.max {
		return fmt.Errorf("Incoming accumulator is not a compatible Extreme Accumulator")
	}
	a.offer(ea.value)
	return nil
}

// Result returns the extreme value, or nil if no values were accumulated
func (a *Extreme) Result() interface{} {
	return a.value
}

func (a *Extreme) valueSchema() sifplan.Schema {
	return schema.Of(schema.Col("v", a.colType))
}

// ToBytes serializes this Accumulator
func (a *Extreme) ToBytes() ([]byte, error) {
	part, err := partition.FromRows(a.valueSchema(), []interface{}{a.value})
	if err != nil {
		return nil, err
	}
	return partition.ToBytes(part)
}

// FromBytes produce a new Accumulator from serialized data
func (a *Extreme) FromBytes(buff []byte) (sifplan.Accumulator, error) {
	part, err := partition.FromBytes(buff, a.valueSchema())
	if err != nil {
		return nil, err
	}
	if part.GetNumRows() != 1 {
		return nil, fmt.Errorf("Extreme Accumulator requires exactly one value, got %d", part.GetNumRows())
	}
	return &Extreme{colName: a.colName, colType: a.colType, max: a.max, value: part.GetRow(0).Value(0)}, nil
}
