package accumulators

import (
	"fmt"

	"github.com/go-sif/sifplan"
	"github.com/go-sif/sifplan/errors"
)

// Op names an aggregate function
type Op string

const (
	// CountOp counts rows, or non-null values of a column
	CountOp Op = "count"
	// SumOp sums a numeric column
	SumOp Op = "sum"
	// MinOp finds the smallest value of a column
	MinOp Op = "min"
	// MaxOp finds the largest value of a column
	MaxOp Op = "max"
	// MeanOp averages a numeric column
	MeanOp Op = "mean"
)

// Func describes one aggregate function applied to a column of an Aggregate's input
type Func struct {
	Op     Op     `yaml:"op"`
	Column string `yaml:"column"` // may be empty for CountOp, to count rows
	As     string `yaml:"as"`     // name of the output column
}

// OutputName returns the name of the column holding this function's output
func (f Func) OutputName() string {
	if len(f.As) > 0 {
		return f.As
	}
	if len(f.Column) == 0 {
		return string(f.Op)
	}
	return string(f.Op) + "_" + f.Column
}

func (f Func) String() string {
	return fmt.Sprintf("%s(%s) as %s", f.Op, f.Column, f.OutputName())
}

// Bind resolves this Func against an input Schema, producing a factory for its Accumulator
// and the ColumnType of its finalized result
func (f Func) Bind(input sifplan.Schema) (sifplan.AccumulatorFactory, sifplan.ColumnType, error) {
	var colType sifplan.ColumnType
	if len(f.Column) > 0 {
		col, err := input.GetOffset(f.Column)
		if err != nil {
			return nil, nil, &errors.SchemaMismatchError{Op: string(f.Op), Reason: err.Error()}
		}
		colType = col.Type()
	} else if f.Op != CountOp {
		return nil, nil, &errors.ConfigurationError{Op: string(f.Op), Reason: "a column is required"}
	}
	switch f.Op {
	case CountOp:
		return Counter(f.Column), &sifplan.Int64ColumnType{}, nil
	case SumOp:
		if !sifplan.IsNumeric(colType) {
			return nil, nil, &errors.SchemaMismatchError{Op: string(f.Op), Reason: fmt.Sprintf("column %s of type %s is not numeric", f.Column, colType)}
		}
		if sifplan.IsInteger(colType) {
			return Adder(f.Column, true), &sifplan.Int64ColumnType{}, nil
		}
		return Adder(f.Column, false), &sifplan.Float64ColumnType{}, nil
	case MeanOp:
		if !sifplan.IsNumeric(colType) {
			return nil, nil, &errors.SchemaMismatchError{Op: string(f.Op), Reason: fmt.Sprintf("column %s of type %s is not numeric", f.Column, colType)}
		}
		return Averager(f.Column), &sifplan.Float64ColumnType{}, nil
	case MinOp:
		return Minimizer(f.Column, colType), colType, nil
	case MaxOp:
		return Maximizer(f.Column, colType), colType, nil
	}
	return nil, nil, &errors.ConfigurationError{Op: "aggregate", Reason: fmt.Sprintf("unknown aggregate function %q", f.Op)}
}
