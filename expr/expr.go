// Package expr builds FilterOperations and KeyingOperations from column references,
// so that physical plans can be described declaratively.
package expr

import (
	"fmt"

	"github.com/go-sif/sifplan"
)

// CmpOp is a comparison operator
type CmpOp string

// Supported comparison operators
const (
	EqOp    CmpOp = "eq"
	NotEqOp CmpOp = "neq"
	LtOp    CmpOp = "lt"
	LtEqOp  CmpOp = "lte"
	GtOp    CmpOp = "gt"
	GtEqOp  CmpOp = "gte"
)

func (op CmpOp) holds(cmp int) (bool, error) {
	switch op {
	case EqOp:
		return cmp == 0, nil
	case NotEqOp:
		return cmp != 0, nil
	case LtOp:
		return cmp < 0, nil
	case LtEqOp:
		return cmp <= 0, nil
	case GtOp:
		return cmp > 0, nil
	case GtEqOp:
		return cmp >= 0, nil
	}
	return false, fmt.Errorf("unknown comparison operator %q", op)
}

// Compare produces a FilterOperation comparing a column against a literal, which is
// coerced to the column's type. Null column values never satisfy a comparison.
func Compare(colName string, op CmpOp, literal interface{}) sifplan.FilterOperation {
	return func(row sifplan.Row) (bool, error) {
		col, err := row.Schema().GetOffset(colName)
		if err != nil {
			return false, err
		}
		coerced, err := col.Type().Coerce(literal)
		if err != nil {
			return false, fmt.Errorf("cannot compare column %s with %#v: %w", colName, literal, err)
		}
		v := row.Value(col.Index())
		if v == nil {
			return false, nil
		}
		return op.holds(col.Type().Compare(v, coerced))
	}
}

// Eq keeps rows where colName == literal
func Eq(colName string, literal interface{}) sifplan.FilterOperation {
	return Compare(colName, EqOp, literal)
}

// NotEq keeps rows where colName != literal
func NotEq(colName string, literal interface{}) sifplan.FilterOperation {
	return Compare(colName, NotEqOp, literal)
}

// Lt keeps rows where colName < literal
func Lt(colName string, literal interface{}) sifplan.FilterOperation {
	return Compare(colName, LtOp, literal)
}

// LtEq keeps rows where colName <= literal
func LtEq(colName string, literal interface{}) sifplan.FilterOperation {
	return Compare(colName, LtEqOp, literal)
}

// Gt keeps rows where colName > literal
func Gt(colName string, literal interface{}) sifplan.FilterOperation {
	return Compare(colName, GtOp, literal)
}

// GtEq keeps rows where colName >= literal
func GtEq(colName string, literal interface{}) sifplan.FilterOperation {
	return Compare(colName, GtEqOp, literal)
}

// IsNull keeps rows where colName is null
func IsNull(colName string) sifplan.FilterOperation {
	return func(row sifplan.Row) (bool, error) {
		v, err := row.Get(colName)
		return err == nil && v == nil, err
	}
}

// NotNull keeps rows where colName is not null
func NotNull(colName string) sifplan.FilterOperation {
	return func(row sifplan.Row) (bool, error) {
		v, err := row.Get(colName)
		return err == nil && v != nil, err
	}
}

// And keeps rows satisfying every predicate. Evaluation short-circuits.
func And(preds ...sifplan.FilterOperation) sifplan.FilterOperation {
	return func(row sifplan.Row) (bool, error) {
		for _, p := range preds {
			ok, err := p(row)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	}
}

// Or keeps rows satisfying any predicate. Evaluation short-circuits.
func Or(preds ...sifplan.FilterOperation) sifplan.FilterOperation {
	return func(row sifplan.Row) (bool, error) {
		for _, p := range preds {
			ok, err := p(row)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	}
}

// Not inverts a predicate
func Not(pred sifplan.FilterOperation) sifplan.FilterOperation {
	return func(row sifplan.Row) (bool, error) {
		ok, err := pred(row)
		if err != nil {
			return false, err
		}
		return !ok, nil
	}
}

// KeyColumns produces a KeyingOperation from the values of one or more columns.
// Nulls are keyed distinctly from every non-null value.
func KeyColumns(colNames ...string) sifplan.KeyingOperation {
	return func(row sifplan.Row) ([]byte, error) {
		key := make([]byte, 0, 16*len(colNames))
		for _, name := range colNames {
			col, err := row.Schema().GetOffset(name)
			if err != nil {
				return nil, err
			}
			v := row.Value(col.Index())
			if v == nil {
				key = append(key, 0)
				continue
			}
			key = append(key, 1)
			key = col.Type().AppendKey(key, v)
		}
		return key, nil
	}
}
