package accumulators

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/go-sif/sifplan"
)

// Adder returns a new Sum Accumulator. Integer columns are summed as int64, and
// float columns as float64. Null values are skipped.
func Adder(colName string, integer bool) sifplan.AccumulatorFactory {
	return func() sifplan.Accumulator {
		return &Sum{colName: colName, integer: integer}
	}
}

// Sum Sums records
type Sum struct {
	colName string
	integer bool
	isum    int64
	fsum    float64
}

// GetSum returns the row Sum from this Accumulator, as a float64
func (a *Sum) GetSum() float64 {
	if a.integer {
		return float64(a.isum)
	}
	return a.fsum
}

// Accumulate adds a row to this Accumulator
func (a *Sum) Accumulate(row sifplan.Row) error {
	v, err := row.Get(a.colName)
	if err != nil {
		return err
	}
	switch n := v.(type) {
	case nil:
	case int32:
		a.isum += int64(n)
		a.fsum += float64(n)
	case int64:
		a.isum += n
		a.fsum += float64(n)
	case float32:
		a.fsum += float64(n)
	case float64:
		a.fsum += n
	default:
		return fmt.Errorf("Cannot sum non-numeric value %#v in column %s", v, a.colName)
	}
	return nil
}

// Merge merges another Accumulator into this one
func (a *Sum) Merge(o sifplan.Accumulator) error {
	ca, ok := o.(*Sum)
	if !ok {
		return fmt.Errorf("Incoming accumulator is not a Sum Accumulator")
	}
	a.isum += ca.isum
	a.fsum += ca.fsum
	return nil
}

// Result returns the sum as an int64 for integer columns, and a float64 otherwise
func (a *Sum) Result() interface{} {
	if a.integer {
		return a.isum
	}
	return a.fsum
}

// ToBytes serializes this Accumulator
func (a *Sum) ToBytes() ([]byte, error) {
	buff := make([]byte, 16)
	binary.LittleEndian.PutUint64(buff, uint64(a.isum))
	binary.LittleEndian.PutUint64(buff[8:], math.Float64bits(a.fsum))
	return buff, nil
}

// FromBytes produce a new Accumulator from serialized data
func (a *Sum) FromBytes(buff []byte) (sifplan.Accumulator, error) {
	if len(buff) != 16 {
		return nil, fmt.Errorf("Sum Accumulator requires 16 bytes, got %d", len(buff))
	}
	return &Sum{
		colName: a.colName,
		integer: a.integer,
		isum:    int64(binary.LittleEndian.Uint64(buff)),
		fsum:    math.Float64frombits(binary.LittleEndian.Uint64(buff[8:])),
	}, nil
}
