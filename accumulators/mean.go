package accumulators

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/go-sif/sifplan"
)

// Averager returns a new Mean Accumulator
func Averager(colName string) sifplan.AccumulatorFactory {
	return func() sifplan.Accumulator {
		return &Mean{colName: colName}
	}
}

// Mean computes the arithmetic mean of the non-null values in a numeric column
type Mean struct {
	colName string
	sum     float64
	count   int64
}

// Accumulate adds a row to this Accumulator
func (a *Mean) Accumulate(row sifplan.Row) error {
	v, err := row.Get(a.colName)
	if err != nil {
		return err
	}
	switch n := v.(type) {
	case nil:
		return nil
	case int32:
		a.sum += float64(n)
	case int64:
		a.sum += float64(n)
	case float32:
		a.sum += float64(n)
	case float64:
		a.sum += n
	default:
		return fmt.Errorf("Cannot average non-numeric value %#v in column %s", v, a.colName)
	}
	a.count++
	return nil
}

// Merge merges another Accumulator into this one
func (a *Mean) Merge(o sifplan.Accumulator) error {
	ma, ok := o.(*Mean)
	if !ok {
		return fmt.Errorf("Incoming accumulator is not a Mean Accumulator")
	}
	a.sum += ma.sum
	a.count += ma.count
	return nil
}

// Result returns the mean as a float64, or nil if no values were accumulated
func (a *Mean) Result() interface{} {
	if a.count == 0 {
		return nil
	}
	return a.sum / float64(a.count)
}

// ToBytes serializes this Accumulator
func (a *Mean) ToBytes() ([]byte, error) {
	buff := make([]byte, 16)
	binary.LittleEndian.PutUint64(buff, math.Float64bits(a.sum))
	binary.LittleEndian.PutUint64(buff[8:], uint64(a.count))
	return buff, nil
}

// FromBytes produce a new Accumulator from serialized data
func (a *Mean) FromBytes(buff []byte) (sifplan.Accumulator, error) {
	if len(buff) != 16 {
		return nil, fmt.Errorf("Mean Accumulator requires 16 bytes, got %d", len(buff))
	}
	return &Mean{
		colName: a.colName,
		sum:     math.Float64frombits(binary.LittleEndian.Uint64(buff)),
		count:   int64(binary.LittleEndian.Uint64(buff[8:])),
	}, nil
}
