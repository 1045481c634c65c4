package accumulators

import (
	"encoding/binary"
	"fmt"

	"github.com/go-sif/sifplan"
)

// Counter returns a new Count Accumulator. If colName is empty, every row is
// counted; otherwise only rows with a non-null value in colName are counted.
func Counter(colName string) sifplan.AccumulatorFactory {
	return func() sifplan.Accumulator {
		return &Count{colName: colName}
	}
}

// Count counts records
type Count struct {
	colName string
	count   int64
}

// GetCount returns the row count from this Accumulator
func (a *Count) GetCount() int64 {
	return a.count
}

// Accumulate adds a row to this Accumulator
func (a *Count) Accumulate(row sifplan.Row) error {
	if len(a.colName) == 0 {
		a.count++
		return nil
	}
	v, err := row.Get(a.colName)
	if err != nil {
		return err
	}
	if v != nil {
		a.count++
	}
	return nil
}

// Merge merges another Accumulator into this one
func (a *Count) Merge(o sifplan.Accumulator) error {
	ca, ok := o.(*Count)
	if !ok {
		return fmt.Errorf("Incoming accumulator is not a Count Accumulator")
	}
	a.count += ca.count
	return nil
}

// Result returns the count as an int64
func (a *Count) Result() interface{} {
	return a.count
}

// ToBytes serializes this Accumulator
func (a *Count) ToBytes() ([]byte, error) {
	buff := make([]byte, 8)
	binary.LittleEndian.PutUint64(buff, uint64(a.count))
	return buff, nil
}

// FromBytes produce a new Accumulator from serialized data
func (a *Count) FromBytes(buff []byte) (sifplan.Accumulator, error) {
	if len(buff) != 8 {
		return nil, fmt.Errorf("Count Accumulator requires 8 bytes, got %d", len(buff))
	}
	return &Count{colName: a.colName, count: int64(binary.LittleEndian.Uint64(buff))}, nil
}
