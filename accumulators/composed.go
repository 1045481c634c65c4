package accumulators

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/go-sif/sifplan"
)

// Compose returns a new Composed Accumulator
func Compose(faccs ...sifplan.AccumulatorFactory) sifplan.AccumulatorFactory {
	return func() sifplan.Accumulator {
		accs := make([]sifplan.Accumulator, len(faccs))
		for i, f := range faccs {
			accs[i] = f()
		}
		return &Composed{accs: accs}
	}
}

// FromParts builds a Composed Accumulator from existing Accumulators
func FromParts(accs ...sifplan.Accumulator) *Composed {
	return &Composed{accs: accs}
}

// Composed composes other Accumulators
type Composed struct {
	accs []sifplan.Accumulator
}

// GetResults returns the contained Accumulators, so that their results may be accessed
func (c *Composed) GetResults() []sifplan.Accumulator {
	return c.accs
}

// Accumulate adds a row to all contained Accumulators
func (c *Composed) Accumulate(row sifplan.Row) error {
	for _, a := range c.accs {
		err := a.Accumulate(row)
		if err != nil {
			return err
		}
	}
	return nil
}

// Merge merges another Composed Accumulator into this one, merging all contained Accumulators
func (c *Composed) Merge(o sifplan.Accumulator) error {
	compa, ok := o.(*Composed)
	if !ok {
		return fmt.Errorf("Incoming accumulator is not a Composed Accumulator")
	}
	if len(compa.accs) != len(c.accs) {
		return fmt.Errorf("Incoming Composed Accumulator has %d parts, expected %d", len(compa.accs), len(c.accs))
	}
	for i, a := range c.accs {
		err := a.Merge(compa.accs[i])
		if err != nil {
			return err
		}
	}
	return nil
}

// Result returns the results of all contained Accumulators
func (c *Composed) Result() interface{} {
	results := make([]interface{}, len(c.accs))
	for i, a := range c.accs {
		results[i] = a.Result()
	}
	return results
}

// ToBytes serializes this Accumulator
func (c *Composed) ToBytes() ([]byte, error) {
	result := make([][]byte, len(c.accs))
	for i, a := range c.accs {
		buff, err := a.ToBytes()
		if err != nil {
			return nil, err
		}
		result[i] = buff
	}
	buff := new(bytes.Buffer)
	e := gob.NewEncoder(buff)
	err := e.Encode(result)
	if err != nil {
		return nil, err
	}
	return buff.Bytes(), nil
}

// FromBytes produce a new Accumulator from serialized data
func (c *Composed) FromBytes(buff []byte) (sifplan.Accumulator, error) {
	var deser [][]byte
	d := gob.NewDecoder(bytes.NewBuffer(buff))
	err := d.Decode(&deser)
	if err != nil {
		return nil, err
	}
	if len(deser) != len(c.accs) {
		return nil, fmt.Errorf("Serialized Composed Accumulator has %d parts, expected %d", len(deser), len(c.accs))
	}
	newAcs := make([]sifplan.Accumulator, len(c.accs))
	for i, b := range deser {
		a, err := c.accs[i].FromBytes(b)
		if err != nil {
			return nil, err
		}
		newAcs[i] = a
	}
	return &Composed{accs: newAcs}, nil
}
