package sifplan

// An Accumulator siphons Rows into a custom data structure representing the
// intermediate state of an aggregate function. Partial aggregation accumulates
// Rows within a Partition; merge aggregation combines Accumulators produced by
// partial aggregation, in any order, before finalizing them via Result.
type Accumulator interface {
	Accumulate(row Row) error                  // Accumulate adds a row to this Accumulator
	Merge(o Accumulator) error                 // Merge merges another Accumulator into this one. Must be associative and commutative.
	Result() interface{}                       // Result finalizes this Accumulator, producing a canonical value (or nil)
	ToBytes() ([]byte, error)                  // ToBytes serializes this Accumulator
	FromBytes(buf []byte) (Accumulator, error) // FromBytes produce a new Accumulator from serialized data
}
