// Package operations implements the execution semantics of each physical operator as a
// pull-based sifplan.PartitionIterator (or sifplan.FanoutIterator) over a child stream.
// Operators never modify the Partitions they receive.
package operations
