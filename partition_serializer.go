package sifplan

import "io"

// A PartitionSerializer writes Partitions to a byte stream, such as a shuffle
// transport or a spill file, and reads them back against a known Schema
type PartitionSerializer interface {
	Serialize(w io.Writer, part Partition) error               // Serialize encodes and compresses one Partition onto w
	Deserialize(r io.Reader, schema Schema) (Partition, error) // Deserialize decodes one Partition from r, whose rows conform to schema
}
