package operations

import "github.com/go-sif/sifplan"

// A Spill parks Partitions which an operator must hold until its input is exhausted.
// Each sequence number is Put once and Taken once.
type Spill interface {
	Put(seq int, part sifplan.Partition) error
	Take(seq int) (sifplan.Partition, error)
}

// memorySpill holds parked Partitions in memory
type memorySpill map[int]sifplan.Partition

func (m memorySpill) Put(seq int, part sifplan.Partition) error {
	m[seq] = part
	return nil
}

func (m memorySpill) Take(seq int) (sifplan.Partition, error) {
	part := m[seq]
	delete(m, seq)
	return part, nil
}
