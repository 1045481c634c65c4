package memory

import "github.com/go-sif/sifplan"

// PartitionMap produces a single PartitionLoader
type PartitionMap struct {
	source   *DataSource
	produced bool
}

// HasNext returns true iff there is another PartitionLoader remaining
func (pm *PartitionMap) HasNext() bool {
	return !pm.produced
}

// Next returns the PartitionLoader
func (pm *PartitionMap) Next() sifplan.PartitionLoader {
	pm.produced = true
	return &PartitionLoader{source: pm.source}
}
