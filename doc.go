// Package sifplan contains the core components of sifplan, the physical-plan layer of a
// distributed dataframe engine. This root package defines the types which flow between
// physical operators (Schemas, Rows, Partitions, PartitionIterators, Accumulators) as well
// as the interfaces implemented when extending the engine with new DataSources or parsers.
package sifplan
