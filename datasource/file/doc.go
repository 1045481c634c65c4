// Package file provides a DataSource which reads data from files matching one or more
// glob patterns (including ** for recursive matches) on an afero filesystem.
// Each file is loaded in its entirety by a single PartitionLoader, so it is favourable
// if individual files represent roughly equal-sized divisions of data.
package file
