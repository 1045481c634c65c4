package errors

import (
	"fmt"
)

// NilValueError occurs when a value in a Row is null
type NilValueError struct{ Name string }

// Error returns a textual representation of this NilValueError
func (e NilValueError) Error() string {
	return fmt.Sprintf("Value for column %s is nil", e.Name)
}

// MissingColumnError occurs when a Row or Schema does not contain a requested column
type MissingColumnError struct{ Name string }

// Error returns a textual representation of this MissingColumnError
func (e MissingColumnError) Error() string {
	return fmt.Sprintf("Schema does not contain column with name %s", e.Name)
}

// IncompatibleRowError occurs when a Row's width does not match an expected Schema
type IncompatibleRowError struct {
	Expected int
	Actual   int
}

// Error returns a textual representation of this IncompatibleRowError
func (e IncompatibleRowError) Error() string {
	return fmt.Sprintf("Row width %d is not compatible with Schema of width %d", e.Actual, e.Expected)
}

// NoMorePartitionsError occurs when there are no more partitions in a PartitionIterator
type NoMorePartitionsError struct{}

// Error returns a textual representation of this NoMorePartitionsError
func (e NoMorePartitionsError) Error() string {
	return "No more partitions"
}

// IsNoMorePartitions returns true iff err signals the end of a PartitionIterator
func IsNoMorePartitions(err error) bool {
	_, ok := err.(NoMorePartitionsError)
	if !ok {
		_, ok = err.(*NoMorePartitionsError)
	}
	return ok
}

// ConfigurationError occurs when a physical operator is constructed with invalid parameters
type ConfigurationError struct {
	Op     string
	Reason string
}

// Error returns a textual representation of this ConfigurationError
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: invalid configuration: %s", e.Op, e.Reason)
}

// SchemaMismatchError occurs when an operator's input Schema is incompatible with its configuration
type SchemaMismatchError struct {
	Op     string
	Reason string
}

// Error returns a textual representation of this SchemaMismatchError
func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("%s: schema mismatch: %s", e.Op, e.Reason)
}

// SourceReadError occurs when a scan fails to read or decode its source
type SourceReadError struct {
	Path string
	Err  error
}

// Error returns a textual representation of this SourceReadError
func (e *SourceReadError) Error() string {
	return fmt.Sprintf("unable to read source %s: %s", e.Path, e.Err)
}

// Unwrap returns the underlying cause of this SourceReadError
func (e *SourceReadError) Unwrap() error {
	return e.Err
}

// EvaluationError occurs when a predicate, key or aggregate function fails on row data
type EvaluationError struct {
	Op  string
	Err error
}

// Error returns a textual representation of this EvaluationError
func (e *EvaluationError) Error() string {
	return fmt.Sprintf("%s: evaluation failed: %s", e.Op, e.Err)
}

// Unwrap returns the underlying cause of this EvaluationError
func (e *EvaluationError) Unwrap() error {
	return e.Err
}

// BucketAlreadyCollectedError occurs when a shuffle bucket is collected more than once
type BucketAlreadyCollectedError struct{ Bucket int }

// Error returns a textual representation of this BucketAlreadyCollectedError
func (e BucketAlreadyCollectedError) Error() string {
	return fmt.Sprintf("Bucket %d has already been collected", e.Bucket)
}
