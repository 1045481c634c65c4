// Package stats tracks runtime statistics for executing physical plans, both as
// in-process RunStatistics and as Prometheus metrics.
package stats
