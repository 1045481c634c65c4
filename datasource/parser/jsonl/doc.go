// Package jsonl parses JSON Lines files into Partitions. Each line is one Row. Column
// names are evaluated as gjson paths (https://github.com/tidwall/gjson), so nested
// fields can be scanned directly with names such as "trip.distance".
package jsonl
