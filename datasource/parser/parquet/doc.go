// Package parquet parses Apache Parquet DataSources using https://github.com/parquet-go/parquet-go.
// Schema column names identify leaf columns of the file, with nested fields separated by '.'.
package parquet
