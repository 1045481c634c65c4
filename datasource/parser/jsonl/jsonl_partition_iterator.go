package jsonl

import (
	"bufio"
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/go-sif/sifplan"
	"github.com/go-sif/sifplan/datasource"
	"github.com/go-sif/sifplan/errors"
	"github.com/tidwall/gjson"
)

type jsonlFilePartitionIterator struct {
	datasource.EndListeners
	parser  *Parser
	scanner *bufio.Scanner
	path    string
	line    int
	hasNext bool
	schema  sifplan.Schema
	lock    sync.Mutex
}

// HasNextPartition returns true iff this PartitionIterator can produce another Partition
func (jsonli *jsonlFilePartitionIterator) HasNextPartition() bool {
	jsonli.lock.Lock()
	defer jsonli.lock.Unlock()
	return jsonli.hasNext
}

// NextPartition returns the next Partition if one is available, or an error
func (jsonli *jsonlFilePartitionIterator) NextPartition(ctx context.Context) (sifplan.Partition, error) {
	jsonli.lock.Lock()
	if !jsonli.hasNext {
		jsonli.lock.Unlock()
		jsonli.Fire()
		return nil, errors.NoMorePartitionsError{}
	}
	part, err := jsonli.readPartition(ctx)
	if err != nil || !jsonli.hasNext {
		jsonli.hasNext = false
		jsonli.lock.Unlock()
		jsonli.Fire()
		return part, err
	}
	jsonli.lock.Unlock()
	return part, nil
}

func (jsonli *jsonlFilePartitionIterator) readPartition(ctx context.Context) (sifplan.Partition, error) {
	colNames := jsonli.schema.ColumnNames()
	colTypes := jsonli.schema.ColumnTypes()
	part := datasource.CreateBuildablePartition(jsonli.parser.PartitionSize(), jsonli.schema)
	values := make([]interface{}, len(colNames))
	for part.GetNumRows() < jsonli.parser.PartitionSize() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !jsonli.scanner.Scan() {
			if err := jsonli.scanner.Err(); err != nil {
				return nil, datasource.ReadError(jsonli.path, err)
			}
			jsonli.hasNext = false
			return part, nil
		}
		jsonli.line++
		rowString := jsonli.scanner.Text()
		if len(strings.TrimSpace(rowString)) == 0 {
			continue
		}
		if !gjson.Valid(rowString) {
			return nil, datasource.ReadError(jsonli.path, fmt.Errorf("line %d is not valid JSON", jsonli.line))
		}
		err := ParseJSONRow(colNames, colTypes, gjson.Parse(rowString), values)
		if err == nil {
			err = part.AppendRowValues(values)
		}
		if err != nil {
			return nil, datasource.ReadError(jsonli.path, fmt.Errorf("line %d: %w", jsonli.line, err))
		}
	}
	return part, nil
}

// Close stops parsing
func (jsonli *jsonlFilePartitionIterator) Close() error {
	jsonli.lock.Lock()
	jsonli.hasNext = false
	jsonli.lock.Unlock()
	jsonli.Fire()
	return nil
}
