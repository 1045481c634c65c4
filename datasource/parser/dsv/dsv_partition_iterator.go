package dsv

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sync"

	"github.com/go-sif/sifplan"
	"github.com/go-sif/sifplan/datasource"
	"github.com/go-sif/sifplan/errors"
)

type dsvFilePartitionIterator struct {
	datasource.EndListeners
	parser  *Parser
	reader  *csv.Reader
	path    string
	hasNext bool
	schema  sifplan.Schema
	lock    sync.Mutex
}

// HasNextPartition returns true iff this PartitionIterator can produce another Partition
func (dsvi *dsvFilePartitionIterator) HasNextPartition() bool {
	dsvi.lock.Lock()
	defer dsvi.lock.Unlock()
	return dsvi.hasNext
}

func (dsvi *dsvFilePartitionIterator) finish() {
	dsvi.hasNext = false
	dsvi.reader = nil
}

// NextPartition returns the next Partition if one is available, or an error
func (dsvi *dsvFilePartitionIterator) NextPartition(ctx context.Context) (sifplan.Partition, error) {
	dsvi.lock.Lock()
	if !dsvi.hasNext {
		dsvi.lock.Unlock()
		dsvi.Fire()
		return nil, errors.NoMorePartitionsError{}
	}
	part, err := dsvi.readPartition(ctx)
	if err != nil || !dsvi.hasNext {
		dsvi.finish()
		dsvi.lock.Unlock()
		dsvi.Fire()
		return part, err
	}
	dsvi.lock.Unlock()
	return part, nil
}

func (dsvi *dsvFilePartitionIterator) readPartition(ctx context.Context) (sifplan.Partition, error) {
	colNames := dsvi.schema.ColumnNames()
	colTypes := dsvi.schema.ColumnTypes()
	part := datasource.CreateBuildablePartition(dsvi.parser.PartitionSize(), dsvi.schema)
	values := make([]interface{}, len(colTypes))
	for part.GetNumRows() < dsvi.parser.PartitionSize() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		// grab another line from the file
		rowStrings, err := dsvi.reader.Read()
		if err == io.EOF {
			// the final partition may be empty, which the scan discards
			dsvi.hasNext = false
			return part, nil
		} else if err != nil {
			return nil, datasource.ReadError(dsvi.path, err)
		}
		line, _ := dsvi.reader.FieldPos(0)
		err = scanRow(dsvi.parser.conf, colNames, colTypes, rowStrings, values)
		if err != nil {
			return nil, datasource.ReadError(dsvi.path, fmt.Errorf("line %d: %w", line, err))
		}
		if err = part.AppendRowValues(values); err != nil {
			return nil, datasource.ReadError(dsvi.path, fmt.Errorf("line %d: %w", line, err))
		}
	}
	return part, nil
}

// Close stops parsing
func (dsvi *dsvFilePartitionIterator) Close() error {
	dsvi.lock.Lock()
	dsvi.finish()
	dsvi.lock.Unlock()
	dsvi.Fire()
	return nil
}
