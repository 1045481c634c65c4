package parquet

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/go-sif/sifplan"
	"github.com/go-sif/sifplan/datasource"
	"github.com/go-sif/sifplan/errors"
	pq "github.com/parquet-go/parquet-go"
)

type parquetFilePartitionIterator struct {
	datasource.EndListeners
	parser  *Parser
	reader  *pq.Reader
	path    string
	leaves  map[int]int
	hasNext bool
	schema  sifplan.Schema
	buf     []pq.Row
	lock    sync.Mutex
}

// HasNextPartition returns true iff this PartitionIterator can produce another Partition
func (pi *parquetFilePartitionIterator) HasNextPartition() bool {
	pi.lock.Lock()
	defer pi.lock.Unlock()
	return pi.hasNext
}

func (pi *parquetFilePartitionIterator) finish() error {
	pi.hasNext = false
	if pi.reader == nil {
		return nil
	}
	err := pi.reader.Close()
	pi.reader = nil
	return err
}

// NextPartition returns the next Partition if one is available, or an error
func (pi *parquetFilePartitionIterator) NextPartition(ctx context.Context) (sifplan.Partition, error) {
	pi.lock.Lock()
	if !pi.hasNext {
		pi.lock.Unlock()
		pi.Fire()
		return nil, errors.NoMorePartitionsError{}
	}
	part, err := pi.readPartition(ctx)
	if err != nil || !pi.hasNext {
		if cerr := pi.finish(); err == nil && cerr != nil {
			err = datasource.ReadError(pi.path, cerr)
		}
		pi.lock.Unlock()
		pi.Fire()
		return part, err
	}
	pi.lock.Unlock()
	return part, nil
}

func (pi *parquetFilePartitionIterator) readPartition(ctx context.Context) (sifplan.Partition, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	colTypes := pi.schema.ColumnTypes()
	part := datasource.CreateBuildablePartition(pi.parser.PartitionSize(), pi.schema)
	n, err := pi.reader.ReadRows(pi.buf)
	if err == io.EOF {
		pi.hasNext = false
	} else if err != nil {
		return nil, datasource.ReadError(pi.path, err)
	}
	values := make([]interface{}, len(colTypes))
	for r := 0; r < n; r++ {
		for i := range values {
			values[i] = nil
		}
		for _, v := range pi.buf[r] {
			idx, ok := pi.leaves[v.Column()]
			if !ok || v.IsNull() || values[idx] != nil {
				continue
			}
			val, err := toValue(v, colTypes[idx])
			if err != nil {
				return nil, datasource.ReadError(pi.path, fmt.Errorf("row %d: %w", r, err))
			}
			values[idx] = val
		}
		if err := part.AppendRowValues(values); err != nil {
			return nil, datasource.ReadError(pi.path, err)
		}
	}
	return part, nil
}

func toValue(v pq.Value, colType sifplan.ColumnType) (interface{}, error) {
	var raw interface{}
	switch v.Kind() {
	case pq.Boolean:
		raw = v.Boolean()
	case pq.Int32:
		raw = v.Int32()
	case pq.Int64:
		raw = v.Int64()
	case pq.Float:
		raw = v.Float()
	case pq.Double:
		raw = v.Double()
	case pq.ByteArray, pq.FixedLenByteArray:
		// values may reference the reader's internal buffers
		b := v.ByteArray()
		raw = append(make([]byte, 0, len(b)), b...)
	default:
		return nil, fmt.Errorf("unsupported parquet kind %s", v.Kind())
	}
	return colType.Coerce(raw)
}

// Close stops parsing and releases the underlying parquet reader
func (pi *parquetFilePartitionIterator) Close() error {
	pi.lock.Lock()
	err := pi.finish()
	pi.lock.Unlock()
	pi.Fire()
	return err
}
