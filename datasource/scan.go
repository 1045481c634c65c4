package datasource

import (
	"context"
	"sync"

	"github.com/go-sif/sifplan"
	"github.com/go-sif/sifplan/errors"
	"github.com/go-sif/sifplan/internal/iterator"
	"github.com/go-sif/sifplan/internal/partition"
	"github.com/go-sif/sifplan/internal/util"
)

// ScanOptions configures pushdowns applied by Scan
type ScanOptions struct {
	Columns   []string                // Columns projects the output to the named columns, in order. Defaults to every column.
	Predicate sifplan.FilterOperation // Predicate retains only matching rows. Defaults to none.
	Limit     int                     // Limit stops reading after this many rows have been produced. Defaults to 0 (no limit).
}

// OutputSchema returns the Schema of Partitions produced by a Scan of a source with the given Schema
func (o ScanOptions) OutputSchema(schema sifplan.Schema) (sifplan.Schema, error) {
	if len(o.Columns) == 0 {
		return schema, nil
	}
	return schema.Project(o.Columns...)
}

type scanIterator struct {
	iterator.EndListeners
	lock    sync.Mutex
	pmap    sifplan.PartitionMap
	parser  sifplan.DataSourceParser
	schema  sifplan.Schema
	output  sifplan.Schema
	opts    ScanOptions
	loader  sifplan.PartitionLoader
	current sifplan.PartitionIterator
	emitted int
	done    bool
}

// Scan produces a PartitionIterator over a DataSource. PartitionLoaders are loaded lazily
// and in order, so that at most one source file is open at a time. Partitions are
// produced in source order, restricted by opts. Read and decode failures are reported
// as SourceReadErrors, and predicate failures as EvaluationErrors.
func Scan(source sifplan.DataSource, parser sifplan.DataSourceParser, schema sifplan.Schema, opts ScanOptions) (sifplan.PartitionIterator, error) {
	output, err := opts.OutputSchema(schema)
	if err != nil {
		return nil, &errors.SchemaMismatchError{Op: "scan", Reason: err.Error()}
	}
	pmap, err := source.Analyze()
	if err != nil {
		return nil, err
	}
	return &scanIterator{
		pmap:   pmap,
		parser: parser,
		schema: schema,
		output: output,
		opts:   opts,
	}, nil
}

// HasNextPartition returns true iff this PartitionIterator can produce another Partition
func (si *scanIterator) HasNextPartition() bool {
	si.lock.Lock()
	defer si.lock.Unlock()
	return !si.done
}

func (si *scanIterator) closeCurrent() {
	if si.current != nil {
		si.current.Close()
		si.current = nil
	}
}

func (si *scanIterator) fail(err error) error {
	si.done = true
	si.closeCurrent()
	return err
}

func (si *scanIterator) loaderName() string {
	if si.loader == nil {
		return "<unknown>"
	}
	return si.loader.ToString()
}

// NextPartition returns the next Partition if one is available, or an error
func (si *scanIterator) NextPartition(ctx context.Context) (sifplan.Partition, error) {
	si.lock.Lock()
	for {
		if si.done {
			si.lock.Unlock()
			si.Fire()
			return nil, errors.NoMorePartitionsError{}
		}
		if err := ctx.Err(); err != nil {
			si.lock.Unlock()
			return nil, err
		}
		if si.current == nil {
			if !si.pmap.HasNext() {
				si.done = true
				continue
			}
			si.loader = si.pmap.Next()
			current, err := si.loader.Load(si.parser, si.schema)
			if err != nil {
				err = si.fail(ReadError(si.loaderName(), err))
				si.lock.Unlock()
				return nil, err
			}
			si.current = current
		}
		part, err := si.current.NextPartition(ctx)
		if errors.IsNoMorePartitions(err) {
			si.closeCurrent()
			continue
		} else if err != nil {
			err = si.fail(ReadError(si.loaderName(), err))
			si.lock.Unlock()
			return nil, err
		}
		if part.GetNumRows() == 0 {
			continue
		}
		result, err := si.restrict(part)
		if err != nil {
			err = si.fail(err)
			si.lock.Unlock()
			return nil, err
		}
		si.lock.Unlock()
		return result, nil
	}
}

// restrict applies the predicate, projection and limit to a freshly parsed Partition
func (si *scanIterator) restrict(part sifplan.Partition) (sifplan.Partition, error) {
	op := partition.Operable(part)
	var err error
	if si.opts.Predicate != nil {
		op, err = op.FilterRows(util.SafeFilterOperation(si.opts.Predicate))
		if err != nil {
			return nil, &errors.EvaluationError{Op: "scan", Err: err}
		}
	}
	if len(si.opts.Columns) > 0 {
		op, err = op.Project(si.output)
		if err != nil {
			return nil, &errors.SchemaMismatchError{Op: "scan", Reason: err.Error()}
		}
	}
	if si.opts.Limit > 0 {
		remaining := si.opts.Limit - si.emitted
		if op.GetNumRows() >= remaining {
			op, err = op.Slice(0, remaining)
			if err != nil {
				return nil, err
			}
			si.done = true
			si.closeCurrent()
		}
	}
	si.emitted += op.GetNumRows()
	return op, nil
}

// Close stops reading, closing any open source file
func (si *scanIterator) Close() error {
	si.lock.Lock()
	si.done = true
	si.closeCurrent()
	si.lock.Unlock()
	si.Fire()
	return nil
}
