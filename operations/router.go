package operations

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"

	"github.com/go-sif/sifplan"
	"github.com/go-sif/sifplan/errors"
	"github.com/go-sif/sifplan/expr"
	iutil "github.com/go-sif/sifplan/internal/util"
)

// A Router assigns every Row of a Partition to a bucket in [0, NumBuckets())
type Router interface {
	NumBuckets() int
	Route(part sifplan.OperablePartition) ([]int, error)
	String() string
}

// SortKey orders Rows by one column
type SortKey struct {
	Column     string `yaml:"column"`
	Descending bool   `yaml:"descending"`
	NullsFirst bool   `yaml:"nulls_first"`
}

func (k SortKey) String() string {
	var sb strings.Builder
	sb.WriteString(k.Column)
	if k.Descending {
		sb.WriteString(" desc")
	} else {
		sb.WriteString(" asc")
	}
	if k.NullsFirst {
		sb.WriteString(" nulls first")
	} else {
		sb.WriteString(" nulls last")
	}
	return sb.String()
}

type boundKey struct {
	SortKey
	offset  int
	colType sifplan.ColumnType
}

// compare orders two values of this key in output order
func (k *boundKey) compare(a interface{}, b interface{}) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		if k.NullsFirst {
			return -1
		}
		return 1
	case b == nil:
		if k.NullsFirst {
			return 1
		}
		return -1
	}
	c := k.colType.Compare(a, b)
	if k.Descending {
		return -c
	}
	return c
}

// keyComparator extracts and orders composite sort keys
type keyComparator []*boundKey

func bindSortKeys(schema sifplan.Schema, keys []SortKey) (keyComparator, error) {
	if len(keys) == 0 {
		return nil, &errors.ConfigurationError{Op: "sort", Reason: "at least one sort key is required"}
	}
	result := make(keyComparator, len(keys))
	for i, k := range keys {
		col, err := schema.GetOffset(k.Column)
		if err != nil {
			return nil, &errors.SchemaMismatchError{Op: "sort", Reason: err.Error()}
		}
		if _, ok := col.Type().(*sifplan.AccumulatorColumnType); ok {
			return nil, &errors.SchemaMismatchError{Op: "sort", Reason: fmt.Sprintf("column %s of type %s cannot be ordered", k.Column, col.Type())}
		}
		result[i] = &boundKey{SortKey: k, offset: col.Index(), colType: col.Type()}
	}
	return result, nil
}

func (kc keyComparator) extract(row sifplan.Row) []interface{} {
	key := make([]interface{}, len(kc))
	for i, k := range kc {
		key[i] = row.Value(k.offset)
	}
	return key
}

func (kc keyComparator) compare(a []interface{}, b []interface{}) (c int) {
	for i, k := range kc {
		if c = k.compare(a[i], b[i]); c != 0 {
			return
		}
	}
	return
}

// safeCompare orders two keys, recovering from panics raised by mistyped values
func (kc keyComparator) safeCompare(a []interface{}, b []interface{}) (c int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("Compare Panic: %v (%v vs %v)", r, a, b)
		}
	}()
	c = kc.compare(a, b)
	return
}

// HashRouter assigns Rows to buckets by hashing the values of key columns with
// xxhash. Equal keys are always assigned to the same bucket, in every process.
type HashRouter struct {
	numBuckets int
	columns    []string
	keyFn      sifplan.KeyingOperation
}

// NewHashRouter validates key columns against a Schema and produces a HashRouter
func NewHashRouter(schema sifplan.Schema, numBuckets int, columns ...string) (*HashRouter, error) {
	if numBuckets <= 0 {
		return nil, &errors.ConfigurationError{Op: "fanout_by_hash", Reason: fmt.Sprintf("bucket count must be positive, was %d", numBuckets)}
	}
	if len(columns) == 0 {
		return nil, &errors.ConfigurationError{Op: "fanout_by_hash", Reason: "at least one key column is required"}
	}
	for _, c := range columns {
		if !schema.HasColumn(c) {
			return nil, &errors.SchemaMismatchError{Op: "fanout_by_hash", Reason: errors.MissingColumnError{Name: c}.Error()}
		}
	}
	return &HashRouter{
		numBuckets: numBuckets,
		columns:    columns,
		keyFn:      iutil.SafeKeyingOperation(expr.KeyColumns(columns...)),
	}, nil
}

// NumBuckets returns the number of buckets this Router assigns Rows to
func (r *HashRouter) NumBuckets() int {
	return r.numBuckets
}

// Route assigns each Row to hash(key) mod NumBuckets()
func (r *HashRouter) Route(part sifplan.OperablePartition) ([]int, error) {
	hashes, err := part.KeyRows(r.keyFn)
	if err != nil {
		return nil, iutil.FormatRowErrors(err)
	}
	buckets := make([]int, len(hashes))
	for i, h := range hashes {
		buckets[i] = int(h % uint64(r.numBuckets))
	}
	return buckets, nil
}

func (r *HashRouter) String() string {
	return fmt.Sprintf("hash(%s) mod %d", strings.Join(r.columns, ", "), r.numBuckets)
}

// RangeRouter assigns Rows to buckets by the ordered interval of boundaries their sort
// key falls within. Bucket i holds keys k with boundaries[i-1] < k <= boundaries[i], so
// a key equal to a boundary belongs to the lower bucket.
type RangeRouter struct {
	keys       []SortKey
	comparator keyComparator
	boundaries [][]interface{}
}

// NewRangeRouter produces a RangeRouter over len(boundaries)+1 buckets. Each boundary
// holds one value per sort key, and boundaries must be non-decreasing in key order.
func NewRangeRouter(schema sifplan.Schema, keys []SortKey, boundaries [][]interface{}) (*RangeRouter, error) {
	comparator, err := bindSortKeys(schema, keys)
	if err != nil {
		return nil, err
	}
	coerced := make([][]interface{}, len(boundaries))
	for i, b := range boundaries {
		if len(b) != len(keys) {
			return nil, &errors.ConfigurationError{Op: "fanout_by_range", Reason: fmt.Sprintf("boundary %d has %d values, expected %d", i, len(b), len(keys))}
		}
		coerced[i] = make([]interface{}, len(b))
		for j, v := range b {
			if v == nil {
				continue
			}
			cv, err := comparator[j].colType.Coerce(v)
			if err != nil {
				return nil, &errors.ConfigurationError{Op: "fanout_by_range", Reason: fmt.Sprintf("boundary %d: %s", i, err)}
			}
			coerced[i][j] = cv
		}
		if i > 0 && comparator.compare(coerced[i-1], coerced[i]) > 0 {
			return nil, &errors.ConfigurationError{Op: "fanout_by_range", Reason: fmt.Sprintf("boundary %d is out of order", i)}
		}
	}
	return &RangeRouter{keys: keys, comparator: comparator, boundaries: coerced}, nil
}

// NumBuckets returns the number of buckets this Router assigns Rows to
func (r *RangeRouter) NumBuckets() int {
	return len(r.boundaries) + 1
}

// Boundaries returns the boundaries of this Router, in order
func (r *RangeRouter) Boundaries() [][]interface{} {
	return r.boundaries
}

// Route assigns each Row to the bucket whose interval contains its key
func (r *RangeRouter) Route(part sifplan.OperablePartition) ([]int, error) {
	buckets := make([]int, part.GetNumRows())
	i := 0
	err := part.ForEachRow(func(row sifplan.Row) (err error) {
		key := r.comparator.extract(row)
		buckets[i] = sort.Search(len(r.boundaries), func(b int) bool {
			c, cerr := r.comparator.safeCompare(key, r.boundaries[b])
			if cerr != nil {
				err = cerr
			}
			return c <= 0
		})
		i++
		return
	})
	if err != nil {
		return nil, err
	}
	return buckets, nil
}

func (r *RangeRouter) String() string {
	keys := make([]string, len(r.keys))
	for i, k := range r.keys {
		keys[i] = k.String()
	}
	return fmt.Sprintf("range(%s) over %d boundaries", strings.Join(keys, ", "), len(r.boundaries))
}

// RandomRouter deals Rows to buckets round-robin, starting from a random bucket
type RandomRouter struct {
	lock       sync.Mutex
	numBuckets int
	next       int
}

// NewRandomRouter produces a RandomRouter
func NewRandomRouter(numBuckets int) (*RandomRouter, error) {
	if numBuckets <= 0 {
		return nil, &errors.ConfigurationError{Op: "fanout_random", Reason: fmt.Sprintf("bucket count must be positive, was %d", numBuckets)}
	}
	return &RandomRouter{numBuckets: numBuckets, next: rand.Intn(numBuckets)}, nil
}

// NumBuckets returns the number of buckets this Router assigns Rows to
func (r *RandomRouter) NumBuckets() int {
	return r.numBuckets
}

// Route assigns consecutive Rows to consecutive buckets
func (r *RandomRouter) Route(part sifplan.OperablePartition) ([]int, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	buckets := make([]int, part.GetNumRows())
	for i := range buckets {
		buckets[i] = r.next
		r.next = (r.next + 1) % r.numBuckets
	}
	return buckets, nil
}

func (r *RandomRouter) String() string {
	return fmt.Sprintf("round-robin over %d buckets", r.numBuckets)
}
