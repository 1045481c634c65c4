package plan

import (
	"fmt"
	"strings"

	"github.com/go-sif/sifplan/errors"
	"github.com/go-sif/sifplan/operations"
)

// FanoutNode splits every Partition of its child into NumBuckets buckets. It is the
// sending side of a shuffle, and its parent must be a ReduceMergeNode.
type FanoutNode struct {
	base
	numBuckets int
	columns    []string             // FanoutByHashKind
	keys       []operations.SortKey // FanoutByRangeKind
	boundaries [][]interface{}      // FanoutByRangeKind
	router     operations.Router    // stateless routers are shared
}

// FanoutByHash produces a FanoutNode assigning Rows by the hash of key columns
func FanoutByHash(child Node, numBuckets int, columns ...string) (*FanoutNode, error) {
	if err := requireChild(FanoutByHashKind, child); err != nil {
		return nil, err
	}
	router, err := operations.NewHashRouter(child.Schema(), numBuckets, columns...)
	if err != nil {
		return nil, err
	}
	return &FanoutNode{
		base:       base{kind: FanoutByHashKind, child: child, schema: child.Schema()},
		numBuckets: numBuckets,
		columns:    columns,
		router:     router,
	}, nil
}

// FanoutByRange produces a FanoutNode assigning Rows by the interval of boundaries
// their sort key falls within, over len(boundaries)+1 buckets
func FanoutByRange(child Node, keys []operations.SortKey, boundaries [][]interface{}) (*FanoutNode, error) {
	if err := requireChild(FanoutByRangeKind, child); err != nil {
		return nil, err
	}
	router, err := operations.NewRangeRouter(child.Schema(), keys, boundaries)
	if err != nil {
		return nil, err
	}
	return &FanoutNode{
		base:       base{kind: FanoutByRangeKind, child: child, schema: child.Schema()},
		numBuckets: router.NumBuckets(),
		keys:       keys,
		boundaries: router.Boundaries(),
		router:     router,
	}, nil
}

// FanoutRandom produces a FanoutNode balancing Rows across buckets without regard to their values
func FanoutRandom(child Node, numBuckets int) (*FanoutNode, error) {
	if err := requireChild(FanoutRandomKind, child); err != nil {
		return nil, err
	}
	if _, err := operations.NewRandomRouter(numBuckets); err != nil {
		return nil, err
	}
	return &FanoutNode{
		base:       base{kind: FanoutRandomKind, child: child, schema: child.Schema()},
		numBuckets: numBuckets,
	}, nil
}

// NumBuckets returns the number of buckets produced by this FanoutNode
func (n *FanoutNode) NumBuckets() int {
	return n.numBuckets
}

// NewRouter returns a Router assigning Rows to buckets for one execution of this FanoutNode
func (n *FanoutNode) NewRouter() (operations.Router, error) {
	if n.router != nil {
		return n.router, nil
	}
	return operations.NewRandomRouter(n.numBuckets)
}

func (n *FanoutNode) String() string {
	switch n.kind {
	case FanoutByHashKind:
		return fmt.Sprintf("fanout_by_hash(%s) into %d", strings.Join(n.columns, ", "), n.numBuckets)
	case FanoutByRangeKind:
		keys := make([]string, len(n.keys))
		for i, k := range n.keys {
			keys[i] = k.String()
		}
		return fmt.Sprintf("fanout_by_range(%s) boundaries=%v", strings.Join(keys, ", "), n.boundaries)
	default:
		return fmt.Sprintf("fanout_random into %d", n.numBuckets)
	}
}

// ReduceMergeNode is the receiving side of a shuffle, producing one Partition per
// bucket of its FanoutNode child
type ReduceMergeNode struct {
	base
	fanout *FanoutNode
}

// ReduceMerge produces a ReduceMergeNode, whose child must be a FanoutNode
func ReduceMerge(child Node) (*ReduceMergeNode, error) {
	if err := requireChild(ReduceMergeKind, child); err != nil {
		return nil, err
	}
	fanout, ok := child.(*FanoutNode)
	if !ok {
		return nil, &errors.ConfigurationError{Op: ReduceMergeKind.String(), Reason: fmt.Sprintf("child must be a fanout, was %s", child.Kind())}
	}
	return &ReduceMergeNode{base: base{kind: ReduceMergeKind, child: child, schema: child.Schema()}, fanout: fanout}, nil
}

// Fanout returns the sending side of this shuffle
func (n *ReduceMergeNode) Fanout() *FanoutNode {
	return n.fanout
}

// NumBuckets returns the number of Partitions produced by this ReduceMergeNode
func (n *ReduceMergeNode) NumBuckets() int {
	return n.fanout.numBuckets
}

func (n *ReduceMergeNode) String() string {
	return fmt.Sprintf("reduce_merge(%d buckets)", n.fanout.numBuckets)
}
