// Package execution translates physical plans into pull trees of PartitionIterators,
// and provides LocalExecutor, a reference scheduler running a whole Plan in-process.
package execution

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/go-sif/sifplan"
	"github.com/go-sif/sifplan/datasource"
	"github.com/go-sif/sifplan/errors"
	"github.com/go-sif/sifplan/internal/arena"
	"github.com/go-sif/sifplan/operations"
	"github.com/go-sif/sifplan/plan"
	"github.com/go-sif/sifplan/shuffle"
	"github.com/go-sif/sifplan/stats"
)

// Env supplies the resources shared by the operators of an opened Plan. Every field
// is optional.
type Env struct {
	Exchanges map[int]shuffle.Exchange // Exchanges feed ReduceMerge nodes, by node id. Shuffles without one run in-line.
	Arena     *arena.Arena             // Arena parks the input of Sorts. Defaults to memory.
	Stats     *stats.RunStatistics
	Collector *stats.Collector
	Logger    log.Logger
}

func (env *Env) logger() log.Logger {
	if env == nil || env.Logger == nil {
		return log.NewNopLogger()
	}
	return env.Logger
}

func (env *Env) spill(node int) operations.Spill {
	if env == nil || env.Arena == nil {
		return nil
	}
	return env.Arena.ForNode(node)
}

func (env *Env) exchange(node int) (shuffle.Exchange, bool) {
	if env == nil || env.Exchanges == nil {
		return nil, false
	}
	ex, ok := env.Exchanges[node]
	return ex, ok
}

func (env *Env) instrument(it sifplan.PartitionIterator, node int, kind plan.Kind) sifplan.PartitionIterator {
	if env == nil {
		return it
	}
	return stats.Instrument(it, node, kind.String(), env.Stats, env.Collector)
}

func nodeID(p *plan.Plan, n plan.Node) (int, error) {
	id, ok := p.ID(n)
	if !ok {
		return 0, &errors.ConfigurationError{Op: "execution", Reason: fmt.Sprintf("%s is not part of the plan", n)}
	}
	return id, nil
}

// Open builds the pull tree for the subtree of p rooted at n. A FanoutNode cannot be
// opened as a PartitionIterator; see FanoutFor.
func Open(ctx context.Context, p *plan.Plan, n plan.Node, env *Env) (sifplan.PartitionIterator, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	id, err := nodeID(p, n)
	if err != nil {
		return nil, err
	}
	var child sifplan.PartitionIterator
	if _, isReduce := n.(*plan.ReduceMergeNode); !isReduce && len(n.Children()) > 0 {
		if child, err = Open(ctx, p, n.Children()[0], env); err != nil {
			return nil, err
		}
	}
	var it sifplan.PartitionIterator
	switch node := n.(type) {
	case *plan.ScanNode:
		desc := node.Descriptor()
		it, err = datasource.Scan(node.Source(), node.Parser(), desc.Schema, desc.Options())
	case *plan.FilterNode:
		it = operations.Filter(child, node.Predicate())
	case *plan.ProjectNode:
		it = operations.Project(child, node.Schema())
	case *plan.LimitNode:
		it = operations.Limit(child, node.N())
	case *plan.SortNode:
		it, err = operations.Sort(child, node.Conf(int64(id), env.spill(id)))
	case *plan.AggregateNode:
		it = operations.Aggregate(child, node.Aggregator())
	case *plan.SplitNode:
		it, err = operations.Split(child, node.Schema(), node.M())
	case *plan.CoalesceNode:
		it, err = operations.Coalesce(child, node.Schema(), node.M())
	case *plan.ReduceMergeNode:
		var source operations.BucketSource
		if source, err = openBuckets(ctx, p, node, env); err == nil {
			it = operations.ReduceMerge(source, node.Schema())
		}
	case *plan.FanoutNode:
		err = &errors.ConfigurationError{Op: node.Kind().String(), Reason: "a fanout must be opened with FanoutFor"}
	default:
		err = &errors.ConfigurationError{Op: "execution", Reason: fmt.Sprintf("unsupported node %s", n)}
	}
	if err != nil {
		if child != nil {
			child.Close()
		}
		return nil, err
	}
	level.Debug(env.logger()).Log("msg", "opened node", "node", id, "kind", n.Kind())
	return env.instrument(it, id, n.Kind()), nil
}

// FanoutFor builds the pull tree for the subtree of p rooted at a FanoutNode
func FanoutFor(ctx context.Context, p *plan.Plan, n *plan.FanoutNode, env *Env) (sifplan.FanoutIterator, error) {
	if _, err := nodeID(p, n); err != nil {
		return nil, err
	}
	router, err := n.NewRouter()
	if err != nil {
		return nil, err
	}
	child, err := Open(ctx, p, n.Child(), env)
	if err != nil {
		return nil, err
	}
	return operations.Fanout(child, router), nil
}

func openBuckets(ctx context.Context, p *plan.Plan, n *plan.ReduceMergeNode, env *Env) (operations.BucketSource, error) {
	id, err := nodeID(p, n)
	if err != nil {
		return nil, err
	}
	if ex, ok := env.exchange(id); ok {
		if ex.NumBuckets() != n.NumBuckets() {
			return nil, &errors.ConfigurationError{Op: n.Kind().String(), Reason: fmt.Sprintf("exchange has %d buckets, expected %d", ex.NumBuckets(), n.NumBuckets())}
		}
		return ex, nil
	}
	fanout, err := FanoutFor(ctx, p, n.Fanout(), env)
	if err != nil {
		return nil, err
	}
	ex, err := shuffle.NewMemoryExchange(n.NumBuckets(), 1)
	if err != nil {
		fanout.Close()
		return nil, err
	}
	return &inlineShuffle{fanout: fanout, ex: ex, logger: env.logger(), node: id}, nil
}

// inlineShuffle runs a whole shuffle as a single producer, on the first Collect
type inlineShuffle struct {
	once   sync.Once
	fanout sifplan.FanoutIterator
	ex     *shuffle.MemoryExchange
	err    error
	logger log.Logger
	node   int
}

func (s *inlineShuffle) NumBuckets() int {
	return s.ex.NumBuckets()
}

func (s *inlineShuffle) Collect(ctx context.Context, bucket int) ([]sifplan.Partition, error) {
	s.once.Do(func() {
		s.err = shuffle.Produce(ctx, s.fanout, s.ex, 0)
		level.Debug(s.logger).Log("msg", "sealed in-line shuffle", "node", s.node, "buckets", s.ex.NumBuckets(), "err", s.err)
	})
	if s.err != nil {
		return nil, s.err
	}
	return s.ex.Collect(ctx, bucket)
}
