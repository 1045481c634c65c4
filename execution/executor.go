package execution

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/go-sif/sifplan"
	"github.com/go-sif/sifplan/errors"
	"github.com/go-sif/sifplan/internal/arena"
	"github.com/go-sif/sifplan/internal/iterator"
	"github.com/go-sif/sifplan/plan"
	"github.com/go-sif/sifplan/shuffle"
	"github.com/go-sif/sifplan/stats"
	uuid "github.com/gofrs/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
)

// resultNode addresses final Partitions within the arena, apart from those of any plan node
const resultNode = -1

// LocalExecutor runs every Stage of a Plan in-process, in dependency order. A Stage
// ending in a shuffle is executed by Parallelism concurrent producers which share the
// Stage's pull tree, sending buckets to an Exchange read by the consuming ReduceMerge.
// The Partitions of the final Stage are parked in an arena until they are collected.
type LocalExecutor struct {
	id      string
	plan    *plan.Plan
	conf    *Config
	logger  log.Logger
	arena   *arena.Arena
	env     *Env
	lock    sync.Mutex
	ran     bool
	runErr  error
	results int // number of final Partitions in the arena
	stats   *stats.RunStatistics
	conns   []*grpc.ClientConn
}

// NewLocalExecutor prepares a Plan for execution. logger and reg may be nil, in which
// case nothing is logged and metrics are not registered.
func NewLocalExecutor(p *plan.Plan, conf *Config, logger log.Logger, reg prometheus.Registerer) (*LocalExecutor, error) {
	if p == nil {
		return nil, &errors.ConfigurationError{Op: "execution", Reason: "a plan is required"}
	}
	if conf == nil {
		conf = &Config{}
	}
	c := *conf
	if err := c.Validate(); err != nil {
		return nil, err
	}
	ensureDefaultConfigValues(&c)
	for node := range c.RemoteExchanges {
		if _, err := reduceMergeFor(p, node); err != nil {
			return nil, err
		}
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	id, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("failed to generate UUID: %w", err)
	}
	logger = log.With(logger, "run", id.String())
	a, err := arena.New(arena.Config{InMemoryPartitions: c.InMemoryPartitions, TempDir: c.TempDir}, logger)
	if err != nil {
		return nil, err
	}
	rs := &stats.RunStatistics{}
	return &LocalExecutor{
		id:     id.String(),
		plan:   p,
		conf:   &c,
		logger: logger,
		arena:  a,
		stats:  rs,
		env: &Env{
			Exchanges: make(map[int]shuffle.Exchange),
			Arena:     a,
			Stats:     rs,
			Collector: stats.NewCollector(reg),
			Logger:    logger,
		},
	}, nil
}

// ID returns the unique id of this execution
func (e *LocalExecutor) ID() string {
	return e.id
}

// Stats returns the statistics of this execution
func (e *LocalExecutor) Stats() *stats.RunStatistics {
	return e.stats
}

// Run executes the Plan, if it has not been executed already
func (e *LocalExecutor) Run(ctx context.Context) error {
	e.lock.Lock()
	defer e.lock.Unlock()
	if e.ran {
		return e.runErr
	}
	e.ran = true
	e.stats.Start()
	defer e.stats.Finish()
	level.Info(e.logger).Log("msg", "starting plan", "stages", len(e.plan.Stages()), "parallelism", e.conf.Parallelism)
	for _, s := range e.plan.Stages() {
		if e.runErr = e.runStage(ctx, s); e.runErr != nil {
			level.Error(e.logger).Log("msg", "stage failed", "stage", s.ID, "err", e.runErr)
			return e.runErr
		}
	}
	level.Info(e.logger).Log("msg", "finished plan", "partitions", e.results, "runtime", e.stats.GetRuntime())
	return nil
}

func (e *LocalExecutor) runStage(ctx context.Context, s *plan.Stage) error {
	rootID, _ := e.plan.ID(s.Root)
	level.Info(e.logger).Log("msg", "starting stage", "stage", s.ID, "node", rootID, "kind", s.Root.Kind())
	e.stats.StartStage(s.ID)
	var err error
	if s.Shuffle != nil {
		err = e.runShuffle(ctx, s.Shuffle)
	} else {
		err = e.runFinal(ctx, s.Root)
	}
	elapsed := e.stats.EndStage(s.ID)
	e.env.Collector.ObserveStage(elapsed)
	if err == nil {
		level.Info(e.logger).Log("msg", "finished stage", "stage", s.ID, "elapsed", elapsed.Round(time.Microsecond))
	}
	return err
}

// runShuffle drains a Fanout into the Exchange of its ReduceMerge, with concurrent producers
func (e *LocalExecutor) runShuffle(ctx context.Context, spec *plan.ShuffleSpec) error {
	ex, err := e.exchangeFor(spec)
	if err != nil {
		return err
	}
	e.env.Exchanges[spec.ReduceID] = ex
	fanout, err := FanoutFor(ctx, e.plan, spec.Fanout, e.env)
	if err != nil {
		return err
	}
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < e.conf.Parallelism; i++ {
		producer := i
		g.Go(func() error {
			return shuffle.Produce(gctx, fanout, ex, producer)
		})
	}
	if err := g.Wait(); err != nil {
		fanout.Close()
		return err
	}
	level.Debug(e.logger).Log("msg", "sealed shuffle", "node", spec.FanoutID, "kind", spec.Kind, "buckets", spec.NumBuckets, "producers", e.conf.Parallelism)
	return nil
}

func (e *LocalExecutor) exchangeFor(spec *plan.ShuffleSpec) (shuffle.Exchange, error) {
	addr, ok := e.conf.RemoteExchanges[spec.ReduceID]
	if !ok {
		return shuffle.NewMemoryExchange(spec.NumBuckets, e.conf.Parallelism)
	}
	ex, conn, err := dialExchange(addr, spec)
	if err != nil {
		return nil, err
	}
	e.conns = append(e.conns, conn)
	level.Debug(e.logger).Log("msg", "using remote exchange", "node", spec.ReduceID, "addr", addr)
	return ex, nil
}

// runFinal parks every Partition of the final Stage in the arena, in order
func (e *LocalExecutor) runFinal(ctx context.Context, root plan.Node) error {
	it, err := Open(ctx, e.plan, root, e.env)
	if err != nil {
		return err
	}
	defer it.Close()
	return iterator.ForEach(ctx, it, func(part sifplan.Partition) error {
		if err := e.arena.Put(arena.Key{Node: resultNode, Seq: e.results}, part); err != nil {
			return err
		}
		e.results++
		return nil
	})
}

// Collect runs the Plan if necessary, and returns the Partitions it produced, in order.
// Partitions are handed over to the caller, so Collect returns them only once.
func (e *LocalExecutor) Collect(ctx context.Context) ([]sifplan.Partition, error) {
	if err := e.Run(ctx); err != nil {
		return nil, err
	}
	e.lock.Lock()
	defer e.lock.Unlock()
	parts := make([]sifplan.Partition, 0, e.results)
	for seq := 0; seq < e.results; seq++ {
		part, err := e.arena.Take(arena.Key{Node: resultNode, Seq: seq})
		if err != nil {
			return nil, err
		}
		parts = append(parts, part)
	}
	e.results = 0
	return parts, nil
}

// Close releases every Partition held by this LocalExecutor
func (e *LocalExecutor) Close() error {
	e.lock.Lock()
	defer e.lock.Unlock()
	for _, conn := range e.conns {
		conn.Close()
	}
	e.conns = nil
	return e.arena.Close()
}
