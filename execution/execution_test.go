package execution

import (
	"context"
	"math/rand"
	"net"
	"strings"
	"testing"

	"github.com/go-sif/sifplan"
	"github.com/go-sif/sifplan/accumulators"
	"github.com/go-sif/sifplan/errors"
	"github.com/go-sif/sifplan/expr"
	"github.com/go-sif/sifplan/internal/iterator"
	"github.com/go-sif/sifplan/internal/partition"
	"github.com/go-sif/sifplan/logging"
	"github.com/go-sif/sifplan/operations"
	"github.com/go-sif/sifplan/plan"
	"github.com/go-sif/sifplan/plan/planspec"
	"github.com/go-sif/sifplan/schema"
	"github.com/go-sif/sifplan/shuffle"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func kvSchema() sifplan.Schema {
	return schema.Of(
		schema.Col("k", &sifplan.VarStringColumnType{}),
		schema.Col("v", &sifplan.Int64ColumnType{}),
	)
}

func kvParts(t *testing.T, rows ...[][]interface{}) []sifplan.Partition {
	parts := make([]sifplan.Partition, len(rows))
	for i, r := range rows {
		part, err := partition.FromRows(kvSchema(), r...)
		require.Nil(t, err)
		parts[i] = part
	}
	return parts
}

func countRows(parts []sifplan.Partition) int {
	total := 0
	for _, p := range parts {
		total += p.GetNumRows()
	}
	return total
}

func testConf(t *testing.T) *Config {
	return &Config{Parallelism: 3, InMemoryPartitions: 2, TempDir: t.TempDir()}
}

func TestOpenFilterLimit(t *testing.T) {
	scan, err := plan.InMemoryScan(kvSchema(), kvParts(t,
		[][]interface{}{{"a", 1}, {"b", 2}, {"c", 3}},
		[][]interface{}{{"d", 4}, {"e", 5}},
		[][]interface{}{{"f", 6}},
	)...)
	require.Nil(t, err)
	filter, err := plan.Filter(scan, expr.Gt("v", 1), "v > 1")
	require.Nil(t, err)
	limit, err := plan.Limit(filter, 3)
	require.Nil(t, err)
	p, err := plan.New(limit)
	require.Nil(t, err)

	it, err := Open(context.Background(), p, p.Root(), nil)
	require.Nil(t, err)
	parts, err := iterator.Drain(context.Background(), it)
	require.Nil(t, err)
	require.Equal(t, 3, countRows(parts))
	require.Equal(t, []interface{}{"b", int64(2)}, parts[0].GetRow(0).Values())
	require.Len(t, parts, 2)
	require.Equal(t, 2, parts[0].GetNumRows())
	require.Equal(t, 1, parts[1].GetNumRows())
	require.Equal(t, []interface{}{"d", int64(4)}, parts[1].GetRow(0).Values())

	foreign, err := plan.InMemoryScan(kvSchema())
	require.Nil(t, err)
	_, err = Open(context.Background(), p, foreign, nil)
	require.IsType(t, &errors.ConfigurationError{}, err)
}

func TestOpenFanoutRequiresFanoutFor(t *testing.T) {
	scan, err := plan.InMemoryScan(kvSchema(), kvParts(t, [][]interface{}{{"a", 1}, {"b", 2}})...)
	require.Nil(t, err)
	rm, err := plan.Repartition(scan, plan.FanoutByHashKind, 2, "k")
	require.Nil(t, err)
	p, err := plan.New(rm)
	require.Nil(t, err)

	_, err = Open(context.Background(), p, rm.Fanout(), nil)
	require.IsType(t, &errors.ConfigurationError{}, err)

	fanout, err := FanoutFor(context.Background(), p, rm.Fanout(), nil)
	require.Nil(t, err)
	require.Equal(t, 2, fanout.NumBuckets())
	buckets, err := fanout.NextFanout(context.Background())
	require.Nil(t, err)
	require.Len(t, buckets, 2)
	require.Equal(t, 2, countRows(buckets))
	require.Nil(t, fanout.Close())
}

func bucketsByKey(t *testing.T, parts []sifplan.Partition) map[string]int {
	buckets := make(map[string]int)
	for b, part := range parts {
		require.Nil(t, part.ForEachRow(func(row sifplan.Row) error {
			k, err := row.GetVarString("k")
			if prev, seen := buckets[k]; seen {
				require.Equal(t, prev, b, "key %s is split across buckets", k)
			}
			buckets[k] = b
			return err
		}))
	}
	return buckets
}

func TestInlineShuffle(t *testing.T) {
	scan, err := plan.InMemoryScan(kvSchema(), kvParts(t,
		[][]interface{}{{"x", 1}, {"y", 2}},
		[][]interface{}{{"x", 3}, {"z", 4}},
	)...)
	require.Nil(t, err)
	rm, err := plan.Repartition(scan, plan.FanoutByHashKind, 3, "k")
	require.Nil(t, err)
	p, err := plan.New(rm)
	require.Nil(t, err)

	it, err := Open(context.Background(), p, rm, &Env{Logger: logging.Nop()})
	require.Nil(t, err)
	parts, err := iterator.Drain(context.Background(), it)
	require.Nil(t, err)
	require.Len(t, parts, 3)
	require.Equal(t, 4, countRows(parts))
	require.Len(t, bucketsByKey(t, parts), 3)
}

func TestExchangeBucketMismatch(t *testing.T) {
	scan, err := plan.InMemoryScan(kvSchema())
	require.Nil(t, err)
	rm, err := plan.Repartition(scan, plan.FanoutRandomKind, 2)
	require.Nil(t, err)
	p, err := plan.New(rm)
	require.Nil(t, err)
	id, ok := p.ID(rm)
	require.True(t, ok)
	ex, err := shuffle.NewMemoryExchange(5, 1)
	require.Nil(t, err)
	_, err = Open(context.Background(), p, rm, &Env{Exchanges: map[int]shuffle.Exchange{id: ex}})
	require.IsType(t, &errors.ConfigurationError{}, err)
}

func TestLocalExecutorTwoPhaseAggregate(t *testing.T) {
	scan, err := plan.InMemoryScan(kvSchema(), kvParts(t,
		[][]interface{}{{"x", 1}},
		[][]interface{}{{"x", 2}, {"y", 5}},
	)...)
	require.Nil(t, err)
	agg, err := plan.TwoPhaseAggregate(scan, []string{"k"}, []accumulators.Func{{Op: accumulators.SumOp, Column: "v"}}, 4)
	require.Nil(t, err)
	p, err := plan.New(agg)
	require.Nil(t, err)

	reg := prometheus.NewRegistry()
	exec, err := NewLocalExecutor(p, testConf(t), logging.Nop(), reg)
	require.Nil(t, err)
	defer exec.Close()
	parts, err := exec.Collect(context.Background())
	require.Nil(t, err)
	require.Len(t, parts, 1)

	sums := make(map[string]interface{})
	require.Nil(t, parts[0].ForEachRow(func(row sifplan.Row) error {
		k, err := row.GetVarString("k")
		sums[k] = row.Value(1)
		return err
	}))
	require.Equal(t, map[string]interface{}{"x": int64(3), "y": int64(5)}, sums)

	// results are handed over once
	again, err := exec.Collect(context.Background())
	require.Nil(t, err)
	require.Empty(t, again)

	rootID, _ := p.ID(agg)
	require.Equal(t, int64(2), exec.Stats().GetNumRowsProcessed(rootID))
	require.Len(t, exec.Stats().GetStageRuntimes(), 2)
	count, err := testutil.GatherAndCount(reg, "sifplan_operator_rows_total")
	require.Nil(t, err)
	require.True(t, count > 0)
	require.NotEmpty(t, exec.ID())
}

func TestLocalExecutorSortSpills(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	rows := make([][][]interface{}, 10)
	total := 0
	for i := range rows {
		rows[i] = make([][]interface{}, 25)
		for j := range rows[i] {
			rows[i][j] = []interface{}{"k", r.Intn(1000)}
			total++
		}
	}
	scan, err := plan.InMemoryScan(kvSchema(), kvParts(t, rows...)...)
	require.Nil(t, err)
	sorted, err := plan.Sort(scan, []operations.SortKey{{Column: "v"}}, 4, 32)
	require.Nil(t, err)
	p, err := plan.New(sorted)
	require.Nil(t, err)

	exec, err := NewLocalExecutor(p, testConf(t), nil, nil)
	require.Nil(t, err)
	defer exec.Close()
	parts, err := exec.Collect(context.Background())
	require.Nil(t, err)
	require.Len(t, parts, 4)
	require.Equal(t, total, countRows(parts))
	last := int64(-1)
	for _, part := range parts {
		require.Nil(t, part.ForEachRow(func(row sifplan.Row) error {
			v, err := row.GetInt64("v")
			require.True(t, v >= last)
			last = v
			return err
		}))
	}
}

func TestLocalExecutorRepartitionThenLimit(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.Nil(t, afero.WriteFile(fs, "/data/a.csv", []byte("k,v\nx,1\ny,2\nx,3\n"), 0644))
	require.Nil(t, afero.WriteFile(fs, "/data/nested/b.csv", []byte("k,v\nz,4\ny,\nx,6\n"), 0644))
	doc := `
kind: coalesce
count: 1
child:
  kind: repartition
  scheme: fanout_by_hash
  columns: [k]
  buckets: 2
  child:
    kind: csv_scan
    paths: ["/data/**/*.csv"]
    header_lines: 1
    where: {column: v, op: not_null}
    schema: [{name: k, type: varstring}, {name: v, type: int64}]
`
	p, err := planspec.Decode(strings.NewReader(doc), planspec.Options{Fs: fs, PartitionSize: 2})
	require.Nil(t, err)
	exec, err := NewLocalExecutor(p, testConf(t), nil, nil)
	require.Nil(t, err)
	defer exec.Close()
	parts, err := exec.Collect(context.Background())
	require.Nil(t, err)
	require.Len(t, parts, 1)
	require.Equal(t, 5, parts[0].GetNumRows())
}

func TestLocalExecutorErrors(t *testing.T) {
	scan, err := plan.InMemoryScan(kvSchema(), kvParts(t, [][]interface{}{{"x", 1}})...)
	require.Nil(t, err)
	filter, err := plan.Filter(scan, expr.Eq("v", "not a number"), "v = 'not a number'")
	require.Nil(t, err)
	rm, err := plan.Repartition(filter, plan.FanoutRandomKind, 2)
	require.Nil(t, err)
	p, err := plan.New(rm)
	require.Nil(t, err)

	exec, err := NewLocalExecutor(p, testConf(t), nil, nil)
	require.Nil(t, err)
	defer exec.Close()
	_, err = exec.Collect(context.Background())
	require.IsType(t, &errors.EvaluationError{}, err)
	require.Equal(t, err, exec.Run(context.Background()))

	_, err = NewLocalExecutor(nil, nil, nil, nil)
	require.IsType(t, &errors.ConfigurationError{}, err)
	_, err = NewLocalExecutor(p, &Config{Parallelism: -1}, nil, nil)
	require.IsType(t, &errors.ConfigurationError{}, err)
}

func TestLocalExecutorCancelled(t *testing.T) {
	scan, err := plan.InMemoryScan(kvSchema(), kvParts(t, [][]interface{}{{"x", 1}})...)
	require.Nil(t, err)
	p, err := plan.New(scan)
	require.Nil(t, err)
	exec, err := NewLocalExecutor(p, testConf(t), nil, nil)
	require.Nil(t, err)
	defer exec.Close()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = exec.Collect(ctx)
	require.Equal(t, context.Canceled, err)
}

func aggregatePlan(t *testing.T) *plan.Plan {
	scan, err := plan.InMemoryScan(kvSchema(), kvParts(t,
		[][]interface{}{{"x", 1}},
		[][]interface{}{{"x", 2}, {"y", 5}},
	)...)
	require.Nil(t, err)
	agg, err := plan.TwoPhaseAggregate(scan, []string{"k"}, []accumulators.Func{{Op: accumulators.SumOp, Column: "v", As: "v"}}, 2)
	require.Nil(t, err)
	p, err := plan.New(agg)
	require.Nil(t, err)
	return p
}

func TestLocalExecutorRemoteExchange(t *testing.T) {
	p := aggregatePlan(t)
	spec := p.Stages()[0].Shuffle
	require.NotNil(t, spec)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.Nil(t, err)
	conf := testConf(t)
	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() {
		served <- ServeExchange(ctx, lis, p, spec.ReduceID, conf.Parallelism, logging.Nop())
	}()

	conf.RemoteExchanges = map[int]string{spec.ReduceID: lis.Addr().String()}
	exec, err := NewLocalExecutor(p, conf, nil, nil)
	require.Nil(t, err)
	parts, err := exec.Collect(context.Background())
	require.Nil(t, err)
	require.Nil(t, exec.Close())
	cancel()
	require.Nil(t, <-served)

	sums := make(map[string]interface{})
	for _, part := range parts {
		require.Nil(t, part.ForEachRow(func(row sifplan.Row) error {
			k, err := row.GetVarString("k")
			sums[k] = row.Value(1)
			return err
		}))
	}
	require.Equal(t, map[string]interface{}{"x": int64(3), "y": int64(5)}, sums)
}

func TestRemoteExchangeConfiguration(t *testing.T) {
	p := aggregatePlan(t)
	scanID, ok := p.ID(p.Nodes()[0])
	require.True(t, ok)

	conf := testConf(t)
	conf.RemoteExchanges = map[int]string{scanID: "127.0.0.1:1"}
	_, err := NewLocalExecutor(p, conf, nil, nil)
	require.IsType(t, &errors.ConfigurationError{}, err)

	conf.RemoteExchanges = map[int]string{p.Stages()[0].Shuffle.ReduceID: ""}
	_, err = NewLocalExecutor(p, conf, nil, nil)
	require.IsType(t, &errors.ConfigurationError{}, err)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.Nil(t, err)
	defer lis.Close()
	err = ServeExchange(context.Background(), lis, p, scanID, 1, nil)
	require.IsType(t, &errors.ConfigurationError{}, err)
}
