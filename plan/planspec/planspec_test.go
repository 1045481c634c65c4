package planspec

import (
	"context"
	"strings"
	"testing"

	"github.com/go-sif/sifplan"
	"github.com/go-sif/sifplan/errors"
	"github.com/go-sif/sifplan/internal/partition"
	"github.com/go-sif/sifplan/plan"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

const aggregatePlan = `
kind: sort
keys:
  - {column: k, descending: true}
count: 2
child:
  kind: two_phase_aggregate
  group_by: [k]
  aggregates:
    - {op: sum, column: v, as: total}
    - {op: count}
  buckets: 4
  child:
    kind: csv_scan
    paths: ["data/**/*.csv"]
    header_lines: 1
    delimiter: "|"
    where: {and: [{column: v, op: gte, value: 0}, {not: {column: k, op: is_null}}]}
    schema:
      - {name: k, type: varstring}
      - {name: v, type: int64}
      - {name: at, type: time, format: "2006-01-02"}
`

func TestDecodeAggregatePlan(t *testing.T) {
	p, err := Decode(strings.NewReader(aggregatePlan), Options{Fs: afero.NewMemMapFs(), PartitionSize: 32})
	require.Nil(t, err)
	kinds := make([]plan.Kind, 0)
	for _, n := range p.Nodes() {
		kinds = append(kinds, n.Kind())
	}
	require.Equal(t, []plan.Kind{plan.CsvScanKind, plan.AggregateKind, plan.FanoutByHashKind, plan.ReduceMergeKind, plan.AggregateKind, plan.SortKind}, kinds)
	require.Equal(t, []string{"k", "total", "count"}, p.Root().Schema().ColumnNames())
	require.Len(t, p.Stages(), 2)

	scan := p.Nodes()[0].(*plan.ScanNode)
	require.Equal(t, "(v gte 0 and not k is_null)", scan.Descriptor().PredicateText)
	require.NotNil(t, scan.Descriptor().Predicate)
	require.Equal(t, 32, scan.Parser().PartitionSize())
	require.Contains(t, plan.Explain(p), "csv_scan(data/**/*.csv")
}

func TestDecodeInMemoryPlan(t *testing.T) {
	doc := `
kind: limit
limit: 3
child:
  kind: filter
  predicate: {column: a, op: gt, value: 1}
  child:
    kind: in_memory_scan
    schema: [{name: a, type: int32}, {name: b, type: string}]
    partitions:
      - [[1, "one"], [2, "two"]]
      - [[3, "three"], [4, null]]
`
	p, err := Decode(strings.NewReader(doc), Options{})
	require.Nil(t, err)
	scan := p.Nodes()[0].(*plan.ScanNode)
	pmap, err := scan.Source().Analyze()
	require.Nil(t, err)
	require.True(t, pmap.HasNext())
	it, err := pmap.Next().Load(nil, scan.Schema())
	require.Nil(t, err)
	var parts []sifplan.Partition
	for it.HasNextPartition() {
		part, err := it.NextPartition(context.Background())
		if errors.IsNoMorePartitions(err) {
			break
		}
		require.Nil(t, err)
		parts = append(parts, part)
	}
	require.Len(t, parts, 2)
	require.Equal(t, []interface{}{int32(4), nil}, parts[1].GetRow(1).Values())

	filter := p.Nodes()[1].(*plan.FilterNode)
	row := partition.CreateRow([]interface{}{int32(2), "two"}, scan.Schema())
	ok, err := filter.Predicate()(row)
	require.Nil(t, err)
	require.True(t, ok)
	require.Equal(t, "filter(a gt 1)", filter.String())
}

func TestDecodeErrors(t *testing.T) {
	cases := map[string]string{
		"unknown kind":      `kind: join`,
		"unknown field":     "kind: limit\nlimt: 3\nchild: {kind: in_memory_scan, schema: [{name: a, type: int64}]}",
		"missing child":     `kind: limit`,
		"scan with child":   "kind: csv_scan\npaths: [a.csv]\nschema: [{name: a, type: int64}]\nchild: {kind: in_memory_scan, schema: [{name: a, type: int64}]}",
		"bad column type":   "kind: csv_scan\npaths: [a.csv]\nschema: [{name: a, type: decimal}]",
		"no schema":         "kind: json_scan\npaths: [a.jsonl]",
		"bad delimiter":     "kind: csv_scan\npaths: [a.csv]\ndelimiter: ab\nschema: [{name: a, type: int64}]",
		"bad operator":      "kind: filter\npredicate: {column: a, op: like, value: x}\nchild: {kind: in_memory_scan, schema: [{name: a, type: int64}]}",
		"mixed predicate":   "kind: filter\npredicate: {column: a, op: eq, value: 1, not: {column: a, op: is_null}}\nchild: {kind: in_memory_scan, schema: [{name: a, type: int64}]}",
		"missing value":     "kind: filter\npredicate: {column: a, op: eq}\nchild: {kind: in_memory_scan, schema: [{name: a, type: int64}]}",
		"negative buckets":  "kind: reduce_merge\nchild: {kind: fanout_random, buckets: -1, child: {kind: in_memory_scan, schema: [{name: a, type: int64}]}}",
		"bad mode":          "kind: aggregate\nmode: final\ngroup_by: [a]\nchild: {kind: in_memory_scan, schema: [{name: a, type: int64}]}",
		"bad scheme":        "kind: repartition\nscheme: sort\nbuckets: 2\nchild: {kind: in_memory_scan, schema: [{name: a, type: int64}]}",
		"bad row":           "kind: in_memory_scan\nschema: [{name: a, type: int64}]\nrows: [[x]]",
		"unreceived fanout": "kind: fanout_random\nbuckets: 2\nchild: {kind: in_memory_scan, schema: [{name: a, type: int64}]}",
	}
	for name, doc := range cases {
		_, err := Decode(strings.NewReader(doc), Options{})
		require.NotNil(t, err, name)
		require.IsType(t, &errors.ConfigurationError{}, err, name)
	}
}

func TestDecodeSchemaMismatch(t *testing.T) {
	doc := "kind: project\ncolumns: [b]\nchild: {kind: in_memory_scan, schema: [{name: a, type: int64}]}"
	_, err := Decode(strings.NewReader(doc), Options{})
	require.IsType(t, &errors.SchemaMismatchError{}, err)
}

func TestDecodeFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	doc := "kind: repartition\nscheme: fanout_by_hash\ncolumns: [a]\nbuckets: 3\nchild: {kind: in_memory_scan, schema: [{name: a, type: int64}], rows: [[1], [2]]}"
	require.Nil(t, afero.WriteFile(fs, "/plans/p.yaml", []byte(doc), 0644))
	p, err := DecodeFile("/plans/p.yaml", Options{Fs: fs})
	require.Nil(t, err)
	require.Equal(t, plan.ReduceMergeKind, p.Root().Kind())
	require.Equal(t, 3, p.Stages()[0].Shuffle.NumBuckets)

	_, err = DecodeFile("/plans/missing.yaml", Options{Fs: fs})
	require.NotNil(t, err)
}
