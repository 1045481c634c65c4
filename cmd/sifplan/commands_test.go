package main

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

const testPlan = `
kind: two_phase_aggregate
group_by: [k]
aggregates: [{op: sum, column: v, as: total}]
buckets: 2
child:
  kind: json_scan
  paths: ["/data/*.jsonl"]
  schema: [{name: k, type: string}, {name: v, type: int}]
`

func testFs(t *testing.T) afero.Fs {
	fs := afero.NewMemMapFs()
	require.Nil(t, afero.WriteFile(fs, "/plan.yaml", []byte(testPlan), 0644))
	require.Nil(t, afero.WriteFile(fs, "/config.yaml", []byte("parallelism: 2\nlog: {level: error}\n"), 0644))
	require.Nil(t, afero.WriteFile(fs, "/data/a.jsonl", []byte(`{"k":"x","v":1}
{"k":"y","v":5}
{"k":"x","v":2}
`), 0644))
	return fs
}

func TestRunCommand(t *testing.T) {
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(testFs(t), &stdout, &stderr)
	cmd.SetArgs([]string{"run", "--plan", "/plan.yaml", "--config", "/config.yaml"})
	require.Nil(t, cmd.Execute())
	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	require.ElementsMatch(t, []string{`{"k":"x","total":3}`, `{"k":"y","total":5}`}, lines)
	require.Empty(t, stderr.String())
}

func TestExplainCommand(t *testing.T) {
	var stdout bytes.Buffer
	cmd := newRootCmd(testFs(t), &stdout, &stdout)
	cmd.SetArgs([]string{"explain", "-p", "/plan.yaml"})
	require.Nil(t, cmd.Execute())
	require.Contains(t, stdout.String(), "json_scan")
	require.Contains(t, stdout.String(), "stages:")
}

func TestRunCommandErrors(t *testing.T) {
	var stdout bytes.Buffer
	cmd := newRootCmd(testFs(t), &stdout, &stdout)
	cmd.SetArgs([]string{"run"})
	require.NotNil(t, cmd.Execute())

	cmd = newRootCmd(testFs(t), &stdout, &stdout)
	cmd.SetArgs([]string{"run", "--plan", "/missing.yaml"})
	require.NotNil(t, cmd.Execute())
}

func freeAddr(t *testing.T) string {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.Nil(t, err)
	addr := lis.Addr().String()
	require.Nil(t, lis.Close())
	return addr
}

func TestServeExchangeCommand(t *testing.T) {
	fs := testFs(t)
	addr := freeAddr(t)
	// json_scan #0, partial aggregate #1, fanout #2, reduce merge #3, merge aggregate #4
	conf := fmt.Sprintf("parallelism: 2\nlog: {level: error}\nremote_exchanges: {3: %q}\n", addr)
	require.Nil(t, afero.WriteFile(fs, "/remote.yaml", []byte(conf), 0644))

	var serverOut bytes.Buffer
	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() {
		server := newRootCmd(fs, &serverOut, &serverOut)
		server.SetArgs([]string{"serve-exchange", "-p", "/plan.yaml", "-c", "/config.yaml", "--node", "3", "--listen", addr})
		served <- server.ExecuteContext(ctx)
	}()

	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(fs, &stdout, &stderr)
	cmd.SetArgs([]string{"run", "--plan", "/plan.yaml", "--config", "/remote.yaml"})
	require.Nil(t, cmd.Execute())
	cancel()
	require.Nil(t, <-served)

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	require.ElementsMatch(t, []string{`{"k":"x","total":3}`, `{"k":"y","total":5}`}, lines)
}

func TestServeExchangeRejectsOtherNodes(t *testing.T) {
	var stdout bytes.Buffer
	cmd := newRootCmd(testFs(t), &stdout, &stdout)
	cmd.SetArgs([]string{"serve-exchange", "-p", "/plan.yaml", "--node", "0", "--listen", freeAddr(t)})
	require.NotNil(t, cmd.Execute())
}
