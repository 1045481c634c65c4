package main

import (
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"

	"github.com/go-kit/log/level"
	"github.com/go-sif/sifplan"
	"github.com/go-sif/sifplan/execution"
	"github.com/go-sif/sifplan/logging"
	"github.com/go-sif/sifplan/plan"
	"github.com/go-sif/sifplan/plan/planspec"
	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func newRootCmd(fs afero.Fs, stdout io.Writer, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "sifplan",
		Short:         "Execute physical dataframe plans",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.AddCommand(newRunCmd(fs), newExplainCmd(fs), newServeExchangeCmd(fs))
	return root
}

func newRunCmd(fs afero.Fs) *cobra.Command {
	var planPath, configPath string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute a plan, writing every resulting row to stdout as a JSON object",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := execution.LoadConfig(fs, configPath)
			if err != nil {
				return err
			}
			logger, err := logging.New(cmd.ErrOrStderr(), conf.Log)
			if err != nil {
				return err
			}
			p, err := planspec.DecodeFile(planPath, planspec.Options{
				Fs:             fs,
				PartitionSize:  conf.PartitionSize,
				SortSampleSize: conf.SortSampleSize,
			})
			if err != nil {
				return err
			}
			exec, err := execution.NewLocalExecutor(p, conf, logger, prometheus.NewRegistry())
			if err != nil {
				return err
			}
			defer exec.Close()
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			parts, err := exec.Collect(ctx)
			if err != nil {
				return err
			}
			rows, err := writeRows(cmd.OutOrStdout(), parts)
			level.Info(logger).Log("msg", "wrote results", "rows", rows, "partitions", len(parts))
			return err
		},
	}
	cmd.Flags().StringVarP(&planPath, "plan", "p", "", "path to a YAML plan")
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a YAML execution config")
	cmd.MarkFlagRequired("plan")
	return cmd
}

func newExplainCmd(fs afero.Fs) *cobra.Command {
	var planPath string
	cmd := &cobra.Command{
		Use:   "explain",
		Short: "Print the nodes and stages of a plan",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := planspec.DecodeFile(planPath, planspec.Options{Fs: fs})
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), plan.Explain(p))
			return err
		},
	}
	cmd.Flags().StringVarP(&planPath, "plan", "p", "", "path to a YAML plan")
	cmd.MarkFlagRequired("plan")
	return cmd
}

func newServeExchangeCmd(fs afero.Fs) *cobra.Command {
	var planPath, configPath, listen string
	var node, producers int
	cmd := &cobra.Command{
		Use:   "serve-exchange",
		Short: "Serve the shuffle Exchange feeding one ReduceMerge of a plan over gRPC",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := execution.LoadConfig(fs, configPath)
			if err != nil {
				return err
			}
			logger, err := logging.New(cmd.ErrOrStderr(), conf.Log)
			if err != nil {
				return err
			}
			p, err := planspec.DecodeFile(planPath, planspec.Options{
				Fs:             fs,
				PartitionSize:  conf.PartitionSize,
				SortSampleSize: conf.SortSampleSize,
			})
			if err != nil {
				return err
			}
			if producers <= 0 {
				producers = conf.Parallelism
			}
			lis, err := net.Listen("tcp", listen)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return execution.ServeExchange(ctx, lis, p, node, producers, logger)
		},
	}
	cmd.Flags().StringVarP(&planPath, "plan", "p", "", "path to a YAML plan")
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a YAML execution config")
	cmd.Flags().StringVarP(&listen, "listen", "l", ":7070", "address to listen on")
	cmd.Flags().IntVarP(&node, "node", "n", -1, "id of the ReduceMerge node, as printed by explain")
	cmd.Flags().IntVar(&producers, "producers", 0, "number of producers which will send to the exchange. Defaults to the configured parallelism.")
	cmd.MarkFlagRequired("plan")
	cmd.MarkFlagRequired("node")
	return cmd
}

// writeRows encodes every Row of parts as a JSON object on its own line, keyed by column name
func writeRows(w io.Writer, parts []sifplan.Partition) (int, error) {
	stream := json.BorrowStream(w)
	defer json.ReturnStream(stream)
	count := 0
	for _, part := range parts {
		err := part.ForEachRow(func(row sifplan.Row) error {
			obj := make(map[string]interface{}, row.Schema().NumColumns())
			for i, name := range row.Schema().ColumnNames() {
				obj[name] = row.Value(i)
			}
			stream.WriteVal(obj)
			stream.WriteRaw("\n")
			count++
			return stream.Flush()
		})
		if err != nil {
			return count, err
		}
	}
	return count, stream.Error
}
