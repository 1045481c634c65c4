package execution

import (
	"context"
	"fmt"
	"net"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/go-sif/sifplan/errors"
	"github.com/go-sif/sifplan/internal/partition"
	"github.com/go-sif/sifplan/plan"
	"github.com/go-sif/sifplan/shuffle"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func reduceMergeFor(p *plan.Plan, node int) (*plan.ReduceMergeNode, error) {
	n, ok := p.Node(node)
	if !ok {
		return nil, &errors.ConfigurationError{Op: "exchange", Reason: fmt.Sprintf("plan has no node #%d", node)}
	}
	rm, ok := n.(*plan.ReduceMergeNode)
	if !ok {
		return nil, &errors.ConfigurationError{Op: "exchange", Reason: fmt.Sprintf("node #%d is a %s, not a %s", node, n.Kind(), plan.ReduceMergeKind)}
	}
	return rm, nil
}

// dialExchange connects to the Exchange feeding a ReduceMerge, served elsewhere by
// ServeExchange. Calls wait for the server to become reachable.
func dialExchange(addr string, spec *plan.ShuffleSpec) (*shuffle.RemoteExchange, *grpc.ClientConn, error) {
	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.WaitForReady(true)),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to connect to exchange for node #%d at %s: %w", spec.ReduceID, addr, err)
	}
	ex := shuffle.NewRemoteExchange(conn, spec.NumBuckets, spec.Fanout.Schema(), partition.NewLZ4PartitionSerializer())
	return ex, conn, nil
}

// ServeExchange serves, on lis, an in-memory Exchange for the ReduceMerge with the given
// node id, expecting the given number of producers. It returns once ctx is done, and
// always closes lis.
func ServeExchange(ctx context.Context, lis net.Listener, p *plan.Plan, node int, producers int, logger log.Logger) error {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	rm, err := reduceMergeFor(p, node)
	if err != nil {
		lis.Close()
		return err
	}
	ex, err := shuffle.NewMemoryExchange(rm.NumBuckets(), producers)
	if err != nil {
		lis.Close()
		return err
	}
	server := grpc.NewServer()
	shuffle.RegisterExchangeServer(server, ex, rm.Fanout().Schema(), partition.NewLZ4PartitionSerializer())
	served := make(chan error, 1)
	go func() {
		served <- server.Serve(lis)
	}()
	level.Info(logger).Log("msg", "serving exchange", "node", node, "buckets", rm.NumBuckets(), "producers", producers, "addr", lis.Addr())
	select {
	case err = <-served:
		return err
	case <-ctx.Done():
		server.Stop()
		<-served
		level.Info(logger).Log("msg", "stopped exchange", "node", node, "sealed", ex.Sealed())
		return nil
	}
}
