package shuffle

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/go-sif/sifplan"
	"github.com/go-sif/sifplan/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	serviceName   = "sifplan.shuffle.Exchange"
	sendMethod    = "/" + serviceName + "/Send"
	sealMethod    = "/" + serviceName + "/Seal"
	collectMethod = "/" + serviceName + "/Collect"
	producerKey   = "sifplan-producer"
	bucketKey     = "sifplan-bucket"
)

// exchangeService is served over gRPC. Sub-Partitions travel as serialized bytes,
// addressed by producer and bucket ids carried in request metadata.
type exchangeService interface {
	Send(ctx context.Context, req *wrapperspb.BytesValue) (*emptypb.Empty, error)
	Seal(ctx context.Context, req *emptypb.Empty) (*emptypb.Empty, error)
	Collect(req *emptypb.Empty, stream grpc.ServerStream) error
}

var exchangeServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*exchangeService)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Send", Handler: sendHandler},
		{MethodName: "Seal", Handler: sealHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "Collect", Handler: collectHandler, ServerStreams: true},
	},
	Metadata: "sifplan/shuffle/exchange.proto",
}

func sendHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(exchangeService).Send(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: sendMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(exchangeService).Send(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

func sealHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(exchangeService).Seal(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: sealMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(exchangeService).Seal(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func collectHandler(srv interface{}, stream grpc.ServerStream) error {
	in := new(emptypb.Empty)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(exchangeService).Collect(in, stream)
}

type exchangeServer struct {
	exchange   Exchange
	schema     sifplan.Schema
	serializer sifplan.PartitionSerializer
}

// RegisterExchangeServer serves an Exchange over gRPC. Partitions are exchanged with the
// given Schema, encoded by serializer.
func RegisterExchangeServer(s *grpc.Server, ex Exchange, schema sifplan.Schema, serializer sifplan.PartitionSerializer) {
	s.RegisterService(&exchangeServiceDesc, &exchangeServer{exchange: ex, schema: schema, serializer: serializer})
}

func metadataInt(ctx context.Context, key string) (int, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return 0, status.Errorf(codes.InvalidArgument, "missing request metadata")
	}
	vals := md.Get(key)
	if len(vals) != 1 {
		return 0, status.Errorf(codes.InvalidArgument, "expected exactly one %s, got %d", key, len(vals))
	}
	v, err := strconv.Atoi(vals[0])
	if err != nil {
		return 0, status.Errorf(codes.InvalidArgument, "malformed %s: %s", key, err)
	}
	return v, nil
}

func (s *exchangeServer) Send(ctx context.Context, req *wrapperspb.BytesValue) (*emptypb.Empty, error) {
	producer, err := metadataInt(ctx, producerKey)
	if err != nil {
		return nil, err
	}
	bucket, err := metadataInt(ctx, bucketKey)
	if err != nil {
		return nil, err
	}
	part, err := s.serializer.Deserialize(bytes.NewReader(req.GetValue()), s.schema)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "unable to decode partition: %s", err)
	}
	if err = s.exchange.Send(ctx, producer, bucket, part); err != nil {
		return nil, toStatus(err)
	}
	return &emptypb.Empty{}, nil
}

func (s *exchangeServer) Seal(ctx context.Context, req *emptypb.Empty) (*emptypb.Empty, error) {
	producer, err := metadataInt(ctx, producerKey)
	if err != nil {
		return nil, err
	}
	if err = s.exchange.Seal(ctx, producer); err != nil {
		return nil, toStatus(err)
	}
	return &emptypb.Empty{}, nil
}

func (s *exchangeServer) Collect(req *emptypb.Empty, stream grpc.ServerStream) error {
	bucket, err := metadataInt(stream.Context(), bucketKey)
	if err != nil {
		return err
	}
	parts, err := s.exchange.Collect(stream.Context(), bucket)
	if err != nil {
		return toStatus(err)
	}
	for _, part := range parts {
		var buf bytes.Buffer
		if err := s.serializer.Serialize(&buf, part); err != nil {
			return status.Errorf(codes.Internal, "unable to encode partition %s: %s", part.ID(), err)
		}
		if err := stream.SendMsg(wrapperspb.Bytes(buf.Bytes())); err != nil {
			return err
		}
	}
	return nil
}

// toStatus maps Exchange errors onto gRPC status codes, so that clients can reconstruct them
func toStatus(err error) error {
	switch e := err.(type) {
	case *errors.ConfigurationError:
		return status.Error(codes.InvalidArgument, e.Reason)
	case errors.BucketAlreadyCollectedError:
		return status.Error(codes.FailedPrecondition, e.Error())
	}
	switch err {
	case context.Canceled:
		return status.Error(codes.Canceled, err.Error())
	case context.DeadlineExceeded:
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}

func fromStatus(err error, bucket int) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.InvalidArgument:
		return &errors.ConfigurationError{Op: "shuffle", Reason: st.Message()}
	case codes.FailedPrecondition:
		return errors.BucketAlreadyCollectedError{Bucket: bucket}
	case codes.Canceled:
		return context.Canceled
	case codes.DeadlineExceeded:
		return context.DeadlineExceeded
	}
	return fmt.Errorf("remote exchange: %s", st.Message())
}

// RemoteExchange is an Exchange served by RegisterExchangeServer in another process
type RemoteExchange struct {
	conn       grpc.ClientConnInterface
	numBuckets int
	schema     sifplan.Schema
	serializer sifplan.PartitionSerializer
}

// NewRemoteExchange connects to a remote Exchange over an existing gRPC connection
func NewRemoteExchange(conn grpc.ClientConnInterface, numBuckets int, schema sifplan.Schema, serializer sifplan.PartitionSerializer) *RemoteExchange {
	return &RemoteExchange{conn: conn, numBuckets: numBuckets, schema: schema, serializer: serializer}
}

// NumBuckets returns the number of buckets in this shuffle
func (re *RemoteExchange) NumBuckets() int {
	return re.numBuckets
}

// Send addresses a sub-Partition from a producer to a bucket
func (re *RemoteExchange) Send(ctx context.Context, producer int, bucket int, part sifplan.Partition) error {
	var buf bytes.Buffer
	if err := re.serializer.Serialize(&buf, part); err != nil {
		return err
	}
	ctx = metadata.AppendToOutgoingContext(ctx, producerKey, strconv.Itoa(producer), bucketKey, strconv.Itoa(bucket))
	if err := re.conn.Invoke(ctx, sendMethod, wrapperspb.Bytes(buf.Bytes()), new(emptypb.Empty)); err != nil {
		return fromStatus(err, bucket)
	}
	return nil
}

// Seal signals that a producer will send nothing further
func (re *RemoteExchange) Seal(ctx context.Context, producer int) error {
	ctx = metadata.AppendToOutgoingContext(ctx, producerKey, strconv.Itoa(producer))
	if err := re.conn.Invoke(ctx, sealMethod, &emptypb.Empty{}, new(emptypb.Empty)); err != nil {
		return fromStatus(err, -1)
	}
	return nil
}

// Collect waits for every producer to Seal, then returns the sub-Partitions addressed to a bucket
func (re *RemoteExchange) Collect(ctx context.Context, bucket int) ([]sifplan.Partition, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	ctx = metadata.AppendToOutgoingContext(ctx, bucketKey, strconv.Itoa(bucket))
	stream, err := re.conn.NewStream(ctx, &exchangeServiceDesc.Streams[0], collectMethod)
	if err != nil {
		return nil, fromStatus(err, bucket)
	}
	if err := stream.SendMsg(&emptypb.Empty{}); err != nil {
		return nil, fromStatus(err, bucket)
	}
	if err := stream.CloseSend(); err != nil {
		return nil, fromStatus(err, bucket)
	}
	var result []sifplan.Partition
	for {
		msg := new(wrapperspb.BytesValue)
		err := stream.RecvMsg(msg)
		if err == io.EOF {
			return result, nil
		} else if err != nil {
			return nil, fromStatus(err, bucket)
		}
		part, err := re.serializer.Deserialize(bytes.NewReader(msg.GetValue()), re.schema)
		if err != nil {
			return nil, err
		}
		result = append(result, part)
	}
}
