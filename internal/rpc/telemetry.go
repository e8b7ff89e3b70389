// Package rpc exposes reading ingestion, listing and clearing over gRPC.
//
// The service is described by hand with well-known protobuf types, so
// clients need no generated stubs: a reading batch is a
// google.protobuf.Value holding a struct (one reading) or a list.
package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// Full method names of sensorhub.v1.Telemetry.
const (
	ServiceName         = "sensorhub.v1.Telemetry"
	MethodIngest        = "/" + ServiceName + "/Ingest"
	MethodListReadings  = "/" + ServiceName + "/ListReadings"
	MethodClearReadings = "/" + ServiceName + "/Clear"
)

// metadataAuthorization carries the session token on every call.
const metadataAuthorization = "authorization"

// TelemetryServer is the server API of sensorhub.v1.Telemetry.
type TelemetryServer interface {
	Ingest(ctx context.Context, batch *structpb.Value) (*structpb.Struct, error)
	ListReadings(ctx context.Context, in *emptypb.Empty) (*structpb.ListValue, error)
	Clear(ctx context.Context, in *emptypb.Empty) (*structpb.Struct, error)
}

// TelemetryServiceDesc describes sensorhub.v1.Telemetry for grpc.Server.
var TelemetryServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TelemetryServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Ingest", Handler: ingestHandler},
		{MethodName: "ListReadings", Handler: listReadingsHandler},
		{MethodName: "Clear", Handler: clearHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "sensorhub/v1/telemetry.proto",
}

// RegisterTelemetryServer registers srv on s.
func RegisterTelemetryServer(s grpc.ServiceRegistrar, srv TelemetryServer) {
	s.RegisterService(&TelemetryServiceDesc, srv)
}

func ingestHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Value)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TelemetryServer).Ingest(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodIngest}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(TelemetryServer).Ingest(ctx, req.(*structpb.Value))
	})
}

func listReadingsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TelemetryServer).ListReadings(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodListReadings}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(TelemetryServer).ListReadings(ctx, req.(*emptypb.Empty))
	})
}

func clearHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TelemetryServer).Clear(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodClearReadings}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(TelemetryServer).Clear(ctx, req.(*emptypb.Empty))
	})
}

// TelemetryClient calls sensorhub.v1.Telemetry.
type TelemetryClient struct {
	cc grpc.ClientConnInterface
}

// NewTelemetryClient creates a client over cc.
func NewTelemetryClient(cc grpc.ClientConnInterface) *TelemetryClient {
	return &TelemetryClient{cc: cc}
}

// Ingest sends a reading batch.
func (c *TelemetryClient) Ingest(ctx context.Context, batch *structpb.Value, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, MethodIngest, batch, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// ListReadings returns every stored reading.
func (c *TelemetryClient) ListReadings(ctx context.Context, opts ...grpc.CallOption) (*structpb.ListValue, error) {
	out := new(structpb.ListValue)
	if err := c.cc.Invoke(ctx, MethodListReadings, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// Clear deletes every stored reading.
func (c *TelemetryClient) Clear(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, MethodClearReadings, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
