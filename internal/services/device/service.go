package device

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name. Messages travel as
// google.protobuf.Struct carrying the same JSON shapes as the HTTP API.
const ServiceName = "pump.v1.PumpService"

const (
	methodGetState   = "/" + ServiceName + "/GetState"
	methodExecute    = "/" + ServiceName + "/Execute"
	methodWatchState = "/" + ServiceName + "/WatchState"
)

// PumpServiceServer is implemented by GrpcHandler.
type PumpServiceServer interface {
	GetState(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Execute(context.Context, *structpb.Struct) (*structpb.Struct, error)
	WatchState(*structpb.Struct, grpc.ServerStream) error
}

func RegisterPumpServiceServer(s grpc.ServiceRegistrar, srv PumpServiceServer) {
	s.RegisterService(&pumpServiceDesc, srv)
}

func unaryHandler(method string, call func(PumpServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		impl := srv.(PumpServiceServer)
		if interceptor == nil {
			return call(impl, ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return call(impl, ctx, req.(*structpb.Struct))
		})
	}
}

var pumpServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PumpServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetState", Handler: unaryHandler(methodGetState, PumpServiceServer.GetState)},
		{MethodName: "Execute", Handler: unaryHandler(methodExecute, PumpServiceServer.Execute)},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "WatchState",
			ServerStreams: true,
			Handler: func(srv any, stream grpc.ServerStream) error {
				in := new(structpb.Struct)
				if err := stream.RecvMsg(in); err != nil {
					return err
				}
				return srv.(PumpServiceServer).WatchState(in, stream)
			},
		},
	},
	Metadata: "pump/v1/pump.proto",
}
