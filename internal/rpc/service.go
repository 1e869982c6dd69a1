package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "actionkernel.v1.KernelService"

const (
	methodListMotions  = "ListMotions"
	methodOpenSession  = "OpenSession"
	methodCloseSession = "CloseSession"
	methodStep         = "Step"
	methodExportChain  = "ExportChain"
	methodVerifyChain  = "VerifyChain"
	methodReplay       = "Replay"
	methodValidate     = "Validate"
)

func fullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

// #region server-interface
// KernelServiceServer is the server side of KernelService. Every message is a
// google.protobuf.Struct; field names are listed on each handler.
type KernelServiceServer interface {
	ListMotions(context.Context, *structpb.Struct) (*structpb.Struct, error)
	OpenSession(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CloseSession(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Step(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ExportChain(context.Context, *structpb.Struct) (*structpb.Struct, error)
	VerifyChain(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Replay(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Validate(context.Context, *structpb.Struct) (*structpb.Struct, error)
}
// #endregion server-interface

// #region service-desc
type handlerFunc func(KernelServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unary(name string, call handlerFunc) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(KernelServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(KernelServiceServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ServiceDesc describes KernelService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*KernelServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(methodListMotions, KernelServiceServer.ListMotions),
		unary(methodOpenSession, KernelServiceServer.OpenSession),
		unary(methodCloseSession, KernelServiceServer.CloseSession),
		unary(methodStep, KernelServiceServer.Step),
		unary(methodExportChain, KernelServiceServer.ExportChain),
		unary(methodVerifyChain, KernelServiceServer.VerifyChain),
		unary(methodReplay, KernelServiceServer.Replay),
		unary(methodValidate, KernelServiceServer.Validate),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "actionkernel/v1/kernel.proto",
}

// RegisterKernelServiceServer registers srv on s.
func RegisterKernelServiceServer(s grpc.ServiceRegistrar, srv KernelServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}
// #endregion service-desc
