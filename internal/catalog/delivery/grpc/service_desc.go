package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	ServiceName = "catalog.v1.CatalogService"

	GetCatalogMethod = "/catalog.v1.CatalogService/GetCatalog"
	GetStatsMethod   = "/catalog.v1.CatalogService/GetStats"
	RunSyncMethod    = "/catalog.v1.CatalogService/RunSync"
)

// CatalogServiceServer is the server API for catalog.v1.CatalogService.
// Requests and responses are google.protobuf.Struct documents shaped like
// the HTTP API's JSON bodies.
type CatalogServiceServer interface {
	GetCatalog(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetStats(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RunSync(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// CatalogServiceDesc describes catalog.v1.CatalogService for grpc.Server.RegisterService
var CatalogServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CatalogServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetCatalog", Handler: unaryHandler(GetCatalogMethod, CatalogServiceServer.GetCatalog)},
		{MethodName: "GetStats", Handler: unaryHandler(GetStatsMethod, CatalogServiceServer.GetStats)},
		{MethodName: "RunSync", Handler: unaryHandler(RunSyncMethod, CatalogServiceServer.RunSync)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "catalog/v1/catalog.proto",
}

type structMethod func(CatalogServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call structMethod) grpc.MethodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(CatalogServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(CatalogServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// CatalogServiceClient is the client API for catalog.v1.CatalogService
type CatalogServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewCatalogServiceClient(cc grpc.ClientConnInterface) *CatalogServiceClient {
	return &CatalogServiceClient{cc: cc}
}

func (c *CatalogServiceClient) GetCatalog(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, GetCatalogMethod, in, opts...)
}

func (c *CatalogServiceClient) GetStats(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, GetStatsMethod, in, opts...)
}

func (c *CatalogServiceClient) RunSync(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, RunSyncMethod, in, opts...)
}

func (c *CatalogServiceClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	if in == nil {
		in = &structpb.Struct{}
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
