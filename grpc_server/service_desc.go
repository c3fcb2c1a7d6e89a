package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	SessionServiceName = "moviebox.v1.SessionService"

	WhoAmIMethod = "/" + SessionServiceName + "/WhoAmI"
	StatsMethod  = "/" + SessionServiceName + "/Stats"
)

// SessionServiceServer answers read-only questions about the caller's
// session and the catalogue. Responses use well-known protobuf types, so no
// generated code is needed on either side.
type SessionServiceServer interface {
	// WhoAmI returns {"user": {...}} or {"user": null}.
	WhoAmI(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	// Stats returns {"by_genre": [...], "by_tag": [...]}.
	Stats(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

// SessionServiceDesc describes SessionService for grpc.Server.RegisterService.
var SessionServiceDesc = grpc.ServiceDesc{
	ServiceName: SessionServiceName,
	HandlerType: (*SessionServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "WhoAmI", Handler: unaryHandler(WhoAmIMethod, SessionServiceServer.WhoAmI)},
		{MethodName: "Stats", Handler: unaryHandler(StatsMethod, SessionServiceServer.Stats)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "moviebox/v1/session.proto",
}

func RegisterSessionServiceServer(s grpc.ServiceRegistrar, srv SessionServiceServer) {
	s.RegisterService(&SessionServiceDesc, srv)
}

func unaryHandler(fullMethod string, call func(SessionServiceServer, context.Context, *emptypb.Empty) (*structpb.Struct, error)) grpc.MethodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(emptypb.Empty)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(SessionServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(SessionServiceServer), ctx, req.(*emptypb.Empty))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// SessionServiceClient calls SessionService over cc.
type SessionServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewSessionServiceClient(cc grpc.ClientConnInterface) *SessionServiceClient {
	return &SessionServiceClient{cc: cc}
}

func (c *SessionServiceClient) WhoAmI(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, WhoAmIMethod, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *SessionServiceClient) Stats(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, StatsMethod, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
