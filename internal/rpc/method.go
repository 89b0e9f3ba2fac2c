package rpc

import (
	"context"

	"google.golang.org/grpc"
)

// Unary adapts a typed handler function to a grpc.MethodDesc. service is
// the fully qualified service name, used for the interceptor's FullMethod.
func Unary[Req any, Resp any](service, name string, fn func(ctx context.Context, req *Req) (*Resp, error)) grpc.MethodDesc {
	fullMethod := "/" + service + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return fn(ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return fn(ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// Invoke calls a unary method on conn with the JSON codec.
func Invoke[Req any, Resp any](ctx context.Context, conn grpc.ClientConnInterface, service, name string, req *Req, opts ...grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := conn.Invoke(ctx, "/"+service+"/"+name, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
