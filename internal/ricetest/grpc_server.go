// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ricetest

import (
	"context"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/luxfi/ricedb/internal/wire"
)

// GRPCServer serves a Backend over gRPC on a loopback port.
type GRPCServer struct {
	srv *grpc.Server
	lis net.Listener
}

// StartGRPC listens on 127.0.0.1 with an ephemeral port and serves b in the
// background.
func StartGRPC(b *Backend) (*GRPCServer, error) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}
	srv := grpc.NewServer(
		grpc.ForceServerCodec(wire.Codec{}),
		grpc.ChainUnaryInterceptor(tokenUnaryInterceptor),
		grpc.ChainStreamInterceptor(tokenStreamInterceptor),
	)
	srv.RegisterService(serviceDesc(b), b)
	go func() { _ = srv.Serve(lis) }()
	return &GRPCServer{srv: srv, lis: lis}, nil
}

func (s *GRPCServer) Addr() *net.TCPAddr { return s.lis.Addr().(*net.TCPAddr) }

// Close stops the server without waiting for open streams.
func (s *GRPCServer) Close() { s.srv.Stop() }

func serviceDesc(b *Backend) *grpc.ServiceDesc {
	desc := &grpc.ServiceDesc{
		ServiceName: wire.ServiceName,
		HandlerType: (*any)(nil),
	}
	for name, op := range b.unaryOps() {
		desc.Methods = append(desc.Methods, grpc.MethodDesc{
			MethodName: name,
			Handler: func(_ any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
				in := op.newIn()
				if err := dec(in); err != nil {
					return nil, err
				}
				handler := func(ctx context.Context, req any) (any, error) {
					return op.call(ctx, req.(wire.Message))
				}
				if interceptor == nil {
					return handler(ctx, in)
				}
				info := &grpc.UnaryServerInfo{FullMethod: wire.FullMethod(name)}
				return interceptor(ctx, in, info, handler)
			},
		})
	}
	for name, op := range b.streamOps() {
		desc.Streams = append(desc.Streams, grpc.StreamDesc{
			StreamName:    name,
			ServerStreams: true,
			Handler: func(_ any, stream grpc.ServerStream) error {
				in := op.newIn()
				if err := stream.RecvMsg(in); err != nil {
					return err
				}
				return op.call(stream.Context(), in, func(m wire.Message) error {
					return stream.SendMsg(m)
				})
			},
		})
	}
	return desc
}

func incomingToken(ctx context.Context) context.Context {
	md, _ := metadata.FromIncomingContext(ctx)
	if vals := md.Get("authorization"); len(vals) > 0 {
		return withToken(ctx, bearerToken(vals[0]))
	}
	return ctx
}

func tokenUnaryInterceptor(ctx context.Context, req any, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	return handler(incomingToken(ctx), req)
}

type tokenStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *tokenStream) Context() context.Context { return s.ctx }

func tokenStreamInterceptor(srv any, ss grpc.ServerStream, _ *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	return handler(srv, &tokenStream{ServerStream: ss, ctx: incomingToken(ss.Context())})
}
