package grpc

import (
	"context"
	"runtime/debug"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// unaryInterceptor logs every call and turns a handler panic into
// codes.Internal.
func (s *GRPCServer) unaryInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error(ctx, "panic recovered", "method", info.FullMethod, "panic", r, "stack", string(debug.Stack()))
			err = status.Error(codes.Internal, "internal error")
		}
		s.logger.Debug(ctx, "grpc call", "method", info.FullMethod, "code", status.Code(err).String(), "latency", time.Since(start))
	}()

	return handler(ctx, req)
}

func (s *GRPCServer) streamInterceptor(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) (err error) {
	ctx := ss.Context()
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error(ctx, "panic recovered", "method", info.FullMethod, "panic", r, "stack", string(debug.Stack()))
			err = status.Error(codes.Internal, "internal error")
		}
		s.logger.Debug(ctx, "grpc stream closed", "method", info.FullMethod, "code", status.Code(err).String(), "duration", time.Since(start))
	}()

	return handler(srv, ss)
}
