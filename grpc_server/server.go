// Package grpcserver exposes the session and stats queries over gRPC next to
// the standard health service.
package grpcserver

import (
	"moviebox-restful/interceptors"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// NewServer builds a gRPC server with SessionService and grpc.health.v1
// registered. Interceptors run recovery, session auth, then logging.
func NewServer(svc SessionServiceServer, sessions interceptors.SessionResolver, logger *zap.Logger, opts ...grpc.ServerOption) (*grpc.Server, *health.Server) {
	opts = append(opts, grpc.ChainUnaryInterceptor(
		interceptors.RecoveryInterceptor(logger),
		interceptors.SessionAuthInterceptor(sessions),
		interceptors.ZapLoggingInterceptor(logger),
	))
	srv := grpc.NewServer(opts...)
	RegisterSessionServiceServer(srv, svc)

	healthServer := health.NewServer()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(SessionServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, healthServer)
	return srv, healthServer
}
