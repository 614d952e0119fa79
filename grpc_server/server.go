package grpcserver

import (
	"net"

	"custombuttons-restful/interceptors"
	"custombuttons-restful/services"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Server bundles the gRPC server with its health service.
type Server struct {
	grpc   *grpc.Server
	health *health.Server
	logger *zap.Logger
}

// New builds a server with authentication and zap logging interceptors. The
// logging interceptor runs after authentication so it can record the caller.
func New(metadata services.MetadataService, logger *zap.Logger) *Server {
	logger = logger.Named("grpc")
	s := grpc.NewServer(grpc.ChainUnaryInterceptor(
		interceptors.AuthInterceptor(),
		interceptors.ZapLoggingInterceptor(logger),
	))

	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	RegisterMetadataServer(s, NewMetadataServiceServer(metadata))
	hs.SetServingStatus(MetadataServiceName, healthpb.HealthCheckResponse_SERVING)

	return &Server{grpc: s, health: hs, logger: logger}
}

// Serve accepts connections on lis until Stop is called.
func (s *Server) Serve(lis net.Listener) error {
	s.logger.Info("gRPC server listening", zap.String("addr", lis.Addr().String()))
	return s.grpc.Serve(lis)
}

// Stop marks every service NOT_SERVING and drains in-flight calls.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}
