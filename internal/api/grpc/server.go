// Package grpcapi hosts the gRPC server. It exposes the standard health
// service, so orchestrators can check the localization service the same way
// they check other gRPC services, plus reflection for grpcurl.
package grpcapi

import (
	"net"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"course-localization-service/internal/observability"
	"course-localization-service/internal/observability/metrics"
)

// Service names reported by the health server.
const (
	ServiceLive     = "course.localization.LiveSessions"
	ServicePipeline = "course.localization.Pipeline"
)

// Server wraps a grpc.Server with its health server.
type Server struct {
	grpc   *grpc.Server
	health *health.Server
}

// New creates a gRPC server with logging and metrics interceptors.
func New(m *metrics.Metrics) *Server {
	g := grpc.NewServer(
		grpc.UnaryInterceptor(observability.UnaryServerInterceptor(m)),
		grpc.StreamInterceptor(observability.StreamServerInterceptor(m)),
	)

	h := health.NewServer()
	grpc_health_v1.RegisterHealthServer(g, h)
	reflection.Register(g)

	return &Server{grpc: g, health: h}
}

// SetServing marks the overall service and each named service as serving
// or not.
func (s *Server) SetServing(serving bool) {
	status := grpc_health_v1.HealthCheckResponse_NOT_SERVING
	if serving {
		status = grpc_health_v1.HealthCheckResponse_SERVING
	}
	for _, name := range []string{"", ServiceLive, ServicePipeline} {
		s.health.SetServingStatus(name, status)
	}
}

// Serve blocks serving lis.
func (s *Server) Serve(lis net.Listener) error {
	log.Info().Str("addr", lis.Addr().String()).Msg("gRPC server started")
	return s.grpc.Serve(lis)
}

// GracefulStop marks the service not serving and drains in-flight calls.
func (s *Server) GracefulStop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}
