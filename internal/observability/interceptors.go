package observability

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"course-localization-service/internal/observability/logging"
	"course-localization-service/internal/observability/metrics"
)

const healthService = "grpc.health.v1.Health"

// UnaryServerInterceptor records metrics and a log line for every unary call.
func UnaryServerInterceptor(m *metrics.Metrics) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		observeRPC(m, "unary", info.FullMethod, time.Since(start), err)
		return resp, err
	}
}

// StreamServerInterceptor is the stream counterpart of UnaryServerInterceptor.
// Health Watch streams go through it.
func StreamServerInterceptor(m *metrics.Metrics) grpc.StreamServerInterceptor {
	return func(
		srv interface{},
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		start := time.Now()
		err := handler(srv, ss)
		observeRPC(m, "stream", info.FullMethod, time.Since(start), err)
		return err
	}
}

func observeRPC(m *metrics.Metrics, kind, fullMethod string, d time.Duration, err error) {
	code := status.Code(err)
	m.RecordRPC(fullMethod, code.String(), d.Seconds())

	service, rpc := splitMethod(fullMethod)
	logger := logging.WithComponent("grpc")
	logger.WithLevel(rpcLevel(service, code)).
		Str("kind", kind).
		Str("service", service).
		Str("rpc", rpc).
		Str("code", code.String()).
		Dur("duration", d).
		Err(err).
		Msg("gRPC call")
}

// splitMethod turns "/pkg.Service/Method" into its service and method names.
func splitMethod(fullMethod string) (string, string) {
	name := strings.TrimPrefix(fullMethod, "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		return name[:i], name[i+1:]
	}
	return "unknown", name
}

// rpcLevel keeps routine health checks out of the info log.
func rpcLevel(service string, code codes.Code) zerolog.Level {
	switch {
	case code != codes.OK && code != codes.Canceled:
		return zerolog.WarnLevel
	case service == healthService:
		return zerolog.TraceLevel
	default:
		return zerolog.DebugLevel
	}
}
