package grpc

import (
	"context"
	"net"
	"time"

	"github.com/simaogato/finflow-backend/internal/logger"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the name reported by the health service
const ServiceName = "finflow.Engine"

// Server is the engine's gRPC endpoint: health checks and reflection behind
// the auth and logging interceptors
type Server struct {
	grpc   *grpc.Server
	health *health.Server
	log    logger.Logger
}

// NewServer creates a new gRPC server instance. It reports NOT_SERVING until
// SetServing is called.
func NewServer(apiToken string, log logger.Logger) *Server {
	log = log.WithFields(logger.Fields{"component": "grpc"})

	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			LoggingInterceptor(log),
			AuthInterceptor(apiToken),
		),
		grpc.ChainStreamInterceptor(
			StreamAuthInterceptor(apiToken),
		),
	)

	healthServer := health.NewServer()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	healthServer.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)

	return &Server{grpc: grpcServer, health: healthServer, log: log}
}

// SetServing flips the reported health status
func (s *Server) SetServing(serving bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(ServiceName, st)
}

// MonitorStorage probes storage every interval and reports SERVING while the
// probe succeeds. It returns when ctx is cancelled.
func (s *Server) MonitorStorage(ctx context.Context, probe func(ctx context.Context) error, interval time.Duration) {
	check := func() {
		probeCtx, cancel := context.WithTimeout(ctx, interval/2)
		defer cancel()

		if err := probe(probeCtx); err != nil {
			if ctx.Err() == nil {
				s.log.Warn("storage probe failed", logger.Fields{"error": err})
			}
			s.SetServing(false)
			return
		}
		s.SetServing(true)
	}

	check()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			check()
		}
	}
}

// Serve accepts connections on lis until Stop is called
func (s *Server) Serve(lis net.Listener) error {
	s.log.Info("grpc server listening", logger.Fields{"address": lis.Addr().String()})
	return s.grpc.Serve(lis)
}

// Stop reports NOT_SERVING to every watcher, then drains in-flight calls
func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}
