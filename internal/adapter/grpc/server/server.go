package server

import (
	"context"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/seu-repo/handover-engine/internal/adapter/grpc/interceptors"
	"github.com/seu-repo/handover-engine/internal/service/health"
)

// ServiceName is the name reported by the gRPC health service in addition to "".
const ServiceName = "handover.BookingEngine"

// ReadinessChecker is satisfied by *health.Service.
type ReadinessChecker interface {
	Ready(ctx context.Context) *health.ReadyResponse
}

// GRPCServer exposes the standard health protocol for infrastructure probes.
// Serving status follows the readiness checks of the HTTP API.
type GRPCServer struct {
	server   *grpc.Server
	health   *grpchealth.Server
	ready    ReadinessChecker
	interval time.Duration
	log      *zap.Logger
}

func NewGRPCServer(ready ReadinessChecker, interval time.Duration, log *zap.Logger) *GRPCServer {
	if interval <= 0 {
		interval = 10 * time.Second
	}

	s := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			interceptors.UnaryLoggingInterceptor(log),
			interceptors.UnaryMetricsInterceptor(),
		),
	)

	hs := grpchealth.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(s, hs)

	// Enable reflection for debugging (e.g. grpcurl)
	reflection.Register(s)

	return &GRPCServer{
		server:   s,
		health:   hs,
		ready:    ready,
		interval: interval,
		log:      log,
	}
}

// Refresh runs the readiness checks once and publishes the result.
func (s *GRPCServer) Refresh(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	st := healthpb.HealthCheckResponse_SERVING
	if resp := s.ready.Ready(ctx); resp.Status == health.StatusUnhealthy {
		st = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(ServiceName, st)
	return st
}

// Watch refreshes the serving status every interval until ctx ends.
func (s *GRPCServer) Watch(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	last := s.Refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if st := s.Refresh(ctx); st != last {
				s.log.Info("gRPC serving status changed", zap.String("status", st.String()))
				last = st
			}
		}
	}
}

func (s *GRPCServer) Serve(lis net.Listener) error {
	return s.server.Serve(lis)
}

// Stop marks the server as not serving and drains in-flight calls.
func (s *GRPCServer) Stop() {
	s.health.Shutdown()
	s.server.GracefulStop()
}
