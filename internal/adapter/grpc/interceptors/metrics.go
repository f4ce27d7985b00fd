package interceptors

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"github.com/seu-repo/handover-engine/internal/observability/telemetry"
)

// UnaryMetricsInterceptor records request counts by code and latency by method.
func UnaryMetricsInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()

		resp, err := handler(ctx, req)

		st, _ := status.FromError(err)
		telemetry.GRPCRequestsTotal.WithLabelValues(info.FullMethod, st.Code().String()).Inc()
		telemetry.GRPCLatency.WithLabelValues(info.FullMethod).Observe(time.Since(start).Seconds())

		return resp, err
	}
}
