package interceptors

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const requestIDKey = "x-request-id"

// UnaryLoggingInterceptor logs method, duration and status code for each
// request. Successful calls are logged at debug since load balancers poll
// the health service continuously.
func UnaryLoggingInterceptor(log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()

		resp, err := handler(ctx, req)

		st, _ := status.FromError(err)
		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.Duration("duration", time.Since(start)),
			zap.String("status_code", st.Code().String()),
		}
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if ids := md.Get(requestIDKey); len(ids) > 0 {
				fields = append(fields, zap.String("request_id", ids[0]))
			}
		}

		switch {
		case err == nil:
			log.Debug("gRPC request completed", fields...)
		case st.Code() == codes.Internal || st.Code() == codes.Unknown:
			log.Error("gRPC request failed", append(fields, zap.Error(err))...)
		default:
			log.Warn("gRPC request rejected", append(fields, zap.Error(err))...)
		}

		return resp, err
	}
}
