package rpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

// #region interceptor
// UnaryLogger logs every call with its method, duration and status code.
// Caller mistakes log at info, server faults at error.
func UnaryLogger(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		code := status.Code(err)
		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.Duration("duration", time.Since(start)),
			zap.Stringer("code", code),
		}
		switch code {
		case codes.OK:
			logger.Debug("rpc", fields...)
		case codes.InvalidArgument, codes.NotFound, codes.Canceled:
			logger.Info("rpc", append(fields, zap.Error(err))...)
		default:
			logger.Error("rpc", append(fields, zap.Error(err))...)
		}
		return resp, err
	}
}
// #endregion interceptor

// #region grpc-server
// Host owns a grpc.Server with KernelService and the health service
// registered.
type Host struct {
	grpcServer *grpc.Server
	health     *health.Server
	logger     *zap.Logger
}

// NewHost wires svc into a traced, logged grpc.Server.
func NewHost(svc KernelServiceServer, logger *zap.Logger, opts ...grpc.ServerOption) *Host {
	opts = append([]grpc.ServerOption{
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(UnaryLogger(logger)),
	}, opts...)
	gs := grpc.NewServer(opts...)
	hs := health.NewServer()
	RegisterKernelServiceServer(gs, svc)
	healthpb.RegisterHealthServer(gs, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	return &Host{grpcServer: gs, health: hs, logger: logger}
}

// Serve accepts connections on lis until ctx is cancelled, then drains
// in-flight calls.
func (h *Host) Serve(ctx context.Context, lis net.Listener) error {
	h.logger.Info("kernel service listening", zap.String("addr", lis.Addr().String()))
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- h.grpcServer.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		h.health.Shutdown()
		h.grpcServer.GracefulStop()
		err := <-serveErr
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("serve gRPC: %w", err)
	case err := <-serveErr:
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("serve gRPC: %w", err)
	}
}

// Stop closes every connection without draining.
func (h *Host) Stop() {
	h.health.Shutdown()
	h.grpcServer.Stop()
}
// #endregion grpc-server
