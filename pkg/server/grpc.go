package server

import (
	"context"
	"fmt"
	"net"

	"smallbiznis-license/pkg/config"
	"smallbiznis-license/pkg/errutil"
	"smallbiznis-license/pkg/health"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/recovery"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"
)

// ProvideGRPCServer serves the gRPC health protocol when GRPC_SERVER_ADDR is set.
var ProvideGRPCServer = fx.Module("grpc.server",
	fx.Provide(
		WithOption,
		NewGRPCServer,
	),
	fx.Invoke(
		StartGRPCServer,
	),
)

func zapLogger(l *zap.Logger) logging.Logger {
	return logging.LoggerFunc(func(ctx context.Context, lvl logging.Level, msg string, fields ...any) {
		zfields := make([]zap.Field, 0, len(fields)/2)
		for i := 0; i+1 < len(fields); i += 2 {
			key, ok := fields[i].(string)
			if !ok {
				continue
			}
			zfields = append(zfields, zap.Any(key, fields[i+1]))
		}

		switch lvl {
		case logging.LevelDebug:
			l.Debug(msg, zfields...)
		case logging.LevelInfo:
			l.Info(msg, zfields...)
		case logging.LevelWarn:
			l.Warn(msg, zfields...)
		default:
			l.Error(msg, zfields...)
		}
	})
}

func recoverPanic(p any) error {
	zap.L().Error("gRPC panic recovered", zap.Any("panic", p))
	return errutil.ToGRPCError(errutil.Internal("internal error", fmt.Errorf("panic: %v", p)))
}

func WithOption(tp trace.TracerProvider, mp metric.MeterProvider) []grpc.ServerOption {
	return []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(
			recovery.UnaryServerInterceptor(recovery.WithRecoveryHandler(recoverPanic)),
			logging.UnaryServerInterceptor(zapLogger(zap.L()), logging.WithLogOnEvents(logging.FinishCall)),
		),
		grpc.StatsHandler(
			otelgrpc.NewServerHandler(
				otelgrpc.WithTracerProvider(tp),
				otelgrpc.WithMeterProvider(mp),
			),
		),
	}
}

func NewGRPCServer(opts []grpc.ServerOption) *grpc.Server {
	return grpc.NewServer(opts...)
}

func StartGRPCServer(lc fx.Lifecycle, cfg *config.Config, srv *grpc.Server, hs health.HealthService) {
	if cfg.Grpc.Addr == "" {
		zap.L().Info("GRPC_SERVER_ADDR not set, gRPC health server disabled")
		return
	}

	health.RegisterGRPC(srv, hs)
	reflection.Register(srv)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			lis, err := net.Listen("tcp", ListenAddr(cfg.Grpc.Addr))
			if err != nil {
				return err
			}
			go func() {
				zap.L().Info("Starting gRPC server", zap.String("addr", lis.Addr().String()))
				if err := srv.Serve(lis); err != nil {
					zap.L().Error("gRPC server exited", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			zap.L().Info("Stopping gRPC server")
			srv.GracefulStop()
			return nil
		},
	})
}
