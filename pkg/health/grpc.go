package health

import (
	"context"

	"smallbiznis-license/pkg/errutil"

	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the gRPC health service name answered besides "".
const ServiceName = "license"

type grpcHealth struct {
	healthpb.UnimplementedHealthServer
	svc HealthService
}

func NewGRPCServer(svc HealthService) healthpb.HealthServer {
	return &grpcHealth{svc: svc}
}

func RegisterGRPC(srv *grpc.Server, svc HealthService) {
	healthpb.RegisterHealthServer(srv, NewGRPCServer(svc))
}

func (g *grpcHealth) Check(ctx context.Context, req *healthpb.HealthCheckRequest) (*healthpb.HealthCheckResponse, error) {
	if name := req.GetService(); name != "" && name != ServiceName {
		return nil, errutil.ToGRPCError(errutil.NotFound("unknown service "+name, nil))
	}

	if g.svc.Check(ctx).Status != StatusHealthy {
		return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_NOT_SERVING}, nil
	}
	return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_SERVING}, nil
}
