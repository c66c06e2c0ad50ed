package exporters

import (
	"context"
	"fmt"
	"time"

	"smallbiznis-license/pkg/config"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
)

func ProvideGrpc(cfg *config.Config) (*otlptrace.Exporter, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client := otlptracegrpc.NewClient(
		otlptracegrpc.WithEndpoint(cfg.Otel.Addr),
		otlptracegrpc.WithInsecure(),
		otlptracegrpc.WithCompressor("gzip"),
	)

	return otlptrace.New(ctx, client)
}

// Provide picks the exporter matching OTEL_PROTOCOL.
func Provide(cfg *config.Config) (*otlptrace.Exporter, error) {
	switch cfg.Otel.Protocol {
	case "", "http":
		return ProvideHttp(cfg)
	case "grpc":
		return ProvideGrpc(cfg)
	default:
		return nil, fmt.Errorf("unsupported OTEL_PROTOCOL %q", cfg.Otel.Protocol)
	}
}
