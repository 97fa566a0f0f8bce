package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// TracingConfig controls span export.
type TracingConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	ServiceName    string  `mapstructure:"service_name"`
	ServiceVersion string  `mapstructure:"service_version"`
	SamplingRatio  float64 `mapstructure:"sampling_ratio"`
}

// NewTracerProvider configures the global tracer provider with a stdout
// exporter. Disabled tracing installs a no-op provider so instrumented code
// needs no branches.
func NewTracerProvider(lc fx.Lifecycle, cfg TracingConfig, log *zap.Logger) (trace.TracerProvider, error) {
	if !cfg.Enabled {
		provider := trace.NewNoopTracerProvider()
		otel.SetTracerProvider(provider)
		return provider, nil
	}

	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "connector-gateway"
	}
	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			attribute.String("service.name", serviceName),
			attribute.String("service.version", cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, err
	}

	ratio := cfg.SamplingRatio
	if ratio <= 0 || ratio > 1 {
		ratio = 1
	}
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))),
	)
	otel.SetTracerProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if err := provider.Shutdown(ctx); err != nil {
					log.Warn("tracer provider shutdown", zap.Error(err))
				}
				return nil
			},
		})
	}
	return provider, nil
}
