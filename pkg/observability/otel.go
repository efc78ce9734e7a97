// Package observability wires optional OpenTelemetry metrics export.
// The analyzer exposes Prometheus text metrics unconditionally; OTLP
// push is enabled only when an endpoint is configured.
package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// OTelExporter owns the OTLP metric pipeline for one service process.
type OTelExporter struct {
	provider *sdkmetric.MeterProvider
}

// NewOTelExporter creates an OTLP HTTP metric exporter pushing to the
// given endpoint every interval.
func NewOTelExporter(ctx context.Context, serviceName, endpoint string, interval time.Duration) (*OTelExporter, error) {
	if interval <= 0 {
		interval = 60 * time.Second
	}

	exporter, err := otlpmetrichttp.New(ctx,
		otlpmetrichttp.WithEndpoint(endpoint),
		otlpmetrichttp.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("observability: create OTLP metric exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String(serviceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("observability: create resource: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(provider)

	return &OTelExporter{provider: provider}, nil
}

// Shutdown flushes and stops the metric pipeline.
func (e *OTelExporter) Shutdown(ctx context.Context) error {
	if e == nil || e.provider == nil {
		return nil
	}
	return e.provider.Shutdown(ctx)
}
