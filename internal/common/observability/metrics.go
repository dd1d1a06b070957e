// internal/common/observability/metrics.go
package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

// Observability owns the otel meter provider used to record background task
// throughput and latency. A zero value is safe to use and records nothing.
type Observability struct {
	meterProvider *metric.MeterProvider
	taskCounter   otelmetric.Int64Counter
	taskDuration  otelmetric.Float64Histogram
}

func New(serviceName string) (*Observability, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return &Observability{}, err
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	taskCounter, err := meter.Int64Counter(
		"tasks.processed",
		otelmetric.WithDescription("Number of background tasks processed"),
	)
	if err != nil {
		return &Observability{meterProvider: provider}, err
	}

	taskDuration, err := meter.Float64Histogram(
		"tasks.duration",
		otelmetric.WithDescription("Background task processing duration"),
		otelmetric.WithUnit("ms"),
	)
	if err != nil {
		return &Observability{meterProvider: provider}, err
	}

	return &Observability{
		meterProvider: provider,
		taskCounter:   taskCounter,
		taskDuration:  taskDuration,
	}, nil
}

// RecordTask records one processed task of the given kind and its outcome.
func (o *Observability) RecordTask(ctx context.Context, kind, status string, duration time.Duration) {
	if o == nil {
		return
	}
	attrs := otelmetric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("status", status),
	)
	if o.taskCounter != nil {
		o.taskCounter.Add(ctx, 1, attrs)
	}
	if o.taskDuration != nil {
		o.taskDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	}
}

func (o *Observability) Shutdown(ctx context.Context) error {
	if o == nil || o.meterProvider == nil {
		return nil
	}
	return o.meterProvider.Shutdown(ctx)
}
