package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	api "go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"

	"github.com/dynsix/dynsix/pkg/buildinfo"
)

const prefix = "ds"

type AppMetrics struct {
	registry *prometheus.Registry

	reconciliations api.Int64Counter
	discoveries     api.Int64Counter
	apiCalls        api.Float64Histogram
}

func NewAppMetrics(ctx context.Context) (m *AppMetrics, shutdownFn func(ctx context.Context) error, err error) {
	m = &AppMetrics{
		registry: prometheus.NewRegistry(),
	}

	exporter, err := otelprom.New(otelprom.WithRegisterer(m.registry))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create Prometheus exporter: %w", err)
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", buildinfo.AppName),
		attribute.String("service.version", buildinfo.AppVersion),
	)

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(res),
	)
	shutdownFn = provider.Shutdown
	meter := provider.Meter(buildinfo.AppName)

	m.reconciliations, err = meter.Int64Counter(
		prefix+"_reconciliations",
		api.WithDescription("The number of service reconciliations performed"),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create "+prefix+"_reconciliations meter: %w", err)
	}

	m.discoveries, err = meter.Int64Counter(
		prefix+"_discoveries",
		api.WithDescription("The number of public IP discovery attempts"),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create "+prefix+"_discoveries meter: %w", err)
	}

	m.apiCalls, err = meter.Float64Histogram(
		prefix+"_api_calls",
		api.WithDescription("API calls to providers and duration in milliseconds"),
		api.WithExplicitBucketBoundaries(20, 50, 100, 200, 400, 600, 800, 1000, 1500, 2500),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create "+prefix+"_api_calls meter: %w", err)
	}

	return m, shutdownFn, nil
}

// Registry returns the Prometheus registry metrics are exported to
func (m *AppMetrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

//nolint:contextcheck
func (m *AppMetrics) RecordReconciliation(service string, action string, ok bool) {
	if m == nil {
		return
	}

	m.reconciliations.Add(
		context.Background(),
		1,
		api.WithAttributeSet(
			attribute.NewSet(
				attribute.KeyValue{Key: "service", Value: attribute.StringValue(service)},
				attribute.KeyValue{Key: "action", Value: attribute.StringValue(action)},
				attribute.KeyValue{Key: "ok", Value: attribute.BoolValue(ok)},
			),
		),
	)
}

//nolint:contextcheck
func (m *AppMetrics) RecordDiscovery(ok bool) {
	if m == nil {
		return
	}

	m.discoveries.Add(
		context.Background(),
		1,
		api.WithAttributeSet(
			attribute.NewSet(
				attribute.KeyValue{Key: "ok", Value: attribute.BoolValue(ok)},
			),
		),
	)
}

//nolint:contextcheck
func (m *AppMetrics) RecordAPICall(provider string, method string, path string, ok bool, duration time.Duration) {
	if m == nil {
		return
	}

	m.apiCalls.Record(
		context.Background(),
		float64(duration.Microseconds())/1000,
		api.WithAttributeSet(
			attribute.NewSet(
				attribute.KeyValue{Key: "provider", Value: attribute.StringValue(provider)},
				attribute.KeyValue{Key: "method", Value: attribute.StringValue(method)},
				attribute.KeyValue{Key: "path", Value: attribute.StringValue(path)},
				attribute.KeyValue{Key: "ok", Value: attribute.BoolValue(ok)},
			),
		),
	)
}
