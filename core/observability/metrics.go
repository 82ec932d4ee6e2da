package observability

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

type metrics struct {
	httpRequestsTotal       metric.Int64Counter
	httpRequestDuration     metric.Float64Histogram
	templateExecutionsTotal metric.Int64Counter
	templateDuration        metric.Float64Histogram
	sessionOpsTotal         metric.Int64Counter
	sessionOpDuration       metric.Float64Histogram
}

var (
	metricsOnce sync.Once
	m           metrics
)

func buildMeterProvider(ctx context.Context, cfg Config) (*sdkmetric.MeterProvider, error) {
	if !cfg.Enabled || !cfg.MetricsEnabled {
		return sdkmetric.NewMeterProvider(), nil
	}

	exporter, err := otlpmetricgrpc.New(
		ctx,
		otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("create otlp metric exporter: %w", err)
	}

	res, err := resource.New(
		ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create metric resource: %w", err)
	}

	return sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(exporter),
		),
	), nil
}

func initInstruments() {
	metricsOnce.Do(func() {
		meter := otel.Meter("dbrun/runtime")
		m.httpRequestsTotal, _ = meter.Int64Counter("dbrun.http.server.requests_total")
		m.httpRequestDuration, _ = meter.Float64Histogram("dbrun.http.server.request_duration_ms")
		m.templateExecutionsTotal, _ = meter.Int64Counter("dbrun.template.executions_total")
		m.templateDuration, _ = meter.Float64Histogram("dbrun.template.execution_duration_ms")
		m.sessionOpsTotal, _ = meter.Int64Counter("dbrun.session.operations_total")
		m.sessionOpDuration, _ = meter.Float64Histogram("dbrun.session.operation_duration_ms")
	})
}

func RecordHTTPRequest(ctx context.Context, method, route string, status int, durationMS float64) {
	initInstruments()
	attrs := metric.WithAttributes(
		attribute.String(AttrHTTPMethod, method),
		attribute.String(AttrHTTPRoute, route),
		attribute.Int(AttrHTTPStatusCode, status),
	)
	m.httpRequestsTotal.Add(ctx, 1, attrs)
	m.httpRequestDuration.Record(ctx, durationMS, attrs)
}

func RecordTemplateExecution(ctx context.Context, templateName string, success bool, durationMS float64) {
	initInstruments()
	attrs := metric.WithAttributes(
		attribute.String(AttrTemplateName, templateName),
		attribute.Bool("success", success),
	)
	m.templateExecutionsTotal.Add(ctx, 1, attrs)
	m.templateDuration.Record(ctx, durationMS, attrs)
}

func RecordSessionOperation(ctx context.Context, driver, operation string, success bool, durationMS float64) {
	initInstruments()
	attrs := metric.WithAttributes(
		attribute.String(AttrDriverName, driver),
		attribute.String("operation", operation),
		attribute.Bool("success", success),
	)
	m.sessionOpsTotal.Add(ctx, 1, attrs)
	m.sessionOpDuration.Record(ctx, durationMS, attrs)
}
