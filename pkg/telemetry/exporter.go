// Package telemetry exports refresh outcomes and benchmark figures as
// OpenTelemetry metrics.
package telemetry

import (
	"context"
	"fmt"

	"github.com/abts/buildmonitor/internal/config"
	"github.com/abts/buildmonitor/internal/event_bus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const serviceName = "buildmonitor"

const (
	OutcomeSuccess = "success"
	OutcomePartial = "partial"
	OutcomeFailure = "failure"
)

type Recorder interface {
	RecordRefresh(ctx context.Context, event event_bus.PlansRefreshed)
	RecordFailure(ctx context.Context)
	Close(ctx context.Context) error
}

type Exporter struct {
	provider       *sdkmetric.MeterProvider
	planCompletion metric.Int64Gauge
	efficiency     metric.Int64Gauge
	plannedHours   metric.Float64Gauge
	actualHours    metric.Float64Gauge
	refreshes      metric.Int64Counter
}

// NewExporter pushes metrics to an OTLP/gRPC collector.
func NewExporter(ctx context.Context, cfg config.Otel, version string) (*Exporter, error) {
	if !cfg.Enabled || cfg.Endpoint == "" {
		return nil, fmt.Errorf("OTEL exporter is disabled or endpoint not configured")
	}

	opts := []otlpmetricgrpc.Option{
		otlpmetricgrpc.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())))
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}

	exp, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating OTLP exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	exporter, err := newExporter(sdkmetric.NewPeriodicReader(exp), res)
	if err != nil {
		return nil, err
	}
	otel.SetMeterProvider(exporter.provider)
	return exporter, nil
}

func newExporter(reader sdkmetric.Reader, res *resource.Resource) (*Exporter, error) {
	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(reader),
		sdkmetric.WithResource(res),
	)
	meter := provider.Meter(serviceName)

	planCompletion, err := meter.Int64Gauge(
		"buildmonitor_plan_completion_percent",
		metric.WithDescription("Completed tasks of a plan in percent"),
		metric.WithUnit("%"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating plan completion gauge: %w", err)
	}

	efficiency, err := meter.Int64Gauge(
		"buildmonitor_efficiency_percent",
		metric.WithDescription("Planned hours over actual hours in percent"),
		metric.WithUnit("%"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating efficiency gauge: %w", err)
	}

	plannedHours, err := meter.Float64Gauge(
		"buildmonitor_planned_hours",
		metric.WithDescription("Planned hours of all completed work"),
		metric.WithUnit("h"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating planned hours gauge: %w", err)
	}

	actualHours, err := meter.Float64Gauge(
		"buildmonitor_actual_hours",
		metric.WithDescription("Actual hours of all completed work"),
		metric.WithUnit("h"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating actual hours gauge: %w", err)
	}

	refreshes, err := meter.Int64Counter(
		"buildmonitor_refresh_total",
		metric.WithDescription("Refresh cycles by outcome"),
		metric.WithUnit("{refresh}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating refresh counter: %w", err)
	}

	return &Exporter{
		provider:       provider,
		planCompletion: planCompletion,
		efficiency:     efficiency,
		plannedHours:   plannedHours,
		actualHours:    actualHours,
		refreshes:      refreshes,
	}, nil
}

// RecordRefresh counts the cycle and, when the benchmark is ready, updates
// the gauges. An undefined efficiency ratio leaves the gauge untouched.
func (e *Exporter) RecordRefresh(ctx context.Context, event event_bus.PlansRefreshed) {
	outcome := OutcomeSuccess
	if event.FailedPlans > 0 {
		outcome = OutcomePartial
	}
	e.refreshes.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))

	for planId, completion := range event.PlanCompletion {
		e.planCompletion.Record(ctx, int64(completion), metric.WithAttributes(attribute.String("plan", planId)))
	}

	if !event.Ready {
		return
	}
	simulated := metric.WithAttributes(attribute.Bool("simulated", event.Simulated))
	e.plannedHours.Record(ctx, event.TotalPlannedHours, simulated)
	e.actualHours.Record(ctx, event.TotalActualHours, simulated)
	if event.EfficiencyRatio != nil {
		e.efficiency.Record(ctx, int64(*event.EfficiencyRatio), simulated)
	}
}

func (e *Exporter) RecordFailure(ctx context.Context) {
	e.refreshes.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", OutcomeFailure)))
}

// Close flushes pending metrics and shuts the provider down.
func (e *Exporter) Close(ctx context.Context) error {
	return e.provider.Shutdown(ctx)
}

// Subscribe feeds refresh events from the bus into r.
func Subscribe(bus *event_bus.EventBus, r Recorder) func() {
	unsubRefreshed := event_bus.SubscribeTyped(bus, event_bus.PlansRefreshedType, func(e event_bus.EventT[event_bus.PlansRefreshed]) error {
		r.RecordRefresh(e.Context(), e.Data)
		return nil
	})
	unsubFailed := event_bus.SubscribeTyped(bus, event_bus.RefreshFailedType, func(e event_bus.EventT[event_bus.RefreshFailed]) error {
		r.RecordFailure(e.Context())
		return nil
	})
	return func() {
		unsubRefreshed()
		unsubFailed()
	}
}
