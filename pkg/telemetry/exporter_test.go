package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/abts/buildmonitor/internal/config"
	"github.com/abts/buildmonitor/internal/event_bus"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/resource"
)

func setupExporter(t *testing.T) (*Exporter, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	exporter, err := newExporter(reader, resource.Empty())
	require.NoError(t, err)
	t.Cleanup(func() { exporter.Close(context.Background()) })
	return exporter, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	metrics := map[string]metricdata.Metrics{}
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			metrics[m.Name] = m
		}
	}
	return metrics
}

func counterByOutcome(t *testing.T, m metricdata.Metrics) map[string]int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	counts := map[string]int64{}
	for _, dp := range sum.DataPoints {
		outcome, _ := dp.Attributes.Value(attribute.Key("outcome"))
		counts[outcome.AsString()] = dp.Value
	}
	return counts
}

func TestRecordRefresh(t *testing.T) {
	exporter, reader := setupExporter(t)
	efficiency := 118
	bus := event_bus.NewEventBus()
	Subscribe(bus, exporter)

	err := bus.Publish(event_bus.NewEvent(context.Background(), event_bus.PlansRefreshedType, event_bus.PlansRefreshed{
		CycleId:           uuid.New(),
		Ready:             true,
		TotalPlannedHours: 200,
		TotalActualHours:  169.5,
		EfficiencyRatio:   &efficiency,
		PlanCompletion:    map[string]int{"hydrogen_implementation": 67, "processor_implementation": 50},
	}))
	require.NoError(t, err)
	require.NoError(t, bus.Publish(event_bus.NewEvent(context.Background(), event_bus.RefreshFailedType,
		event_bus.RefreshFailed{CycleId: uuid.New(), Err: errors.New("offline")})))

	metrics := collect(t, reader)

	assert.Equal(t, map[string]int64{OutcomeSuccess: 1, OutcomeFailure: 1}, counterByOutcome(t, metrics["buildmonitor_refresh_total"]))

	completion, ok := metrics["buildmonitor_plan_completion_percent"].Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	byPlan := map[string]int64{}
	for _, dp := range completion.DataPoints {
		planId, _ := dp.Attributes.Value(attribute.Key("plan"))
		byPlan[planId.AsString()] = dp.Value
	}
	assert.Equal(t, map[string]int64{"hydrogen_implementation": 67, "processor_implementation": 50}, byPlan)

	efficiencyGauge, ok := metrics["buildmonitor_efficiency_percent"].Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, efficiencyGauge.DataPoints, 1)
	assert.Equal(t, int64(118), efficiencyGauge.DataPoints[0].Value)

	actual, ok := metrics["buildmonitor_actual_hours"].Data.(metricdata.Gauge[float64])
	require.True(t, ok)
	assert.Equal(t, 169.5, actual.DataPoints[0].Value)
}

func TestRecordRefresh_IncompleteOnlyCounts(t *testing.T) {
	exporter, reader := setupExporter(t)

	exporter.RecordRefresh(context.Background(), event_bus.PlansRefreshed{Ready: false, FailedPlans: 1})

	metrics := collect(t, reader)
	assert.Equal(t, map[string]int64{OutcomePartial: 1}, counterByOutcome(t, metrics["buildmonitor_refresh_total"]))
	assert.NotContains(t, metrics, "buildmonitor_efficiency_percent")
	assert.NotContains(t, metrics, "buildmonitor_planned_hours")
}

func TestNewExporter_Disabled(t *testing.T) {
	_, err := NewExporter(context.Background(), config.Otel{Enabled: false}, "test")

	assert.Error(t, err)
}

func TestNoOpRecorder(t *testing.T) {
	var r Recorder = NewNoOpRecorder()

	r.RecordRefresh(context.Background(), event_bus.PlansRefreshed{Ready: true})
	r.RecordFailure(context.Background())

	assert.NoError(t, r.Close(context.Background()))
}
