package telemetry

import (
	"context"

	"github.com/abts/buildmonitor/internal/event_bus"
)

// NoOpRecorder is used when telemetry is disabled.
type NoOpRecorder struct{}

func NewNoOpRecorder() *NoOpRecorder {
	return &NoOpRecorder{}
}

func (r *NoOpRecorder) RecordRefresh(ctx context.Context, event event_bus.PlansRefreshed) {}

func (r *NoOpRecorder) RecordFailure(ctx context.Context) {}

func (r *NoOpRecorder) Close(ctx context.Context) error {
	return nil
}
