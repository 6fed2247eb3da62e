package history

import (
	"context"
	"testing"

	"github.com/abts/buildmonitor/internal/event_bus"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func publish(t *testing.T, bus *event_bus.EventBus, event event_bus.PlansRefreshed) error {
	t.Helper()
	return bus.Publish(event_bus.NewEvent(context.Background(), event_bus.PlansRefreshedType, event))
}

func TestRecorder_StoresReadySummaries(t *testing.T) {
	repo := NewRepositoryStub()
	bus := event_bus.NewEventBus()
	NewRecorder(repo).Subscribe(bus)
	efficiency := 95
	event := event_bus.PlansRefreshed{
		CycleId:             uuid.New(),
		FinishedAt:          recordedAt,
		LoadedPlans:         2,
		Ready:               true,
		TotalPlannedHours:   160,
		TotalActualHours:    168.4,
		TotalCompletedTasks: 4,
		EfficiencyRatio:     &efficiency,
		PlanCompletion:      map[string]int{"hydrogen_implementation": 67},
	}

	require.NoError(t, publish(t, bus, event))

	stored, err := repo.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, event.CycleId, stored[0].CycleId)
	assert.Equal(t, recordedAt, stored[0].RecordedAt)
	assert.Equal(t, 168.4, stored[0].ActualHours)
	assert.Equal(t, 95, *stored[0].EfficiencyRatio)
	assert.Nil(t, stored[0].AheadOfSchedulePercent)
	assert.Equal(t, map[string]int{"hydrogen_implementation": 67}, stored[0].PlanCompletion)
}

func TestRecorder_SkipsIncompleteSummaries(t *testing.T) {
	repo := NewRepositoryStub()
	bus := event_bus.NewEventBus()
	NewRecorder(repo).Subscribe(bus)

	require.NoError(t, publish(t, bus, event_bus.PlansRefreshed{CycleId: uuid.New(), Ready: false}))

	stored, err := repo.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestRecorder_ReportsRepositoryErrors(t *testing.T) {
	repo := NewRepositoryStub()
	repo.Err = assert.AnError
	bus := event_bus.NewEventBus()
	unsubscribe := NewRecorder(repo).Subscribe(bus)

	err := publish(t, bus, event_bus.PlansRefreshed{CycleId: uuid.New(), Ready: true})
	assert.ErrorIs(t, err, assert.AnError)

	unsubscribe()
	assert.NoError(t, publish(t, bus, event_bus.PlansRefreshed{CycleId: uuid.New(), Ready: true}))
}
