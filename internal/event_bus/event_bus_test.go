package event_bus

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublish_HandlersRunInSubscriptionOrder(t *testing.T) {
	bus := NewEventBus()
	var calls []int
	for i := 1; i <= 5; i++ {
		bus.Subscribe("ordered", func(e Event) error {
			calls = append(calls, i)
			return nil
		})
	}

	err := bus.Publish(NewEvent(context.Background(), "ordered", nil))

	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, calls)
}

func TestPublish_ErrorsAndPanicsDoNotStopOtherHandlers(t *testing.T) {
	bus := NewEventBus()
	failure := errors.New("boom")
	reached := false
	bus.Subscribe("mixed", func(e Event) error { return failure })
	bus.Subscribe("mixed", func(e Event) error { panic("handler exploded") })
	bus.Subscribe("mixed", func(e Event) error {
		reached = true
		return nil
	})

	err := bus.Publish(NewEvent(context.Background(), "mixed", nil))

	require.Error(t, err)
	assert.ErrorIs(t, err, failure)
	assert.Contains(t, err.Error(), "2 handler(s) failed")
	assert.True(t, reached)
}

func TestPublish_CancelledContext(t *testing.T) {
	bus := NewEventBus()
	called := false
	bus.Subscribe("cancelled", func(e Event) error {
		called = true
		return nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := bus.Publish(NewEvent(ctx, "cancelled", nil))

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestUnsubscribe(t *testing.T) {
	bus := NewEventBus()
	var calls []string
	unsubFirst := bus.Subscribe("unsub", func(e Event) error {
		calls = append(calls, "first")
		return nil
	})
	bus.Subscribe("unsub", func(e Event) error {
		calls = append(calls, "second")
		return nil
	})

	unsubFirst()
	unsubFirst()
	require.NoError(t, bus.Publish(NewEvent(context.Background(), "unsub", nil)))

	assert.Equal(t, []string{"second"}, calls)
}

func TestSubscribeTyped_SkipsOtherPayloads(t *testing.T) {
	bus := NewEventBus()
	var received []PlansRefreshed
	SubscribeTyped(bus, PlansRefreshedType, func(e EventT[PlansRefreshed]) error {
		received = append(received, e.Data)
		return nil
	})
	cycle := uuid.New()

	require.NoError(t, bus.Publish(NewEvent(context.Background(), PlansRefreshedType, "not a payload")))
	require.NoError(t, bus.Publish(NewEvent(context.Background(), PlansRefreshedType, nil)))
	require.NoError(t, bus.Publish(NewEvent(context.Background(), PlansRefreshedType, PlansRefreshed{CycleId: cycle, LoadedPlans: 3})))

	require.Len(t, received, 1)
	assert.Equal(t, cycle, received[0].CycleId)
	assert.Equal(t, 3, received[0].LoadedPlans)
}
