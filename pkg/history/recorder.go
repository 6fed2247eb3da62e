package history

import (
	"github.com/abts/buildmonitor/internal/event_bus"
	log "github.com/sirupsen/logrus"
)

// Recorder stores a snapshot for every refresh whose benchmark is ready.
type Recorder struct {
	repo Repository
}

func NewRecorder(repo Repository) *Recorder {
	return &Recorder{repo: repo}
}

// Subscribe registers the recorder on the bus and returns the unsubscribe
// function.
func (r *Recorder) Subscribe(bus *event_bus.EventBus) func() {
	return event_bus.SubscribeTyped(bus, event_bus.PlansRefreshedType, r.onPlansRefreshed)
}

func (r *Recorder) onPlansRefreshed(e event_bus.EventT[event_bus.PlansRefreshed]) error {
	event := e.Data
	if !event.Ready {
		log.Debugf("Benchmark of cycle %s is incomplete, not recording", event.CycleId)
		return nil
	}

	id, err := r.repo.StoreSnapshot(e.Context(), Snapshot{
		CycleId:                event.CycleId,
		RecordedAt:             event.FinishedAt,
		LoadedPlans:            event.LoadedPlans,
		PlannedHours:           event.TotalPlannedHours,
		ActualHours:            event.TotalActualHours,
		CompletedTasks:         event.TotalCompletedTasks,
		TasksAheadOfSchedule:   event.TasksAheadOfSchedule,
		EfficiencyRatio:        event.EfficiencyRatio,
		AheadOfSchedulePercent: event.AheadOfSchedulePercent,
		AverageTimeSaved:       event.AverageTimeSaved,
		Simulated:              event.Simulated,
		PlanCompletion:         event.PlanCompletion,
	})
	if err != nil {
		return err
	}
	log.Debugf("Recorded benchmark snapshot %d for cycle %s", id, event.CycleId)
	return nil
}
