package event_bus

import (
	"time"

	"github.com/google/uuid"
)

const (
	PlansRefreshedType EventType = "plans.refreshed"
	RefreshFailedType  EventType = "plans.refresh_failed"
)

// PlansRefreshed is published after every completed refresh cycle.
type PlansRefreshed struct {
	CycleId     uuid.UUID
	StartedAt   time.Time
	FinishedAt  time.Time
	LoadedPlans int
	FailedPlans int
	// Ready is false while at least one tracked plan has never been loaded.
	Ready bool

	TotalPlannedHours    float64
	TotalActualHours     float64
	TotalCompletedTasks  int
	TasksAheadOfSchedule int
	// EfficiencyRatio and AheadOfSchedulePercent are nil when undefined.
	EfficiencyRatio        *int
	AheadOfSchedulePercent *int
	AverageTimeSaved       float64
	Simulated              bool
	// PlanCompletion holds the overall completion percentage per plan id.
	PlanCompletion map[string]int
}

// RefreshFailed is published when plan discovery fails and no cycle runs.
type RefreshFailed struct {
	CycleId uuid.UUID
	Err     error
}
