// Package history keeps one benchmark snapshot per completed refresh so that
// efficiency can be followed over time.
package history

import (
	"time"

	"github.com/google/uuid"
)

type Snapshot struct {
	Id                     int
	CycleId                uuid.UUID
	RecordedAt             time.Time
	LoadedPlans            int
	PlannedHours           float64
	ActualHours            float64
	CompletedTasks         int
	TasksAheadOfSchedule   int
	EfficiencyRatio        *int
	AheadOfSchedulePercent *int
	AverageTimeSaved       float64
	Simulated              bool
	// PlanCompletion maps plan ids to their overall completion percentage.
	PlanCompletion map[string]int
}
