package timing

import (
	"time"

	"github.com/abts/buildmonitor/pkg/plan"
)

// Record is the planned-vs-actual comparison for one completed unit of work:
// a task, an additional feature or, for week-based plans, a whole week.
type Record struct {
	Name         string
	PlannedHours float64
	ActualHours  float64
	Status       string
	StartedAt    *time.Time
	CompletedAt  *time.Time
	// Simulated is set when ActualHours and the timestamps were generated
	// rather than derived from the plan document.
	Simulated bool
}

func (r Record) IsDone() bool {
	return r.Status == plan.StatusDone
}

type PlanTiming struct {
	PlanName             string
	Kind                 plan.Kind
	PlannedHours         float64
	ActualHours          float64
	TasksAheadOfSchedule int
	CompletedTasks       int
	Records              []Record
	// Simulated is set for week-based plans, whose actual hours are generated.
	Simulated bool
	// Skipped lists sections and tasks left out of the totals.
	Skipped []string
}

// IsKnown reports whether the plan had a recognised structure. Unknown plans
// contribute nothing to any total.
func (t PlanTiming) IsKnown() bool {
	return t.Kind != plan.Unknown
}
