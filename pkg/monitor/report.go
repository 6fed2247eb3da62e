package monitor

import (
	"maps"
	"slices"
	"time"

	"github.com/abts/buildmonitor/internal/event_bus"
	"github.com/abts/buildmonitor/pkg/benchmark"
	"github.com/abts/buildmonitor/pkg/plan"
	"github.com/abts/buildmonitor/pkg/progress"
	"github.com/abts/buildmonitor/pkg/timing"
	"github.com/google/uuid"
)

type PlanReport struct {
	Ref plan.Ref
	// Loaded is false until the first successful fetch of the plan.
	Loaded    bool
	FetchedAt time.Time
	// Error is the failure of the last fetch, if any. A loaded plan keeps
	// reporting its previous document.
	Error    string
	Progress progress.PlanProgress
	// Timing is nil while the benchmark is incomplete.
	Timing *timing.PlanTiming
}

// Report is the outcome of one refresh cycle. It is never modified once
// published.
type Report struct {
	CycleId    uuid.UUID
	StartedAt  time.Time
	FinishedAt time.Time
	Plans      []PlanReport
	Benchmark  benchmark.Summary
	// Errors maps plan ids to the fetch or decode failure of this cycle.
	Errors map[string]string
}

func (r *Report) Plan(id string) (PlanReport, bool) {
	for _, p := range r.Plans {
		if p.Ref.Id == id {
			return p, true
		}
	}
	return PlanReport{}, false
}

func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

func (r *Report) LoadedPlans() int {
	loaded := 0
	for _, p := range r.Plans {
		if p.Loaded {
			loaded++
		}
	}
	return loaded
}

// FailedPlanIds returns the ids with errors in lexical order.
func (r *Report) FailedPlanIds() []string {
	return slices.Sorted(maps.Keys(r.Errors))
}

func (r *Report) toEvent() event_bus.PlansRefreshed {
	completion := make(map[string]int, len(r.Plans))
	for _, p := range r.Plans {
		if p.Loaded && p.Progress.IsKnown() {
			completion[p.Ref.Id] = p.Progress.Overall.CompletionPercentage
		}
	}

	summary := r.Benchmark
	return event_bus.PlansRefreshed{
		CycleId:                r.CycleId,
		StartedAt:              r.StartedAt,
		FinishedAt:             r.FinishedAt,
		LoadedPlans:            r.LoadedPlans(),
		FailedPlans:            len(r.Errors),
		Ready:                  summary.IsReady(),
		TotalPlannedHours:      summary.TotalPlannedHours,
		TotalActualHours:       summary.TotalActualHours,
		TotalCompletedTasks:    summary.TotalCompletedTasks,
		TasksAheadOfSchedule:   summary.TasksAheadOfSchedule,
		EfficiencyRatio:        summary.EfficiencyRatio.Ptr(),
		AheadOfSchedulePercent: summary.AheadOfSchedulePercent.Ptr(),
		AverageTimeSaved:       summary.AverageTimeSaved,
		Simulated:              summary.Simulated,
		PlanCompletion:         completion,
	}
}
