package benchmark

import (
	"math"
	"slices"
	"time"

	"github.com/abts/buildmonitor/pkg/plan"
	"github.com/abts/buildmonitor/pkg/store"
	"github.com/abts/buildmonitor/pkg/timing"
)

// MaxRecentTasks bounds Summary.RecentTasks.
const MaxRecentTasks = 10

type State string

const (
	StateReady State = "ready"
	// StateIncomplete means at least one tracked plan has not been loaded
	// yet; no aggregates are computed.
	StateIncomplete State = "incomplete"
)

// Ratio is a rounded percentage. Valid is false when the denominator was
// zero and there is no meaningful value.
type Ratio struct {
	Value int
	Valid bool
}

func NewRatio(numerator, denominator float64) Ratio {
	if denominator == 0 {
		return Ratio{}
	}
	value := math.Round(numerator / denominator * 100)
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return Ratio{}
	}
	return Ratio{Value: int(value), Valid: true}
}

// Ptr returns nil for an invalid ratio.
func (r Ratio) Ptr() *int {
	if !r.Valid {
		return nil
	}
	v := r.Value
	return &v
}

// Comparison is the planned-vs-actual total of one plan.
type Comparison struct {
	Name         string
	PlannedHours float64
	ActualHours  float64
	Simulated    bool
}

type Summary struct {
	State        State
	MissingPlans []string

	TotalPlannedHours    float64
	TotalActualHours     float64
	TasksAheadOfSchedule int
	TotalCompletedTasks  int

	EfficiencyRatio        Ratio
	AheadOfSchedulePercent Ratio
	AverageTimeSaved       float64

	Comparisons []Comparison
	RecentTasks []timing.Record
	// Simulated is set when any plan contributed simulated hours.
	Simulated bool
}

func (s Summary) IsReady() bool {
	return s.State == StateReady
}

// Summarize aggregates the timings of every plan. Plans of unknown
// structure are ignored.
func Summarize(timings []timing.PlanTiming) Summary {
	summary := Summary{State: StateReady}
	var records []timing.Record
	for _, t := range timings {
		if !t.IsKnown() {
			continue
		}
		summary.TotalPlannedHours += t.PlannedHours
		summary.TotalActualHours += t.ActualHours
		summary.TasksAheadOfSchedule += t.TasksAheadOfSchedule
		summary.TotalCompletedTasks += t.CompletedTasks
		summary.Simulated = summary.Simulated || t.Simulated
		summary.Comparisons = append(summary.Comparisons, Comparison{
			Name:         t.PlanName,
			PlannedHours: t.PlannedHours,
			ActualHours:  t.ActualHours,
			Simulated:    t.Simulated,
		})
		records = append(records, t.Records...)
	}

	summary.EfficiencyRatio = NewRatio(summary.TotalPlannedHours, summary.TotalActualHours)
	summary.AheadOfSchedulePercent = NewRatio(float64(summary.TasksAheadOfSchedule), float64(summary.TotalCompletedTasks))
	if summary.TotalCompletedTasks > 0 {
		summary.AverageTimeSaved = (summary.TotalPlannedHours - summary.TotalActualHours) / float64(summary.TotalCompletedTasks)
	}
	summary.RecentTasks = MostRecent(records, MaxRecentTasks)
	return summary
}

// Build checks that every tracked plan has a document in the snapshot,
// extracts the timing of each one and summarizes them. When a document is
// missing it returns an incomplete summary and no timings.
func Build(tracked []plan.Ref, snapshot store.Snapshot, extractor *timing.Extractor) (Summary, []timing.PlanTiming) {
	var missing []string
	for _, ref := range tracked {
		if !snapshot.Has(ref.Id) {
			missing = append(missing, ref.Id)
		}
	}
	if len(missing) > 0 {
		return Summary{State: StateIncomplete, MissingPlans: missing}, nil
	}

	timings := make([]timing.PlanTiming, 0, len(tracked))
	for _, ref := range tracked {
		doc, _ := snapshot.Get(ref.Id)
		timings = append(timings, extractor.Extract(doc.Plan, ref.DisplayName))
	}
	return Summarize(timings), timings
}

// MostRecent orders records with done records first, most recently
// completed first, followed by the rest in their original order, and keeps
// at most limit of them. The input is not modified.
func MostRecent(records []timing.Record, limit int) []timing.Record {
	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, compareRecency)
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}

func compareRecency(a, b timing.Record) int {
	aDone, bDone := a.IsDone(), b.IsDone()
	switch {
	case aDone && bDone:
		return completedAt(b).Compare(completedAt(a))
	case aDone:
		return -1
	case bDone:
		return 1
	default:
		return 0
	}
}

func completedAt(r timing.Record) time.Time {
	if r.CompletedAt == nil {
		return time.Time{}
	}
	return *r.CompletedAt
}
