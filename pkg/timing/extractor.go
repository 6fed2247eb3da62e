package timing

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/abts/buildmonitor/pkg/plan"
	"github.com/abts/buildmonitor/pkg/workhours"
)

const (
	// Simulated week efficiency is drawn uniformly from [0.8, 1.2).
	weekEfficiencyMin    = 0.8
	weekEfficiencySpread = 0.4
)

// SimulationEpoch anchors the generated timestamps of week-based plans:
// week N runs from SimulationEpoch+(7N+1) days to 6 days later.
var SimulationEpoch = time.Date(2023, time.March, 31, 0, 0, 0, 0, time.UTC)

// EfficiencySource yields values in [0, 1). *rand.Rand satisfies it.
type EfficiencySource interface {
	Float64() float64
}

type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }

type Extractor struct {
	rand EfficiencySource
}

// NewExtractor returns an extractor drawing simulated week efficiency from
// source, or from the global generator when source is nil.
func NewExtractor(source EfficiencySource) *Extractor {
	if source == nil {
		source = globalRand{}
	}
	return &Extractor{rand: source}
}

// NewSeededExtractor returns an extractor with a reproducible sequence.
// It must not be shared between goroutines.
func NewSeededExtractor(seed uint64) *Extractor {
	return NewExtractor(rand.New(rand.NewPCG(seed, seed)))
}

// Extract builds the planned-vs-actual timing of one plan. name prefixes
// every record name.
func (e *Extractor) Extract(p plan.Plan, name string) PlanTiming {
	result := PlanTiming{PlanName: name, Kind: p.Kind}
	switch p.Kind {
	case plan.PhaseBased:
		e.extractPhases(p, name, &result)
		e.extractFeatures(p, name, &result)
	case plan.WeekBased:
		e.extractWeeks(p, name, &result)
	}
	return result
}

func (e *Extractor) extractPhases(p plan.Plan, name string, result *PlanTiming) {
	for _, phase := range p.Phases {
		weeksCount, ok := ParseWeekRange(phase.Weeks)
		if !ok {
			if phase.Weeks != "" {
				result.Skipped = append(result.Skipped, fmt.Sprintf("phase %q: invalid week range %q", phase.Name, phase.Weeks))
			}
			continue
		}
		phaseHours := float64(weeksCount * workhours.HoursPerWeek)
		result.PlannedHours += phaseHours
		if len(phase.Tasks) == 0 {
			continue
		}
		hoursPerTask := phaseHours / float64(len(phase.Tasks))

		for _, task := range phase.Tasks {
			if !task.IsDone() || task.StartedAt == nil || task.CompletedAt == nil {
				continue
			}
			hours, err := workhours.WorkingHours(*task.StartedAt, *task.CompletedAt)
			if err != nil {
				result.Skipped = append(result.Skipped, fmt.Sprintf("task %q: %v", task.Description, err))
				continue
			}
			actualHours := float64(hours)
			result.ActualHours += actualHours
			if actualHours < hoursPerTask {
				result.TasksAheadOfSchedule++
			}
			result.CompletedTasks++
			result.Records = append(result.Records, Record{
				Name:         fmt.Sprintf("%s: %s - %s", name, phase.Name, task.Description),
				PlannedHours: hoursPerTask,
				ActualHours:  actualHours,
				Status:       task.Status,
				StartedAt:    task.StartedAt,
				CompletedAt:  task.CompletedAt,
			})
		}
	}
}

// extractFeatures counts completed additional features as on schedule:
// their planned hours are their actual hours.
func (e *Extractor) extractFeatures(p plan.Plan, name string, result *PlanTiming) {
	for _, feature := range p.AdditionalFeatures {
		if feature.Status != plan.StatusCompleted || feature.StartedAt == nil || feature.CompletedAt == nil {
			continue
		}
		hours, err := workhours.WorkingHours(*feature.StartedAt, *feature.CompletedAt)
		if err != nil {
			result.Skipped = append(result.Skipped, fmt.Sprintf("feature %q: %v", feature.Name, err))
			continue
		}
		actualHours := float64(hours)
		result.ActualHours += actualHours
		result.PlannedHours += actualHours
		result.CompletedTasks++
		result.Records = append(result.Records, Record{
			Name:         fmt.Sprintf("%s: %s", name, feature.Name),
			PlannedHours: actualHours,
			ActualHours:  actualHours,
			Status:       plan.StatusDone,
			StartedAt:    feature.StartedAt,
			CompletedAt:  feature.CompletedAt,
		})
	}
}

// extractWeeks simulates actual hours for completed weeks, since week-based
// documents carry no timestamps.
func (e *Extractor) extractWeeks(p plan.Plan, name string, result *PlanTiming) {
	result.Simulated = true
	for _, week := range p.Weeks {
		if week.Status != plan.StatusDone {
			continue
		}
		efficiency := weekEfficiencyMin + e.rand.Float64()*weekEfficiencySpread
		actualHours := workhours.HoursPerWeek * efficiency

		result.PlannedHours += workhours.HoursPerWeek
		result.ActualHours += actualHours
		if actualHours < workhours.HoursPerWeek {
			result.TasksAheadOfSchedule++
		}
		result.CompletedTasks++

		startedAt, completedAt := simulatedWeekSpan(week.Key)
		result.Records = append(result.Records, Record{
			Name:         fmt.Sprintf("%s: %s - %s", name, week.Key, week.Focus),
			PlannedHours: workhours.HoursPerWeek,
			ActualHours:  actualHours,
			Status:       plan.StatusDone,
			StartedAt:    startedAt,
			CompletedAt:  completedAt,
			Simulated:    true,
		})
	}
}

// ParseWeekRange parses an inclusive "S-E" week range and returns the number
// of weeks it spans.
func ParseWeekRange(weeks string) (int, bool) {
	parts := strings.Split(weeks, "-")
	if len(parts) != 2 {
		return 0, false
	}
	startWeek, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, false
	}
	endWeek, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || endWeek < startWeek {
		return 0, false
	}
	return endWeek - startWeek + 1, true
}

// WeekIndex extracts N from a week key such as "week3". Trailing text after
// the digits is ignored.
func WeekIndex(key string) (int, bool) {
	rest := strings.TrimSpace(strings.TrimPrefix(strings.ToLower(key), "week"))
	end := 0
	for end < len(rest) && rest[end] >= '0' && rest[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(rest[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

func simulatedWeekSpan(key string) (*time.Time, *time.Time) {
	n, ok := WeekIndex(key)
	if !ok {
		return nil, nil
	}
	start := SimulationEpoch.AddDate(0, 0, 7*n+1)
	end := start.AddDate(0, 0, 6)
	return &start, &end
}
