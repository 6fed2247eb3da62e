package progress

import (
	"math"

	"github.com/abts/buildmonitor/pkg/plan"
)

type Structure string

const (
	StructureKnown   Structure = "known"
	StructureUnknown Structure = "unknown"
)

type Stats struct {
	TotalTasks           int
	CompletedTasks       int
	CompletionPercentage int
}

type SectionProgress struct {
	Section plan.Section
	Stats   Stats
}

// PlanProgress is the progress of a whole plan. When Structure is
// StructureUnknown, Overall and Sections carry no data and must not be read
// as zero progress.
type PlanProgress struct {
	Structure Structure
	Kind      plan.Kind
	Overall   Stats
	Sections  []SectionProgress
}

func (p PlanProgress) IsKnown() bool {
	return p.Structure == StructureKnown
}

// ForTasks counts every task and each of its direct subtasks as one unit.
func ForTasks(tasks []plan.Task) Stats {
	var total, completed int
	for _, task := range tasks {
		total++
		if task.IsDone() {
			completed++
		}
		for _, subtask := range task.Subtasks {
			total++
			if subtask.IsDone() {
				completed++
			}
		}
	}
	return newStats(total, completed)
}

func ForSection(section plan.Section) Stats {
	return ForTasks(section.Tasks)
}

func ForPlan(p plan.Plan) PlanProgress {
	if p.Kind == plan.Unknown {
		return PlanProgress{Structure: StructureUnknown, Kind: p.Kind}
	}

	sections := p.Sections()
	result := PlanProgress{
		Structure: StructureKnown,
		Kind:      p.Kind,
		Sections:  make([]SectionProgress, 0, len(sections)),
	}
	var total, completed int
	for _, section := range sections {
		stats := ForSection(section)
		total += stats.TotalTasks
		completed += stats.CompletedTasks
		result.Sections = append(result.Sections, SectionProgress{Section: section, Stats: stats})
	}
	result.Overall = newStats(total, completed)
	return result
}

func newStats(total, completed int) Stats {
	return Stats{
		TotalTasks:           total,
		CompletedTasks:       completed,
		CompletionPercentage: Percentage(completed, total),
	}
}

// Percentage returns round(100*part/whole), or 0 when whole is 0.
func Percentage(part, whole int) int {
	if whole <= 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(whole) * 100))
}
