package monitor

import (
	"math"
	"time"

	"github.com/abts/buildmonitor/pkg/benchmark"
	"github.com/abts/buildmonitor/pkg/progress"
	"github.com/abts/buildmonitor/pkg/timing"
)

type StatsDTO struct {
	TotalTasks           int    `json:"totalTasks"`
	CompletedTasks       int    `json:"completedTasks"`
	CompletionPercentage int    `json:"completionPercentage"`
	Band                 string `json:"band"`
}

type PlanSummaryDTO struct {
	Id        string     `json:"id"`
	Name      string     `json:"name"`
	Filename  string     `json:"filename"`
	Loaded    bool       `json:"loaded"`
	Structure string     `json:"structure,omitempty"`
	Kind      string     `json:"kind,omitempty"`
	Overall   *StatsDTO  `json:"overall,omitempty"`
	FetchedAt *time.Time `json:"fetchedAt,omitempty"`
	Error     string     `json:"error,omitempty"`
}

type SectionProgressDTO struct {
	Key    string `json:"key"`
	Title  string `json:"title"`
	Status string `json:"status"`
	StatsDTO
}

type PlanProgressDTO struct {
	PlanSummaryDTO
	Sections []SectionProgressDTO `json:"sections"`
}

type RecordDTO struct {
	Name         string     `json:"name"`
	PlannedHours float64    `json:"plannedHours"`
	ActualHours  float64    `json:"actualHours"`
	Status       string     `json:"status"`
	StartedAt    *time.Time `json:"startedAt,omitempty"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
	Simulated    bool       `json:"simulated"`
}

type ComparisonDTO struct {
	Name         string  `json:"name"`
	PlannedHours float64 `json:"plannedHours"`
	ActualHours  float64 `json:"actualHours"`
	Simulated    bool    `json:"simulated"`
}

type PlanTimingDTO struct {
	Name                 string      `json:"name"`
	Kind                 string      `json:"kind"`
	PlannedHours         float64     `json:"plannedHours"`
	ActualHours          float64     `json:"actualHours"`
	TasksAheadOfSchedule int         `json:"tasksAheadOfSchedule"`
	CompletedTasks       int         `json:"completedTasks"`
	Simulated            bool        `json:"simulated"`
	Records              []RecordDTO `json:"records"`
}

type BenchmarkDTO struct {
	State                  string          `json:"state"`
	MissingPlans           []string        `json:"missingPlans,omitempty"`
	TotalPlannedHours      float64         `json:"totalPlannedHours"`
	TotalActualHours       float64         `json:"totalActualHours"`
	TasksAheadOfSchedule   int             `json:"tasksAheadOfSchedule"`
	TotalCompletedTasks    int             `json:"totalCompletedTasks"`
	EfficiencyRatio        *int            `json:"efficiencyRatio"`
	AheadOfSchedulePercent *int            `json:"aheadOfSchedulePercent"`
	AverageTimeSaved       float64         `json:"averageTimeSaved"`
	Simulated              bool            `json:"simulated"`
	Comparisons            []ComparisonDTO `json:"comparisons"`
	RecentTasks            []RecordDTO     `json:"recentTasks"`
	Plans                  []PlanTimingDTO `json:"plans,omitempty"`
}

type StatusDTO struct {
	CycleId        string            `json:"cycleId"`
	StartedAt      time.Time         `json:"startedAt"`
	FinishedAt     time.Time         `json:"finishedAt"`
	DurationMs     int64             `json:"durationMs"`
	TrackedPlans   int               `json:"trackedPlans"`
	LoadedPlans    int               `json:"loadedPlans"`
	BenchmarkState string            `json:"benchmarkState"`
	Errors         map[string]string `json:"errors"`
}

// roundHours keeps one decimal place.
func roundHours(hours float64) float64 {
	return math.Round(hours*10) / 10
}

func statsToDTO(stats progress.Stats) StatsDTO {
	return StatsDTO{
		TotalTasks:           stats.TotalTasks,
		CompletedTasks:       stats.CompletedTasks,
		CompletionPercentage: stats.CompletionPercentage,
		Band:                 string(progress.BandFor(stats.CompletionPercentage)),
	}
}

func planSummaryToDTO(p PlanReport) PlanSummaryDTO {
	dto := PlanSummaryDTO{
		Id:       p.Ref.Id,
		Name:     p.Ref.DisplayName,
		Filename: p.Ref.Filename,
		Loaded:   p.Loaded,
		Error:    p.Error,
	}
	if !p.Loaded {
		return dto
	}
	fetchedAt := p.FetchedAt
	dto.FetchedAt = &fetchedAt
	dto.Structure = string(p.Progress.Structure)
	dto.Kind = p.Progress.Kind.String()
	if p.Progress.IsKnown() {
		overall := statsToDTO(p.Progress.Overall)
		dto.Overall = &overall
	}
	return dto
}

func planProgressToDTO(p PlanReport) PlanProgressDTO {
	dto := PlanProgressDTO{
		PlanSummaryDTO: planSummaryToDTO(p),
		Sections:       make([]SectionProgressDTO, 0, len(p.Progress.Sections)),
	}
	for _, section := range p.Progress.Sections {
		dto.Sections = append(dto.Sections, SectionProgressDTO{
			Key:      section.Section.Key,
			Title:    section.Section.Title,
			Status:   section.Section.Status,
			StatsDTO: statsToDTO(section.Stats),
		})
	}
	return dto
}

func recordsToDTO(records []timing.Record) []RecordDTO {
	dtos := make([]RecordDTO, 0, len(records))
	for _, r := range records {
		dtos = append(dtos, RecordDTO{
			Name:         r.Name,
			PlannedHours: roundHours(r.PlannedHours),
			ActualHours:  roundHours(r.ActualHours),
			Status:       r.Status,
			StartedAt:    r.StartedAt,
			CompletedAt:  r.CompletedAt,
			Simulated:    r.Simulated,
		})
	}
	return dtos
}

func benchmarkToDTO(report *Report, withPlans bool) BenchmarkDTO {
	summary := report.Benchmark
	dto := BenchmarkDTO{
		State:                  string(summary.State),
		MissingPlans:           summary.MissingPlans,
		TotalPlannedHours:      roundHours(summary.TotalPlannedHours),
		TotalActualHours:       roundHours(summary.TotalActualHours),
		TasksAheadOfSchedule:   summary.TasksAheadOfSchedule,
		TotalCompletedTasks:    summary.TotalCompletedTasks,
		EfficiencyRatio:        summary.EfficiencyRatio.Ptr(),
		AheadOfSchedulePercent: summary.AheadOfSchedulePercent.Ptr(),
		AverageTimeSaved:       roundHours(summary.AverageTimeSaved),
		Simulated:              summary.Simulated,
		Comparisons:            comparisonsToDTO(summary.Comparisons),
		RecentTasks:            recordsToDTO(summary.RecentTasks),
	}
	if !withPlans || !summary.IsReady() {
		return dto
	}
	for _, p := range report.Plans {
		if p.Timing == nil || !p.Timing.IsKnown() {
			continue
		}
		dto.Plans = append(dto.Plans, PlanTimingDTO{
			Name:                 p.Timing.PlanName,
			Kind:                 p.Timing.Kind.String(),
			PlannedHours:         roundHours(p.Timing.PlannedHours),
			ActualHours:          roundHours(p.Timing.ActualHours),
			TasksAheadOfSchedule: p.Timing.TasksAheadOfSchedule,
			CompletedTasks:       p.Timing.CompletedTasks,
			Simulated:            p.Timing.Simulated,
			Records:              recordsToDTO(p.Timing.Records),
		})
	}
	return dto
}

func comparisonsToDTO(comparisons []benchmark.Comparison) []ComparisonDTO {
	dtos := make([]ComparisonDTO, 0, len(comparisons))
	for _, c := range comparisons {
		dtos = append(dtos, ComparisonDTO{
			Name:         c.Name,
			PlannedHours: roundHours(c.PlannedHours),
			ActualHours:  roundHours(c.ActualHours),
			Simulated:    c.Simulated,
		})
	}
	return dtos
}

func statusToDTO(report *Report) StatusDTO {
	errs := report.Errors
	if errs == nil {
		errs = map[string]string{}
	}
	return StatusDTO{
		CycleId:        report.CycleId.String(),
		StartedAt:      report.StartedAt,
		FinishedAt:     report.FinishedAt,
		DurationMs:     report.Duration().Milliseconds(),
		TrackedPlans:   len(report.Plans),
		LoadedPlans:    report.LoadedPlans(),
		BenchmarkState: string(report.Benchmark.State),
		Errors:         errs,
	}
}

// ReportDTO is the full view of one refresh cycle.
type ReportDTO struct {
	Status    StatusDTO        `json:"status"`
	Plans     []PlanSummaryDTO `json:"plans"`
	Benchmark BenchmarkDTO     `json:"benchmark"`
}

func NewReportDTO(report *Report) ReportDTO {
	plans := make([]PlanSummaryDTO, 0, len(report.Plans))
	for _, p := range report.Plans {
		plans = append(plans, planSummaryToDTO(p))
	}
	return ReportDTO{
		Status:    statusToDTO(report),
		Plans:     plans,
		Benchmark: benchmarkToDTO(report, true),
	}
}
