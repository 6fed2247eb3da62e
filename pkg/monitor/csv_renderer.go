package monitor

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"time"

	"github.com/abts/buildmonitor/pkg/benchmark"
	"github.com/abts/buildmonitor/pkg/timing"
	log "github.com/sirupsen/logrus"
)

type BenchmarkRenderer interface {
	RenderBenchmark(summary benchmark.Summary) (string, error)
}

type CsvBenchmarkRenderer struct {
}

func NewCsvBenchmarkRenderer() *CsvBenchmarkRenderer {
	return &CsvBenchmarkRenderer{}
}

// RenderBenchmark writes the per-plan comparison with a total row, the
// aggregate ratios and the recent tasks as one CSV document.
func (t *CsvBenchmarkRenderer) RenderBenchmark(summary benchmark.Summary) (string, error) {
	var data [][]string
	if !summary.IsReady() {
		data = append(data,
			[]string{"State", string(summary.State)},
			append([]string{"Missing plans"}, summary.MissingPlans...),
		)
		return writeCsv(data)
	}

	data = append(data, []string{"Plan", "Planned hours", "Actual hours", "Simulated"})
	for _, c := range summary.Comparisons {
		data = append(data, []string{c.Name, hoursToString(c.PlannedHours), hoursToString(c.ActualHours), strconv.FormatBool(c.Simulated)})
	}
	data = append(data,
		[]string{"SUM", hoursToString(summary.TotalPlannedHours), hoursToString(summary.TotalActualHours), strconv.FormatBool(summary.Simulated)},
		[]string{},
		[]string{"Efficiency", ratioToString(summary.EfficiencyRatio)},
		[]string{"Ahead of schedule", ratioToString(summary.AheadOfSchedulePercent)},
		[]string{"Average time saved", hoursToString(summary.AverageTimeSaved)},
		[]string{},
		[]string{"Task", "Planned hours", "Actual hours", "Status", "Completed at"},
	)
	for _, r := range summary.RecentTasks {
		data = append(data, recordRow(r))
	}
	return writeCsv(data)
}

func writeCsv(data [][]string) (string, error) {
	var b bytes.Buffer
	writer := csv.NewWriter(&b)
	for _, row := range data {
		err := writer.Write(row)
		if err != nil {
			log.Errorf("Error writing to csv: %v", err)
			return "", err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		log.Errorf("Error writing to csv: %v", err)
		return "", err
	}

	return b.String(), nil
}

func recordRow(r timing.Record) []string {
	completedAt := ""
	if r.CompletedAt != nil {
		completedAt = r.CompletedAt.Format(time.DateOnly)
	}
	return []string{r.Name, hoursToString(r.PlannedHours), hoursToString(r.ActualHours), r.Status, completedAt}
}

func hoursToString(hours float64) string {
	return strconv.FormatFloat(roundHours(hours), 'f', 1, 64)
}

func ratioToString(r benchmark.Ratio) string {
	if !r.Valid {
		return "n/a"
	}
	return strconv.Itoa(r.Value) + "%"
}
