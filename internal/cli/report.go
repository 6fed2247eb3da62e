package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/abts/buildmonitor/internal/app"
	"github.com/abts/buildmonitor/internal/config"
	"github.com/abts/buildmonitor/internal/event_bus"
	"github.com/abts/buildmonitor/pkg/benchmark"
	"github.com/abts/buildmonitor/pkg/monitor"
	"github.com/abts/buildmonitor/pkg/source"
	"github.com/abts/buildmonitor/pkg/store"
	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Run one refresh cycle and print the result",
	Long: `Discover the plans at the configured source, fetch them once and print
per-plan progress followed by the benchmark summary.

Examples:
  buildmonitor report
  BUILDMONITOR_SOURCE_TYPE=file BUILDMONITOR_SOURCE_DIR=.state buildmonitor report --json`,
	Args: cobra.NoArgs,
	RunE: runReport,
}

var reportJSON bool

func init() {
	reportCmd.Flags().BoolVar(&reportJSON, "json", false, "Print the report as JSON")
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Source.Timeout)
	defer cancel()

	src, err := source.New(ctx, cfg.Source)
	if err != nil {
		return err
	}
	refresher := monitor.NewRefresher(src, store.NewStore(), app.NewExtractor(cfg.Simulation),
		event_bus.NewEventBus(), cfg.Source.Concurrency)

	if _, err := refresher.Discover(ctx); err != nil {
		return fmt.Errorf("failed to discover plans: %w", err)
	}
	report, err := refresher.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("refresh failed: %w", err)
	}

	dto := monitor.NewReportDTO(report)
	if reportJSON {
		return writeReportJSON(os.Stdout, dto)
	}
	return writeReportTable(os.Stdout, dto)
}

func writeReportJSON(out io.Writer, dto monitor.ReportDTO) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(dto)
}

func writeReportTable(out io.Writer, dto monitor.ReportDTO) error {
	if len(dto.Plans) == 0 {
		fmt.Fprintln(out, "No plans found")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PLAN\tKIND\tTASKS\tDONE\tCOMPLETION\tSTATUS")
	fmt.Fprintln(w, "----\t----\t-----\t----\t----------\t------")
	for _, p := range dto.Plans {
		status := "ok"
		if p.Error != "" {
			status = p.Error
		}
		if !p.Loaded {
			fmt.Fprintf(w, "%s\t-\t-\t-\t-\t%s\n", p.Name, status)
			continue
		}
		if p.Overall == nil {
			fmt.Fprintf(w, "%s\t%s\t-\t-\t-\t%s\n", p.Name, p.Kind, status)
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d%% (%s)\t%s\n", p.Name, p.Kind,
			p.Overall.TotalTasks, p.Overall.CompletedTasks, p.Overall.CompletionPercentage, p.Overall.Band, status)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	b := dto.Benchmark
	fmt.Fprintln(out)
	if b.State != string(benchmark.StateReady) {
		fmt.Fprintf(out, "Benchmark incomplete, missing: %v\n", b.MissingPlans)
		return nil
	}
	fmt.Fprintf(out, "Planned hours:      %.1f\n", b.TotalPlannedHours)
	fmt.Fprintf(out, "Actual hours:       %.1f\n", b.TotalActualHours)
	fmt.Fprintf(out, "Efficiency:         %s\n", percentOrNA(b.EfficiencyRatio))
	fmt.Fprintf(out, "Ahead of schedule:  %s (%d of %d tasks)\n",
		percentOrNA(b.AheadOfSchedulePercent), b.TasksAheadOfSchedule, b.TotalCompletedTasks)
	fmt.Fprintf(out, "Average time saved: %.1fh\n", b.AverageTimeSaved)
	if b.Simulated {
		fmt.Fprintln(out, "Week-based plans use simulated hours")
	}
	return nil
}

func percentOrNA(v *int) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%d%%", *v)
}
