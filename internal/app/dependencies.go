package app

import (
	"context"

	"github.com/abts/buildmonitor/internal/config"
	"github.com/abts/buildmonitor/internal/event_bus"
	"github.com/abts/buildmonitor/internal/utils"
	"github.com/abts/buildmonitor/pkg/history"
	"github.com/abts/buildmonitor/pkg/monitor"
	"github.com/abts/buildmonitor/pkg/source"
	"github.com/abts/buildmonitor/pkg/store"
	"github.com/abts/buildmonitor/pkg/telemetry"
	"github.com/abts/buildmonitor/pkg/timing"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

// Dependencies holds all services and handlers for the application.
type Dependencies struct {
	EventBus *event_bus.EventBus
	Clock    utils.Clock

	Source    source.Source
	Store     *store.Store
	Extractor *timing.Extractor
	Refresher *monitor.Refresher
	Scheduler *monitor.Scheduler

	CsvBenchmarkRenderer *monitor.CsvBenchmarkRenderer
	MonitorHandler       *monitor.Handler

	// History is only wired when a database is configured.
	HistoryRepo     history.Repository
	HistoryRecorder *history.Recorder
	HistoryHandler  *history.Handler

	Telemetry telemetry.Recorder
}

// NewExtractor returns a seeded extractor when a simulation seed is set.
func NewExtractor(cfg config.Simulation) *timing.Extractor {
	if cfg.Seed != 0 {
		log.Infof("Simulated week hours use seed %d", cfg.Seed)
		return timing.NewSeededExtractor(cfg.Seed)
	}
	return timing.NewExtractor(nil)
}

// BuildDependencies initializes and wires all application services and handlers.
// db may be nil, in which case the benchmark history is disabled.
func BuildDependencies(ctx context.Context, cfg config.Application, db *pgxpool.Pool, version string) (*Dependencies, error) {
	deps := &Dependencies{}

	deps.EventBus = event_bus.NewEventBus()
	deps.Clock = &utils.SystemClock{}

	src, err := source.New(ctx, cfg.Source)
	if err != nil {
		return nil, err
	}
	deps.Source = src
	deps.Store = store.NewStore()
	deps.Extractor = NewExtractor(cfg.Simulation)
	deps.Refresher = monitor.NewRefresher(deps.Source, deps.Store, deps.Extractor, deps.EventBus, cfg.Source.Concurrency).
		WithClock(deps.Clock)
	deps.Scheduler = monitor.NewScheduler(deps.Refresher, cfg.Refresh.Schedule, cfg.Source.Timeout)

	deps.CsvBenchmarkRenderer = monitor.NewCsvBenchmarkRenderer()
	deps.MonitorHandler = monitor.NewHandler(deps.Refresher, deps.CsvBenchmarkRenderer)

	if db != nil {
		deps.HistoryRepo = history.NewRepository(db)
		deps.HistoryRecorder = history.NewRecorder(deps.HistoryRepo)
		deps.HistoryRecorder.Subscribe(deps.EventBus)
		deps.HistoryHandler = history.NewHandler(deps.HistoryRepo)
	}

	deps.Telemetry = telemetry.NewNoOpRecorder()
	if cfg.Otel.Enabled {
		exporter, err := telemetry.NewExporter(ctx, cfg.Otel, version)
		if err != nil {
			log.Warnf("Telemetry disabled: %v", err)
		} else {
			deps.Telemetry = exporter
		}
	}
	telemetry.Subscribe(deps.EventBus, deps.Telemetry)

	return deps, nil
}
