package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/abts/buildmonitor/internal/event_bus"
	"github.com/abts/buildmonitor/internal/utils"
	"github.com/abts/buildmonitor/pkg/benchmark"
	"github.com/abts/buildmonitor/pkg/plan"
	"github.com/abts/buildmonitor/pkg/source"
	"github.com/abts/buildmonitor/pkg/store"
	"github.com/abts/buildmonitor/pkg/timing"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const hydrogenDoc = `{"phases": [
  {"name": "Foundation", "status": "done", "weeks": "1-2", "tasks": [
    {"description": "Schema", "status": "done", "started_at": "2024-01-01T09:00:00Z", "completed_at": "2024-01-08T09:00:00Z"},
    {"description": "API", "status": "done", "started_at": "2024-01-08T09:00:00Z", "completed_at": "2024-01-15T09:00:00Z"}
  ]},
  {"name": "Rollout", "status": "in_progress", "weeks": "3-3", "tasks": [
    {"description": "Deploy", "status": "todo"}
  ]}
]}`

const processorDoc = `{"weeks": {
  "week1": {"focus": "Setup", "status": "done", "tasks": [{"id": "1", "description": "Repo", "status": "done"}]},
  "week2": {"focus": "Core", "status": "in_progress", "tasks": [{"id": "2", "description": "Engine", "status": "todo"}]}
}}`

var now = time.Date(2024, time.March, 4, 10, 0, 0, 0, time.UTC)

type refresherFixture struct {
	source    *source.StubSource
	store     *store.Store
	bus       *event_bus.EventBus
	clock     *utils.MockClock
	refresher *Refresher
	events    []event_bus.PlansRefreshed
	failures  []event_bus.RefreshFailed
}

func setupRefresher(t *testing.T, src source.Source) *refresherFixture {
	t.Helper()
	f := &refresherFixture{
		store: store.NewStore(),
		bus:   event_bus.NewEventBus(),
		clock: &utils.MockClock{FixedNow: now},
	}
	if stub, ok := src.(*source.StubSource); ok {
		f.source = stub
	}
	event_bus.SubscribeTyped(f.bus, event_bus.PlansRefreshedType, func(e event_bus.EventT[event_bus.PlansRefreshed]) error {
		f.events = append(f.events, e.Data)
		return nil
	})
	event_bus.SubscribeTyped(f.bus, event_bus.RefreshFailedType, func(e event_bus.EventT[event_bus.RefreshFailed]) error {
		f.failures = append(f.failures, e.Data)
		return nil
	})
	f.refresher = NewRefresher(src, f.store, timing.NewSeededExtractor(7), f.bus, 2).WithClock(f.clock)
	return f
}

func stubWithPlans() *source.StubSource {
	stub := source.NewStubSource()
	stub.Put("hydrogen_implementation.json", hydrogenDoc)
	stub.Put("processor_implementation.json", processorDoc)
	return stub
}

func TestRefresh_BuildsReport(t *testing.T) {
	f := setupRefresher(t, stubWithPlans())

	report, err := f.refresher.Refresh(context.Background())

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, report.CycleId)
	assert.Equal(t, now, report.StartedAt)
	assert.Empty(t, report.Errors)
	require.Len(t, report.Plans, 2)
	assert.Equal(t, 2, report.LoadedPlans())

	hydrogen, ok := report.Plan("hydrogen_implementation")
	require.True(t, ok)
	assert.True(t, hydrogen.Loaded)
	assert.Equal(t, 3, hydrogen.Progress.Overall.TotalTasks)
	assert.Equal(t, 2, hydrogen.Progress.Overall.CompletedTasks)
	assert.Equal(t, 67, hydrogen.Progress.Overall.CompletionPercentage)
	require.NotNil(t, hydrogen.Timing)
	assert.Equal(t, 120.0, hydrogen.Timing.PlannedHours)

	processor, _ := report.Plan("processor_implementation")
	assert.Equal(t, 50, processor.Progress.Overall.CompletionPercentage)
	require.NotNil(t, processor.Timing)
	assert.True(t, processor.Timing.Simulated)

	assert.True(t, report.Benchmark.IsReady())
	assert.Equal(t, 3, report.Benchmark.TotalCompletedTasks)
	assert.True(t, report.Benchmark.Simulated)

	latest, err := f.refresher.Latest()
	require.NoError(t, err)
	assert.Same(t, report, latest)

	doc, err := f.refresher.Document("processor_implementation")
	require.NoError(t, err)
	assert.Equal(t, plan.WeekBased, doc.Plan.Kind)
	assert.JSONEq(t, processorDoc, string(doc.Raw))
}

func TestRefresh_PublishesEvent(t *testing.T) {
	f := setupRefresher(t, stubWithPlans())

	report, err := f.refresher.Refresh(context.Background())
	require.NoError(t, err)

	require.Len(t, f.events, 1)
	event := f.events[0]
	assert.Equal(t, report.CycleId, event.CycleId)
	assert.True(t, event.Ready)
	assert.Equal(t, 2, event.LoadedPlans)
	assert.Equal(t, 0, event.FailedPlans)
	assert.Equal(t, map[string]int{"hydrogen_implementation": 67, "processor_implementation": 50}, event.PlanCompletion)
	require.NotNil(t, event.EfficiencyRatio)
	assert.Equal(t, report.Benchmark.EfficiencyRatio.Value, *event.EfficiencyRatio)
}

func TestRefresh_FailedFetchKeepsPreviousDocument(t *testing.T) {
	f := setupRefresher(t, stubWithPlans())
	_, err := f.refresher.Refresh(context.Background())
	require.NoError(t, err)

	f.source.FailFetch("hydrogen_implementation.json", errors.New("connection reset"))
	f.clock.Advance(time.Minute)
	report, err := f.refresher.Refresh(context.Background())

	require.NoError(t, err)
	hydrogen, _ := report.Plan("hydrogen_implementation")
	assert.True(t, hydrogen.Loaded)
	assert.Equal(t, now, hydrogen.FetchedAt, "previous document is kept")
	assert.Equal(t, "connection reset", hydrogen.Error)
	assert.Equal(t, 67, hydrogen.Progress.Overall.CompletionPercentage)
	assert.Equal(t, []string{"hydrogen_implementation"}, report.FailedPlanIds())
	assert.True(t, report.Benchmark.IsReady())
	assert.Equal(t, 1, f.events[1].FailedPlans)
}

func TestRefresh_IncompleteUntilEveryPlanLoaded(t *testing.T) {
	stub := stubWithPlans()
	stub.FailFetch("processor_implementation.json", errors.New("timeout"))
	f := setupRefresher(t, stub)

	report, err := f.refresher.Refresh(context.Background())

	require.NoError(t, err)
	assert.Equal(t, benchmark.StateIncomplete, report.Benchmark.State)
	assert.Equal(t, []string{"processor_implementation"}, report.Benchmark.MissingPlans)
	processor, _ := report.Plan("processor_implementation")
	assert.False(t, processor.Loaded)
	assert.Nil(t, processor.Timing)
	hydrogen, _ := report.Plan("hydrogen_implementation")
	assert.True(t, hydrogen.Loaded, "progress is still reported for loaded plans")
	assert.False(t, f.events[0].Ready)
	assert.Nil(t, f.events[0].EfficiencyRatio)

	stub.Put("processor_implementation.json", processorDoc)
	report, err = f.refresher.Refresh(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Benchmark.IsReady())
}

func TestRefresh_InvalidDocumentIsAFetchError(t *testing.T) {
	stub := source.NewStubSource()
	stub.Put("broken.json", `{"phases": [`)
	f := setupRefresher(t, stub)

	report, err := f.refresher.Refresh(context.Background())

	require.NoError(t, err)
	assert.Contains(t, report.Errors["broken"], "broken.json")
	broken, _ := report.Plan("broken")
	assert.False(t, broken.Loaded)
}

func TestRefresh_UnknownStructureIsReportedNotCounted(t *testing.T) {
	stub := stubWithPlans()
	stub.Put("notes.json", `{"title": "meeting notes"}`)
	f := setupRefresher(t, stub)

	report, err := f.refresher.Refresh(context.Background())

	require.NoError(t, err)
	notes, _ := report.Plan("notes")
	assert.True(t, notes.Loaded)
	assert.False(t, notes.Progress.IsKnown())
	assert.True(t, report.Benchmark.IsReady())
	assert.Len(t, report.Benchmark.Comparisons, 2)
	assert.NotContains(t, f.events[0].PlanCompletion, "notes")
}

func TestRefresh_DiscoveryFailure(t *testing.T) {
	stub := source.NewStubSource()
	stub.SetDiscoverError(errors.New("source offline"))
	f := setupRefresher(t, stub)

	report, err := f.refresher.Refresh(context.Background())

	assert.Nil(t, report)
	assert.ErrorContains(t, err, "source offline")
	require.Len(t, f.failures, 1)
	assert.Empty(t, f.events)
	_, err = f.refresher.Latest()
	assert.ErrorIs(t, err, ErrNoReport)
}

func TestRefresh_RediscoversWhileNothingTracked(t *testing.T) {
	stub := source.NewStubSource()
	f := setupRefresher(t, stub)

	report, err := f.refresher.Refresh(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Plans)

	stub.Put("hydrogen_implementation.json", hydrogenDoc)
	report, err = f.refresher.Refresh(context.Background())
	require.NoError(t, err)
	assert.Len(t, report.Plans, 1)
	assert.Len(t, f.refresher.Tracked(), 1)

	stub.Put("processor_implementation.json", processorDoc)
	report, err = f.refresher.Refresh(context.Background())
	require.NoError(t, err)
	assert.Len(t, report.Plans, 1, "a tracked list is only replaced by an explicit discovery")

	_, err = f.refresher.Discover(context.Background())
	require.NoError(t, err)
	assert.Len(t, f.refresher.Tracked(), 2)
}

// blockingSource holds every fetch until release is closed.
type blockingSource struct {
	*source.StubSource
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *blockingSource) Fetch(ctx context.Context, ref plan.Ref) ([]byte, error) {
	s.once.Do(func() { close(s.started) })
	<-s.release
	return s.StubSource.Fetch(ctx, ref)
}

func TestRefresh_ConcurrentRequestIsDropped(t *testing.T) {
	src := &blockingSource{
		StubSource: stubWithPlans(),
		started:    make(chan struct{}),
		release:    make(chan struct{}),
	}
	f := setupRefresher(t, src)

	done := make(chan error)
	go func() {
		_, err := f.refresher.Refresh(context.Background())
		done <- err
	}()
	<-src.started

	_, err := f.refresher.Refresh(context.Background())
	assert.ErrorIs(t, err, ErrRefreshInProgress)

	close(src.release)
	require.NoError(t, <-done)
	assert.Len(t, f.events, 1)

	_, err = f.refresher.Refresh(context.Background())
	assert.NoError(t, err, "a new refresh runs once the previous one finished")
}

func TestDocument_NotFound(t *testing.T) {
	f := setupRefresher(t, source.NewStubSource())

	_, err := f.refresher.Document("missing")

	assert.ErrorIs(t, err, ErrPlanNotFound)
}

func TestRefresh_DropsDocumentsOfUntrackedPlans(t *testing.T) {
	f := setupRefresher(t, stubWithPlans())
	_, err := f.refresher.Refresh(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, f.store.Current().Len())

	f.source.Remove("processor_implementation.json")
	refs, err := f.refresher.Discover(context.Background())
	require.NoError(t, err)
	require.Len(t, refs, 1)
	report, err := f.refresher.Refresh(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"hydrogen_implementation"}, f.store.Current().Ids())
	_, ok := report.Plan("processor_implementation")
	assert.False(t, ok)
	_, err = f.refresher.Document("processor_implementation")
	assert.ErrorIs(t, err, ErrPlanNotFound)
	_, err = f.refresher.Document("hydrogen_implementation")
	assert.NoError(t, err)
}
