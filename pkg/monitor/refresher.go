// Package monitor periodically loads the tracked plan documents and exposes
// their progress and timing statistics.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/abts/buildmonitor/internal/event_bus"
	"github.com/abts/buildmonitor/internal/utils"
	"github.com/abts/buildmonitor/pkg/benchmark"
	"github.com/abts/buildmonitor/pkg/plan"
	"github.com/abts/buildmonitor/pkg/progress"
	"github.com/abts/buildmonitor/pkg/source"
	"github.com/abts/buildmonitor/pkg/store"
	"github.com/abts/buildmonitor/pkg/timing"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var (
	ErrRefreshInProgress = errors.New("refresh already in progress")
	ErrPlanNotFound      = errors.New("plan not found")
	ErrNoReport          = errors.New("no refresh has completed yet")
)

const defaultConcurrency = 4

type Refresher struct {
	source      source.Source
	store       *store.Store
	extractor   *timing.Extractor
	bus         *event_bus.EventBus
	clock       utils.Clock
	concurrency int

	running sync.Mutex

	trackedMu sync.RWMutex
	tracked   []plan.Ref

	report atomic.Pointer[Report]
}

func NewRefresher(src source.Source, st *store.Store, extractor *timing.Extractor, bus *event_bus.EventBus, concurrency int) *Refresher {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Refresher{
		source:      src,
		store:       st,
		extractor:   extractor,
		bus:         bus,
		clock:       &utils.SystemClock{},
		concurrency: concurrency,
	}
}

func (r *Refresher) WithClock(clock utils.Clock) *Refresher {
	r.clock = clock
	return r
}

// Discover replaces the tracked plan list with the documents the source
// currently offers. An empty result leaves the list untouched.
func (r *Refresher) Discover(ctx context.Context) ([]plan.Ref, error) {
	refs, err := r.source.Discover(ctx)
	if err != nil {
		return nil, fmt.Errorf("discovering plans: %w", err)
	}
	if len(refs) == 0 {
		log.Warn("No plan documents discovered")
		return nil, nil
	}

	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		ids = append(ids, ref.Id)
	}
	log.Infof("Tracking %d plans: %v", len(refs), ids)

	r.trackedMu.Lock()
	r.tracked = slices.Clone(refs)
	r.trackedMu.Unlock()
	return refs, nil
}

func (r *Refresher) Tracked() []plan.Ref {
	r.trackedMu.RLock()
	defer r.trackedMu.RUnlock()
	return slices.Clone(r.tracked)
}

func (r *Refresher) trackedPlans(ctx context.Context) ([]plan.Ref, error) {
	if tracked := r.Tracked(); len(tracked) > 0 {
		return tracked, nil
	}
	return r.Discover(ctx)
}

// Latest returns the report of the last completed refresh.
func (r *Refresher) Latest() (*Report, error) {
	report := r.report.Load()
	if report == nil {
		return nil, ErrNoReport
	}
	return report, nil
}

// Document returns the current document of a tracked plan.
func (r *Refresher) Document(id string) (store.Document, error) {
	tracked := slices.ContainsFunc(r.Tracked(), func(ref plan.Ref) bool { return ref.Id == id })
	doc, ok := r.store.Current().Get(id)
	if !tracked || !ok {
		return store.Document{}, fmt.Errorf("%s: %w", id, ErrPlanNotFound)
	}
	return doc, nil
}

type fetchResult struct {
	doc store.Document
	err error
}

// Refresh fetches every tracked plan, waits for all fetches to settle and
// rebuilds the report from the new snapshot. Only one refresh runs at a time;
// a call made while another is running returns ErrRefreshInProgress.
func (r *Refresher) Refresh(ctx context.Context) (*Report, error) {
	if !r.running.TryLock() {
		return nil, ErrRefreshInProgress
	}
	defer r.running.Unlock()

	cycleId := uuid.New()
	startedAt := r.clock.Now()

	tracked, err := r.trackedPlans(ctx)
	if err != nil {
		log.Errorf("Refresh %s failed: %v", cycleId, err)
		r.publish(ctx, event_bus.RefreshFailedType, event_bus.RefreshFailed{CycleId: cycleId, Err: err})
		return nil, err
	}

	results := make([]fetchResult, len(tracked))
	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i, ref := range tracked {
		g.Go(func() error {
			results[i] = r.fetch(ctx, ref)
			return nil
		})
	}
	_ = g.Wait()

	// The next snapshot holds tracked plans only. Untracked documents are dropped.
	previous := r.store.Current()
	docs := make([]store.Document, 0, len(tracked))
	errs := make(map[string]string)
	for i, result := range results {
		if result.err == nil {
			docs = append(docs, result.doc)
			continue
		}
		log.Warnf("Refresh of %s failed, keeping previous data: %v", tracked[i].Id, result.err)
		errs[tracked[i].Id] = result.err.Error()
		if doc, ok := previous.Get(tracked[i].Id); ok {
			docs = append(docs, doc)
		}
	}
	snapshot := store.NewSnapshot(docs...)
	r.store.Replace(snapshot)

	report := r.buildReport(cycleId, startedAt, tracked, snapshot, errs)
	r.report.Store(report)
	log.Infof("Refresh %s finished in %s: %d/%d plans loaded, benchmark %s",
		cycleId, report.Duration(), report.LoadedPlans(), len(tracked), report.Benchmark.State)

	r.publish(ctx, event_bus.PlansRefreshedType, report.toEvent())
	return report, nil
}

func (r *Refresher) fetch(ctx context.Context, ref plan.Ref) fetchResult {
	raw, err := r.source.Fetch(ctx, ref)
	if err != nil {
		return fetchResult{err: err}
	}
	p, err := plan.Decode(raw)
	if err != nil {
		return fetchResult{err: fmt.Errorf("%s: %w", ref.Filename, err)}
	}
	for _, skipped := range p.Skipped {
		log.Debugf("%s: skipped %s", ref.Id, skipped)
	}
	return fetchResult{doc: store.Document{
		Ref:       ref,
		Plan:      p,
		Raw:       raw,
		FetchedAt: r.clock.Now(),
	}}
}

func (r *Refresher) buildReport(cycleId uuid.UUID, startedAt time.Time, tracked []plan.Ref, snapshot store.Snapshot, errs map[string]string) *Report {
	summary, timings := benchmark.Build(tracked, snapshot, r.extractor)

	plans := make([]PlanReport, 0, len(tracked))
	for i, ref := range tracked {
		planReport := PlanReport{Ref: ref, Error: errs[ref.Id]}
		if doc, ok := snapshot.Get(ref.Id); ok {
			planReport.Loaded = true
			planReport.FetchedAt = doc.FetchedAt
			planReport.Progress = progress.ForPlan(doc.Plan)
		}
		if timings != nil {
			planReport.Timing = &timings[i]
		}
		plans = append(plans, planReport)
	}

	return &Report{
		CycleId:    cycleId,
		StartedAt:  startedAt,
		FinishedAt: r.clock.Now(),
		Plans:      plans,
		Benchmark:  summary,
		Errors:     errs,
	}
}

func (r *Refresher) publish(ctx context.Context, eventType event_bus.EventType, data any) {
	if r.bus == nil {
		return
	}
	if err := r.bus.Publish(event_bus.NewEvent(context.WithoutCancel(ctx), eventType, data)); err != nil {
		log.Errorf("Publishing %s failed: %v", eventType, err)
	}
}
