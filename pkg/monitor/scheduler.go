package monitor

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

const DefaultSchedule = "@every 60s"

// Scheduler triggers a refresh on a cron schedule. A tick that fires while
// the previous refresh is still running is dropped.
type Scheduler struct {
	cron      *cron.Cron
	refresher *Refresher
	schedule  string
	timeout   time.Duration
}

func NewScheduler(refresher *Refresher, schedule string, timeout time.Duration) *Scheduler {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	return &Scheduler{
		cron:      cron.New(),
		refresher: refresher,
		schedule:  schedule,
		timeout:   timeout,
	}
}

// Start registers the refresh job, runs a first refresh in the background
// and starts the cron loop.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.schedule, func() { s.tick(ctx) }); err != nil {
		return err
	}
	go s.tick(ctx)
	s.cron.Start()
	log.Infof("Refresh scheduled %s", s.schedule)
	return nil
}

// Stop stops the cron loop and waits for a running refresh to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	_, err := s.refresher.Refresh(ctx)
	switch {
	case errors.Is(err, ErrRefreshInProgress):
		log.Debug("Scheduled refresh skipped, previous refresh still running")
	case err != nil:
		log.Errorf("Scheduled refresh failed: %v", err)
	}
}
