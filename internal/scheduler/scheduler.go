// Package scheduler periodically reloads the published exam data.
package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	appLog "examsync/internal/log"
)

// Refresher is anything that can reload itself, typically *dataset.Store.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Scheduler wraps robfig/cron and drives the refresh loop.
type Scheduler struct {
	cron   *cron.Cron
	target Refresher
	spec   string

	// running guards against overlapping refreshes when a fetch is slow.
	running sync.Mutex
}

// New creates a Scheduler firing on the given cron spec (five fields,
// e.g. "*/30 * * * *", or descriptors like "@every 10m").
func New(target Refresher, spec string) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		target: target,
		spec:   spec,
	}
}

// Start registers the job and starts the scheduler. It also runs one
// refresh synchronously so the data is loaded before serving.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := cron.ParseStandard(s.spec); err != nil {
		return fmt.Errorf("invalid refresh spec %q: %w", s.spec, err)
	}
	if _, err := s.cron.AddFunc(s.spec, func() { s.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	s.RunOnce(ctx)

	s.cron.Start()
	appLog.Info("refresh scheduler started", "spec", s.spec)
	return nil
}

// Stop halts the schedule and waits for a running refresh to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	appLog.Info("refresh scheduler stopped")
}

// RunOnce performs a single refresh unless one is already in flight.
func (s *Scheduler) RunOnce(ctx context.Context) {
	if !s.running.TryLock() {
		appLog.Debug("refresh skipped; previous run still in progress")
		return
	}
	defer s.running.Unlock()

	if ctx.Err() != nil {
		return
	}
	if err := s.target.Refresh(ctx); err != nil {
		appLog.Error("scheduled refresh failed", err)
	}
}
