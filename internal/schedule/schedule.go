// Package schedule runs recurring automation cycles on a cron expression.
package schedule

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/commentron/commentron/internal/logger"
)

// Scheduler wraps a cron runner with overlap protection: a cycle that is
// still going when the next tick fires skips the tick instead of stacking.
type Scheduler struct {
	cron *cron.Cron
}

// New builds an empty scheduler using standard 5-field cron expressions.
func New() *Scheduler {
	return &Scheduler{cron: cron.New()}
}

// Add registers job to run on spec. Overlapping ticks are skipped with a log
// line rather than queued.
func (s *Scheduler) Add(spec string, name string, job func()) error {
	wrapped := cron.NewChain(
		cron.SkipIfStillRunning(cron.DiscardLogger),
		cron.Recover(cron.DiscardLogger),
	).Then(cron.FuncJob(func() {
		logger.Info("scheduled job starting", "job", name)
		job()
		logger.Info("scheduled job finished", "job", name)
	}))

	if _, err := s.cron.AddJob(spec, wrapped); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", spec, err)
	}
	return nil
}

// Start begins firing jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for running jobs to finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
