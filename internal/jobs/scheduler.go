// Package jobs runs periodic maintenance: sweeping stale rate-limit counters
// and expired sessions.
package jobs

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"
)

const DefaultSchedule = "@every 15m"

type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
}

func NewScheduler(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("system", "cron")
	c := cron.New(
		cron.WithChain(
			recoverWrapper(logger),
			loggingWrapper(logger),
			cron.SkipIfStillRunning(cron.DiscardLogger),
		),
	)
	return &Scheduler{cron: c, logger: logger}
}

// Register adds job under a standard cron spec or descriptor such as
// "@every 15m".
func (s *Scheduler) Register(spec string, job NamedJob) error {
	if _, err := s.cron.AddJob(spec, job); err != nil {
		return err
	}
	s.logger.Info("job registered", "job_name", job.Name(), "schedule", spec)
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("cron scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop waits for running jobs to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("cron scheduler stopped")
	case <-ctx.Done():
		s.logger.Warn("cron scheduler stop timed out")
	}
}
