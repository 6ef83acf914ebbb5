package digest

import (
	"context"
	"time"

	"github.com/velkoldin-dev/tratyallday/internal/core"
	"github.com/velkoldin-dev/tratyallday/internal/log"
)

// Job is whatever the scheduler fires.
type Job interface {
	Run(ctx context.Context) (Report, error)
}

// Scheduler fires a job once a day at a fixed local time.
type Scheduler struct {
	hour   int
	minute int
	clock  *core.Clock
	job    Job
	sleep  func(ctx context.Context, d time.Duration) error
	logger *log.Logger
}

func NewScheduler(hour, minute int, clock *core.Clock, job Job, logger *log.Logger) *Scheduler {
	if logger == nil {
		logger = log.Discard()
	}
	return &Scheduler{
		hour:   hour,
		minute: minute,
		clock:  clock,
		job:    job,
		sleep:  sleepCtx,
		logger: logger.WithComponent(log.ComponentDigest),
	}
}

// NextRun returns the first hour:minute strictly after now, in now's location.
func NextRun(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Run blocks until ctx is cancelled, firing the job at every scheduled time.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		now := s.clock.Now()
		next := NextRun(now, s.hour, s.minute)
		s.logger.InfoContext(ctx, "Next digest scheduled", "at", next.Format(time.RFC3339))

		if err := s.sleep(ctx, next.Sub(now)); err != nil {
			return nil
		}
		if _, err := s.job.Run(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.logger.ErrorContext(ctx, "Digest run failed", log.FieldError, err)
		}
	}
}
