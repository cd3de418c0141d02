// Package scheduler triggers dispatch cycles on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Job runs one unit of scheduled work.
type Job func(ctx context.Context) error

// Scheduler runs a Job on a cron expression. A run still in progress when the
// next tick fires causes that tick to be skipped.
type Scheduler struct {
	cron    *cron.Cron
	jobID   cron.EntryID
	timeout time.Duration
}

// New schedules job on expr (six-field with seconds, or a descriptor such
// as "@every 30s"). Each run gets its own context bounded by timeout.
func New(expr string, timeout time.Duration, job Job) (*Scheduler, error) {
	if job == nil {
		return nil, errors.New("scheduler: job is nil")
	}

	c := cron.New(
		cron.WithSeconds(),
		cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(log.Default()))),
	)
	s := &Scheduler{cron: c, timeout: timeout}

	id, err := c.AddFunc(expr, func() {
		ctx := context.Background()
		if s.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.timeout)
			defer cancel()
		}
		if err := job(ctx); err != nil {
			log.Printf("op=scheduler.run expr=%q err=%v", expr, err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("scheduler: add job %q: %w", expr, err)
	}
	s.jobID = id

	return s, nil
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop halts the schedule and waits for a running job until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

// Next reports the next scheduled run time.
func (s *Scheduler) Next() time.Time {
	return s.cron.Entry(s.jobID).Next
}
