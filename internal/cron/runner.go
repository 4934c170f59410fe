package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/courtside-app/courtside-backend/pkg/logger"
	"github.com/courtside-app/courtside-backend/pkg/metrics"
)

// Runner ticks on a fixed interval and runs every registered job, guarded
// by the distributed lock so replicas do not double-run.
type Runner struct {
	jobs     []Job
	lock     *Lock
	interval time.Duration
	metrics  *metrics.CronJobMetrics
	logg     *logger.Logger
}

// NewRunner builds a job runner. At least one job must be registered.
func NewRunner(jobs []Job, lock *Lock, interval time.Duration, jobMetrics *metrics.CronJobMetrics, logg *logger.Logger) (*Runner, error) {
	if len(jobs) == 0 {
		return nil, fmt.Errorf("at least one job required")
	}
	if lock == nil {
		return nil, fmt.Errorf("job lock required")
	}
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &Runner{
		jobs:     jobs,
		lock:     lock,
		interval: interval,
		metrics:  jobMetrics,
		logg:     logg,
	}, nil
}

// Run executes one pass immediately, then on every tick until the context
// is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.runAll(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.runAll(ctx)
		}
	}
}

func (r *Runner) runAll(ctx context.Context) {
	for _, job := range r.jobs {
		r.runJob(ctx, job)
	}
}

func (r *Runner) runJob(ctx context.Context, job Job) {
	acquired, err := r.lock.Acquire(ctx, job.Name())
	if err != nil {
		if r.logg != nil {
			r.logg.Error(ctx, "acquiring cron lock", err)
		}
		return
	}
	if !acquired {
		return
	}
	defer func() {
		if releaseErr := r.lock.Release(ctx, job.Name()); releaseErr != nil && r.logg != nil {
			r.logg.Error(ctx, "releasing cron lock", releaseErr)
		}
	}()

	started := time.Now()
	runErr := job.Run(ctx)
	r.metrics.ObserveDuration(job.Name(), time.Since(started))

	if runErr != nil {
		r.metrics.IncFailure(job.Name())
		if r.logg != nil {
			logCtx := r.logg.WithField(ctx, "job", job.Name())
			r.logg.Error(logCtx, "cron job failed", runErr)
		}
		return
	}
	r.metrics.IncSuccess(job.Name())
}
