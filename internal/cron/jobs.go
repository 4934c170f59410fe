package cron

import (
	"context"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/courtside-app/courtside-backend/internal/orders"
	"github.com/courtside-app/courtside-backend/pkg/config"
	"github.com/courtside-app/courtside-backend/pkg/db/models"
	"github.com/courtside-app/courtside-backend/pkg/enums"
	"github.com/courtside-app/courtside-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type sweeper interface {
	SweepStuckPayments(ctx context.Context, lookback time.Duration) (int, error)
}

// Job is one unit of scheduled housekeeping.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// lifecycleJob walks time-driven order edges: confirmed orders whose window
// opened become active, finished bookings complete, and rentals past their
// return date go overdue.
type lifecycleJob struct {
	repo   Repository
	orders orders.Service
	tx     txRunner
	logg   *logger.Logger
}

// NewLifecycleJob builds the order lifecycle job.
func NewLifecycleJob(repo Repository, ordersSvc orders.Service, tx txRunner, logg *logger.Logger) Job {
	return &lifecycleJob{repo: repo, orders: ordersSvc, tx: tx, logg: logg}
}

func (j *lifecycleJob) Name() string { return "order_lifecycle" }

func (j *lifecycleJob) Run(ctx context.Context) error {
	now := time.Now()
	var errs error

	batches := []struct {
		find   func(context.Context, time.Time) ([]models.OrderRef, error)
		target enums.OrderStatus
	}{
		{j.repo.FindBookingsToActivate, enums.OrderStatusActive},
		{j.repo.FindRentalOrdersToActivate, enums.OrderStatusActive},
		{j.repo.FindBookingsToComplete, enums.OrderStatusCompleted},
		{j.repo.FindRentalOrdersPastDue, enums.OrderStatusOverdue},
	}
	for _, batch := range batches {
		refs, err := batch.find(ctx, now)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		errs = multierr.Append(errs, j.transitionAll(ctx, refs, batch.target))
	}
	return errs
}

// transitionAll applies the edge per order in its own transaction so one
// failing order does not hold back the batch. A rental activation can
// legitimately fail here when stock ran out since confirmation.
func (j *lifecycleJob) transitionAll(ctx context.Context, refs []models.OrderRef, target enums.OrderStatus) error {
	var errs error
	for _, ref := range refs {
		ref := ref
		err := j.tx.WithTx(ctx, func(tx *gorm.DB) error {
			return j.orders.TransitionTx(ctx, tx, ref, target, nil)
		})
		if err != nil {
			if j.logg != nil {
				logCtx := j.logg.WithFields(ctx, map[string]any{
					"order_id": ref.ID.String(),
					"target":   target.String(),
				})
				j.logg.Error(logCtx, "lifecycle transition failed", err)
			}
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

// draftTTLJob cancels draft orders nobody paid for within the TTL.
type draftTTLJob struct {
	repo   Repository
	orders orders.Service
	tx     txRunner
	ttl    time.Duration
	logg   *logger.Logger
}

// NewDraftTTLJob builds the abandoned draft cleanup job.
func NewDraftTTLJob(repo Repository, ordersSvc orders.Service, tx txRunner, cfg config.CronConfig, logg *logger.Logger) Job {
	return &draftTTLJob{repo: repo, orders: ordersSvc, tx: tx, ttl: cfg.DraftTTL, logg: logg}
}

func (j *draftTTLJob) Name() string { return "draft_ttl" }

func (j *draftTTLJob) Run(ctx context.Context) error {
	refs, err := j.repo.FindStaleDrafts(ctx, time.Now().Add(-j.ttl))
	if err != nil {
		return err
	}

	var errs error
	for _, ref := range refs {
		ref := ref
		err := j.tx.WithTx(ctx, func(tx *gorm.DB) error {
			return j.orders.TransitionTx(ctx, tx, ref, enums.OrderStatusCancelled, nil)
		})
		if err != nil {
			if j.logg != nil {
				logCtx := j.logg.WithOrderID(ctx, ref.ID.String())
				j.logg.Error(logCtx, "cancelling stale draft", err)
			}
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

// sweepJob re-runs payment reconciliation for completed payments whose
// orders never confirmed.
type sweepJob struct {
	sweeper  sweeper
	lookback time.Duration
	logg     *logger.Logger
}

// NewSweepJob builds the reconciliation sweep job.
func NewSweepJob(s sweeper, cfg config.CronConfig, logg *logger.Logger) Job {
	return &sweepJob{sweeper: s, lookback: cfg.SweepLookback, logg: logg}
}

func (j *sweepJob) Name() string { return "reconcile_sweep" }

func (j *sweepJob) Run(ctx context.Context) error {
	repaired, err := j.sweeper.SweepStuckPayments(ctx, j.lookback)
	if err != nil {
		return err
	}
	if repaired > 0 && j.logg != nil {
		logCtx := j.logg.WithField(ctx, "repaired", repaired)
		j.logg.Info(logCtx, "reconcile sweep repaired stuck payments")
	}
	return nil
}
