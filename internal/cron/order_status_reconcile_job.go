package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/packfinderz-fulfillment/pkg/logger"
)

const (
	defaultReconcileStaleAfter = time.Hour
	defaultReconcileBatchSize  = 200
)

// orderReconciler is the slice of the fulfillment service this job drives.
type orderReconciler interface {
	StaleActiveOrders(ctx context.Context, updatedBefore time.Time, limit int) ([]uuid.UUID, error)
	ReconcileOrder(ctx context.Context, orderID uuid.UUID) (bool, error)
}

// OrderStatusReconcileJobParams configure the reconcile sweep.
type OrderStatusReconcileJobParams struct {
	Logger     *logger.Logger
	Service    orderReconciler
	StaleAfter time.Duration
	BatchSize  int
}

// NewOrderStatusReconcileJob re-derives task and order statuses for active
// orders that have not been touched within StaleAfter.
func NewOrderStatusReconcileJob(params OrderStatusReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Service == nil {
		return nil, fmt.Errorf("fulfillment service required")
	}
	staleAfter := params.StaleAfter
	if staleAfter <= 0 {
		staleAfter = defaultReconcileStaleAfter
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultReconcileBatchSize
	}
	return &orderStatusReconcileJob{
		logg:       params.Logger,
		svc:        params.Service,
		staleAfter: staleAfter,
		batch:      batch,
		now:        time.Now,
	}, nil
}

type orderStatusReconcileJob struct {
	logg       *logger.Logger
	svc        orderReconciler
	staleAfter time.Duration
	batch      int
	now        func() time.Time
}

func (j *orderStatusReconcileJob) Name() string { return "order-status-reconcile" }

func (j *orderStatusReconcileJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.staleAfter)
	ids, err := j.svc.StaleActiveOrders(ctx, cutoff, j.batch)
	if err != nil {
		return fmt.Errorf("list stale orders: %w", err)
	}

	var (
		errs    error
		changed int
	)
	for _, id := range ids {
		if ctx.Err() != nil {
			errs = multierr.Append(errs, ctx.Err())
			break
		}
		updated, err := j.svc.ReconcileOrder(ctx, id)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("order %s: %w", id, err))
			continue
		}
		if updated {
			changed++
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":   cutoff,
		"scanned":  len(ids),
		"changed":  changed,
		"failures": len(multierr.Errors(errs)),
	})
	j.logg.Info(logCtx, "order status reconcile complete")
	return errs
}
