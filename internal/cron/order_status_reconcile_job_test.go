package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/angelmondragon/packfinderz-fulfillment/pkg/logger"
)

type fakeReconciler struct {
	stale      []uuid.UUID
	listErr    error
	failFor    map[uuid.UUID]error
	changed    map[uuid.UUID]bool
	cutoff     time.Time
	limit      int
	reconciled []uuid.UUID
}

func (f *fakeReconciler) StaleActiveOrders(_ context.Context, before time.Time, limit int) ([]uuid.UUID, error) {
	f.cutoff = before
	f.limit = limit
	return f.stale, f.listErr
}

func (f *fakeReconciler) ReconcileOrder(_ context.Context, id uuid.UUID) (bool, error) {
	f.reconciled = append(f.reconciled, id)
	if err := f.failFor[id]; err != nil {
		return false, err
	}
	return f.changed[id], nil
}

func newReconcileJob(t *testing.T, svc orderReconciler) *orderStatusReconcileJob {
	t.Helper()
	job, err := NewOrderStatusReconcileJob(OrderStatusReconcileJobParams{
		Logger:     logger.New(logger.Options{ServiceName: "test"}),
		Service:    svc,
		StaleAfter: 2 * time.Hour,
		BatchSize:  10,
	})
	require.NoError(t, err)
	return job.(*orderStatusReconcileJob)
}

func TestOrderStatusReconcileJobVisitsEveryStaleOrder(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	svc := &fakeReconciler{
		stale:   []uuid.UUID{a, b, c},
		changed: map[uuid.UUID]bool{b: true},
	}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	job := newReconcileJob(t, svc)
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, []uuid.UUID{a, b, c}, svc.reconciled)
	assert.Equal(t, now.Add(-2*time.Hour), svc.cutoff)
	assert.Equal(t, 10, svc.limit)
}

func TestOrderStatusReconcileJobCollectsFailures(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	svc := &fakeReconciler{
		stale: []uuid.UUID{a, b, c},
		failFor: map[uuid.UUID]error{
			a: errors.New("first"),
			c: errors.New("third"),
		},
	}
	job := newReconcileJob(t, svc)

	err := job.Run(context.Background())
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 2)
	assert.Len(t, svc.reconciled, 3, "a failure must not stop the sweep")
}

func TestOrderStatusReconcileJobListFailure(t *testing.T) {
	svc := &fakeReconciler{listErr: errors.New("db down")}
	job := newReconcileJob(t, svc)

	err := job.Run(context.Background())
	require.Error(t, err)
	assert.Empty(t, svc.reconciled)
}

func TestOrderStatusReconcileJobStopsOnCancel(t *testing.T) {
	svc := &fakeReconciler{stale: []uuid.UUID{uuid.New(), uuid.New()}}
	job := newReconcileJob(t, svc)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := job.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, svc.reconciled)
}

func TestNewOrderStatusReconcileJobDefaults(t *testing.T) {
	job, err := NewOrderStatusReconcileJob(OrderStatusReconcileJobParams{
		Logger:  logger.New(logger.Options{ServiceName: "test"}),
		Service: &fakeReconciler{},
	})
	require.NoError(t, err)
	impl := job.(*orderStatusReconcileJob)
	assert.Equal(t, defaultReconcileStaleAfter, impl.staleAfter)
	assert.Equal(t, defaultReconcileBatchSize, impl.batch)

	_, err = NewOrderStatusReconcileJob(OrderStatusReconcileJobParams{Service: &fakeReconciler{}})
	assert.Error(t, err)
}
