package fulfillment

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/packfinderz-fulfillment/pkg/db/models"
	"github.com/angelmondragon/packfinderz-fulfillment/pkg/db/testdb"
	"github.com/angelmondragon/packfinderz-fulfillment/pkg/enums"
)

func TestRepositoryLineTransitionsApplyOnce(t *testing.T) {
	conn := testdb.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	business := testdb.Business(t, conn, "vendor")
	product := testdb.Product(t, conn, business.ID)
	order := testdb.Order(t, conn, "ORD-ONCE",
		testdb.LineSpec{ProductID: product.ID},
		testdb.LineSpec{ProductID: product.ID},
	)
	ids := []uuid.UUID{order.Lines[0].ID, order.Lines[1].ID}
	at := time.Now().UTC()

	changed, err := repo.FulfillPendingLines(ctx, ids, at)
	require.NoError(t, err)
	assert.EqualValues(t, 2, changed)

	changed, err = repo.FulfillPendingLines(ctx, ids, at)
	require.NoError(t, err)
	assert.EqualValues(t, 0, changed, "lines leave pending at most once")

	changed, err = repo.CancelPendingLines(ctx, ids, "late", at)
	require.NoError(t, err)
	assert.EqualValues(t, 0, changed)

	var lines []models.OrderLine
	require.NoError(t, conn.Where("order_id = ?", order.ID).Find(&lines).Error)
	for _, line := range lines {
		assert.Equal(t, enums.LineFulfillmentFulfilled, line.FulfillmentStatus)
		assert.Nil(t, line.CancellationReason)
	}

	changed, err = repo.FulfillPendingLines(ctx, nil, at)
	require.NoError(t, err)
	assert.Zero(t, changed)
}

func TestRepositoryTouchTasksScopesToBusiness(t *testing.T) {
	conn := testdb.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	a := testdb.Business(t, conn, "vendor-a")
	b := testdb.Business(t, conn, "vendor-b")
	empA := testdb.Employee(t, conn, a.ID, enums.MemberRoleEmployee)
	empA2 := testdb.Employee(t, conn, a.ID, enums.MemberRoleEmployee)
	empB := testdb.Employee(t, conn, b.ID, enums.MemberRoleEmployee)
	old := time.Now().Add(-time.Hour)
	superseded := testdb.Task(t, conn, "ORD-T", empA2.ID, enums.TaskStatusReassigned, old)
	open := testdb.Task(t, conn, "ORD-T", empA.ID, enums.TaskStatusPending, old)
	other := testdb.Task(t, conn, "ORD-T", empB.ID, enums.TaskStatusPending, old)
	elsewhere := testdb.Task(t, conn, "ORD-OTHER", empA.ID, enums.TaskStatusPending, old)

	at := time.Now().UTC()
	touched, err := repo.TouchTasks(ctx, "ORD-T", a.ID, at)
	require.NoError(t, err)
	assert.EqualValues(t, 1, touched)

	load := func(id uuid.UUID) models.Task {
		var task models.Task
		require.NoError(t, conn.Where("id = ?", id).First(&task).Error)
		return task
	}
	assert.WithinDuration(t, at, load(open.ID).UpdatedAt, time.Second)
	for _, id := range []uuid.UUID{superseded.ID, other.ID, elsewhere.ID} {
		assert.WithinDuration(t, old, load(id).UpdatedAt, time.Second)
	}
}

func TestRepositoryStaleOrdersSkipRecentlyReconciled(t *testing.T) {
	conn := testdb.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	product := testdb.Product(t, conn, testdb.Business(t, conn, "vendor").ID)
	older := testdb.Order(t, conn, "ORD-OLDER", testdb.LineSpec{ProductID: product.ID})
	newer := testdb.Order(t, conn, "ORD-NEWER", testdb.LineSpec{ProductID: product.ID})
	require.NoError(t, conn.Model(&models.Order{}).Where("id = ?", older.ID).
		UpdateColumn("updated_at", time.Now().UTC().Add(-3*time.Hour)).Error)
	cutoff := time.Now().Add(-30 * time.Minute)

	ids, err := repo.ListStaleActiveOrders(ctx, cutoff, 1)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{older.ID}, ids)

	require.NoError(t, repo.MarkReconciled(ctx, older.ID, time.Now().UTC()))
	ids, err = repo.ListStaleActiveOrders(ctx, cutoff, 1)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{newer.ID}, ids)

	var reloaded models.Order
	require.NoError(t, conn.Where("id = ?", older.ID).First(&reloaded).Error)
	require.NotNil(t, reloaded.ReconciledAt)
	assert.WithinDuration(t, time.Now().Add(-3*time.Hour), reloaded.UpdatedAt, time.Minute, "reconcile stamp leaves updated_at alone")
}
