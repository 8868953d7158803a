package fulfillment

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/packfinderz-fulfillment/internal/repo"
	"github.com/angelmondragon/packfinderz-fulfillment/pkg/db/models"
	"github.com/angelmondragon/packfinderz-fulfillment/pkg/enums"
)

type repository struct {
	base repo.Base
}

// NewRepository builds a fulfillment repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{base: r.base.WithTx(tx)}
}

func (r *repository) FindEmployee(ctx context.Context, employeeID uuid.UUID) (*models.Employee, error) {
	var employee models.Employee
	if err := r.base.DB(ctx).Where("id = ?", employeeID).First(&employee).Error; err != nil {
		return nil, err
	}
	return &employee, nil
}

func (r *repository) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.base.DB(ctx).Where("id = ?", orderID).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// FindOrderForUpdate loads the order and, on Postgres, locks its row for the
// rest of the transaction. Every command takes this lock first so concurrent
// commands on the same order queue up instead of interleaving.
func (r *repository) FindOrderForUpdate(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.base.ForUpdate(ctx).Where("id = ?", orderID).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindLines(ctx context.Context, orderID uuid.UUID) ([]LineRecord, error) {
	var lines []models.OrderLine
	err := r.base.DB(ctx).
		Where("order_id = ?", orderID).
		Order("position ASC").
		Order("created_at ASC").
		Order("id ASC").
		Find(&lines).Error
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, nil
	}

	productIDs := make([]uuid.UUID, 0, len(lines))
	seen := make(map[uuid.UUID]struct{}, len(lines))
	for _, line := range lines {
		if _, ok := seen[line.ProductID]; ok {
			continue
		}
		seen[line.ProductID] = struct{}{}
		productIDs = append(productIDs, line.ProductID)
	}

	var products []models.Product
	if err := r.base.DB(ctx).Select("id", "business_id").Where("id IN ?", productIDs).Find(&products).Error; err != nil {
		return nil, err
	}
	owners := make(map[uuid.UUID]uuid.UUID, len(products))
	for _, product := range products {
		owners[product.ID] = product.BusinessID
	}

	records := make([]LineRecord, len(lines))
	for i, line := range lines {
		records[i] = LineRecord{OrderLine: line, BusinessID: owners[line.ProductID]}
	}
	return records, nil
}

func (r *repository) FindLine(ctx context.Context, lineID uuid.UUID) (*models.OrderLine, error) {
	var line models.OrderLine
	if err := r.base.DB(ctx).Where("id = ?", lineID).First(&line).Error; err != nil {
		return nil, err
	}
	return &line, nil
}

// FindLineBusiness returns the business owning the product.
func (r *repository) FindLineBusiness(ctx context.Context, productID uuid.UUID) (uuid.UUID, error) {
	var product models.Product
	if err := r.base.DB(ctx).Select("id", "business_id").Where("id = ?", productID).First(&product).Error; err != nil {
		return uuid.Nil, err
	}
	return product.BusinessID, nil
}

// FindCurrentTask returns the most recent record for the pairing, whatever its
// status. Callers decide whether a reassigned record still counts.
func (r *repository) FindCurrentTask(ctx context.Context, externalOrderID string, employeeID uuid.UUID) (*models.Task, error) {
	var task models.Task
	err := r.base.DB(ctx).
		Where("external_order_id = ? AND employee_id = ?", externalOrderID, employeeID).
		Order("updated_at DESC").
		Order("created_at DESC").
		Order("id DESC").
		First(&task).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// FindOpenTasks lists every non-reassigned record for the order together with
// the business of the assigned employee.
func (r *repository) FindOpenTasks(ctx context.Context, externalOrderID string) ([]TaskRecord, error) {
	var records []TaskRecord
	err := r.base.DB(ctx).
		Table("tasks").
		Select("tasks.*, employees.business_id AS business_id").
		Joins("JOIN employees ON employees.id = tasks.employee_id").
		Where("tasks.external_order_id = ? AND tasks.status <> ?", externalOrderID, enums.TaskStatusReassigned).
		Order("tasks.created_at ASC").
		Order("tasks.id ASC").
		Scan(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *repository) CountLines(ctx context.Context, orderID uuid.UUID) (int64, int64, error) {
	var counts struct {
		Total     int64
		Fulfilled int64
	}
	err := r.base.DB(ctx).
		Model(&models.OrderLine{}).
		Select("COUNT(*) AS total, COALESCE(SUM(CASE WHEN fulfillment_status = ? THEN 1 ELSE 0 END), 0) AS fulfilled", enums.LineFulfillmentFulfilled).
		Where("order_id = ?", orderID).
		Scan(&counts).Error
	if err != nil {
		return 0, 0, err
	}
	return counts.Total, counts.Fulfilled, nil
}

// FulfillPendingLines moves pending lines to fulfilled. The status predicate
// makes the write a no-op for lines that already left pending.
func (r *repository) FulfillPendingLines(ctx context.Context, lineIDs []uuid.UUID, at time.Time) (int64, error) {
	if len(lineIDs) == 0 {
		return 0, nil
	}
	res := r.base.DB(ctx).
		Model(&models.OrderLine{}).
		Where("id IN ? AND fulfillment_status = ?", lineIDs, enums.LineFulfillmentPending).
		Updates(map[string]any{
			"fulfillment_status": enums.LineFulfillmentFulfilled,
			"fulfilled_at":       at,
			"updated_at":         at,
		})
	return res.RowsAffected, res.Error
}

// ForceFulfillLines is the privileged write: pending and cancelled lines both
// become fulfilled and any cancellation reason is cleared.
func (r *repository) ForceFulfillLines(ctx context.Context, lineIDs []uuid.UUID, at time.Time) (int64, error) {
	if len(lineIDs) == 0 {
		return 0, nil
	}
	res := r.base.DB(ctx).
		Model(&models.OrderLine{}).
		Where("id IN ? AND fulfillment_status <> ?", lineIDs, enums.LineFulfillmentFulfilled).
		Updates(map[string]any{
			"fulfillment_status":  enums.LineFulfillmentFulfilled,
			"cancellation_reason": nil,
			"cancelled_at":        nil,
			"fulfilled_at":        at,
			"updated_at":          at,
		})
	return res.RowsAffected, res.Error
}

func (r *repository) CancelPendingLines(ctx context.Context, lineIDs []uuid.UUID, reason string, at time.Time) (int64, error) {
	if len(lineIDs) == 0 {
		return 0, nil
	}
	res := r.base.DB(ctx).
		Model(&models.OrderLine{}).
		Where("id IN ? AND fulfillment_status = ?", lineIDs, enums.LineFulfillmentPending).
		Updates(map[string]any{
			"fulfillment_status":  enums.LineFulfillmentCancelled,
			"cancellation_reason": reason,
			"cancelled_at":        at,
			"updated_at":          at,
		})
	return res.RowsAffected, res.Error
}

func (r *repository) UpdateTaskStatus(ctx context.Context, taskID uuid.UUID, from, to enums.TaskStatus, at time.Time) (int64, error) {
	res := r.base.DB(ctx).
		Model(&models.Task{}).
		Where("id = ? AND status = ?", taskID, from).
		Updates(map[string]any{
			"status":     to,
			"updated_at": at,
		})
	return res.RowsAffected, res.Error
}

// TouchTasks bumps updated_at on the business's open records for the order so
// changed-since listings pick up line progress that left the status as is.
func (r *repository) TouchTasks(ctx context.Context, externalOrderID string, businessID uuid.UUID, at time.Time) (int64, error) {
	res := r.base.DB(ctx).
		Model(&models.Task{}).
		Where("external_order_id = ? AND status <> ?", externalOrderID, enums.TaskStatusReassigned).
		Where("employee_id IN (SELECT id FROM employees WHERE business_id = ?)", businessID).
		UpdateColumn("updated_at", at)
	return res.RowsAffected, res.Error
}

func (r *repository) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus, fulfillment enums.OrderFulfillmentStatus, at time.Time) error {
	return r.base.DB(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]any{
			"status":             status,
			"fulfillment_status": fulfillment,
			"updated_at":         at,
		}).Error
}

// ListStaleActiveOrders returns active orders untouched since the cutoff,
// least recently reconciled first. Reconciled orders drop out until the
// cutoff passes them again, so a full batch never starves the rest.
func (r *repository) ListStaleActiveOrders(ctx context.Context, updatedBefore time.Time, limit int) ([]uuid.UUID, error) {
	cutoff := updatedBefore.UTC()
	var ids []uuid.UUID
	q := r.base.DB(ctx).
		Model(&models.Order{}).
		Where("status = ? AND updated_at < ?", enums.OrderStatusActive, cutoff).
		Where("reconciled_at IS NULL OR reconciled_at < ?", cutoff).
		Order("COALESCE(reconciled_at, updated_at) ASC").
		Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *repository) MarkReconciled(ctx context.Context, orderID uuid.UUID, at time.Time) error {
	return r.base.DB(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		UpdateColumn("reconciled_at", at).Error
}
