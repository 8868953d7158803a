package tasks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/packfinderz-fulfillment/internal/repo"
	"github.com/angelmondragon/packfinderz-fulfillment/pkg/db/models"
	"github.com/angelmondragon/packfinderz-fulfillment/pkg/enums"
	"github.com/angelmondragon/packfinderz-fulfillment/pkg/pagination"
)

// Repository defines persistence operations for task history.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindEmployee(ctx context.Context, employeeID uuid.UUID) (*models.Employee, error)
	FindOrderByExternalID(ctx context.Context, externalOrderID string) (*models.Order, error)
	FindTaskForUpdate(ctx context.Context, taskID uuid.UUID) (*models.Task, error)
	FindOpenTaskForBusiness(ctx context.Context, externalOrderID string, businessID uuid.UUID) (*models.Task, error)
	CreateTask(ctx context.Context, task *models.Task) error
	MarkReassigned(ctx context.Context, taskID uuid.UUID, at time.Time) (int64, error)
	ListChanged(ctx context.Context, filter changedFilter) ([]taskRow, error)
	FindScopedLines(ctx context.Context, externalOrderIDs []string) ([]lineRow, error)
}

// changedFilter selects task rows changed after Cursor, oldest change first.
type changedFilter struct {
	EmployeeID *uuid.UUID
	BusinessID *uuid.UUID
	Cursor     *pagination.Cursor
	Limit      int
}

type repository struct {
	base repo.Base
}

// NewRepository builds a task repository bound to the provided DB.
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

func (r *repository) FindOrderByExternalID(ctx context.Context, externalOrderID string) (*models.Order, error) {
	var order models.Order
	if err := r.base.DB(ctx).Where("order_id = ?", externalOrderID).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindTaskForUpdate(ctx context.Context, taskID uuid.UUID) (*models.Task, error) {
	var task models.Task
	if err := r.base.ForUpdate(ctx).Where("id = ?", taskID).First(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *repository) FindOpenTaskForBusiness(ctx context.Context, externalOrderID string, businessID uuid.UUID) (*models.Task, error) {
	var task models.Task
	err := r.base.DB(ctx).
		Select("tasks.*").
		Joins("JOIN employees ON employees.id = tasks.employee_id").
		Where("tasks.external_order_id = ? AND employees.business_id = ? AND tasks.status <> ?", externalOrderID, businessID, enums.TaskStatusReassigned).
		Order("tasks.updated_at DESC").
		First(&task).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *repository) CreateTask(ctx context.Context, task *models.Task) error {
	return r.base.DB(ctx).Create(task).Error
}

func (r *repository) MarkReassigned(ctx context.Context, taskID uuid.UUID, at time.Time) (int64, error) {
	res := r.base.DB(ctx).
		Model(&models.Task{}).
		Where("id = ? AND status = ?", taskID, enums.TaskStatusPending).
		Updates(map[string]any{
			"status":     enums.TaskStatusReassigned,
			"updated_at": at,
		})
	return res.RowsAffected, res.Error
}

func (r *repository) ListChanged(ctx context.Context, filter changedFilter) ([]taskRow, error) {
	q := r.base.DB(ctx).
		Table("tasks").
		Select("tasks.*, employees.business_id AS business_id").
		Joins("JOIN employees ON employees.id = tasks.employee_id")
	if filter.EmployeeID != nil {
		q = q.Where("tasks.employee_id = ?", *filter.EmployeeID)
	}
	if filter.BusinessID != nil {
		q = q.Where("employees.business_id = ?", *filter.BusinessID)
	}
	if filter.Cursor != nil {
		at := filter.Cursor.At.UTC()
		q = q.Where("(tasks.updated_at > ? OR (tasks.updated_at = ? AND tasks.id > ?))", at, at, filter.Cursor.ID)
	}
	var rows []taskRow
	err := q.
		Order("tasks.updated_at ASC").
		Order("tasks.id ASC").
		Limit(filter.Limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// FindScopedLines loads every line of the given orders with the business that
// owns each line's product. Callers scope them per task.
func (r *repository) FindScopedLines(ctx context.Context, externalOrderIDs []string) ([]lineRow, error) {
	if len(externalOrderIDs) == 0 {
		return nil, nil
	}
	var rows []lineRow
	err := r.base.DB(ctx).
		Table("order_lines").
		Select("order_lines.*, orders.order_id AS external_order_id, products.business_id AS business_id").
		Joins("JOIN orders ON orders.id = order_lines.order_id").
		Joins("JOIN products ON products.id = order_lines.product_id").
		Where("orders.order_id IN ?", externalOrderIDs).
		Order("order_lines.position ASC").
		Order("order_lines.created_at ASC").
		Order("order_lines.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
