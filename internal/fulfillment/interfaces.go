package fulfillment

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/packfinderz-fulfillment/pkg/db/models"
	"github.com/angelmondragon/packfinderz-fulfillment/pkg/enums"
	"github.com/angelmondragon/packfinderz-fulfillment/pkg/outbox"
)

// Repository defines persistence operations for orders, lines and tasks used
// by the fulfillment commands.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindEmployee(ctx context.Context, employeeID uuid.UUID) (*models.Employee, error)
	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindOrderForUpdate(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindLines(ctx context.Context, orderID uuid.UUID) ([]LineRecord, error)
	FindLine(ctx context.Context, lineID uuid.UUID) (*models.OrderLine, error)
	FindLineBusiness(ctx context.Context, productID uuid.UUID) (uuid.UUID, error)
	FindCurrentTask(ctx context.Context, externalOrderID string, employeeID uuid.UUID) (*models.Task, error)
	FindOpenTasks(ctx context.Context, externalOrderID string) ([]TaskRecord, error)
	CountLines(ctx context.Context, orderID uuid.UUID) (total int64, fulfilled int64, err error)
	FulfillPendingLines(ctx context.Context, lineIDs []uuid.UUID, at time.Time) (int64, error)
	ForceFulfillLines(ctx context.Context, lineIDs []uuid.UUID, at time.Time) (int64, error)
	CancelPendingLines(ctx context.Context, lineIDs []uuid.UUID, reason string, at time.Time) (int64, error)
	UpdateTaskStatus(ctx context.Context, taskID uuid.UUID, from, to enums.TaskStatus, at time.Time) (int64, error)
	TouchTasks(ctx context.Context, externalOrderID string, businessID uuid.UUID, at time.Time) (int64, error)
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus, fulfillment enums.OrderFulfillmentStatus, at time.Time) error
	ListStaleActiveOrders(ctx context.Context, updatedBefore time.Time, limit int) ([]uuid.UUID, error)
	MarkReconciled(ctx context.Context, orderID uuid.UUID, at time.Time) error
}

type txRunner interface {
	WithSerializableTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type employeeCache interface {
	Get(key string) (models.Employee, bool)
	Set(key string, value models.Employee) bool
}
