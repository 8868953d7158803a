package payloads

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/packfinderz-fulfillment/pkg/enums"
)

// LinesFulfilledEvent is emitted when a one-time code fulfils lines inside one vendor scope.
type LinesFulfilledEvent struct {
	OrderID         uuid.UUID   `json:"orderId"`
	ExternalOrderID string      `json:"externalOrderId"`
	BusinessID      uuid.UUID   `json:"businessId"`
	EmployeeID      uuid.UUID   `json:"employeeId"`
	TaskID          uuid.UUID   `json:"taskId"`
	LineIDs         []uuid.UUID `json:"lineIds"`
	TaskCompleted   bool        `json:"taskCompleted"`
}

// LineFulfilledEvent covers the non-delivery channel that fulfils one line by id.
type LineFulfilledEvent struct {
	LineID    uuid.UUID `json:"lineId"`
	OrderID   uuid.UUID `json:"orderId"`
	ProductID uuid.UUID `json:"productId"`
}

// LinesCancelledEvent is emitted by the cancellation override.
type LinesCancelledEvent struct {
	OrderID         uuid.UUID   `json:"orderId"`
	ExternalOrderID string      `json:"externalOrderId"`
	ProductID       uuid.UUID   `json:"productId"`
	LineIDs         []uuid.UUID `json:"lineIds"`
	Reason          string      `json:"reason"`
	OrderCancelled  bool        `json:"orderCancelled"`
}

// OrderOverrideFulfilledEvent is the audit record of a privileged force-fulfil.
type OrderOverrideFulfilledEvent struct {
	OrderID         uuid.UUID `json:"orderId"`
	ExternalOrderID string    `json:"externalOrderId"`
	LinesChanged    int       `json:"linesChanged"`
	RevivedLines    int       `json:"revivedLines"`
	TasksCompleted  int       `json:"tasksCompleted"`
}

// OrderStatusChangedEvent is emitted whenever the aggregator moves an order.
type OrderStatusChangedEvent struct {
	OrderID                   uuid.UUID                    `json:"orderId"`
	ExternalOrderID           string                       `json:"externalOrderId"`
	PreviousStatus            enums.OrderStatus            `json:"previousStatus"`
	Status                    enums.OrderStatus            `json:"status"`
	PreviousFulfillmentStatus enums.OrderFulfillmentStatus `json:"previousFulfillmentStatus"`
	FulfillmentStatus         enums.OrderFulfillmentStatus `json:"fulfillmentStatus"`
}

// TaskStatusChangedEvent is emitted whenever the aggregator moves a task.
type TaskStatusChangedEvent struct {
	TaskID          uuid.UUID        `json:"taskId"`
	ExternalOrderID *string          `json:"externalOrderId,omitempty"`
	EmployeeID      uuid.UUID        `json:"employeeId"`
	PreviousStatus  enums.TaskStatus `json:"previousStatus"`
	Status          enums.TaskStatus `json:"status"`
}

// TaskAssignedEvent announces a new delivery assignment.
type TaskAssignedEvent struct {
	TaskID          uuid.UUID `json:"taskId"`
	ExternalOrderID *string   `json:"externalOrderId,omitempty"`
	Name            string    `json:"name"`
	EmployeeID      uuid.UUID `json:"employeeId"`
	BusinessID      uuid.UUID `json:"businessId"`
}

// TaskReassignedEvent links the superseded record to its replacement.
type TaskReassignedEvent struct {
	PreviousTaskID  uuid.UUID `json:"previousTaskId"`
	TaskID          uuid.UUID `json:"taskId"`
	ExternalOrderID *string   `json:"externalOrderId,omitempty"`
	FromEmployeeID  uuid.UUID `json:"fromEmployeeId"`
	ToEmployeeID    uuid.UUID `json:"toEmployeeId"`
	BusinessID      uuid.UUID `json:"businessId"`
}
