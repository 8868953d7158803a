package fulfillment

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/packfinderz-fulfillment/pkg/db/models"
	"github.com/angelmondragon/packfinderz-fulfillment/pkg/enums"
	pkgerrors "github.com/angelmondragon/packfinderz-fulfillment/pkg/errors"
	"github.com/angelmondragon/packfinderz-fulfillment/pkg/outbox/payloads"
)

// OrderOutcome is the order-level status pair derived from a line set.
type OrderOutcome struct {
	Status            enums.OrderStatus
	FulfillmentStatus enums.OrderFulfillmentStatus
}

type lineCounts struct {
	total     int
	pending   int
	fulfilled int
	cancelled int
}

func countLines(statuses []enums.LineFulfillmentStatus) lineCounts {
	c := lineCounts{total: len(statuses)}
	for _, status := range statuses {
		switch status {
		case enums.LineFulfillmentPending:
			c.pending++
		case enums.LineFulfillmentFulfilled:
			c.fulfilled++
		case enums.LineFulfillmentCancelled:
			c.cancelled++
		}
	}
	return c
}

// DeriveTaskStatus folds a vendor's scoped lines into a task status. ok is
// false when the lines are mixed or still pending and the task stays as is.
func DeriveTaskStatus(statuses []enums.LineFulfillmentStatus) (enums.TaskStatus, bool) {
	c := countLines(statuses)
	switch {
	case c.total == 0:
		return "", false
	case c.fulfilled == c.total:
		return enums.TaskStatusCompleted, true
	case c.cancelled == c.total:
		return enums.TaskStatusCancelled, true
	}
	return "", false
}

// DeriveOrderStatus folds every line of an order, across all vendors, into an
// order outcome. ok is false when the lines do not determine a new outcome.
func DeriveOrderStatus(statuses []enums.LineFulfillmentStatus) (OrderOutcome, bool) {
	c := countLines(statuses)
	switch {
	case c.total == 0:
		return OrderOutcome{}, false
	case c.fulfilled == c.total:
		return OrderOutcome{Status: enums.OrderStatusCompleted, FulfillmentStatus: enums.OrderFulfillmentFulfilled}, true
	case c.cancelled == c.total:
		return OrderOutcome{Status: enums.OrderStatusCancelled, FulfillmentStatus: enums.OrderFulfillmentCancelled}, true
	case c.pending == 0:
		return OrderOutcome{Status: enums.OrderStatusPartiallyFulfilled, FulfillmentStatus: enums.OrderFulfillmentPartial}, true
	case c.fulfilled > 0:
		return OrderOutcome{Status: enums.OrderStatusActive, FulfillmentStatus: enums.OrderFulfillmentPartial}, true
	}
	return OrderOutcome{}, false
}

func taskTransitionAllowed(from, to enums.TaskStatus, privileged bool) bool {
	if privileged {
		return from.CanForceTo(to)
	}
	return from.CanTransitionTo(to)
}

func orderTransitionAllowed(current, next OrderOutcome, privileged bool) bool {
	statusOK := current.Status == next.Status
	fulfillmentOK := current.FulfillmentStatus == next.FulfillmentStatus
	if privileged {
		statusOK = statusOK || current.Status.CanForceTo(next.Status)
		fulfillmentOK = fulfillmentOK || current.FulfillmentStatus.CanForceTo(next.FulfillmentStatus)
	} else {
		statusOK = statusOK || current.Status.CanTransitionTo(next.Status)
		fulfillmentOK = fulfillmentOK || current.FulfillmentStatus.CanTransitionTo(next.FulfillmentStatus)
	}
	return statusOK && fulfillmentOK
}

// aggregateTask re-derives the task from its scoped lines and persists the
// result when it differs.
func (s *service) aggregateTask(ctx context.Context, tx *gorm.DB, repo Repository, task *models.Task, scoped []LineRecord, actor Actor) (bool, error) {
	next, ok := DeriveTaskStatus(lineStatuses(scoped))
	if !ok {
		return false, nil
	}
	return s.setTaskStatus(ctx, tx, repo, task, next, false, actor)
}

// touchTasks marks the business's open tasks for the order as changed. Callers
// use it when lines moved but the task status did not.
func (s *service) touchTasks(ctx context.Context, repo Repository, externalOrderID string, businessID uuid.UUID) error {
	if _, err := repo.TouchTasks(ctx, externalOrderID, businessID, s.now()); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "touch tasks")
	}
	return nil
}

func (s *service) setTaskStatus(ctx context.Context, tx *gorm.DB, repo Repository, task *models.Task, next enums.TaskStatus, privileged bool, actor Actor) (bool, error) {
	if task.Status == next {
		return false, nil
	}
	if !taskTransitionAllowed(task.Status, next, privileged) {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"task_id":     task.ID.String(),
			"from_status": task.Status.String(),
			"to_status":   next.String(),
		}), "task transition not allowed, leaving status unchanged")
		return false, nil
	}

	at := s.now()
	rows, err := repo.UpdateTaskStatus(ctx, task.ID, task.Status, next, at)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update task status")
	}
	if rows == 0 {
		return false, nil
	}

	previous := task.Status
	task.Status = next
	task.UpdatedAt = at

	return true, s.emit(ctx, tx, enums.EventTaskStatusChanged, enums.AggregateTask, task.ID, actor, payloads.TaskStatusChangedEvent{
		TaskID:          task.ID,
		ExternalOrderID: task.ExternalOrderID,
		EmployeeID:      task.EmployeeID,
		PreviousStatus:  previous,
		Status:          next,
	})
}

// aggregateOrder re-derives the order from all of its lines. Privileged
// callers may use the override transition table.
func (s *service) aggregateOrder(ctx context.Context, tx *gorm.DB, repo Repository, order *models.Order, lines []LineRecord, privileged bool, actor Actor) (bool, error) {
	next, ok := DeriveOrderStatus(lineStatuses(lines))
	if !ok {
		return false, nil
	}
	current := OrderOutcome{Status: order.Status, FulfillmentStatus: order.FulfillmentStatus}
	if current == next {
		return false, nil
	}
	if !orderTransitionAllowed(current, next, privileged) {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"from_status":             current.Status.String(),
			"to_status":               next.Status.String(),
			"from_fulfillment_status": current.FulfillmentStatus.String(),
			"to_fulfillment_status":   next.FulfillmentStatus.String(),
		}), "order transition not allowed, leaving status unchanged")
		return false, nil
	}

	at := s.now()
	if err := repo.UpdateOrderStatus(ctx, order.ID, next.Status, next.FulfillmentStatus, at); err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}
	order.Status = next.Status
	order.FulfillmentStatus = next.FulfillmentStatus
	order.UpdatedAt = at

	return true, s.emit(ctx, tx, enums.EventOrderStatusChanged, enums.AggregateOrder, order.ID, actor, payloads.OrderStatusChangedEvent{
		OrderID:                   order.ID,
		ExternalOrderID:           order.ExternalID,
		PreviousStatus:            current.Status,
		Status:                    next.Status,
		PreviousFulfillmentStatus: current.FulfillmentStatus,
		FulfillmentStatus:         next.FulfillmentStatus,
	})
}
