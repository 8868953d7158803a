package enums

// OutboxAggregateType maps to the aggregate_type column of outbox_events.
type OutboxAggregateType string

const (
	AggregateOrder     OutboxAggregateType = "order"
	AggregateOrderLine OutboxAggregateType = "order_line"
	AggregateTask      OutboxAggregateType = "task"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregateOrderLine,
	AggregateTask,
}

// IsValid reports whether the value matches the canonical aggregate_type values.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// OutboxEventType maps to the event_type column of outbox_events.
type OutboxEventType string

const (
	EventLinesFulfilled         OutboxEventType = "fulfillment.lines_fulfilled"
	EventLineFulfilled          OutboxEventType = "fulfillment.line_fulfilled"
	EventLinesCancelled         OutboxEventType = "fulfillment.lines_cancelled"
	EventOrderOverrideFulfilled OutboxEventType = "fulfillment.order_override_fulfilled"
	EventOrderStatusChanged     OutboxEventType = "order.status_changed"
	EventTaskStatusChanged      OutboxEventType = "task.status_changed"
	EventTaskAssigned           OutboxEventType = "task.assigned"
	EventTaskReassigned         OutboxEventType = "task.reassigned"
)

var validOutboxEventTypes = []OutboxEventType{
	EventLinesFulfilled,
	EventLineFulfilled,
	EventLinesCancelled,
	EventOrderOverrideFulfilled,
	EventOrderStatusChanged,
	EventTaskStatusChanged,
	EventTaskAssigned,
	EventTaskReassigned,
}

// IsValid reports whether the value matches the canonical event_type values.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}
