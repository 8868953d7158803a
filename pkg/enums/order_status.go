package enums

import "fmt"

// OrderStatus is the customer-facing lifecycle of an order across all vendors.
type OrderStatus string

const (
	OrderStatusActive             OrderStatus = "active"
	OrderStatusCompleted          OrderStatus = "completed"
	OrderStatusCancelled          OrderStatus = "cancelled"
	OrderStatusPartiallyFulfilled OrderStatus = "partially_fulfilled"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusActive,
	OrderStatusCompleted,
	OrderStatusCancelled,
	OrderStatusPartiallyFulfilled,
}

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusActive: {OrderStatusCompleted, OrderStatusCancelled, OrderStatusPartiallyFulfilled},
}

var orderForced = map[OrderStatus][]OrderStatus{
	OrderStatusPartiallyFulfilled: {OrderStatusCompleted},
	OrderStatusCancelled:          {OrderStatusCompleted},
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether the regular transition table allows s -> next.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	return containsStatus(orderTransitions[s], next)
}

// CanForceTo reports whether a privileged override may move s -> next.
func (s OrderStatus) CanForceTo(next OrderStatus) bool {
	return s.CanTransitionTo(next) || containsStatus(orderForced[s], next)
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
