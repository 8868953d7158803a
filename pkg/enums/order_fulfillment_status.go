package enums

import "fmt"

// OrderFulfillmentStatus summarises line progress for an order.
type OrderFulfillmentStatus string

const (
	OrderFulfillmentPending   OrderFulfillmentStatus = "pending"
	OrderFulfillmentPartial   OrderFulfillmentStatus = "partial"
	OrderFulfillmentFulfilled OrderFulfillmentStatus = "fulfilled"
	OrderFulfillmentCancelled OrderFulfillmentStatus = "cancelled"
)

var validOrderFulfillmentStatuses = []OrderFulfillmentStatus{
	OrderFulfillmentPending,
	OrderFulfillmentPartial,
	OrderFulfillmentFulfilled,
	OrderFulfillmentCancelled,
}

var orderFulfillmentTransitions = map[OrderFulfillmentStatus][]OrderFulfillmentStatus{
	OrderFulfillmentPending: {OrderFulfillmentPartial, OrderFulfillmentFulfilled, OrderFulfillmentCancelled},
	OrderFulfillmentPartial: {OrderFulfillmentFulfilled},
}

var orderFulfillmentForced = map[OrderFulfillmentStatus][]OrderFulfillmentStatus{
	OrderFulfillmentCancelled: {OrderFulfillmentFulfilled},
}

// String implements fmt.Stringer.
func (s OrderFulfillmentStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderFulfillmentStatus.
func (s OrderFulfillmentStatus) IsValid() bool {
	for _, candidate := range validOrderFulfillmentStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether the regular transition table allows s -> next.
func (s OrderFulfillmentStatus) CanTransitionTo(next OrderFulfillmentStatus) bool {
	return containsStatus(orderFulfillmentTransitions[s], next)
}

// CanForceTo reports whether a privileged override may move s -> next.
func (s OrderFulfillmentStatus) CanForceTo(next OrderFulfillmentStatus) bool {
	return s.CanTransitionTo(next) || containsStatus(orderFulfillmentForced[s], next)
}

// ParseOrderFulfillmentStatus converts raw input into an OrderFulfillmentStatus.
func ParseOrderFulfillmentStatus(value string) (OrderFulfillmentStatus, error) {
	for _, candidate := range validOrderFulfillmentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order fulfillment status %q", value)
}
