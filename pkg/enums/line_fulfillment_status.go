package enums

import "fmt"

// LineFulfillmentStatus tracks where a single order line sits in the fulfillment flow.
// A line leaves pending exactly once.
type LineFulfillmentStatus string

const (
	LineFulfillmentPending   LineFulfillmentStatus = "pending"
	LineFulfillmentFulfilled LineFulfillmentStatus = "fulfilled"
	LineFulfillmentCancelled LineFulfillmentStatus = "cancelled"
)

var validLineFulfillmentStatuses = []LineFulfillmentStatus{
	LineFulfillmentPending,
	LineFulfillmentFulfilled,
	LineFulfillmentCancelled,
}

var lineFulfillmentTransitions = map[LineFulfillmentStatus][]LineFulfillmentStatus{
	LineFulfillmentPending: {LineFulfillmentFulfilled, LineFulfillmentCancelled},
}

// Override fulfillment may revive cancelled lines.
var lineFulfillmentForced = map[LineFulfillmentStatus][]LineFulfillmentStatus{
	LineFulfillmentCancelled: {LineFulfillmentFulfilled},
}

// String implements fmt.Stringer.
func (s LineFulfillmentStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known LineFulfillmentStatus.
func (s LineFulfillmentStatus) IsValid() bool {
	for _, candidate := range validLineFulfillmentStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the line already left pending.
func (s LineFulfillmentStatus) IsTerminal() bool {
	return s == LineFulfillmentFulfilled || s == LineFulfillmentCancelled
}

// CanTransitionTo reports whether the regular transition table allows s -> next.
func (s LineFulfillmentStatus) CanTransitionTo(next LineFulfillmentStatus) bool {
	return containsStatus(lineFulfillmentTransitions[s], next)
}

// CanForceTo reports whether a privileged override may move s -> next.
func (s LineFulfillmentStatus) CanForceTo(next LineFulfillmentStatus) bool {
	return s.CanTransitionTo(next) || containsStatus(lineFulfillmentForced[s], next)
}

// ParseLineFulfillmentStatus converts raw input into a LineFulfillmentStatus.
func ParseLineFulfillmentStatus(value string) (LineFulfillmentStatus, error) {
	for _, candidate := range validLineFulfillmentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid line fulfillment status %q", value)
}

func containsStatus[T comparable](values []T, target T) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
