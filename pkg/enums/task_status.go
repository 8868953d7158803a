package enums

import "fmt"

// TaskStatus is the lifecycle of a delivery assignment record.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusCancelled  TaskStatus = "cancelled"
	TaskStatusReassigned TaskStatus = "reassigned"
)

var validTaskStatuses = []TaskStatus{
	TaskStatusPending,
	TaskStatusCompleted,
	TaskStatusCancelled,
	TaskStatusReassigned,
}

var taskTransitions = map[TaskStatus][]TaskStatus{
	TaskStatusPending: {TaskStatusCompleted, TaskStatusCancelled, TaskStatusReassigned},
}

var taskForced = map[TaskStatus][]TaskStatus{
	TaskStatusCancelled: {TaskStatusCompleted},
}

// String implements fmt.Stringer.
func (s TaskStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known TaskStatus.
func (s TaskStatus) IsValid() bool {
	for _, candidate := range validTaskStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsCurrent reports whether the record is still the live projection of its task.
func (s TaskStatus) IsCurrent() bool {
	return s.IsValid() && s != TaskStatusReassigned
}

// CanTransitionTo reports whether the regular transition table allows s -> next.
func (s TaskStatus) CanTransitionTo(next TaskStatus) bool {
	return containsStatus(taskTransitions[s], next)
}

// CanForceTo reports whether a privileged override may move s -> next.
func (s TaskStatus) CanForceTo(next TaskStatus) bool {
	return s.CanTransitionTo(next) || containsStatus(taskForced[s], next)
}

// ParseTaskStatus converts raw input into a TaskStatus.
func ParseTaskStatus(value string) (TaskStatus, error) {
	for _, candidate := range validTaskStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid task status %q", value)
}
