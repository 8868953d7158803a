package fulfillment

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/packfinderz-fulfillment/pkg/db/models"
	"github.com/angelmondragon/packfinderz-fulfillment/pkg/enums"
	pkgerrors "github.com/angelmondragon/packfinderz-fulfillment/pkg/errors"
)

// Actor identifies the authenticated caller of a command.
type Actor struct {
	UserID     uuid.UUID
	BusinessID uuid.UUID
	Role       enums.MemberRole
}

// FulfillByCodeInput confirms delivery of the caller's lines carrying Code.
type FulfillByCodeInput struct {
	OrderID    uuid.UUID
	Code       string
	EmployeeID uuid.UUID
	Actor      Actor
}

// OverrideFulfillmentInput force-fulfils every line of an order.
type OverrideFulfillmentInput struct {
	OrderID uuid.UUID
	Actor   Actor
}

// OverrideCancellationInput cancels the pending lines of one product.
type OverrideCancellationInput struct {
	OrderID   uuid.UUID
	ProductID uuid.UUID
	Reason    string
	Actor     Actor
}

// FulfillSingleLineInput fulfils one line through a non-delivery channel.
type FulfillSingleLineInput struct {
	LineID uuid.UUID
	Actor  Actor
}

// Result is the common part of every command outcome. Expected business
// failures come back with Success=false and a Code instead of an error.
type Result struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Code    pkgerrors.Code `json:"code,omitempty"`
}

type FulfillByCodeResult struct {
	Result
	LinesChanged  int  `json:"linesChanged"`
	TaskCompleted bool `json:"taskCompleted"`
}

type OverrideFulfillmentResult struct {
	Result
	LinesChanged   int `json:"linesChanged"`
	TasksCompleted int `json:"tasksCompleted"`
}

type OverrideCancellationResult struct {
	Result
	LinesChanged   int  `json:"linesChanged"`
	TasksCancelled int  `json:"tasksCancelled"`
	OrderCancelled bool `json:"orderCancelled"`
}

type SingleLineResult struct {
	Result
}

// LineRecord is an order line joined with the business owning its product.
type LineRecord struct {
	models.OrderLine
	BusinessID uuid.UUID
}

// TaskRecord is a task joined with the business of its assigned employee.
type TaskRecord struct {
	models.Task
	BusinessID uuid.UUID
}

func failed(err *pkgerrors.Error) Result {
	return Result{Success: false, Message: err.Message(), Code: err.Code()}
}

func succeeded(message string) Result {
	return Result{Success: true, Message: message}
}

func lineStatuses(lines []LineRecord) []enums.LineFulfillmentStatus {
	out := make([]enums.LineFulfillmentStatus, len(lines))
	for i, line := range lines {
		out[i] = line.FulfillmentStatus
	}
	return out
}

func lineIDs(lines []LineRecord) []uuid.UUID {
	out := make([]uuid.UUID, len(lines))
	for i, line := range lines {
		out[i] = line.ID
	}
	return out
}

// touchesScope reports whether any of ids belongs to the scoped lines.
func touchesScope(scoped []LineRecord, ids []uuid.UUID) bool {
	if len(ids) == 0 {
		return false
	}
	changed := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		changed[id] = struct{}{}
	}
	for _, line := range scoped {
		if _, ok := changed[line.ID]; ok {
			return true
		}
	}
	return false
}
