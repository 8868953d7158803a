package tasks

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/packfinderz-fulfillment/pkg/db/models"
	"github.com/angelmondragon/packfinderz-fulfillment/pkg/enums"
)

// Actor identifies the authenticated caller.
type Actor struct {
	UserID     uuid.UUID
	BusinessID uuid.UUID
	Role       enums.MemberRole
}

// AssignInput creates a pending task for an employee.
type AssignInput struct {
	ExternalOrderID *string
	Name            string
	EmployeeID      uuid.UUID
	Actor           Actor
}

// ReassignInput moves a pending task to another employee of the same business.
type ReassignInput struct {
	TaskID     uuid.UUID
	EmployeeID uuid.UUID
	Actor      Actor
}

// ReassignResult holds the superseded record and its replacement.
type ReassignResult struct {
	Previous models.Task `json:"previous"`
	Current  models.Task `json:"current"`
}

// ListResult is one changed-since page of reconciled tasks.
type ListResult struct {
	Tasks     []View `json:"tasks"`
	NextToken string `json:"nextToken,omitempty"`
}

// taskRow is a task joined with the business of its employee.
type taskRow struct {
	models.Task
	BusinessID uuid.UUID
}

// lineRow is an order line joined with its order's external id and the
// business owning the product.
type lineRow struct {
	models.OrderLine
	ExternalOrderID string
	BusinessID      uuid.UUID
}

func toLine(row lineRow) Line {
	return Line{
		LineID:            row.ID,
		ProductID:         row.ProductID,
		VendorID:          row.BusinessID,
		Quantity:          row.Quantity,
		UnitPrice:         row.UnitPrice,
		DetailSnapshot:    row.DetailSnapshot,
		Customization:     row.Customization,
		OutForDelivery:    row.OutForDelivery,
		FulfillmentStatus: row.FulfillmentStatus,
	}
}

func toRecord(row taskRow, lines []Line) Record {
	return Record{
		ID:              row.ID,
		ExternalOrderID: row.ExternalOrderID,
		Name:            row.Name,
		EmployeeID:      row.EmployeeID,
		BusinessID:      row.BusinessID,
		Status:          row.Status,
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
		Lines:           lines,
	}
}
