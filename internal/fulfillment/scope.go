package fulfillment

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/packfinderz-fulfillment/pkg/db/models"
	"github.com/angelmondragon/packfinderz-fulfillment/pkg/enums"
	pkgerrors "github.com/angelmondragon/packfinderz-fulfillment/pkg/errors"
)

// Scope is the part of an order that one vendor is responsible for.
type Scope struct {
	Order      *models.Order
	Task       *models.Task
	BusinessID uuid.UUID
	// Lines holds the lines whose product belongs to BusinessID.
	Lines []LineRecord
	// All holds every line of the order across vendors.
	All []LineRecord
}

// ScopeLines keeps the lines whose product belongs to businessID, preserving order.
func ScopeLines(lines []LineRecord, businessID uuid.UUID) []LineRecord {
	scoped := make([]LineRecord, 0, len(lines))
	for _, line := range lines {
		if line.BusinessID == businessID {
			scoped = append(scoped, line)
		}
	}
	return scoped
}

func (s *service) employee(ctx context.Context, repo Repository, employeeID uuid.UUID) (*models.Employee, error) {
	key := employeeID.String()
	if cached, ok := s.employees.Get(key); ok {
		return &cached, nil
	}
	employee, err := repo.FindEmployee(ctx, employeeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "employee not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load employee")
	}
	s.employees.Set(key, *employee)
	return employee, nil
}

// resolveScope finds the employee's current task for the order and the lines
// of the employee's business. A reassigned latest record means the employee no
// longer holds the task.
func (s *service) resolveScope(ctx context.Context, repo Repository, order *models.Order, employeeID uuid.UUID) (*Scope, error) {
	employee, err := s.employee(ctx, repo, employeeID)
	if err != nil {
		return nil, err
	}

	task, err := repo.FindCurrentTask(ctx, order.ExternalID, employeeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "task not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load task")
	}
	if task.Status == enums.TaskStatusReassigned {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "task not found")
	}

	all, err := repo.FindLines(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order lines")
	}

	return &Scope{
		Order:      order,
		Task:       task,
		BusinessID: employee.BusinessID,
		Lines:      ScopeLines(all, employee.BusinessID),
		All:        all,
	}, nil
}

// refresh reloads the order's lines after a transition so aggregation reads
// the state written inside the transaction.
func (sc *Scope) refresh(ctx context.Context, repo Repository) error {
	all, err := repo.FindLines(ctx, sc.Order.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order lines")
	}
	sc.All = all
	sc.Lines = ScopeLines(all, sc.BusinessID)
	return nil
}
