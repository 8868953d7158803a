package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/packfinderz-fulfillment/pkg/db"
	"github.com/angelmondragon/packfinderz-fulfillment/pkg/db/models"
	"github.com/angelmondragon/packfinderz-fulfillment/pkg/enums"
	pkgerrors "github.com/angelmondragon/packfinderz-fulfillment/pkg/errors"
	"github.com/angelmondragon/packfinderz-fulfillment/pkg/logger"
	"github.com/angelmondragon/packfinderz-fulfillment/pkg/outbox"
	"github.com/angelmondragon/packfinderz-fulfillment/pkg/outbox/payloads"
	"github.com/angelmondragon/packfinderz-fulfillment/pkg/pagination"
)

type txRunner interface {
	WithSerializableTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service manages the append-only task history and its reconciled views.
type Service interface {
	Assign(ctx context.Context, input AssignInput) (*models.Task, error)
	Reassign(ctx context.Context, input ReassignInput) (*ReassignResult, error)
	ListForEmployee(ctx context.Context, employeeID uuid.UUID, params pagination.Params) (*ListResult, error)
	ListForBusiness(ctx context.Context, businessID uuid.UUID, params pagination.Params) (*ListResult, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
	logg   *logger.Logger
	now    func() time.Time
}

// NewService builds the task service.
func NewService(repo Repository, tx txRunner, outbox outboxPublisher, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("tasks repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:   repo,
		tx:     tx,
		outbox: outbox,
		logg:   logg,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Assign(ctx context.Context, input AssignInput) (*models.Task, error) {
	if input.EmployeeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "employee id required")
	}
	var externalID *string
	if input.ExternalOrderID != nil && strings.TrimSpace(*input.ExternalOrderID) != "" {
		trimmed := strings.TrimSpace(*input.ExternalOrderID)
		externalID = &trimmed
	}
	name := strings.TrimSpace(input.Name)
	if name == "" && externalID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name or external order id required")
	}
	if name == "" {
		name = *externalID
	}

	var created models.Task
	err := s.tx.WithSerializableTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		employee, err := findEmployee(ctx, repo, input.EmployeeID)
		if err != nil {
			return err
		}
		if externalID != nil {
			if _, err := repo.FindOrderByExternalID(ctx, *externalID); err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
			}
			existing, err := repo.FindOpenTaskForBusiness(ctx, *externalID, employee.BusinessID)
			switch {
			case err == nil:
				return pkgerrors.New(pkgerrors.CodeConflict, "order already has a task for this business").
					WithDetails(map[string]any{"taskId": existing.ID})
			case !errors.Is(err, gorm.ErrRecordNotFound):
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load existing task")
			}
		}

		now := s.now()
		created = models.Task{
			ID:              uuid.New(),
			ExternalOrderID: externalID,
			Name:            name,
			EmployeeID:      employee.ID,
			Status:          enums.TaskStatusPending,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := repo.CreateTask(ctx, &created); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create task")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventTaskAssigned,
			AggregateType: enums.AggregateTask,
			AggregateID:   created.ID,
			Version:       1,
			Actor:         buildActor(input.Actor),
			Data: payloads.TaskAssignedEvent{
				TaskID:          created.ID,
				ExternalOrderID: created.ExternalOrderID,
				Name:            created.Name,
				EmployeeID:      created.EmployeeID,
				BusinessID:      employee.BusinessID,
			},
		})
	})
	if err != nil {
		return nil, conflictAware(err)
	}

	s.logg.Info(s.logg.WithFields(s.logg.WithActorRole(ctx, input.Actor.Role.String()), map[string]any{
		"task_id":     created.ID.String(),
		"employee_id": created.EmployeeID.String(),
	}), "task assigned")
	return &created, nil
}

// Reassign supersedes a pending record: it is marked reassigned and a new
// pending record for the target employee is appended in the same transaction.
func (s *service) Reassign(ctx context.Context, input ReassignInput) (*ReassignResult, error) {
	if input.TaskID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "task id required")
	}
	if input.EmployeeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "employee id required")
	}

	var result ReassignResult
	err := s.tx.WithSerializableTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		task, err := repo.FindTaskForUpdate(ctx, input.TaskID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "task not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load task")
		}
		if task.Status != enums.TaskStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only pending tasks can be reassigned")
		}
		if task.EmployeeID == input.EmployeeID {
			return pkgerrors.New(pkgerrors.CodeValidation, "task is already assigned to this employee")
		}

		from, err := findEmployee(ctx, repo, task.EmployeeID)
		if err != nil {
			return err
		}
		to, err := findEmployee(ctx, repo, input.EmployeeID)
		if err != nil {
			return err
		}
		if from.BusinessID != to.BusinessID {
			return pkgerrors.New(pkgerrors.CodeValidation, "employee belongs to a different business")
		}

		now := s.now()
		changed, err := repo.MarkReassigned(ctx, task.ID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark task reassigned")
		}
		if changed == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only pending tasks can be reassigned")
		}
		previous := *task
		previous.Status = enums.TaskStatusReassigned
		previous.UpdatedAt = now

		next := models.Task{
			ID:              uuid.New(),
			ExternalOrderID: task.ExternalOrderID,
			Name:            task.Name,
			EmployeeID:      to.ID,
			Status:          enums.TaskStatusPending,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := repo.CreateTask(ctx, &next); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create task")
		}

		result = ReassignResult{Previous: previous, Current: next}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventTaskReassigned,
			AggregateType: enums.AggregateTask,
			AggregateID:   next.ID,
			Version:       1,
			Actor:         buildActor(input.Actor),
			Data: payloads.TaskReassignedEvent{
				PreviousTaskID:  previous.ID,
				TaskID:          next.ID,
				ExternalOrderID: next.ExternalOrderID,
				FromEmployeeID:  from.ID,
				ToEmployeeID:    to.ID,
				BusinessID:      to.BusinessID,
			},
		})
	})
	if err != nil {
		return nil, conflictAware(err)
	}

	s.logg.Info(s.logg.WithFields(s.logg.WithActorRole(ctx, input.Actor.Role.String()), map[string]any{
		"previous_task_id": result.Previous.ID.String(),
		"task_id":          result.Current.ID.String(),
	}), "task reassigned")
	return &result, nil
}

func (s *service) ListForEmployee(ctx context.Context, employeeID uuid.UUID, params pagination.Params) (*ListResult, error) {
	if employeeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "employee id required")
	}
	return s.listChanged(ctx, changedFilter{EmployeeID: &employeeID}, params)
}

func (s *service) ListForBusiness(ctx context.Context, businessID uuid.UUID, params pagination.Params) (*ListResult, error) {
	if businessID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "business id required")
	}
	return s.listChanged(ctx, changedFilter{BusinessID: &businessID}, params)
}

// listChanged returns the task rows changed after the cursor, reconciled into
// views. The next token points at the last raw row of the page so a poller
// never skips a change.
func (s *service) listChanged(ctx context.Context, filter changedFilter, params pagination.Params) (*ListResult, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid since token")
	}
	filter.Cursor = cursor
	limit := pagination.NormalizeLimit(params.Limit)
	filter.Limit = limit

	rows, err := s.repo.ListChanged(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list tasks")
	}

	result := &ListResult{Tasks: []View{}}
	if len(rows) == 0 {
		result.NextToken = params.Cursor
		return result, nil
	}

	externalIDs := make([]string, 0, len(rows))
	seen := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		if row.ExternalOrderID == nil {
			continue
		}
		if _, ok := seen[*row.ExternalOrderID]; ok {
			continue
		}
		seen[*row.ExternalOrderID] = struct{}{}
		externalIDs = append(externalIDs, *row.ExternalOrderID)
	}
	lineRows, err := s.repo.FindScopedLines(ctx, externalIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load task lines")
	}

	type scopeKey struct {
		externalID string
		businessID uuid.UUID
	}
	scoped := make(map[scopeKey][]Line)
	for _, row := range lineRows {
		key := scopeKey{externalID: row.ExternalOrderID, businessID: row.BusinessID}
		scoped[key] = append(scoped[key], toLine(row))
	}

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		var lines []Line
		if row.ExternalOrderID != nil {
			lines = scoped[scopeKey{externalID: *row.ExternalOrderID, businessID: row.BusinessID}]
		}
		records = append(records, toRecord(row, lines))
	}
	result.Tasks = Reconcile(records)

	last := rows[len(rows)-1]
	result.NextToken = pagination.EncodeCursor(pagination.Cursor{At: last.UpdatedAt, ID: last.ID})
	return result, nil
}

func findEmployee(ctx context.Context, repo Repository, employeeID uuid.UUID) (*models.Employee, error) {
	employee, err := repo.FindEmployee(ctx, employeeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "employee not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load employee")
	}
	return employee, nil
}

func conflictAware(err error) error {
	if db.IsSerializationFailure(err) {
		return pkgerrors.Wrap(pkgerrors.CodeConcurrencyConflict, err, "task was modified concurrently")
	}
	return err
}

func buildActor(actor Actor) *outbox.ActorRef {
	if actor.UserID == uuid.Nil {
		return nil
	}
	ref := &outbox.ActorRef{UserID: actor.UserID, Role: actor.Role.String()}
	if actor.BusinessID != uuid.Nil {
		business := actor.BusinessID
		ref.BusinessID = &business
	}
	return ref
}
