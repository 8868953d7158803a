package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/packfinderz-fulfillment/pkg/config"
	"github.com/angelmondragon/packfinderz-fulfillment/pkg/db"
	"github.com/angelmondragon/packfinderz-fulfillment/pkg/db/models"
	"github.com/angelmondragon/packfinderz-fulfillment/pkg/enums"
	pkgerrors "github.com/angelmondragon/packfinderz-fulfillment/pkg/errors"
	"github.com/angelmondragon/packfinderz-fulfillment/pkg/logger"
	"github.com/angelmondragon/packfinderz-fulfillment/pkg/metrics"
	"github.com/angelmondragon/packfinderz-fulfillment/pkg/outbox/payloads"
)

const (
	opFulfillByCode        = "fulfill_by_code"
	opOverrideFulfillment  = "override_fulfillment"
	opOverrideCancellation = "override_cancellation"
	opFulfillSingleLine    = "fulfill_single_line"
	opReconcileOrder       = "reconcile_order"
)

// Service exposes the fulfillment commands. Every command runs as one
// serializable transaction scoped to a single order.
type Service interface {
	FulfillByCode(ctx context.Context, input FulfillByCodeInput) (*FulfillByCodeResult, error)
	OverrideFulfillment(ctx context.Context, input OverrideFulfillmentInput) (*OverrideFulfillmentResult, error)
	OverrideCancellation(ctx context.Context, input OverrideCancellationInput) (*OverrideCancellationResult, error)
	FulfillSingleLine(ctx context.Context, input FulfillSingleLineInput) (*SingleLineResult, error)
	IsOrderFullyFulfilled(ctx context.Context, orderID uuid.UUID) (bool, error)
	ReconcileOrder(ctx context.Context, orderID uuid.UUID) (bool, error)
	StaleActiveOrders(ctx context.Context, updatedBefore time.Time, limit int) ([]uuid.UUID, error)
}

// ServiceParams wires the fulfillment service.
type ServiceParams struct {
	Repo      Repository
	Tx        txRunner
	Outbox    outboxPublisher
	Employees employeeCache
	Metrics   *metrics.FulfillmentMetrics
	Logger    *logger.Logger
	Config    config.FulfillmentConfig
}

type service struct {
	repo       Repository
	tx         txRunner
	outbox     outboxPublisher
	employees  employeeCache
	metrics    *metrics.FulfillmentMetrics
	logg       *logger.Logger
	maxRetries int
	backoff    time.Duration
	now        func() time.Time
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewService builds the fulfillment command processor.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("fulfillment repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Employees == nil {
		return nil, fmt.Errorf("employee cache required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	retries := params.Config.MaxConflictRetries
	if retries < 0 {
		retries = 0
	}
	return &service{
		repo:       params.Repo,
		tx:         params.Tx,
		outbox:     params.Outbox,
		employees:  params.Employees,
		metrics:    params.Metrics,
		logg:       params.Logger,
		maxRetries: retries,
		backoff:    params.Config.ConflictBackoff,
		now:        func() time.Time { return time.Now().UTC() },
		sleep:      sleepContext,
	}, nil
}

func (s *service) FulfillByCode(ctx context.Context, input FulfillByCodeInput) (*FulfillByCodeResult, error) {
	code := strings.TrimSpace(input.Code)
	switch {
	case input.OrderID == uuid.Nil:
		return &FulfillByCodeResult{Result: s.reject(ctx, opFulfillByCode, pkgerrors.New(pkgerrors.CodeValidation, "order id required"))}, nil
	case input.EmployeeID == uuid.Nil:
		return &FulfillByCodeResult{Result: s.reject(ctx, opFulfillByCode, pkgerrors.New(pkgerrors.CodeValidation, "employee id required"))}, nil
	case code == "":
		return &FulfillByCodeResult{Result: s.reject(ctx, opFulfillByCode, pkgerrors.New(pkgerrors.CodeValidation, "code required"))}, nil
	}

	ctx = s.logg.WithOrderID(ctx, input.OrderID.String())
	ctx = s.logg.WithEmployeeID(ctx, input.EmployeeID.String())

	var out FulfillByCodeResult
	err := s.run(ctx, opFulfillByCode, func(tx *gorm.DB) error {
		out = FulfillByCodeResult{}
		repo := s.repo.WithTx(tx)

		order, err := lockOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		scope, err := s.resolveScope(ctx, repo, order, input.EmployeeID)
		if err != nil {
			return err
		}

		changed, err := transitionByCode(ctx, repo, scope.Lines, code, s.now())
		if err != nil {
			return err
		}
		if err := scope.refresh(ctx, repo); err != nil {
			return err
		}

		taskCompleted, err := s.aggregateTask(ctx, tx, repo, scope.Task, scope.Lines, input.Actor)
		if err != nil {
			return err
		}
		if !taskCompleted {
			if err := s.touchTasks(ctx, repo, order.ExternalID, scope.BusinessID); err != nil {
				return err
			}
		}
		taskCompleted = taskCompleted && scope.Task.Status == enums.TaskStatusCompleted
		if _, err := s.aggregateOrder(ctx, tx, repo, order, scope.All, false, input.Actor); err != nil {
			return err
		}

		if err := s.emit(ctx, tx, enums.EventLinesFulfilled, enums.AggregateOrder, order.ID, input.Actor, payloads.LinesFulfilledEvent{
			OrderID:         order.ID,
			ExternalOrderID: order.ExternalID,
			BusinessID:      scope.BusinessID,
			EmployeeID:      input.EmployeeID,
			TaskID:          scope.Task.ID,
			LineIDs:         changed,
			TaskCompleted:   taskCompleted,
		}); err != nil {
			return err
		}

		out.LinesChanged = len(changed)
		out.TaskCompleted = taskCompleted
		out.Result = succeeded(fulfilledMessage(len(changed), taskCompleted, countLines(lineStatuses(scope.Lines)).pending))
		return nil
	})
	if res, ok := s.outcome(ctx, err); ok {
		return &FulfillByCodeResult{Result: res}, nil
	}
	if err != nil {
		return nil, err
	}
	s.metrics.AddLines(enums.LineFulfillmentFulfilled.String(), out.LinesChanged)
	return &out, nil
}

func (s *service) OverrideFulfillment(ctx context.Context, input OverrideFulfillmentInput) (*OverrideFulfillmentResult, error) {
	if input.OrderID == uuid.Nil {
		return &OverrideFulfillmentResult{Result: s.reject(ctx, opOverrideFulfillment, pkgerrors.New(pkgerrors.CodeValidation, "order id required"))}, nil
	}
	ctx = s.logg.WithOrderID(ctx, input.OrderID.String())
	ctx = s.withActor(ctx, input.Actor)

	var out OverrideFulfillmentResult
	err := s.run(ctx, opOverrideFulfillment, func(tx *gorm.DB) error {
		out = OverrideFulfillmentResult{}
		repo := s.repo.WithTx(tx)

		order, err := lockOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		lines, err := repo.FindLines(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order lines")
		}
		if len(lines) == 0 {
			return pkgerrors.New(pkgerrors.CodeNoMatchingLines, "order has no lines")
		}

		changed, revived, err := forceFulfill(ctx, repo, lines, s.now())
		if err != nil {
			return err
		}

		tasks, err := repo.FindOpenTasks(ctx, order.ExternalID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load tasks")
		}
		completed := 0
		for i := range tasks {
			moved, err := s.setTaskStatus(ctx, tx, repo, &tasks[i].Task, enums.TaskStatusCompleted, true, input.Actor)
			if err != nil {
				return err
			}
			if moved {
				completed++
				continue
			}
			if touchesScope(ScopeLines(lines, tasks[i].BusinessID), changed) {
				if err := s.touchTasks(ctx, repo, order.ExternalID, tasks[i].BusinessID); err != nil {
					return err
				}
			}
		}

		lines, err = repo.FindLines(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order lines")
		}
		if _, err := s.aggregateOrder(ctx, tx, repo, order, lines, true, input.Actor); err != nil {
			return err
		}

		if err := s.emit(ctx, tx, enums.EventOrderOverrideFulfilled, enums.AggregateOrder, order.ID, input.Actor, payloads.OrderOverrideFulfilledEvent{
			OrderID:         order.ID,
			ExternalOrderID: order.ExternalID,
			LinesChanged:    len(changed),
			RevivedLines:    revived,
			TasksCompleted:  completed,
		}); err != nil {
			return err
		}

		out.LinesChanged = len(changed)
		out.TasksCompleted = completed
		switch {
		case len(changed) == 0:
			out.Result = succeeded("order was already fulfilled")
		case len(tasks) == 0:
			out.Result = succeeded(fmt.Sprintf("%s force fulfilled; order has no tasks", plural(len(changed), "line")))
		default:
			out.Result = succeeded(fmt.Sprintf("%s force fulfilled; %s completed", plural(len(changed), "line"), plural(completed, "task")))
		}
		return nil
	})
	if res, ok := s.outcome(ctx, err); ok {
		return &OverrideFulfillmentResult{Result: res}, nil
	}
	if err != nil {
		return nil, err
	}
	s.metrics.AddLines(enums.LineFulfillmentFulfilled.String(), out.LinesChanged)
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"lines_changed":   out.LinesChanged,
		"tasks_completed": out.TasksCompleted,
	}), "order fulfillment overridden")
	return &out, nil
}

func (s *service) OverrideCancellation(ctx context.Context, input OverrideCancellationInput) (*OverrideCancellationResult, error) {
	reason := strings.TrimSpace(input.Reason)
	switch {
	case input.OrderID == uuid.Nil:
		return &OverrideCancellationResult{Result: s.reject(ctx, opOverrideCancellation, pkgerrors.New(pkgerrors.CodeValidation, "order id required"))}, nil
	case input.ProductID == uuid.Nil:
		return &OverrideCancellationResult{Result: s.reject(ctx, opOverrideCancellation, pkgerrors.New(pkgerrors.CodeValidation, "product id required"))}, nil
	case reason == "":
		return &OverrideCancellationResult{Result: s.reject(ctx, opOverrideCancellation, pkgerrors.New(pkgerrors.CodeValidation, "cancellation reason required"))}, nil
	}
	ctx = s.logg.WithOrderID(ctx, input.OrderID.String())
	ctx = s.withActor(ctx, input.Actor)

	var out OverrideCancellationResult
	err := s.run(ctx, opOverrideCancellation, func(tx *gorm.DB) error {
		out = OverrideCancellationResult{}
		repo := s.repo.WithTx(tx)

		order, err := lockOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		lines, err := repo.FindLines(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order lines")
		}

		changed, err := transitionCancelProduct(ctx, repo, lines, input.ProductID, reason, s.now())
		if err != nil {
			return err
		}
		lines, err = repo.FindLines(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order lines")
		}

		tasks, err := repo.FindOpenTasks(ctx, order.ExternalID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load tasks")
		}
		cancelled := 0
		for i := range tasks {
			task := &tasks[i]
			scoped := ScopeLines(lines, task.BusinessID)
			moved, err := s.aggregateTask(ctx, tx, repo, &task.Task, scoped, input.Actor)
			if err != nil {
				return err
			}
			if moved && task.Status == enums.TaskStatusCancelled {
				cancelled++
			}
			if !moved && touchesScope(scoped, changed) {
				if err := s.touchTasks(ctx, repo, order.ExternalID, task.BusinessID); err != nil {
					return err
				}
			}
		}

		if _, err := s.aggregateOrder(ctx, tx, repo, order, lines, false, input.Actor); err != nil {
			return err
		}
		orderCancelled := order.Status == enums.OrderStatusCancelled

		if err := s.emit(ctx, tx, enums.EventLinesCancelled, enums.AggregateOrder, order.ID, input.Actor, payloads.LinesCancelledEvent{
			OrderID:         order.ID,
			ExternalOrderID: order.ExternalID,
			ProductID:       input.ProductID,
			LineIDs:         changed,
			Reason:          reason,
			OrderCancelled:  orderCancelled,
		}); err != nil {
			return err
		}

		out.LinesChanged = len(changed)
		out.TasksCancelled = cancelled
		out.OrderCancelled = orderCancelled
		msg := fmt.Sprintf("%s cancelled", plural(len(changed), "line"))
		if cancelled > 0 {
			msg += fmt.Sprintf("; %s cancelled", plural(cancelled, "task"))
		}
		if orderCancelled {
			msg += "; order cancelled"
		}
		out.Result = succeeded(msg)
		return nil
	})
	if res, ok := s.outcome(ctx, err); ok {
		return &OverrideCancellationResult{Result: res}, nil
	}
	if err != nil {
		return nil, err
	}
	s.metrics.AddLines(enums.LineFulfillmentCancelled.String(), out.LinesChanged)
	return &out, nil
}

// FulfillSingleLine fulfils one pending line without re-running aggregation.
// Fulfilled lines are a no-op success. Cancelled lines are rejected with
// STATE_CONFLICT; only OverrideFulfillment revives them.
func (s *service) FulfillSingleLine(ctx context.Context, input FulfillSingleLineInput) (*SingleLineResult, error) {
	if input.LineID == uuid.Nil {
		return &SingleLineResult{Result: s.reject(ctx, opFulfillSingleLine, pkgerrors.New(pkgerrors.CodeValidation, "line id required"))}, nil
	}
	ctx = s.logg.WithField(ctx, "line_id", input.LineID.String())

	var out SingleLineResult
	fulfilled := 0
	err := s.run(ctx, opFulfillSingleLine, func(tx *gorm.DB) error {
		out = SingleLineResult{}
		fulfilled = 0
		repo := s.repo.WithTx(tx)

		line, err := findLine(ctx, repo, input.LineID)
		if err != nil {
			return err
		}
		order, err := lockOrder(ctx, repo, line.OrderID)
		if err != nil {
			return err
		}
		// Re-read under the order lock.
		line, err = findLine(ctx, repo, input.LineID)
		if err != nil {
			return err
		}

		switch line.FulfillmentStatus {
		case enums.LineFulfillmentFulfilled:
			out.Result = succeeded("line already fulfilled")
			return nil
		case enums.LineFulfillmentCancelled:
			return pkgerrors.New(pkgerrors.CodeStateConflict, "cancelled lines can only be fulfilled by an override")
		}

		changed, err := repo.FulfillPendingLines(ctx, []uuid.UUID{line.ID}, s.now())
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fulfill line")
		}
		if changed == 0 {
			return pkgerrors.New(pkgerrors.CodeNoMatchingLines, "line is no longer pending")
		}
		owner, err := repo.FindLineBusiness(ctx, line.ProductID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load line business")
		}
		if err := s.touchTasks(ctx, repo, order.ExternalID, owner); err != nil {
			return err
		}

		if err := s.emit(ctx, tx, enums.EventLineFulfilled, enums.AggregateOrderLine, line.ID, input.Actor, payloads.LineFulfilledEvent{
			LineID:    line.ID,
			OrderID:   line.OrderID,
			ProductID: line.ProductID,
		}); err != nil {
			return err
		}
		fulfilled = 1
		out.Result = succeeded("line fulfilled")
		return nil
	})
	if res, ok := s.outcome(ctx, err); ok {
		return &SingleLineResult{Result: res}, nil
	}
	if err != nil {
		return nil, err
	}
	s.metrics.AddLines(enums.LineFulfillmentFulfilled.String(), fulfilled)
	return &out, nil
}

// IsOrderFullyFulfilled reports whether the order has lines and all of them
// are fulfilled.
func (s *service) IsOrderFullyFulfilled(ctx context.Context, orderID uuid.UUID) (bool, error) {
	if orderID == uuid.Nil {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if _, err := s.repo.FindOrder(ctx, orderID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	total, fulfilled, err := s.repo.CountLines(ctx, orderID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count order lines")
	}
	return total > 0 && total == fulfilled, nil
}

// ReconcileOrder re-runs both aggregations for an order without transitioning
// any line. It heals orders whose derived status was never written.
func (s *service) ReconcileOrder(ctx context.Context, orderID uuid.UUID) (bool, error) {
	if orderID == uuid.Nil {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	ctx = s.logg.WithOrderID(ctx, orderID.String())

	var changed bool
	err := s.run(ctx, opReconcileOrder, func(tx *gorm.DB) error {
		changed = false
		repo := s.repo.WithTx(tx)

		order, err := lockOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}
		lines, err := repo.FindLines(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order lines")
		}
		tasks, err := repo.FindOpenTasks(ctx, order.ExternalID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load tasks")
		}
		for i := range tasks {
			moved, err := s.aggregateTask(ctx, tx, repo, &tasks[i].Task, ScopeLines(lines, tasks[i].BusinessID), Actor{})
			if err != nil {
				return err
			}
			changed = changed || moved
		}
		moved, err := s.aggregateOrder(ctx, tx, repo, order, lines, false, Actor{})
		if err != nil {
			return err
		}
		changed = changed || moved
		if err := repo.MarkReconciled(ctx, order.ID, s.now()); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order reconciled")
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return changed, nil
}

func (s *service) StaleActiveOrders(ctx context.Context, updatedBefore time.Time, limit int) ([]uuid.UUID, error) {
	ids, err := s.repo.ListStaleActiveOrders(ctx, updatedBefore, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list stale orders")
	}
	return ids, nil
}

func (s *service) withActor(ctx context.Context, actor Actor) context.Context {
	if actor.UserID != uuid.Nil {
		ctx = s.logg.WithUserID(ctx, actor.UserID.String())
	}
	return s.logg.WithActorRole(ctx, actor.Role.String())
}

// run executes fn in a serializable transaction, retrying serialization
// failures with linear backoff. After the last retry the failure surfaces as
// CONCURRENCY_CONFLICT.
func (s *service) run(ctx context.Context, op string, fn func(tx *gorm.DB) error) error {
	start := time.Now()
	var err error
	for attempt := 0; ; attempt++ {
		err = s.tx.WithSerializableTx(ctx, fn)
		if err == nil || !db.IsSerializationFailure(err) {
			break
		}
		if attempt >= s.maxRetries {
			s.logg.Error(s.logg.WithField(ctx, "attempts", attempt+1), "fulfillment command gave up after serialization conflicts", err)
			err = pkgerrors.Wrap(pkgerrors.CodeConcurrencyConflict, err, "order was modified concurrently")
			break
		}
		s.metrics.IncConflictRetry(op)
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"operation": op,
			"attempt":   attempt + 1,
		}), "serialization conflict, retrying")
		if sleepErr := s.sleep(ctx, s.backoff*time.Duration(attempt+1)); sleepErr != nil {
			err = pkgerrors.Wrap(pkgerrors.CodeConcurrencyConflict, sleepErr, "retry abandoned")
			break
		}
	}
	s.metrics.ObserveCommand(op, classify(err), time.Since(start))
	return err
}

// outcome converts an expected business failure into a Result.
func (s *service) outcome(ctx context.Context, err error) (Result, bool) {
	pe := pkgerrors.As(err)
	if pe == nil || !pkgerrors.IsBusinessOutcome(pe.Code()) {
		return Result{}, false
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"code":   string(pe.Code()),
		"reason": pe.Message(),
	}), "fulfillment command rejected")
	return failed(pe), true
}

func (s *service) reject(ctx context.Context, op string, err *pkgerrors.Error) Result {
	s.metrics.ObserveCommand(op, metrics.OutcomeRejected, 0)
	res, _ := s.outcome(ctx, err)
	return res
}

func classify(err error) string {
	if err == nil {
		return metrics.OutcomeSuccess
	}
	pe := pkgerrors.As(err)
	switch {
	case pe == nil:
		return metrics.OutcomeError
	case pe.Code() == pkgerrors.CodeConcurrencyConflict:
		return metrics.OutcomeConflict
	case pkgerrors.IsBusinessOutcome(pe.Code()):
		return metrics.OutcomeRejected
	}
	return metrics.OutcomeError
}

func lockOrder(ctx context.Context, repo Repository, orderID uuid.UUID) (*models.Order, error) {
	order, err := repo.FindOrderForUpdate(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func findLine(ctx context.Context, repo Repository, lineID uuid.UUID) (*models.OrderLine, error) {
	line, err := repo.FindLine(ctx, lineID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order line not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order line")
	}
	return line, nil
}

func fulfilledMessage(changed int, taskCompleted bool, pending int) string {
	msg := fmt.Sprintf("%s fulfilled", plural(changed, "line"))
	switch {
	case taskCompleted:
		return msg + "; delivery task completed"
	case pending > 0:
		return msg + fmt.Sprintf("; %s still pending for this vendor", plural(pending, "line"))
	}
	return msg + "; no pending lines remain for this vendor"
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
