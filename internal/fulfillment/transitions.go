package fulfillment

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/packfinderz-fulfillment/pkg/enums"
	pkgerrors "github.com/angelmondragon/packfinderz-fulfillment/pkg/errors"
)

// transitionByCode fulfils every pending scoped line carrying code. Lines of
// other vendors are never considered, even when they share the code.
func transitionByCode(ctx context.Context, repo Repository, scoped []LineRecord, code string, at time.Time) ([]uuid.UUID, error) {
	var matched, pending []LineRecord
	for _, line := range scoped {
		if line.OTP == nil || *line.OTP != code {
			continue
		}
		matched = append(matched, line)
		if line.FulfillmentStatus == enums.LineFulfillmentPending {
			pending = append(pending, line)
		}
	}
	if len(matched) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidCode, "code does not match any line of this delivery")
	}
	if len(pending) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNoMatchingLines, "no pending lines match this code")
	}

	ids := lineIDs(pending)
	changed, err := repo.FulfillPendingLines(ctx, ids, at)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fulfill lines")
	}
	if changed == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNoMatchingLines, "no pending lines match this code")
	}
	return ids, nil
}

// transitionCancelProduct cancels the pending lines of productID with reason.
func transitionCancelProduct(ctx context.Context, repo Repository, lines []LineRecord, productID uuid.UUID, reason string, at time.Time) ([]uuid.UUID, error) {
	var pending []LineRecord
	for _, line := range lines {
		if line.ProductID == productID && line.FulfillmentStatus == enums.LineFulfillmentPending {
			pending = append(pending, line)
		}
	}
	if len(pending) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNoMatchingLines, "no pending lines for product")
	}

	ids := lineIDs(pending)
	changed, err := repo.CancelPendingLines(ctx, ids, reason, at)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel lines")
	}
	if changed == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNoMatchingLines, "no pending lines for product")
	}
	return ids, nil
}

// forceFulfill is the privileged whole-order transition. It returns the lines
// it moved and how many of them were revived from cancelled.
func forceFulfill(ctx context.Context, repo Repository, lines []LineRecord, at time.Time) ([]uuid.UUID, int, error) {
	var targets []LineRecord
	revived := 0
	for _, line := range lines {
		if !line.FulfillmentStatus.CanForceTo(enums.LineFulfillmentFulfilled) {
			continue
		}
		if line.FulfillmentStatus == enums.LineFulfillmentCancelled {
			revived++
		}
		targets = append(targets, line)
	}
	if len(targets) == 0 {
		return nil, 0, nil
	}

	ids := lineIDs(targets)
	if _, err := repo.ForceFulfillLines(ctx, ids, at); err != nil {
		return nil, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "force fulfill lines")
	}
	return ids, revived, nil
}
