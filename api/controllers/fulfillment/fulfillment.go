package fulfillment

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/packfinderz-fulfillment/api/middleware"
	"github.com/angelmondragon/packfinderz-fulfillment/api/responses"
	"github.com/angelmondragon/packfinderz-fulfillment/api/validators"
	internalfulfillment "github.com/angelmondragon/packfinderz-fulfillment/internal/fulfillment"
	pkgerrors "github.com/angelmondragon/packfinderz-fulfillment/pkg/errors"
	"github.com/angelmondragon/packfinderz-fulfillment/pkg/logger"
)

const maxReasonLength = 500

type fulfillByCodeRequest struct {
	Code string `json:"code" validate:"required,notblank,max=64"`
}

type overrideCancellationRequest struct {
	ProductID string `json:"productId" validate:"required,uuid"`
	Reason    string `json:"reason" validate:"required,notblank,max=500"`
}

// OrderFulfillmentStatus is the body returned by the order status lookup.
type OrderFulfillmentStatus struct {
	OrderID        uuid.UUID `json:"orderId"`
	FullyFulfilled bool      `json:"fullyFulfilled"`
}

// FulfillByCode confirms delivery of the caller's lines that carry the submitted code.
func FulfillByCode(svc internalfulfillment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "fulfillment service unavailable"))
			return
		}

		identity, err := middleware.IdentityFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId", "order id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload fulfillByCodeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.FulfillByCode(r.Context(), internalfulfillment.FulfillByCodeInput{
			OrderID:    orderID,
			Code:       payload.Code,
			EmployeeID: identity.UserID,
			Actor:      actorFrom(identity),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteResult(w, result.Success, result.Code, result)
	}
}

// FulfillmentStatus reports whether every line of the order is fulfilled.
func FulfillmentStatus(svc internalfulfillment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "fulfillment service unavailable"))
			return
		}

		orderID, err := validators.ParseUUIDParam(r, "orderId", "order id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		fully, err := svc.IsOrderFullyFulfilled(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, OrderFulfillmentStatus{OrderID: orderID, FullyFulfilled: fully})
	}
}

// FulfillSingleLine fulfils one line without a code.
func FulfillSingleLine(svc internalfulfillment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "fulfillment service unavailable"))
			return
		}

		identity, err := middleware.IdentityFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		lineID, err := validators.ParseUUIDParam(r, "lineId", "line id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.FulfillSingleLine(r.Context(), internalfulfillment.FulfillSingleLineInput{
			LineID: lineID,
			Actor:  actorFrom(identity),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteResult(w, result.Success, result.Code, result)
	}
}

// OverrideFulfillment force-fulfils every line of an order. Admin only.
func OverrideFulfillment(svc internalfulfillment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "fulfillment service unavailable"))
			return
		}

		identity, err := middleware.IdentityFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId", "order id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.OverrideFulfillment(r.Context(), internalfulfillment.OverrideFulfillmentInput{
			OrderID: orderID,
			Actor:   actorFrom(identity),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteResult(w, result.Success, result.Code, result)
	}
}

// OverrideCancellation cancels the pending lines of one product. Admin only.
func OverrideCancellation(svc internalfulfillment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "fulfillment service unavailable"))
			return
		}

		identity, err := middleware.IdentityFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId", "order id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload overrideCancellationRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := uuid.Parse(payload.ProductID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
			return
		}

		result, err := svc.OverrideCancellation(r.Context(), internalfulfillment.OverrideCancellationInput{
			OrderID:   orderID,
			ProductID: productID,
			Reason:    validators.SanitizeString(payload.Reason, maxReasonLength),
			Actor:     actorFrom(identity),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteResult(w, result.Success, result.Code, result)
	}
}

func actorFrom(identity middleware.Identity) internalfulfillment.Actor {
	return internalfulfillment.Actor{
		UserID:     identity.UserID,
		BusinessID: identity.BusinessID,
		Role:       identity.Role,
	}
}
