package orderreview

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/shoplane/shoplane-backend/api/middleware"
	"github.com/shoplane/shoplane-backend/api/responses"
	"github.com/shoplane/shoplane-backend/api/validators"
	internalreview "github.com/shoplane/shoplane-backend/internal/orderreview"
	"github.com/shoplane/shoplane-backend/pkg/enums"
	pkgerrors "github.com/shoplane/shoplane-backend/pkg/errors"
	"github.com/shoplane/shoplane-backend/pkg/logger"
	"github.com/shoplane/shoplane-backend/pkg/pagination"
)

// Submit opens an order for review. Works for guests and, when the request
// carries a valid bearer token, for registered customers.
func Submit(svc internalreview.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order review service unavailable"))
			return
		}

		var req submitOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var customerID *uuid.UUID
		if raw := middleware.UserIDFromContext(r.Context()); raw != "" {
			parsed, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user context"))
				return
			}
			customerID = &parsed
		}

		input, err := req.toInput(customerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.SubmitForReview(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// SetShipping records the admin's shipping cost and final price, minting the
// confirmation token and moving the order to awaiting_confirmation.
func SetShipping(svc internalreview.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order review service unavailable"))
			return
		}

		orderID, err := parsePathOrderID(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actorID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req setShippingRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.SetShippingAndFinalPrice(r.Context(), internalreview.PricingInput{
			OrderID:         orderID,
			ShippingCents:   *req.ShippingCents,
			FinalPriceCents: *req.FinalPriceCents,
			AdminNotes:      req.AdminNotes,
			ActorUserID:     actorID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

// CustomerConfirm consumes the emailed token and finalizes the order.
func CustomerConfirm(svc internalreview.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order review service unavailable"))
			return
		}

		orderID, token, err := parseTokenLink(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.ConfirmByCustomer(r.Context(), orderID, token)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newTransitionResponse(order))
	}
}

// CustomerCancel consumes the emailed token and cancels the order. The body
// is optional and may carry a cancel reason.
func CustomerCancel(svc internalreview.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order review service unavailable"))
			return
		}

		orderID, token, err := parseTokenLink(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		reason, err := optionalCancelReason(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.CancelByCustomer(r.Context(), orderID, token, reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newTransitionResponse(order))
	}
}

// CancelRequest lets an authenticated customer withdraw an order that is
// still pending review.
func CancelRequest(svc internalreview.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order review service unavailable"))
			return
		}

		orderID, err := parsePathOrderID(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		customerID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		reason, err := optionalCancelReason(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.RequestCancel(r.Context(), orderID, customerID, reason); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"order_id":     orderID,
			"order_status": enums.OrderStatusCancelled,
		})
	}
}

// AccountConfirm finalizes an awaiting order for its signed-in owner without
// requiring the emailed token.
func AccountConfirm(svc internalreview.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order review service unavailable"))
			return
		}

		orderID, err := parsePathOrderID(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		customerID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.ConfirmByAccount(r.Context(), orderID, customerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newTransitionResponse(order))
	}
}

// AccountCancel cancels an awaiting order for its signed-in owner.
func AccountCancel(svc internalreview.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order review service unavailable"))
			return
		}

		orderID, err := parsePathOrderID(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		customerID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		reason, err := optionalCancelReason(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.CancelByAccount(r.Context(), orderID, customerID, reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newTransitionResponse(order))
	}
}

// Detail returns the full order for admins or the order's owner.
func Detail(svc internalreview.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order review service unavailable"))
			return
		}

		orderID, err := parsePathOrderID(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.GetOrder(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if middleware.RoleFromContext(r.Context()) != string(enums.MemberRoleAdmin) {
			userID := middleware.UserIDFromContext(r.Context())
			if order.CustomerID == nil || order.CustomerID.String() != userID {
				// Indistinguishable from a missing order on purpose.
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "order not found"))
				return
			}
		}
		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

// AdminList returns the paginated review queue with optional status and
// customer filters.
func AdminList(svc internalreview.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order review service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		customerID, err := validators.ParseQueryUUID(r, "customer_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListOrders(r.Context(), internalreview.ListParams{
			Status:     strings.TrimSpace(r.URL.Query().Get("status")),
			CustomerID: customerID,
			Limit:      limit,
			Cursor:     strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := orderListResponse{
			Items:  make([]orderResponse, 0, len(list.Items)),
			Cursor: list.Cursor,
		}
		for i := range list.Items {
			resp.Items = append(resp.Items, newOrderResponse(&list.Items[i]))
		}
		responses.WriteSuccess(w, resp)
	}
}

func parsePathOrderID(r *http.Request, param string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, param))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	orderID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id")
	}
	return orderID, nil
}

// parseTokenLink reads the {orderID}/{token} pair from an emailed link. A
// malformed order id reads as not-found so probes learn nothing about which
// part of the pairing was wrong.
func parseTokenLink(r *http.Request) (uuid.UUID, string, error) {
	rawID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	token := strings.TrimSpace(chi.URLParam(r, "token"))
	orderID, err := uuid.Parse(rawID)
	if err != nil {
		return uuid.Nil, "", pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return orderID, token, nil
}

func requireUserID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user context")
	}
	return userID, nil
}

func optionalCancelReason(r *http.Request) (*string, error) {
	if r.Body == nil || r.ContentLength == 0 {
		return nil, nil
	}
	var req cancelReasonRequest
	if err := validators.DecodeJSONBody(r, &req); err != nil {
		return nil, err
	}
	if req.Reason == nil {
		return nil, nil
	}
	reason := strings.TrimSpace(*req.Reason)
	if reason == "" {
		return nil, nil
	}
	return &reason, nil
}
