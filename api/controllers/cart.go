package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/felipecardoza/agrolink-backend/api/responses"
	"github.com/felipecardoza/agrolink-backend/api/validators"
	cartsvc "github.com/felipecardoza/agrolink-backend/internal/cart"
	paymentsvc "github.com/felipecardoza/agrolink-backend/internal/payments"
	sessionpkg "github.com/felipecardoza/agrolink-backend/internal/session"
	pkgerrors "github.com/felipecardoza/agrolink-backend/pkg/errors"
	"github.com/felipecardoza/agrolink-backend/pkg/logger"
)

// CartFetch returns the buyer's current cart.
func CartFetch(registry *sessionpkg.Registry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctrl, err := liveController(r, registry)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := ctrl.Cart(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, record)
	}
}

type upsertCartItemRequest struct {
	ProductID     string  `json:"product_id" validate:"required"`
	Quantity      int     `json:"quantity" validate:"required,min=1"`
	NegotiationID *string `json:"negotiation_id,omitempty"`
}

// CartUpsertItem stages a product line, optionally priced from an accepted
// negotiation.
func CartUpsertItem(registry *sessionpkg.Registry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctrl, err := liveController(r, registry)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload upsertCartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID, err := uuid.Parse(payload.ProductID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
			return
		}

		input := cartsvc.UpsertItemInput{
			ProductID: productID,
			Quantity:  payload.Quantity,
		}
		if payload.NegotiationID != nil && strings.TrimSpace(*payload.NegotiationID) != "" {
			negID, err := uuid.Parse(*payload.NegotiationID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid negotiation id"))
				return
			}
			input.NegotiationID = &negID
		}

		record, err := ctrl.UpsertCartItem(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, record)
	}
}

// CartRemoveItem drops one line from the buyer's cart.
func CartRemoveItem(svc cartsvc.Service, registry *sessionpkg.Registry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctrl, err := liveController(r, registry)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		itemID, err := uuid.Parse(chi.URLParam(r, "itemId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid item id"))
			return
		}

		record, err := svc.RemoveItem(r.Context(), ctrl.Identity().UserID, itemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, record)
	}
}

// Checkout applies the checkout gates and opens a provider payment session.
func Checkout(registry *sessionpkg.Registry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctrl, err := liveController(r, registry)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := ctrl.Checkout(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, session)
	}
}

// CheckoutSessionStatus reads back the provider-side payment state.
func CheckoutSessionStatus(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		sessionID := strings.TrimSpace(chi.URLParam(r, "sessionId"))
		if sessionID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "session id required"))
			return
		}

		status, err := svc.GetSessionStatus(r.Context(), sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, status)
	}
}
