package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/felipecardoza/agrolink-backend/api/middleware"
	"github.com/felipecardoza/agrolink-backend/api/responses"
	"github.com/felipecardoza/agrolink-backend/api/validators"
	"github.com/felipecardoza/agrolink-backend/internal/negotiation"
	sessionpkg "github.com/felipecardoza/agrolink-backend/internal/session"
	"github.com/felipecardoza/agrolink-backend/pkg/enums"
	pkgerrors "github.com/felipecardoza/agrolink-backend/pkg/errors"
	"github.com/felipecardoza/agrolink-backend/pkg/logger"
)

// liveController resolves the caller's live session, opening one on first
// use so the negotiation and message feeds start streaming immediately.
func liveController(r *http.Request, registry *sessionpkg.Registry) (*sessionpkg.Controller, error) {
	if registry == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "session registry unavailable")
	}

	userID, err := uuid.Parse(middleware.UserIDFromContext(r.Context()))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}

	role := enums.UserRole(middleware.RoleFromContext(r.Context()))
	kyc := enums.KYCStatus(middleware.KYCStatusFromContext(r.Context()))

	if ctrl, ok := registry.Get(userID); ok {
		identity := ctrl.Identity()
		if identity.Role == role {
			return ctrl, nil
		}
	}

	return registry.StartSession(r.Context(), sessionpkg.Identity{
		UserID:    userID,
		Role:      role,
		KYCStatus: kyc,
	})
}

type openNegotiationRequest struct {
	ProductID    string  `json:"product_id" validate:"required"`
	Quantity     int     `json:"quantity" validate:"required,min=1"`
	OfferedPrice string  `json:"offered_price" validate:"required"`
	Notes        *string `json:"notes,omitempty"`
}

// NegotiationOpen starts a pending negotiation from a buyer offer.
func NegotiationOpen(registry *sessionpkg.Registry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctrl, err := liveController(r, registry)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload openNegotiationRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID, err := uuid.Parse(payload.ProductID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
			return
		}

		price, err := decimal.NewFromString(strings.TrimSpace(payload.OfferedPrice))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid offered price"))
			return
		}

		created, err := ctrl.OpenNegotiation(r.Context(), productID, payload.Quantity, price, payload.Notes)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

type counterOfferRequest struct {
	NewPrice string  `json:"new_price" validate:"required"`
	Notes    *string `json:"notes,omitempty"`
}

// NegotiationCounter revises the price on the table from the caller's side.
func NegotiationCounter(registry *sessionpkg.Registry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctrl, err := liveController(r, registry)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		negotiationID, err := uuid.Parse(chi.URLParam(r, "negotiationId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid negotiation id"))
			return
		}

		var payload counterOfferRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		price, err := decimal.NewFromString(strings.TrimSpace(payload.NewPrice))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid price"))
			return
		}

		updated, err := ctrl.CounterOffer(r.Context(), negotiationID, price, payload.Notes)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, updated)
	}
}

type respondRequest struct {
	Decision string `json:"decision" validate:"required,oneof=accept reject"`
}

// NegotiationRespond settles the negotiation with accept or reject.
func NegotiationRespond(registry *sessionpkg.Registry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctrl, err := liveController(r, registry)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		negotiationID, err := uuid.Parse(chi.URLParam(r, "negotiationId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid negotiation id"))
			return
		}

		var payload respondRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := ctrl.Respond(r.Context(), negotiationID, negotiation.Decision(payload.Decision))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, updated)
	}
}

// NegotiationList returns the session's visible negotiation set.
func NegotiationList(registry *sessionpkg.Registry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctrl, err := liveController(r, registry)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, ctrl.Negotiations())
	}
}

type sendMessageRequest struct {
	Body string `json:"body" validate:"required,max=2000"`
}

// NegotiationSendMessage pushes an optimistic chat message into the thread.
func NegotiationSendMessage(registry *sessionpkg.Registry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctrl, err := liveController(r, registry)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		negotiationID, err := uuid.Parse(chi.URLParam(r, "negotiationId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid negotiation id"))
			return
		}

		var payload sendMessageRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		messageID, err := ctrl.SendMessage(r.Context(), negotiationID, payload.Body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusAccepted, map[string]string{"message_id": messageID.String()})
	}
}

// NegotiationRetryMessage re-attempts a failed chat message.
func NegotiationRetryMessage(registry *sessionpkg.Registry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctrl, err := liveController(r, registry)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		messageID, err := uuid.Parse(chi.URLParam(r, "messageId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid message id"))
			return
		}

		if err := ctrl.RetryMessage(r.Context(), messageID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusAccepted, map[string]string{"status": "retrying"})
	}
}

// NegotiationMessages returns the merged message view for one negotiation.
func NegotiationMessages(registry *sessionpkg.Registry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctrl, err := liveController(r, registry)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		negotiationID, err := uuid.Parse(chi.URLParam(r, "negotiationId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid negotiation id"))
			return
		}

		responses.WriteSuccess(w, ctrl.Messages(negotiationID))
	}
}
