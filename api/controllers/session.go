package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/felipecardoza/agrolink-backend/api/middleware"
	"github.com/felipecardoza/agrolink-backend/api/responses"
	sessionpkg "github.com/felipecardoza/agrolink-backend/internal/session"
	pkgerrors "github.com/felipecardoza/agrolink-backend/pkg/errors"
	"github.com/felipecardoza/agrolink-backend/pkg/logger"
)

// SessionStart opens (or replaces) the caller's live session and its feeds.
func SessionStart(registry *sessionpkg.Registry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctrl, err := liveController(r, registry)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		identity := ctrl.Identity()
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{
			"status":     "started",
			"role":       identity.Role,
			"kyc_status": identity.KYCStatus,
		})
	}
}

// SessionView reports the live session state: visible negotiations plus the
// last surfaced error per feed. Feed errors are informational, never fatal.
func SessionView(registry *sessionpkg.Registry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctrl, err := liveController(r, registry)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"negotiations": ctrl.Negotiations(),
			"feed_errors":  ctrl.FeedErrors(),
		})
	}
}

// SessionEnd signs the caller out of the live session. Feeds close first, and
// only then does local state clear so no late delivery can repopulate it.
func SessionEnd(registry *sessionpkg.Registry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if registry == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "session registry unavailable"))
			return
		}

		userID, err := uuid.Parse(middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		if err := registry.EndSession(r.Context(), userID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "ended"})
	}
}
