package controllers

import (
	"net/http"
	"strings"

	"github.com/felipecardoza/agrolink-backend/api/middleware"
	"github.com/felipecardoza/agrolink-backend/api/responses"
	"github.com/felipecardoza/agrolink-backend/api/validators"
	"github.com/felipecardoza/agrolink-backend/internal/auth"
	sessionpkg "github.com/felipecardoza/agrolink-backend/internal/session"
	pkgAuth "github.com/felipecardoza/agrolink-backend/pkg/auth"
	"github.com/felipecardoza/agrolink-backend/pkg/config"
	"github.com/felipecardoza/agrolink-backend/pkg/enums"
	pkgerrors "github.com/felipecardoza/agrolink-backend/pkg/errors"
	"github.com/felipecardoza/agrolink-backend/pkg/logger"
	"github.com/google/uuid"
)

func parseBearerToken(r *http.Request) (string, error) {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	token := raw
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	if token == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	return token, nil
}

// AuthLogin exchanges credentials for a token pair.
func AuthLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var payload auth.LoginRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp, err := svc.Login(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, resp)
	}
}

// AuthRegister onboards a new account and immediately logs it in.
func AuthRegister(registerSvc auth.RegisterService, loginSvc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if registerSvc == nil || loginSvc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var payload auth.RegisterRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if _, err := registerSvc.Register(r.Context(), payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp, err := loginSvc.Login(r.Context(), auth.LoginRequest{
			Email:    payload.Email,
			Password: payload.Password,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, resp)
	}
}

// AuthRefresh rotates the refresh session and re-mints the access token.
func AuthRefresh(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var payload auth.RefreshRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp, err := svc.Refresh(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, resp)
	}
}

// AuthLogout revokes the refresh mapping tied to the presented access token
// and tears down the user's live session if one is open.
func AuthLogout(svc auth.Service, registry *sessionpkg.Registry, cfg config.JWTConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		token, err := parseBearerToken(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		claims, err := pkgAuth.ParseAccessTokenAllowExpired(cfg, token)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
			return
		}

		if registry != nil {
			if err := registry.EndSession(r.Context(), claims.UserID); err != nil {
				logg.Warn(logg.WithField(r.Context(), "error", err.Error()), "session teardown on logout failed")
			}
		}

		if err := svc.Logout(r.Context(), claims.ID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "logged_out"})
	}
}

type switchRoleRequest struct {
	Role         string `json:"role" validate:"required"`
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// AuthSwitchRole moves the authenticated user to the other marketplace side
// and rotates their session so the new token carries the new role.
func AuthSwitchRole(svc auth.SwitchRoleService, registry *sessionpkg.Registry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		userID, err := uuid.Parse(middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		var payload switchRoleRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Switch(r.Context(), auth.SwitchRoleInput{
			UserID:        userID,
			Role:          enums.UserRole(payload.Role),
			AccessTokenID: middleware.AccessIDFromContext(r.Context()),
			RefreshToken:  payload.RefreshToken,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if registry != nil {
			if ctrl, ok := registry.Get(userID); ok {
				identity := ctrl.Identity()
				identity.Role = result.Role
				if err := ctrl.SwitchRole(r.Context(), identity); err != nil {
					logg.Warn(logg.WithField(r.Context(), "error", err.Error()), "live session role switch failed")
				}
			}
		}

		responses.WriteSuccess(w, map[string]string{
			"access_token":  result.AccessToken,
			"refresh_token": result.RefreshToken,
			"role":          string(result.Role),
		})
	}
}
