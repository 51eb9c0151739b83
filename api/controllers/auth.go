package controllers

import (
	"net/http"

	"github.com/angelmondragon/folio-backend/api/middleware"
	"github.com/angelmondragon/folio-backend/api/responses"
	"github.com/angelmondragon/folio-backend/api/validators"
	"github.com/angelmondragon/folio-backend/internal/auth"
	pkgerrors "github.com/angelmondragon/folio-backend/pkg/errors"
	"github.com/angelmondragon/folio-backend/pkg/logger"
	"github.com/google/uuid"
)

// AuthLogin exchanges admin credentials for an access token.
func AuthLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var body auth.LoginRequest
		if err := validators.DecodeJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Login(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		w.Header().Set("Cache-Control", "no-store")
		responses.WriteSuccess(w, "login successful", result)
	}
}

// AuthMe returns the authenticated admin's profile.
func AuthMe(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		adminID, ok := requireAdmin(w, r, logg)
		if !ok {
			return
		}
		profile, err := svc.Me(r.Context(), adminID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, "profile retrieved", profile)
	}
}

// AuthLogout revokes the session bound to the presented token.
func AuthLogout(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		adminID, ok := requireAdmin(w, r, logg)
		if !ok {
			return
		}
		if err := svc.Logout(r.Context(), adminID, middleware.AccessIDFromContext(r.Context())); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, "logged out", nil)
	}
}

func AuthChangePassword(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		adminID, ok := requireAdmin(w, r, logg)
		if !ok {
			return
		}

		var body auth.ChangePasswordRequest
		if err := validators.DecodeJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.ChangePassword(r.Context(), adminID, body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, "password updated", nil)
	}
}

func requireAdmin(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (uuid.UUID, bool) {
	adminID := middleware.AdminUUIDFromContext(r.Context())
	if adminID == uuid.Nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "admin context missing"))
		return uuid.Nil, false
	}
	return adminID, true
}
