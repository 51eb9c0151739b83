package controllers

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/folio-backend/api/responses"
	"github.com/angelmondragon/folio-backend/api/validators"
	"github.com/angelmondragon/folio-backend/internal/admins"
	"github.com/angelmondragon/folio-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/folio-backend/pkg/errors"
	"github.com/angelmondragon/folio-backend/pkg/logger"
	"github.com/angelmondragon/folio-backend/pkg/pagination"
	"github.com/go-chi/chi/v5"
)

type createAdminRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=256"`
	Role     string `json:"role" validate:"omitempty,oneof=admin superadmin"`
	IsActive *bool  `json:"is_active"`
}

type updateAdminRequest struct {
	Email    *string `json:"email" validate:"omitempty,email,max=254"`
	Role     *string `json:"role" validate:"omitempty,oneof=admin superadmin"`
	IsActive *bool   `json:"is_active"`
	Password *string `json:"password" validate:"omitempty,min=8,max=256"`
}

func AdminList(svc admins.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := adminListParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, "admins retrieved", result)
	}
}

func AdminCreate(svc admins.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body createAdminRequest
		if err := validators.DecodeJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		role := enums.AdminRoleAdmin
		if body.Role != "" {
			role = enums.AdminRole(body.Role)
		}
		created, err := svc.Create(r.Context(), admins.CreateAdminInput{
			Username: body.Username,
			Email:    body.Email,
			Password: body.Password,
			Role:     role,
			IsActive: body.IsActive,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, "admin created", created)
	}
}

func AdminGet(svc admins.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(chi.URLParam(r, "id"), "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		admin, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, "admin retrieved", admin)
	}
}

func AdminUpdate(svc admins.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, ok := requireAdmin(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.ParseUUIDParam(chi.URLParam(r, "id"), "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body updateAdminRequest
		if err := validators.DecodeJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input := admins.UpdateAdminInput{
			Email:    body.Email,
			IsActive: body.IsActive,
			Password: body.Password,
		}
		if body.Role != nil {
			role := enums.AdminRole(*body.Role)
			input.Role = &role
		}
		updated, err := svc.Update(r.Context(), actorID, id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, "admin updated", updated)
	}
}

// AdminUnlock clears the failed-login counter and any active lock.
func AdminUnlock(svc admins.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(chi.URLParam(r, "id"), "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		admin, err := svc.Unlock(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, "admin unlocked", admin)
	}
}

func AdminDelete(svc admins.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, ok := requireAdmin(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.ParseUUIDParam(chi.URLParam(r, "id"), "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), actorID, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, "admin deleted", nil)
	}
}

func adminListParams(r *http.Request) (admins.ListParams, error) {
	page, err := validators.ParseQueryInt(r, "page", 1, 1, 100000)
	if err != nil {
		return admins.ListParams{}, err
	}
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return admins.ListParams{}, err
	}
	active, err := validators.ParseQueryBool(r, "active")
	if err != nil {
		return admins.ListParams{}, err
	}
	params := admins.ListParams{
		Search: validators.SanitizeString(r.URL.Query().Get("search"), 100),
		Active: active,
		Page:   page,
		Limit:  limit,
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("role")); raw != "" {
		role, err := enums.ParseAdminRole(raw)
		if err != nil {
			return admins.ListParams{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "role must be admin or superadmin").WithDetails(map[string]any{"field": "role"})
		}
		params.Role = &role
	}
	return params, nil
}
