package controllers

import (
	"net/http"

	"github.com/angelmondragon/folio-backend/api/responses"
	"github.com/angelmondragon/folio-backend/api/validators"
	"github.com/angelmondragon/folio-backend/internal/contact"
	"github.com/angelmondragon/folio-backend/internal/media"
	"github.com/angelmondragon/folio-backend/pkg/logger"
	"github.com/go-chi/chi/v5"
)

type contactRequest struct {
	Name    string `json:"name" validate:"required,max=100"`
	Email   string `json:"email" validate:"required,email,max=254"`
	Phone   string `json:"phone" validate:"omitempty,max=30"`
	Subject string `json:"subject" validate:"omitempty,max=150"`
	Message string `json:"message" validate:"required,min=10,max=5000"`
}

// PublicMediaList serves the active catalogue to visitors.
func PublicMediaList(svc media.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := mediaListParams(r, false)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.ListPublic(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, "media retrieved", result)
	}
}

// PublicMediaGet returns an active record and counts the view.
func PublicMediaGet(svc media.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(chi.URLParam(r, "id"), "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		item, err := svc.GetPublic(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, "media retrieved", item)
	}
}

func PublicHero(svc media.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hero, err := svc.PublicHero(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, "hero retrieved", hero)
	}
}

func PublicMediaLike(svc media.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(chi.URLParam(r, "id"), "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.Like(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, "like recorded", result)
	}
}

// ContactSubmit forwards a visitor inquiry to the site owner.
func ContactSubmit(svc contact.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body contactRequest
		if err := validators.DecodeJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		err := svc.Submit(r.Context(), contact.Request{
			Name:    body.Name,
			Email:   body.Email,
			Phone:   body.Phone,
			Subject: body.Subject,
			Message: body.Message,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusAccepted, "message sent", nil)
	}
}
