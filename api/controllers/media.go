package controllers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/angelmondragon/folio-backend/api/responses"
	"github.com/angelmondragon/folio-backend/api/validators"
	"github.com/angelmondragon/folio-backend/internal/media"
	"github.com/angelmondragon/folio-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/folio-backend/pkg/errors"
	"github.com/angelmondragon/folio-backend/pkg/logger"
	"github.com/angelmondragon/folio-backend/pkg/pagination"
	"github.com/go-chi/chi/v5"
)

const (
	uploadFormField     = "file"
	multipartMemory     = 32 << 20
	multipartOverhead   = 1 << 20
	defaultUploadLimit  = 100 << 20
	maxSearchQueryRunes = 100
)

type registerMediaRequest struct {
	URL          string   `json:"url" validate:"required,url,max=2048"`
	ThumbnailURL string   `json:"thumbnail_url" validate:"omitempty,url,max=2048"`
	Kind         string   `json:"kind" validate:"required,oneof=image video"`
	MimeType     string   `json:"mime_type" validate:"omitempty,max=100"`
	Width        *int     `json:"width" validate:"omitempty,min=1"`
	Height       *int     `json:"height" validate:"omitempty,min=1"`
	Title        string   `json:"title" validate:"required,max=200"`
	Description  string   `json:"description" validate:"omitempty,max=2000"`
	Category     string   `json:"category"`
	Tags         []string `json:"tags" validate:"omitempty,max=20"`
	IsActive     *bool    `json:"is_active"`
	IsFeatured   bool     `json:"is_featured"`
	IsHero       bool     `json:"is_hero"`
}

type updateMediaRequest struct {
	Title       *string   `json:"title" validate:"omitempty,max=200"`
	Description *string   `json:"description" validate:"omitempty,max=2000"`
	Category    *string   `json:"category"`
	Tags        *[]string `json:"tags"`
	IsActive    *bool     `json:"is_active"`
	IsFeatured  *bool     `json:"is_featured"`
	IsHero      *bool     `json:"is_hero"`
}

type setHeroRequest struct {
	IsHero *bool `json:"is_hero" validate:"required"`
}

// MediaList returns the admin catalogue including inactive records.
func MediaList(svc media.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := mediaListParams(r, true)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, "media retrieved", result)
	}
}

// MediaUpload accepts a multipart form with the asset under "file" and the
// metadata as plain form fields.
func MediaUpload(svc media.Service, cfg config.MediaConfig, logg *logger.Logger) http.HandlerFunc {
	limit := cfg.MaxBytes(true)
	if image := cfg.MaxBytes(false); image > limit {
		limit = image
	}
	if limit <= 0 {
		limit = defaultUploadLimit
	}
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, ok := requireAdmin(w, r, logg)
		if !ok {
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			responses.WriteError(r.Context(), logg, w, multipartError(err))
			return
		}
		defer func() {
			if r.MultipartForm != nil {
				_ = r.MultipartForm.RemoveAll()
			}
		}()

		file, header, err := r.FormFile(uploadFormField)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "file is required").WithDetails(map[string]any{"field": uploadFormField}))
			return
		}
		defer file.Close()

		data, contentType, err := readUpload(file, header, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		meta, err := metadataFromForm(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.Upload(r.Context(), actorID, media.UploadFileInput{
			Metadata:    meta,
			FileName:    header.Filename,
			ContentType: contentType,
			Data:        data,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, "media uploaded", created)
	}
}

// MediaRegisterURL records an asset hosted outside the blob store.
func MediaRegisterURL(svc media.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, ok := requireAdmin(w, r, logg)
		if !ok {
			return
		}
		var body registerMediaRequest
		if err := validators.DecodeJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		created, err := svc.RegisterURL(r.Context(), actorID, media.RegisterURLInput{
			Metadata: media.Metadata{
				Title:       body.Title,
				Description: body.Description,
				Category:    body.Category,
				Tags:        body.Tags,
				IsActive:    body.IsActive,
				IsFeatured:  body.IsFeatured,
				IsHero:      body.IsHero,
			},
			URL:          body.URL,
			ThumbnailURL: body.ThumbnailURL,
			Kind:         body.Kind,
			MimeType:     body.MimeType,
			Width:        body.Width,
			Height:       body.Height,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, "media registered", created)
	}
}

func MediaGet(svc media.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(chi.URLParam(r, "id"), "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		item, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, "media retrieved", item)
	}
}

// MediaUpdate applies a partial update. Absent fields are left untouched.
func MediaUpdate(svc media.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(chi.URLParam(r, "id"), "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body updateMediaRequest
		if err := validators.DecodeJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		updated, err := svc.Update(r.Context(), id, media.UpdateInput{
			Title:       body.Title,
			Description: body.Description,
			Category:    body.Category,
			Tags:        body.Tags,
			IsActive:    body.IsActive,
			IsFeatured:  body.IsFeatured,
			IsHero:      body.IsHero,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, "media updated", updated)
	}
}

func MediaDelete(svc media.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(chi.URLParam(r, "id"), "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, "media deleted", nil)
	}
}

// MediaSetHero toggles the hero flag. Setting it clears every other hero.
func MediaSetHero(svc media.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(chi.URLParam(r, "id"), "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body setHeroRequest
		if err := validators.DecodeJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		updated, err := svc.SetHero(r.Context(), id, *body.IsHero)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, "hero updated", updated)
	}
}

func MediaHero(svc media.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hero, err := svc.Hero(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, "hero retrieved", hero)
	}
}

// mediaListParams reads list filters. The active and hero filters are only
// honored on admin routes.
func mediaListParams(r *http.Request, admin bool) (media.ListParams, error) {
	page, err := validators.ParseQueryInt(r, "page", 1, 1, 100000)
	if err != nil {
		return media.ListParams{}, err
	}
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return media.ListParams{}, err
	}
	featured, err := validators.ParseQueryBool(r, "featured")
	if err != nil {
		return media.ListParams{}, err
	}

	q := r.URL.Query()
	params := media.ListParams{
		Kind:     strings.TrimSpace(q.Get("kind")),
		Category: strings.TrimSpace(q.Get("category")),
		Tag:      strings.TrimSpace(q.Get("tag")),
		Search:   validators.SanitizeString(q.Get("search"), maxSearchQueryRunes),
		Featured: featured,
		Sort:     strings.TrimSpace(q.Get("sort")),
		Order:    strings.TrimSpace(q.Get("order")),
		Page:     page,
		Limit:    limit,
	}
	if admin {
		if params.Active, err = validators.ParseQueryBool(r, "active"); err != nil {
			return media.ListParams{}, err
		}
		if params.Hero, err = validators.ParseQueryBool(r, "hero"); err != nil {
			return media.ListParams{}, err
		}
	}
	return params, nil
}

type uploadMetadataForm struct {
	Title       string   `form:"title" validate:"required,max=200"`
	Description string   `form:"description" validate:"omitempty,max=2000"`
	Category    string   `form:"category" validate:"omitempty,max=50"`
	Tags        []string `form:"tags" validate:"omitempty,max=20"`
}

func metadataFromForm(r *http.Request) (media.Metadata, error) {
	form := uploadMetadataForm{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Category:    r.FormValue("category"),
		Tags:        validators.SplitList(r.FormValue("tags")),
	}
	if err := validators.ValidateStruct(&form); err != nil {
		return media.Metadata{}, err
	}
	meta := media.Metadata{
		Title:       form.Title,
		Description: form.Description,
		Category:    form.Category,
		Tags:        form.Tags,
	}
	active, err := formBool(r, "is_active")
	if err != nil {
		return media.Metadata{}, err
	}
	meta.IsActive = active
	featured, err := formBool(r, "is_featured")
	if err != nil {
		return media.Metadata{}, err
	}
	meta.IsFeatured = featured != nil && *featured
	hero, err := formBool(r, "is_hero")
	if err != nil {
		return media.Metadata{}, err
	}
	meta.IsHero = hero != nil && *hero
	return meta, nil
}

func formBool(r *http.Request, key string) (*bool, error) {
	raw := strings.TrimSpace(r.FormValue(key))
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "form field must be true or false").WithDetails(map[string]any{"field": key})
	}
	return &value, nil
}

// readUpload buffers the part and resolves its content type, sniffing the
// bytes when the client sent none.
func readUpload(file multipart.File, header *multipart.FileHeader, limit int64) ([]byte, string, error) {
	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unable to read uploaded file")
	}
	if int64(len(data)) > limit {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "file exceeds maximum upload size").WithDetails(map[string]any{"field": uploadFormField, "max_bytes": limit})
	}
	contentType := strings.TrimSpace(header.Header.Get("Content-Type"))
	if contentType == "" || strings.EqualFold(contentType, "application/octet-stream") {
		contentType = http.DetectContentType(data)
	}
	return data, contentType, nil
}

func multipartError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return pkgerrors.New(pkgerrors.CodeValidation, "file exceeds maximum upload size").WithDetails(map[string]any{"field": uploadFormField, "max_bytes": tooLarge.Limit})
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "request must be multipart/form-data")
}
