package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/angelmondragon/folio-backend/api/middleware"
	"github.com/angelmondragon/folio-backend/internal/media"
	"github.com/angelmondragon/folio-backend/pkg/enums"
	"github.com/angelmondragon/folio-backend/pkg/types"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code    string         `json:"code"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response: %v (body %s)", err, rec.Body.String())
	}
	return env
}

func withAdmin(req *http.Request, adminID uuid.UUID, accessID string) *http.Request {
	ctx := middleware.WithAdmin(req.Context(), adminID.String(), enums.AdminRoleAdmin, accessID)
	return req.WithContext(ctx)
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

type stubMediaService struct {
	listParams   media.ListParams
	publicParams media.ListParams
	uploaded     *media.UploadFileInput
	registered   *media.RegisterURLInput
	updated      *media.UpdateInput
	heroID       uuid.UUID
	heroValue    *bool
	likedID      uuid.UUID
	item         *media.MediaDTO
	err          error
}

func (s *stubMediaService) List(ctx context.Context, params media.ListParams) (*types.PagedResult[media.MediaDTO], error) {
	s.listParams = params
	return &types.PagedResult[media.MediaDTO]{Items: []media.MediaDTO{}}, s.err
}

func (s *stubMediaService) ListPublic(ctx context.Context, params media.ListParams) (*types.PagedResult[media.PublicMediaDTO], error) {
	s.publicParams = params
	return &types.PagedResult[media.PublicMediaDTO]{Items: []media.PublicMediaDTO{}}, s.err
}

func (s *stubMediaService) Get(ctx context.Context, id uuid.UUID) (*media.MediaDTO, error) {
	return s.item, s.err
}

func (s *stubMediaService) GetPublic(ctx context.Context, id uuid.UUID) (*media.PublicMediaDTO, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &media.PublicMediaDTO{ID: id}, nil
}

func (s *stubMediaService) Upload(ctx context.Context, actorID uuid.UUID, input media.UploadFileInput) (*media.MediaDTO, error) {
	s.uploaded = &input
	return &media.MediaDTO{ID: uuid.New(), UploadedBy: actorID}, s.err
}

func (s *stubMediaService) RegisterURL(ctx context.Context, actorID uuid.UUID, input media.RegisterURLInput) (*media.MediaDTO, error) {
	s.registered = &input
	return &media.MediaDTO{ID: uuid.New(), UploadedBy: actorID}, s.err
}

func (s *stubMediaService) Update(ctx context.Context, id uuid.UUID, input media.UpdateInput) (*media.MediaDTO, error) {
	s.updated = &input
	return &media.MediaDTO{ID: id}, s.err
}

func (s *stubMediaService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.err
}

func (s *stubMediaService) SetHero(ctx context.Context, id uuid.UUID, isHero bool) (*media.MediaDTO, error) {
	s.heroID = id
	s.heroValue = &isHero
	return &media.MediaDTO{ID: id, IsHero: isHero}, s.err
}

func (s *stubMediaService) Hero(ctx context.Context) (*media.MediaDTO, error) {
	return s.item, s.err
}

func (s *stubMediaService) PublicHero(ctx context.Context) (*media.PublicMediaDTO, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &media.PublicMediaDTO{ID: uuid.New()}, nil
}

func (s *stubMediaService) Like(ctx context.Context, id uuid.UUID) (*media.EngagementDTO, error) {
	s.likedID = id
	return &media.EngagementDTO{ID: id, Likes: 4}, s.err
}
