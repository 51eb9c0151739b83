package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/folio-backend/internal/admins"
	"github.com/angelmondragon/folio-backend/internal/auth"
	pkgerrors "github.com/angelmondragon/folio-backend/pkg/errors"
	"github.com/google/uuid"
)

type stubAuthService struct {
	resp       *auth.LoginResponse
	err        error
	loginCalls int
	logoutID   string
	changed    *auth.ChangePasswordRequest
}

func (s *stubAuthService) Login(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
	s.loginCalls++
	return s.resp, s.err
}

func (s *stubAuthService) Me(ctx context.Context, adminID uuid.UUID) (*admins.AdminDTO, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &admins.AdminDTO{ID: adminID, Username: "owner"}, nil
}

func (s *stubAuthService) Logout(ctx context.Context, adminID uuid.UUID, accessID string) error {
	s.logoutID = accessID
	return s.err
}

func (s *stubAuthService) ChangePassword(ctx context.Context, adminID uuid.UUID, req auth.ChangePasswordRequest) error {
	s.changed = &req
	return s.err
}

func TestAuthLoginSuccess(t *testing.T) {
	svc := &stubAuthService{resp: &auth.LoginResponse{
		AccessToken: "token-1",
		TokenType:   "Bearer",
		ExpiresAt:   time.Now().Add(time.Hour),
	}}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"identifier":"owner","password":"Secret123!"}`))
	rec := httptest.NewRecorder()

	AuthLogin(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Cache-Control"); got != "no-store" {
		t.Fatalf("expected no-store cache header, got %q", got)
	}
	env := decodeEnvelope(t, rec)
	if !strings.Contains(string(env.Data), `"access_token":"token-1"`) {
		t.Fatalf("token missing from response: %s", env.Data)
	}
}

func TestAuthLoginValidation(t *testing.T) {
	svc := &stubAuthService{}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"identifier":"owner"}`))
	rec := httptest.NewRecorder()

	AuthLogin(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
	if svc.loginCalls != 0 {
		t.Fatal("service should not be called for invalid input")
	}
}

func TestAuthLoginErrorStatuses(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"invalid credentials", pkgerrors.New(pkgerrors.CodeInvalidCredentials, "invalid credentials"), http.StatusUnauthorized, string(pkgerrors.CodeInvalidCredentials)},
		{"locked", pkgerrors.New(pkgerrors.CodeAccountLocked, "account locked"), http.StatusLocked, string(pkgerrors.CodeAccountLocked)},
		{"store down", pkgerrors.New(pkgerrors.CodeDependency, "store down"), http.StatusServiceUnavailable, string(pkgerrors.CodeDependency)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubAuthService{err: tc.err}
			req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"identifier":"owner","password":"wrong-pass"}`))
			rec := httptest.NewRecorder()

			AuthLogin(svc, nil).ServeHTTP(rec, req)

			if rec.Code != tc.status {
				t.Fatalf("expected %d got %d", tc.status, rec.Code)
			}
			if env := decodeEnvelope(t, rec); env.Error.Code != tc.code {
				t.Fatalf("expected code %s got %s", tc.code, env.Error.Code)
			}
		})
	}
}

func TestAuthLoginNilService(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()

	AuthLogin(nil, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", rec.Code)
	}
}

func TestAuthMeRequiresAdminContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	rec := httptest.NewRecorder()

	AuthMe(&stubAuthService{}, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
}

func TestAuthLogoutUsesAccessID(t *testing.T) {
	svc := &stubAuthService{}
	req := withAdmin(httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil), uuid.New(), "jti-42")
	rec := httptest.NewRecorder()

	AuthLogout(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if svc.logoutID != "jti-42" {
		t.Fatalf("expected access id jti-42 got %q", svc.logoutID)
	}
}

func TestAuthChangePasswordValidatesLength(t *testing.T) {
	svc := &stubAuthService{}
	adminID := uuid.New()

	req := withAdmin(httptest.NewRequest(http.MethodPost, "/api/v1/auth/password", strings.NewReader(`{"current_password":"old-secret","new_password":"short"}`)), adminID, "jti")
	rec := httptest.NewRecorder()
	AuthChangePassword(svc, nil).ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
	if svc.changed != nil {
		t.Fatal("service should not be called")
	}

	req = withAdmin(httptest.NewRequest(http.MethodPost, "/api/v1/auth/password", strings.NewReader(`{"current_password":"old-secret","new_password":"much-longer-secret"}`)), adminID, "jti")
	rec = httptest.NewRecorder()
	AuthChangePassword(svc, nil).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.changed == nil || svc.changed.NewPassword != "much-longer-secret" {
		t.Fatalf("unexpected request %+v", svc.changed)
	}
}
