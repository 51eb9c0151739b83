package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/angelmondragon/folio-backend/pkg/auth"
	"github.com/angelmondragon/folio-backend/pkg/auth/session"
	"github.com/angelmondragon/folio-backend/pkg/config"
	"github.com/angelmondragon/folio-backend/pkg/enums"
	"github.com/google/uuid"
)

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "folio-test", ExpirationMinutes: 60}

func okHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestAuthRejectsMissingToken(t *testing.T) {
	handler := Auth(testJWT, stubSessionVerifier{ok: true}, nil)(http.HandlerFunc(okHandler))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRejectsNonBearerScheme(t *testing.T) {
	handler := Auth(testJWT, stubSessionVerifier{ok: true}, nil)(http.HandlerFunc(okHandler))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRejectsInvalidToken(t *testing.T) {
	handler := Auth(testJWT, stubSessionVerifier{ok: true}, nil)(http.HandlerFunc(okHandler))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer invalid")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthAllowsValidToken(t *testing.T) {
	adminID := uuid.New()
	token := mintTestToken(t, adminID, enums.AdminRoleSuperadmin)

	var captured struct {
		admin  string
		role   enums.AdminRole
		access string
	}
	handler := Auth(testJWT, stubSessionVerifier{ok: true}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.admin = AdminIDFromContext(r.Context())
		captured.role = RoleFromContext(r.Context())
		captured.access = AccessIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token.Token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if captured.admin != adminID.String() {
		t.Fatalf("unexpected admin id %s", captured.admin)
	}
	if captured.role != enums.AdminRoleSuperadmin {
		t.Fatalf("unexpected role %s", captured.role)
	}
	if captured.access != token.JTI {
		t.Fatalf("unexpected access id %s", captured.access)
	}
}

func TestAuthRejectsRevokedSession(t *testing.T) {
	token := mintTestToken(t, uuid.New(), enums.AdminRoleAdmin)
	handler := Auth(testJWT, stubSessionVerifier{ok: false}, nil)(http.HandlerFunc(okHandler))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token.Token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthSessionStoreFailureIsDependencyError(t *testing.T) {
	token := mintTestToken(t, uuid.New(), enums.AdminRoleAdmin)
	handler := Auth(testJWT, stubSessionVerifier{err: errors.New("redis down")}, nil)(http.HandlerFunc(okHandler))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token.Token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
}

func TestRequireRole(t *testing.T) {
	cases := []struct {
		role enums.AdminRole
		want int
	}{
		{enums.AdminRoleSuperadmin, http.StatusOK},
		{enums.AdminRoleAdmin, http.StatusForbidden},
		{"", http.StatusForbidden},
	}
	handler := RequireRole(enums.AdminRoleSuperadmin, nil)(http.HandlerFunc(okHandler))
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(WithAdmin(req.Context(), uuid.NewString(), tc.role, "jti"))
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		if resp.Code != tc.want {
			t.Fatalf("role %q: expected %d got %d", tc.role, tc.want, resp.Code)
		}
	}

	adminOnly := RequireRole(enums.AdminRoleAdmin, nil)(http.HandlerFunc(okHandler))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithAdmin(req.Context(), uuid.NewString(), enums.AdminRoleSuperadmin, "jti"))
	resp := httptest.NewRecorder()
	adminOnly.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("superadmin should satisfy admin, got %d", resp.Code)
	}
}

func TestRequestIDReplacesUnsafeValues(t *testing.T) {
	var seen string
	handler := RequestID(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = w.Header().Get(requestIDHeader)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if seen != "abc-123" {
		t.Fatalf("expected caller id to be kept, got %q", seen)
	}

	req.Header.Set(requestIDHeader, "bad id\twith spaces")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if _, err := uuid.Parse(seen); err != nil {
		t.Fatalf("expected generated uuid, got %q", seen)
	}
}

func TestRecovererWritesInternalError(t *testing.T) {
	handler := Recoverer(nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", resp.Code)
	}
}

type stubSessionVerifier struct {
	ok  bool
	err error
}

func (s stubSessionVerifier) HasSession(context.Context, string) (bool, error) {
	return s.ok, s.err
}

var _ session.AccessSessionChecker = stubSessionVerifier{}

func mintTestToken(t *testing.T, adminID uuid.UUID, role enums.AdminRole) auth.IssuedToken {
	t.Helper()
	token, err := auth.MintAccessToken(testJWT, time.Now(), auth.AccessTokenPayload{AdminID: adminID, Role: role})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}
