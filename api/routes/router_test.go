package routes

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/folio-backend/internal/admins"
	"github.com/angelmondragon/folio-backend/internal/auth"
	"github.com/angelmondragon/folio-backend/internal/contact"
	"github.com/angelmondragon/folio-backend/internal/media"
	pkgAuth "github.com/angelmondragon/folio-backend/pkg/auth"
	"github.com/angelmondragon/folio-backend/pkg/config"
	"github.com/angelmondragon/folio-backend/pkg/enums"
	"github.com/angelmondragon/folio-backend/pkg/logger"
	"github.com/angelmondragon/folio-backend/pkg/metrics"
	"github.com/angelmondragon/folio-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type stubPinger struct {
	err error
}

func (p stubPinger) Ping(context.Context) error {
	return p.err
}

type memoryCache struct {
	counts  map[string]int64
	pingErr error
}

func newMemoryCache() *memoryCache {
	return &memoryCache{counts: map[string]int64{}}
}

func (c *memoryCache) FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error) {
	c.counts[scope]++
	return c.counts[scope] <= limit, c.counts[scope], nil
}

func (c *memoryCache) Ping(context.Context) error {
	return c.pingErr
}

type stubSessions struct {
	revoked bool
}

func (s stubSessions) HasSession(ctx context.Context, accessID string) (bool, error) {
	return !s.revoked, nil
}

type stubAuthService struct{}

func (stubAuthService) Login(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
	return &auth.LoginResponse{AccessToken: "token", TokenType: "Bearer"}, nil
}

func (stubAuthService) Me(ctx context.Context, adminID uuid.UUID) (*admins.AdminDTO, error) {
	return &admins.AdminDTO{ID: adminID}, nil
}

func (stubAuthService) Logout(ctx context.Context, adminID uuid.UUID, accessID string) error {
	return nil
}

func (stubAuthService) ChangePassword(ctx context.Context, adminID uuid.UUID, req auth.ChangePasswordRequest) error {
	return nil
}

type stubAdminService struct{}

func (stubAdminService) List(ctx context.Context, params admins.ListParams) (*types.PagedResult[admins.AdminDTO], error) {
	return &types.PagedResult[admins.AdminDTO]{Items: []admins.AdminDTO{}}, nil
}

func (stubAdminService) Get(ctx context.Context, id uuid.UUID) (*admins.AdminDTO, error) {
	return &admins.AdminDTO{ID: id}, nil
}

func (stubAdminService) Create(ctx context.Context, input admins.CreateAdminInput) (*admins.AdminDTO, error) {
	return &admins.AdminDTO{ID: uuid.New()}, nil
}

func (stubAdminService) Update(ctx context.Context, actorID, id uuid.UUID, input admins.UpdateAdminInput) (*admins.AdminDTO, error) {
	return &admins.AdminDTO{ID: id}, nil
}

func (stubAdminService) Unlock(ctx context.Context, id uuid.UUID) (*admins.AdminDTO, error) {
	return &admins.AdminDTO{ID: id}, nil
}

func (stubAdminService) Delete(ctx context.Context, actorID, id uuid.UUID) error {
	return nil
}

type stubMediaService struct{}

func (stubMediaService) List(ctx context.Context, params media.ListParams) (*types.PagedResult[media.MediaDTO], error) {
	return &types.PagedResult[media.MediaDTO]{Items: []media.MediaDTO{}}, nil
}

func (stubMediaService) ListPublic(ctx context.Context, params media.ListParams) (*types.PagedResult[media.PublicMediaDTO], error) {
	return &types.PagedResult[media.PublicMediaDTO]{Items: []media.PublicMediaDTO{}}, nil
}

func (stubMediaService) Get(ctx context.Context, id uuid.UUID) (*media.MediaDTO, error) {
	return &media.MediaDTO{ID: id}, nil
}

func (stubMediaService) GetPublic(ctx context.Context, id uuid.UUID) (*media.PublicMediaDTO, error) {
	return &media.PublicMediaDTO{ID: id}, nil
}

func (stubMediaService) Upload(ctx context.Context, actorID uuid.UUID, input media.UploadFileInput) (*media.MediaDTO, error) {
	return nil, errors.New("not used")
}

func (stubMediaService) RegisterURL(ctx context.Context, actorID uuid.UUID, input media.RegisterURLInput) (*media.MediaDTO, error) {
	return nil, errors.New("not used")
}

func (stubMediaService) Update(ctx context.Context, id uuid.UUID, input media.UpdateInput) (*media.MediaDTO, error) {
	return &media.MediaDTO{ID: id}, nil
}

func (stubMediaService) Delete(ctx context.Context, id uuid.UUID) error {
	return nil
}

func (stubMediaService) SetHero(ctx context.Context, id uuid.UUID, isHero bool) (*media.MediaDTO, error) {
	return &media.MediaDTO{ID: id, IsHero: isHero}, nil
}

func (stubMediaService) Hero(ctx context.Context) (*media.MediaDTO, error) {
	return &media.MediaDTO{ID: uuid.New(), IsHero: true, Title: "admin-hero"}, nil
}

func (stubMediaService) PublicHero(ctx context.Context) (*media.PublicMediaDTO, error) {
	return &media.PublicMediaDTO{ID: uuid.New(), Title: "public-hero"}, nil
}

func (stubMediaService) Like(ctx context.Context, id uuid.UUID) (*media.EngagementDTO, error) {
	return &media.EngagementDTO{ID: id, Likes: 1}, nil
}

type stubContactService struct{}

func (stubContactService) Submit(ctx context.Context, req contact.Request) error {
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test"},
		JWT: config.JWTConfig{
			Secret:            "router-test-secret",
			Issuer:            "folio-test",
			ExpirationMinutes: 60,
		},
		AuthRateLimit: config.AuthRateLimitConfig{
			LoginWindow:          time.Minute,
			LoginIdentifierLimit: 2,
			LoginIPLimit:         50,
			ContactWindow:        time.Minute,
			ContactIPLimit:       1,
		},
		CORS: config.CORSConfig{AllowedOrigins: []string{"https://portfolio.example"}},
	}
}

type routerOptions struct {
	cache    cacheStore
	sessions stubSessions
	metrics  http.Handler
}

func newTestRouter(cfg *config.Config, opts routerOptions) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	return NewRouter(
		cfg,
		logg,
		nil,
		opts.metrics,
		stubPinger{},
		opts.cache,
		nil,
		opts.sessions,
		stubAuthService{},
		stubAdminService{},
		stubMediaService{},
		stubContactService{},
	)
}

func buildToken(t *testing.T, cfg *config.Config, role enums.AdminRole) string {
	t.Helper()
	issued, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		AdminID: uuid.New(),
		Role:    role,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return issued.Token
}

func serve(router http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoints(t *testing.T) {
	cfg := testConfig()
	cache := newMemoryCache()
	router := newTestRouter(cfg, routerOptions{cache: cache})

	if rec := serve(router, http.MethodGet, "/health/live", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected live 200 got %d", rec.Code)
	}
	if rec := serve(router, http.MethodGet, "/health/ready", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected ready 200 got %d", rec.Code)
	}

	cache.pingErr = errors.New("connection refused")
	if rec := serve(router, http.MethodGet, "/health/ready", "", ""); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected ready 503 when redis is down got %d", rec.Code)
	}
}

func TestAdminRoutesRequireToken(t *testing.T) {
	router := newTestRouter(testConfig(), routerOptions{})
	for _, path := range []string{"/api/admin/v1/media", "/api/admin/v1/admins", "/api/v1/auth/me"} {
		if rec := serve(router, http.MethodGet, path, "", ""); rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401 got %d", path, rec.Code)
		}
	}
}

func TestRevokedSessionIsRejected(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, routerOptions{sessions: stubSessions{revoked: true}})
	token := buildToken(t, cfg, enums.AdminRoleSuperadmin)

	if rec := serve(router, http.MethodGet, "/api/admin/v1/media", token, ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for revoked session got %d", rec.Code)
	}
}

func TestAdminAccountsRequireSuperadmin(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, routerOptions{})

	admin := buildToken(t, cfg, enums.AdminRoleAdmin)
	if rec := serve(router, http.MethodGet, "/api/admin/v1/media", admin, ""); rec.Code != http.StatusOK {
		t.Fatalf("expected admin media access got %d", rec.Code)
	}
	if rec := serve(router, http.MethodGet, "/api/admin/v1/admins", admin, ""); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for admin role got %d", rec.Code)
	}

	super := buildToken(t, cfg, enums.AdminRoleSuperadmin)
	if rec := serve(router, http.MethodGet, "/api/admin/v1/admins", super, ""); rec.Code != http.StatusOK {
		t.Fatalf("expected superadmin access got %d", rec.Code)
	}
	if rec := serve(router, http.MethodPost, "/api/admin/v1/admins/"+uuid.NewString()+"/unlock", super, ""); rec.Code != http.StatusOK {
		t.Fatalf("expected unlock route got %d", rec.Code)
	}
}

func TestHeroRoutesResolveBeforeIDRoutes(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, routerOptions{})
	token := buildToken(t, cfg, enums.AdminRoleAdmin)

	rec := serve(router, http.MethodGet, "/api/admin/v1/media/hero", token, "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "admin-hero") {
		t.Fatalf("expected admin hero, got %d %s", rec.Code, rec.Body.String())
	}

	rec = serve(router, http.MethodGet, "/api/public/media/hero", "", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "public-hero") {
		t.Fatalf("expected public hero, got %d %s", rec.Code, rec.Body.String())
	}

	rec = serve(router, http.MethodPut, "/api/admin/v1/media/"+uuid.NewString()+"/hero", token, `{"is_hero":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected set hero 200 got %d", rec.Code)
	}
}

func TestPublicRoutesAreOpen(t *testing.T) {
	router := newTestRouter(testConfig(), routerOptions{})
	id := uuid.NewString()
	cases := []struct {
		method, path string
	}{
		{http.MethodGet, "/api/public/media"},
		{http.MethodGet, "/api/public/media/" + id},
		{http.MethodPost, "/api/public/media/" + id + "/like"},
	}
	for _, tc := range cases {
		if rec := serve(router, tc.method, tc.path, "", ""); rec.Code != http.StatusOK {
			t.Fatalf("%s %s: expected 200 got %d", tc.method, tc.path, rec.Code)
		}
	}
}

func TestLoginIsRateLimitedPerIdentifier(t *testing.T) {
	router := newTestRouter(testConfig(), routerOptions{cache: newMemoryCache()})
	body := `{"identifier":"Owner","password":"whatever-pass"}`

	for i := 0; i < 2; i++ {
		if rec := serve(router, http.MethodPost, "/api/v1/auth/login", "", body); rec.Code != http.StatusOK {
			t.Fatalf("attempt %d: expected 200 got %d", i+1, rec.Code)
		}
	}
	rec := serve(router, http.MethodPost, "/api/v1/auth/login", "", body)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}
}

func TestContactIsRateLimitedPerIP(t *testing.T) {
	router := newTestRouter(testConfig(), routerOptions{cache: newMemoryCache()})
	body := `{"name":"Ada","email":"ada@example.com","message":"Do you shoot weddings abroad?"}`

	if rec := serve(router, http.MethodPost, "/api/public/contact", "", body); rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202 got %d: %s", rec.Code, rec.Body.String())
	}
	if rec := serve(router, http.MethodPost, "/api/public/contact", "", body); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 got %d", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	m.ObserveHero(metrics.HeroSet)
	router := newTestRouter(testConfig(), routerOptions{metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{})})

	rec := serve(router, http.MethodGet, "/metrics", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `folio_hero_designations_total{outcome="set"} 1`) {
		t.Fatalf("hero counter missing from scrape:\n%s", rec.Body.String())
	}
}

func TestCORSPreflight(t *testing.T) {
	router := newTestRouter(testConfig(), routerOptions{})
	req := httptest.NewRequest(http.MethodOptions, "/api/public/contact", nil)
	req.Header.Set("Origin", "https://portfolio.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://portfolio.example" {
		t.Fatalf("expected allowed origin header, got %q", got)
	}

	req = httptest.NewRequest(http.MethodOptions, "/api/public/contact", nil)
	req.Header.Set("Origin", "https://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unexpected origin header %q", got)
	}
}
