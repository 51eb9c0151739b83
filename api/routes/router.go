package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/folio-backend/api/controllers"
	"github.com/angelmondragon/folio-backend/api/middleware"
	"github.com/angelmondragon/folio-backend/internal/admins"
	"github.com/angelmondragon/folio-backend/internal/auth"
	"github.com/angelmondragon/folio-backend/internal/contact"
	"github.com/angelmondragon/folio-backend/internal/media"
	"github.com/angelmondragon/folio-backend/pkg/auth/session"
	"github.com/angelmondragon/folio-backend/pkg/config"
	"github.com/angelmondragon/folio-backend/pkg/db"
	"github.com/angelmondragon/folio-backend/pkg/enums"
	"github.com/angelmondragon/folio-backend/pkg/logger"
	"github.com/angelmondragon/folio-backend/pkg/metrics"
	"github.com/angelmondragon/folio-backend/pkg/storage/gcs"
)

// cacheStore is the Redis surface used by routing: rate limit counters and
// readiness.
type cacheStore interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
	Ping(ctx context.Context) error
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	m *metrics.Metrics,
	metricsHandler http.Handler,
	dbP db.Pinger,
	cache cacheStore,
	storageP gcs.Pinger,
	sessions session.AccessSessionChecker,
	authService auth.Service,
	adminService admins.Service,
	mediaService media.Service,
	contactService contact.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Diagnostics(!cfg.App.IsProd()),
		middleware.Logging(logg, m),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	loginPolicy := middleware.LoginRateLimitPolicy(cfg.AuthRateLimit)
	contactPolicy := middleware.ContactRateLimitPolicy(cfg.AuthRateLimit)
	requireAuth := middleware.Auth(cfg.JWT, sessions, logg)

	readiness := map[string]controllers.Pinger{}
	if dbP != nil {
		readiness["database"] = dbP
	}
	if cache != nil {
		readiness["redis"] = cache
	}
	if storageP != nil {
		readiness["storage"] = storageP
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, readiness, logg))
	})
	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.RateLimit(loginPolicy, cache, logg)).Post("/login", controllers.AuthLogin(authService, logg))

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/me", controllers.AuthMe(authService, logg))
			r.Post("/logout", controllers.AuthLogout(authService, logg))
			r.Put("/password", controllers.AuthChangePassword(authService, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(requireAuth)
		r.Use(middleware.RequireRole(enums.AdminRoleAdmin, logg))

		r.Route("/media", func(r chi.Router) {
			r.Get("/", controllers.MediaList(mediaService, logg))
			r.Post("/", controllers.MediaUpload(mediaService, cfg.Media, logg))
			r.Post("/url", controllers.MediaRegisterURL(mediaService, logg))
			r.Get("/hero", controllers.MediaHero(mediaService, logg))
			r.Get("/{id}", controllers.MediaGet(mediaService, logg))
			r.Patch("/{id}", controllers.MediaUpdate(mediaService, logg))
			r.Delete("/{id}", controllers.MediaDelete(mediaService, logg))
			r.Put("/{id}/hero", controllers.MediaSetHero(mediaService, logg))
		})

		r.Route("/admins", func(r chi.Router) {
			r.Use(middleware.RequireRole(enums.AdminRoleSuperadmin, logg))
			r.Get("/", controllers.AdminList(adminService, logg))
			r.Post("/", controllers.AdminCreate(adminService, logg))
			r.Get("/{id}", controllers.AdminGet(adminService, logg))
			r.Patch("/{id}", controllers.AdminUpdate(adminService, logg))
			r.Post("/{id}/unlock", controllers.AdminUnlock(adminService, logg))
			r.Delete("/{id}", controllers.AdminDelete(adminService, logg))
		})
	})

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/media", controllers.PublicMediaList(mediaService, logg))
		r.Get("/media/hero", controllers.PublicHero(mediaService, logg))
		r.Get("/media/{id}", controllers.PublicMediaGet(mediaService, logg))
		r.Post("/media/{id}/like", controllers.PublicMediaLike(mediaService, logg))
		r.With(middleware.RateLimit(contactPolicy, cache, logg)).Post("/contact", controllers.ContactSubmit(contactService, logg))
	})

	return r
}
