package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/angelmondragon/folio-backend/api/routes"
	"github.com/angelmondragon/folio-backend/internal/admins"
	"github.com/angelmondragon/folio-backend/internal/auth"
	"github.com/angelmondragon/folio-backend/internal/contact"
	"github.com/angelmondragon/folio-backend/internal/media"
	"github.com/angelmondragon/folio-backend/pkg/auth/session"
	"github.com/angelmondragon/folio-backend/pkg/config"
	"github.com/angelmondragon/folio-backend/pkg/db"
	"github.com/angelmondragon/folio-backend/pkg/instance"
	"github.com/angelmondragon/folio-backend/pkg/logger"
	"github.com/angelmondragon/folio-backend/pkg/mailer"
	"github.com/angelmondragon/folio-backend/pkg/metrics"
	"github.com/angelmondragon/folio-backend/pkg/migrate"
	"github.com/angelmondragon/folio-backend/pkg/redis"
	"github.com/angelmondragon/folio-backend/pkg/storage/gcs"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (err error) {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, dbClient.Close())
	}()

	if err := migrate.MaybeRun(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, redisClient.Close())
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	sessionManager, err := session.NewManager(redisClient)
	if err != nil {
		return err
	}

	adminRepo := admins.NewRepository(dbClient.DB())
	created, err := admins.Bootstrap(ctx, adminRepo, cfg.Bootstrap, cfg.Password, logg)
	if err != nil {
		return err
	}
	if created {
		logg.Info(ctx, "bootstrap superadmin created")
	}

	adminService, err := admins.NewService(adminRepo, sessionManager, cfg.Password, logg)
	if err != nil {
		return err
	}

	authService, err := auth.NewService(auth.ServiceParams{
		AdminRepo:      adminRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		GuardConfig:    cfg.Guard,
		Metrics:        m,
		Logger:         logg,
	})
	if err != nil {
		return err
	}

	gcsClient, err := gcs.NewClient(ctx, cfg.GCS, cfg.GCP, logg)
	if err != nil {
		return err
	}

	var thumbs *media.Thumbnailer
	if !cfg.FeatureFlags.ThumbnailsOff {
		thumbs = media.NewThumbnailer(cfg.Media)
	}
	blobs, err := media.NewGCSBlobStore(gcsClient, thumbs, cfg.GCS.ObjectPrefix, m, logg)
	if err != nil {
		return err
	}

	mediaService, err := media.NewService(media.ServiceParams{
		Repo:   media.NewRepository(dbClient.DB()),
		Hero:   media.NewHeroSelector(dbClient, m, logg),
		Blobs:  blobs,
		Config: cfg.Media,
		Logger: logg,
	})
	if err != nil {
		return err
	}

	mail, err := mailer.New(ctx, cfg.Mail, logg, m)
	if err != nil {
		return err
	}
	contactService, err := contact.NewService(mail, cfg.Mail, logg)
	if err != nil {
		return err
	}

	addr := ":" + cfg.App.Port
	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			m,
			promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
			dbClient,
			redisClient,
			gcsClient,
			sessionManager,
			authService,
			adminService,
			mediaService,
			contactService,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logCtx := logg.WithFields(ctx, map[string]any{
		"env":       cfg.App.Env,
		"addr":      addr,
		"instance":  instance.ID(),
		"db_driver": dbClient.Dialect(),
		"mail":      mail.Transport(),
	})
	logg.Info(logCtx, "starting api server")

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logg.Info(logCtx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
