package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/folio-backend/pkg/config"
	"github.com/angelmondragon/folio-backend/pkg/db"
	"github.com/angelmondragon/folio-backend/pkg/logger"
)

// MaybeRun applies the embedded migrations at boot when auto-migrate is
// enabled, or always for the local sqlite driver.
func MaybeRun(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.FeatureFlags.AutoMigrate && !cfg.DB.IsSQLite() {
		return nil
	}

	sqlDB, err := client.SQL()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	src := Source{Dialect: DialectFor(client.Dialect())}
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "dialect": src.Dialect})
	logg.Info(ctx, "running goose migrations (auto-run)")

	if err := Up(ctx, sqlDB, src); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}

	logg.Info(ctx, "goose migrations completed")
	return nil
}
