package admins

import (
	"context"
	"fmt"

	"github.com/angelmondragon/folio-backend/pkg/config"
	"github.com/angelmondragon/folio-backend/pkg/db/models"
	"github.com/angelmondragon/folio-backend/pkg/enums"
	"github.com/angelmondragon/folio-backend/pkg/logger"
)

type bootstrapRepository interface {
	Count(ctx context.Context) (int64, error)
	Create(ctx context.Context, admin *models.Admin) (*models.Admin, error)
}

// Bootstrap creates the first superadmin from configured credentials when no
// account exists yet. It reports whether an account was created.
func Bootstrap(ctx context.Context, repo bootstrapRepository, cfg config.BootstrapConfig, passwordCfg config.PasswordConfig, logg *logger.Logger) (bool, error) {
	if logg == nil {
		logg = logger.Nop()
	}
	total, err := repo.Count(ctx)
	if err != nil {
		return false, fmt.Errorf("count admins: %w", err)
	}
	if total > 0 {
		return false, nil
	}
	if !cfg.Enabled() {
		logg.Warn(ctx, "no admin accounts exist and bootstrap credentials are not configured")
		return false, nil
	}

	builder := &service{passwordCfg: passwordCfg}
	admin, err := builder.buildAdmin(CreateAdminInput{
		Username: cfg.Username,
		Email:    cfg.Email,
		Password: cfg.Password,
		Role:     enums.AdminRoleSuperadmin,
	})
	if err != nil {
		return false, fmt.Errorf("bootstrap superadmin: %w", err)
	}
	created, err := repo.Create(ctx, admin)
	if err != nil {
		return false, fmt.Errorf("create bootstrap superadmin: %w", err)
	}

	logg.Info(logg.WithFields(ctx, map[string]any{
		"admin_id": created.ID.String(),
		"username": created.Username,
	}), "bootstrap superadmin created")
	return true, nil
}
