package admins

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/angelmondragon/folio-backend/pkg/config"
	"github.com/angelmondragon/folio-backend/pkg/db"
	"github.com/angelmondragon/folio-backend/pkg/db/models"
	"github.com/angelmondragon/folio-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/folio-backend/pkg/errors"
	"github.com/angelmondragon/folio-backend/pkg/logger"
	"github.com/angelmondragon/folio-backend/pkg/pagination"
	"github.com/angelmondragon/folio-backend/pkg/security"
	"github.com/angelmondragon/folio-backend/pkg/types"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9_.-]{3,50}$`)

var validate = validator.New()

type adminRepository interface {
	Create(ctx context.Context, admin *models.Admin) (*models.Admin, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Admin, error)
	List(ctx context.Context, filters ListFilters, page pagination.Params) ([]models.Admin, int64, error)
	UpdateFields(ctx context.Context, id uuid.UUID, values map[string]any) error
	ResetGuard(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountActiveSuperadmins(ctx context.Context) (int64, error)
	CountOwnedMedia(ctx context.Context, id uuid.UUID) (int64, error)
}

type sessionRevoker interface {
	RevokeAll(ctx context.Context, adminID uuid.UUID) error
}

// Service exposes superadmin account management.
type Service interface {
	List(ctx context.Context, params ListParams) (*types.PagedResult[AdminDTO], error)
	Get(ctx context.Context, id uuid.UUID) (*AdminDTO, error)
	Create(ctx context.Context, input CreateAdminInput) (*AdminDTO, error)
	Update(ctx context.Context, actorID, id uuid.UUID, input UpdateAdminInput) (*AdminDTO, error)
	Unlock(ctx context.Context, id uuid.UUID) (*AdminDTO, error)
	Delete(ctx context.Context, actorID, id uuid.UUID) error
}

type service struct {
	repo        adminRepository
	sessions    sessionRevoker
	passwordCfg config.PasswordConfig
	logg        *logger.Logger
}

// NewService builds the admin accounts service. sessions may be nil when
// token revocation is unavailable.
func NewService(repo adminRepository, sessions sessionRevoker, passwordCfg config.PasswordConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("admin repository required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		repo:        repo,
		sessions:    sessions,
		passwordCfg: passwordCfg,
		logg:        logg,
	}, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*types.PagedResult[AdminDTO], error) {
	page := pagination.Params{Page: params.Page, Limit: params.Limit}.Normalize()
	rows, total, err := s.repo.List(ctx, ListFilters{
		Search: params.Search,
		Role:   params.Role,
		Active: params.Active,
	}, page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list admins")
	}
	items := make([]AdminDTO, 0, len(rows))
	for i := range rows {
		items = append(items, *FromModel(&rows[i]))
	}
	return &types.PagedResult[AdminDTO]{Items: items, Meta: pagination.Meta(page, total)}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*AdminDTO, error) {
	admin, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromModel(admin), nil
}

func (s *service) Create(ctx context.Context, input CreateAdminInput) (*AdminDTO, error) {
	admin, err := s.buildAdmin(input)
	if err != nil {
		return nil, err
	}
	created, err := s.repo.Create(ctx, admin)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "username or email already in use")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create admin")
	}
	return FromModel(created), nil
}

func (s *service) buildAdmin(input CreateAdminInput) (*models.Admin, error) {
	username, err := normalizeUsername(input.Username)
	if err != nil {
		return nil, err
	}
	email, err := normalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}
	if err := security.ValidateStrength(input.Password, s.passwordCfg); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}

	role := input.Role
	if role == "" {
		role = enums.AdminRoleAdmin
	}
	if !role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role")
	}

	hash, err := security.HashPassword(input.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}
	return &models.Admin{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		IsActive:     isActive,
	}, nil
}

func (s *service) Update(ctx context.Context, actorID, id uuid.UUID, input UpdateAdminInput) (*AdminDTO, error) {
	admin, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	values := map[string]any{}
	if input.Email != nil {
		email, err := normalizeEmail(*input.Email)
		if err != nil {
			return nil, err
		}
		values["email"] = email
	}
	if input.Role != nil {
		if !input.Role.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role")
		}
		values["role"] = *input.Role
	}
	if input.IsActive != nil {
		if !*input.IsActive && actorID == id {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "you cannot deactivate your own account")
		}
		values["is_active"] = *input.IsActive
	}
	if input.Password != nil {
		if err := security.ValidateStrength(*input.Password, s.passwordCfg); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
		}
		hash, err := security.HashPassword(*input.Password, s.passwordCfg)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
		}
		values["password_hash"] = hash
	}

	demoted := input.Role != nil && *input.Role != enums.AdminRoleSuperadmin
	deactivated := input.IsActive != nil && !*input.IsActive
	if (demoted || deactivated) && isActiveSuperadmin(admin) {
		if err := s.ensureNotLastSuperadmin(ctx); err != nil {
			return nil, err
		}
	}

	if err := s.repo.UpdateFields(ctx, id, values); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already in use")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update admin")
	}

	if deactivated && admin.IsActive {
		s.revokeSessions(ctx, id)
	}

	updated, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromModel(updated), nil
}

func (s *service) Unlock(ctx context.Context, id uuid.UUID) (*AdminDTO, error) {
	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}
	if err := s.repo.ResetGuard(ctx, id); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unlock admin")
	}
	admin, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithAdminID(ctx, id.String()), "admin account unlocked")
	return FromModel(admin), nil
}

func (s *service) Delete(ctx context.Context, actorID, id uuid.UUID) error {
	if actorID == id {
		return pkgerrors.New(pkgerrors.CodeConflict, "you cannot delete your own account")
	}
	admin, err := s.load(ctx, id)
	if err != nil {
		return err
	}

	owned, err := s.repo.CountOwnedMedia(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count owned media")
	}
	if owned > 0 {
		return ownsMediaError().WithDetails(map[string]any{"media_count": owned})
	}

	if isActiveSuperadmin(admin) {
		if err := s.ensureNotLastSuperadmin(ctx); err != nil {
			return err
		}
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		// media added after the count above still trips the uploader foreign key
		if db.IsForeignKeyViolation(err) {
			return ownsMediaError()
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete admin")
	}
	s.revokeSessions(ctx, id)
	return nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Admin, error) {
	admin, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "admin not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load admin")
	}
	return admin, nil
}

func (s *service) ensureNotLastSuperadmin(ctx context.Context) error {
	count, err := s.repo.CountActiveSuperadmins(ctx)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count superadmins")
	}
	if count <= 1 {
		return pkgerrors.New(pkgerrors.CodeConflict, "at least one active superadmin is required")
	}
	return nil
}

func (s *service) revokeSessions(ctx context.Context, id uuid.UUID) {
	if s.sessions == nil {
		return
	}
	if err := s.sessions.RevokeAll(context.WithoutCancel(ctx), id); err != nil {
		s.logg.Error(s.logg.WithAdminID(ctx, id.String()), "revoke admin sessions", err)
	}
}

func ownsMediaError() *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeConflict, "admin owns media; reassign or deactivate instead")
}

func isActiveSuperadmin(a *models.Admin) bool {
	return a.IsActive && a.Role == enums.AdminRoleSuperadmin
}

func normalizeUsername(value string) (string, error) {
	username := strings.ToLower(strings.TrimSpace(value))
	if !usernamePattern.MatchString(username) {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "username must be 3-50 characters of a-z, 0-9, '_', '.', '-'")
	}
	return username, nil
}

func normalizeEmail(value string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(value))
	if err := validate.Var(email, "required,email,max=254"); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid email address")
	}
	return email, nil
}
