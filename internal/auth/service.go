package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/folio-backend/internal/admins"
	pkgAuth "github.com/angelmondragon/folio-backend/pkg/auth"
	"github.com/angelmondragon/folio-backend/pkg/config"
	"github.com/angelmondragon/folio-backend/pkg/db"
	"github.com/angelmondragon/folio-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/folio-backend/pkg/errors"
	"github.com/angelmondragon/folio-backend/pkg/logger"
	"github.com/angelmondragon/folio-backend/pkg/metrics"
	"github.com/angelmondragon/folio-backend/pkg/security"
	"github.com/google/uuid"
)

const (
	invalidCredentialsMessage = "invalid credentials"
	tokenTypeBearer           = "Bearer"
	maxGuardRetries           = 5
)

var errLockedConcurrently = errors.New("account locked by a concurrent attempt")

// Service defines the behavior needed by the auth controller.
type Service interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	Me(ctx context.Context, adminID uuid.UUID) (*admins.AdminDTO, error)
	Logout(ctx context.Context, adminID uuid.UUID, accessID string) error
	ChangePassword(ctx context.Context, adminID uuid.UUID, req ChangePasswordRequest) error
}

type adminRepository interface {
	FindByIdentifier(ctx context.Context, identifier string) (*models.Admin, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Admin, error)
	SwapGuard(ctx context.Context, id uuid.UUID, expectedVersion int64, upd admins.GuardUpdate) (bool, error)
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
}

type sessionManager interface {
	Register(ctx context.Context, adminID uuid.UUID, accessID string, ttl time.Duration) error
	Revoke(ctx context.Context, adminID uuid.UUID, accessID string) error
}

type service struct {
	admins      adminRepository
	sessions    sessionManager
	guard       Guard
	jwtCfg      config.JWTConfig
	passwordCfg config.PasswordConfig
	metrics     *metrics.Metrics
	logg        *logger.Logger
	now         func() time.Time
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	AdminRepo      adminRepository
	SessionManager sessionManager
	JWTConfig      config.JWTConfig
	PasswordConfig config.PasswordConfig
	GuardConfig    config.GuardConfig
	Metrics        *metrics.Metrics
	Logger         *logger.Logger
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// NewService constructs a login service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.AdminRepo == nil {
		return nil, fmt.Errorf("admin repository is required")
	}
	if params.SessionManager == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		admins:      params.AdminRepo,
		sessions:    params.SessionManager,
		guard:       NewGuard(params.GuardConfig),
		jwtCfg:      params.JWTConfig,
		passwordCfg: params.PasswordConfig,
		metrics:     params.Metrics,
		logg:        logg,
		now:         clock,
	}, nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	identifier := strings.TrimSpace(req.Identifier)
	if identifier == "" || req.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "identifier and password are required")
	}

	admin, err := s.admins.FindByIdentifier(ctx, identifier)
	if err != nil {
		if db.IsNotFound(err) {
			s.metrics.ObserveLogin(metrics.LoginInvalidCredentials)
			return nil, invalidCredentials()
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup admin")
	}

	now := s.now().UTC()
	if err := s.checkAccess(admin, now); err != nil {
		return nil, err
	}

	valid, err := security.VerifyPassword(req.Password, admin.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}

	// guard writes must land even if the client disconnects mid-request
	writeCtx := context.WithoutCancel(ctx)
	if !valid {
		return nil, s.recordFailure(writeCtx, admin, now)
	}
	return s.completeLogin(writeCtx, admin, req.Password, now)
}

// checkAccess rejects locked and deactivated accounts before any password work.
func (s *service) checkAccess(admin *models.Admin, now time.Time) error {
	if status := s.guard.Status(guardStateOf(admin), now); status.Locked {
		s.metrics.ObserveLogin(metrics.LoginLocked)
		minutes := RemainingMinutes(*admin.LockUntil, now)
		return pkgerrors.New(pkgerrors.CodeAccountLocked, lockedMessage(minutes)).
			WithDetails(map[string]any{
				"remaining_minutes": minutes,
				"lock_until":        admin.LockUntil.UTC(),
			})
	}
	if !admin.IsActive {
		s.metrics.ObserveLogin(metrics.LoginDisabled)
		return pkgerrors.New(pkgerrors.CodeAccountDisabled, "account has been deactivated")
	}
	return nil
}

func (s *service) recordFailure(ctx context.Context, admin *models.Admin, now time.Time) error {
	_, upd, err := s.persistGuard(ctx, admin, func(current *models.Admin) (admins.GuardUpdate, error) {
		if s.guard.Status(guardStateOf(current), now).Locked {
			return admins.GuardUpdate{}, errLockedConcurrently
		}
		next := s.guard.OnFailure(guardStateOf(current), now)
		return admins.GuardUpdate{FailedAttempts: next.FailedAttempts, LockUntil: next.LockUntil}, nil
	})
	if err != nil && !errors.Is(err, errLockedConcurrently) {
		return err
	}

	if err == nil && upd.LockUntil != nil {
		s.metrics.IncAccountLock()
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"admin_id":        admin.ID.String(),
			"failed_attempts": upd.FailedAttempts,
			"lock_until":      upd.LockUntil.UTC(),
		}), "admin account locked")
	}
	s.metrics.ObserveLogin(metrics.LoginInvalidCredentials)
	return invalidCredentials()
}

func (s *service) completeLogin(ctx context.Context, admin *models.Admin, password string, now time.Time) (*LoginResponse, error) {
	current, _, err := s.persistGuard(ctx, admin, func(current *models.Admin) (admins.GuardUpdate, error) {
		// a concurrent failure may have locked the account, or a superadmin deactivated it
		if err := s.checkAccess(current, now); err != nil {
			return admins.GuardUpdate{}, err
		}
		next := s.guard.OnSuccess()
		return admins.GuardUpdate{FailedAttempts: next.FailedAttempts, LockUntil: next.LockUntil, LastLoginAt: &now}, nil
	})
	if err != nil {
		return nil, err
	}
	current.LastLoginAt = &now

	s.maybeRehash(ctx, current, password)

	issued, err := pkgAuth.MintAccessToken(s.jwtCfg, now, pkgAuth.AccessTokenPayload{
		AdminID: current.ID,
		Role:    current.Role,
		JTI:     uuid.NewString(),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	if err := s.sessions.Register(ctx, current.ID, issued.JTI, issued.ExpiresAt.Sub(now)); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "register session")
	}

	s.metrics.ObserveLogin(metrics.LoginSuccess)
	s.logg.Info(s.logg.WithAdminID(ctx, current.ID.String()), "admin logged in")

	return &LoginResponse{
		AccessToken: issued.Token,
		TokenType:   tokenTypeBearer,
		ExpiresAt:   issued.ExpiresAt,
		Admin:       admins.FromModel(current),
	}, nil
}

// persistGuard applies transition to the freshest copy of the account until
// the compare-and-swap on guard_version succeeds.
func (s *service) persistGuard(
	ctx context.Context,
	admin *models.Admin,
	transition func(*models.Admin) (admins.GuardUpdate, error),
) (*models.Admin, admins.GuardUpdate, error) {
	current := admin
	for attempt := 1; ; attempt++ {
		upd, err := transition(current)
		if err != nil {
			return nil, upd, err
		}
		swapped, err := s.admins.SwapGuard(ctx, current.ID, current.GuardVersion, upd)
		if err != nil {
			return nil, upd, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persist guard state")
		}
		if swapped {
			updated := *current
			updated.FailedAttempts = upd.FailedAttempts
			updated.LockUntil = upd.LockUntil
			updated.GuardVersion++
			return &updated, upd, nil
		}
		if attempt >= maxGuardRetries {
			return nil, upd, pkgerrors.New(pkgerrors.CodeInternal, "guard state contention")
		}
		current, err = s.admins.FindByID(ctx, admin.ID)
		if err != nil {
			return nil, upd, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload admin")
		}
	}
}

func (s *service) maybeRehash(ctx context.Context, admin *models.Admin, password string) {
	if !security.NeedsRehash(admin.PasswordHash, s.passwordCfg) {
		return
	}
	hash, err := security.HashPassword(password, s.passwordCfg)
	if err == nil {
		err = s.admins.UpdatePasswordHash(ctx, admin.ID, hash)
	}
	if err != nil {
		s.logg.Warn(s.logg.WithField(s.logg.WithAdminID(ctx, admin.ID.String()), "error", err.Error()), "password rehash skipped")
		return
	}
	admin.PasswordHash = hash
}

func (s *service) Me(ctx context.Context, adminID uuid.UUID) (*admins.AdminDTO, error) {
	admin, err := s.admins.FindByID(ctx, adminID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "account no longer exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load admin")
	}
	if !admin.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeAccountDisabled, "account has been deactivated")
	}
	return admins.FromModel(admin), nil
}

func (s *service) Logout(ctx context.Context, adminID uuid.UUID, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "token has no session id")
	}
	if err := s.sessions.Revoke(context.WithoutCancel(ctx), adminID, accessID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session")
	}
	return nil
}

func (s *service) ChangePassword(ctx context.Context, adminID uuid.UUID, req ChangePasswordRequest) error {
	admin, err := s.admins.FindByID(ctx, adminID)
	if err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeUnauthorized, "account no longer exists")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load admin")
	}

	valid, err := security.VerifyPassword(req.CurrentPassword, admin.PasswordHash)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid {
		return pkgerrors.New(pkgerrors.CodeValidation, "current password is incorrect").
			WithDetails(map[string]string{"current_password": "incorrect"})
	}
	if req.NewPassword == req.CurrentPassword {
		return pkgerrors.New(pkgerrors.CodeValidation, "new password must differ from the current one")
	}
	if err := security.ValidateStrength(req.NewPassword, s.passwordCfg); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}

	hash, err := security.HashPassword(req.NewPassword, s.passwordCfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	if err := s.admins.UpdatePasswordHash(context.WithoutCancel(ctx), adminID, hash); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update password")
	}
	s.logg.Info(s.logg.WithAdminID(ctx, adminID.String()), "admin password changed")
	return nil
}

func guardStateOf(admin *models.Admin) GuardState {
	return GuardState{FailedAttempts: admin.FailedAttempts, LockUntil: admin.LockUntil}
}

func invalidCredentials() error {
	return pkgerrors.New(pkgerrors.CodeInvalidCredentials, invalidCredentialsMessage)
}
