package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/folio-backend/internal/admins"
	pkgAuth "github.com/angelmondragon/folio-backend/pkg/auth"
	"github.com/angelmondragon/folio-backend/pkg/config"
	"github.com/angelmondragon/folio-backend/pkg/db/models"
	"github.com/angelmondragon/folio-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/folio-backend/pkg/errors"
	"github.com/angelmondragon/folio-backend/pkg/security"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const testPassword = "correct-horse-7"

var testJWTConfig = config.JWTConfig{
	Secret:            "secret",
	Issuer:            "folio",
	ExpirationMinutes: 60,
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newClock() *fakeClock {
	// tokens are parsed against the wall clock, so start from it
	return &fakeClock{now: time.Now().UTC().Truncate(time.Second)}
}

func buildTestService(t *testing.T, repo adminRepository, clock *fakeClock) (Service, *stubSessionManager) {
	t.Helper()
	sessions := &stubSessionManager{}
	svc, err := NewService(ServiceParams{
		AdminRepo:      repo,
		SessionManager: sessions,
		JWTConfig:      testJWTConfig,
		Clock:          clock.Now,
	})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc, sessions
}

func mustHashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := security.HashPassword(password, config.PasswordConfig{})
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return hash
}

func newAdmin(t *testing.T, username string) *models.Admin {
	return &models.Admin{
		ID:           uuid.New(),
		Username:     username,
		Email:        username + "@folio.test",
		PasswordHash: mustHashPassword(t, testPassword),
		Role:         enums.AdminRoleAdmin,
		IsActive:     true,
	}
}

func expectCode(t *testing.T, err error, code pkgerrors.Code) *pkgerrors.Error {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != code {
		t.Fatalf("expected %s error, got %v", code, err)
	}
	return typed
}

func TestServiceLoginSuccess(t *testing.T) {
	clock := newClock()
	admin := newAdmin(t, "studio")
	admin.FailedAttempts = 3
	repo := newMemoryAdmins(admin)
	svc, sessions := buildTestService(t, repo, clock)

	resp, err := svc.Login(context.Background(), LoginRequest{Identifier: "STUDIO@folio.test", Password: testPassword})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	claims, err := pkgAuth.ParseAccessToken(testJWTConfig, resp.AccessToken)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.AdminID != admin.ID || claims.Role != enums.AdminRoleAdmin {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if resp.TokenType != "Bearer" {
		t.Fatalf("unexpected token type %q", resp.TokenType)
	}
	if !resp.ExpiresAt.Equal(clock.now.Add(time.Hour)) {
		t.Fatalf("unexpected expiry %s", resp.ExpiresAt)
	}
	if len(sessions.registered) != 1 || sessions.registered[0].accessID != claims.ID || sessions.registered[0].ttl != time.Hour {
		t.Fatalf("expected session registered for jti %s, got %+v", claims.ID, sessions.registered)
	}

	stored := repo.get(admin.ID)
	if stored.FailedAttempts != 0 || stored.LockUntil != nil {
		t.Fatalf("success must reset guard state, got %d/%v", stored.FailedAttempts, stored.LockUntil)
	}
	if stored.LastLoginAt == nil || !stored.LastLoginAt.Equal(clock.now) {
		t.Fatalf("expected last login recorded")
	}
	if resp.Admin == nil || resp.Admin.FailedAttempts != 0 {
		t.Fatalf("unexpected admin dto %+v", resp.Admin)
	}
}

func TestServiceLoginValidation(t *testing.T) {
	svc, _ := buildTestService(t, newMemoryAdmins(), newClock())
	_, err := svc.Login(context.Background(), LoginRequest{Identifier: "  ", Password: "x"})
	expectCode(t, err, pkgerrors.CodeValidation)
	_, err = svc.Login(context.Background(), LoginRequest{Identifier: "studio"})
	expectCode(t, err, pkgerrors.CodeValidation)
}

func TestServiceLoginUnknownAccount(t *testing.T) {
	svc, _ := buildTestService(t, newMemoryAdmins(), newClock())
	_, err := svc.Login(context.Background(), LoginRequest{Identifier: "ghost", Password: testPassword})
	typed := expectCode(t, err, pkgerrors.CodeInvalidCredentials)
	if typed.Message() != "invalid credentials" {
		t.Fatalf("unexpected message %q", typed.Message())
	}
}

func TestServiceLoginDisabledAccount(t *testing.T) {
	admin := newAdmin(t, "retired")
	admin.IsActive = false
	repo := newMemoryAdmins(admin)
	svc, sessions := buildTestService(t, repo, newClock())

	_, err := svc.Login(context.Background(), LoginRequest{Identifier: "retired", Password: "wrong-password"})
	expectCode(t, err, pkgerrors.CodeAccountDisabled)
	if got := repo.get(admin.ID).FailedAttempts; got != 0 {
		t.Fatalf("disabled accounts must not count failures, got %d", got)
	}
	if len(sessions.registered) != 0 {
		t.Fatalf("no session expected")
	}
}

func TestServiceFiveFailuresLockAndSixthIsRejected(t *testing.T) {
	clock := newClock()
	admin := newAdmin(t, "target")
	repo := newMemoryAdmins(admin)
	svc, _ := buildTestService(t, repo, clock)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		_, err := svc.Login(ctx, LoginRequest{Identifier: "target", Password: "nope"})
		expectCode(t, err, pkgerrors.CodeInvalidCredentials)
		clock.Advance(time.Second)
	}

	stored := repo.get(admin.ID)
	if stored.LockUntil == nil {
		t.Fatalf("expected account locked after five failures")
	}
	if stored.FailedAttempts != 4 {
		t.Fatalf("locking failure keeps pre-lock counter, got %d", stored.FailedAttempts)
	}

	_, err := svc.Login(ctx, LoginRequest{Identifier: "target", Password: "nope"})
	expectCode(t, err, pkgerrors.CodeAccountLocked)
	after := repo.get(admin.ID)
	if after.FailedAttempts != 4 || !after.LockUntil.Equal(*stored.LockUntil) {
		t.Fatalf("locked attempt must not touch guard state, got %d/%v", after.FailedAttempts, after.LockUntil)
	}
}

func TestServiceSuccessResetsAfterFailures(t *testing.T) {
	clock := newClock()
	admin := newAdmin(t, "forgetful")
	repo := newMemoryAdmins(admin)
	svc, _ := buildTestService(t, repo, clock)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, _ = svc.Login(ctx, LoginRequest{Identifier: "forgetful", Password: "nope"})
	}
	if got := repo.get(admin.ID).FailedAttempts; got != 4 {
		t.Fatalf("expected 4 failures, got %d", got)
	}
	if _, err := svc.Login(ctx, LoginRequest{Identifier: "forgetful", Password: testPassword}); err != nil {
		t.Fatalf("login: %v", err)
	}
	stored := repo.get(admin.ID)
	if stored.FailedAttempts != 0 || stored.LockUntil != nil {
		t.Fatalf("expected reset guard state, got %d/%v", stored.FailedAttempts, stored.LockUntil)
	}
}

func TestServiceFailureAfterExpiryRestartsCount(t *testing.T) {
	clock := newClock()
	admin := newAdmin(t, "returning")
	expired := clock.now.Add(-time.Minute)
	admin.FailedAttempts = 4
	admin.LockUntil = &expired
	repo := newMemoryAdmins(admin)
	svc, _ := buildTestService(t, repo, clock)

	_, err := svc.Login(context.Background(), LoginRequest{Identifier: "returning", Password: "nope"})
	expectCode(t, err, pkgerrors.CodeInvalidCredentials)

	stored := repo.get(admin.ID)
	if stored.FailedAttempts != 1 || stored.LockUntil != nil {
		t.Fatalf("expected exactly one recorded failure, got %d/%v", stored.FailedAttempts, stored.LockUntil)
	}
}

func TestServiceScenarioLockThenCorrectPassword(t *testing.T) {
	clock := newClock()
	admin := newAdmin(t, "admin_x")
	admin.FailedAttempts = 4
	repo := newMemoryAdmins(admin)
	svc, sessions := buildTestService(t, repo, clock)
	ctx := context.Background()

	_, err := svc.Login(ctx, LoginRequest{Identifier: "admin_x", Password: "wrong"})
	expectCode(t, err, pkgerrors.CodeInvalidCredentials)
	locked := repo.get(admin.ID)
	if locked.LockUntil == nil || !locked.LockUntil.Equal(clock.now.Add(2*time.Hour)) {
		t.Fatalf("expected a two hour lock, got %v", locked.LockUntil)
	}

	clock.Advance(time.Minute)
	_, err = svc.Login(ctx, LoginRequest{Identifier: "admin_x", Password: testPassword})
	typed := expectCode(t, err, pkgerrors.CodeAccountLocked)
	if typed.Message() != "account locked, try again in 119 minute(s)" {
		t.Fatalf("unexpected locked message %q", typed.Message())
	}

	after := repo.get(admin.ID)
	if after.FailedAttempts != 4 {
		t.Fatalf("counter must stay at 4, got %d", after.FailedAttempts)
	}
	if after.LockUntil == nil || !after.LockUntil.Equal(*locked.LockUntil) {
		t.Fatalf("lock must be unchanged")
	}
	if len(sessions.registered) != 0 {
		t.Fatalf("locked login must not create a session")
	}
}

func TestServiceFailureRetriesOnVersionConflict(t *testing.T) {
	admin := newAdmin(t, "contended")
	repo := newMemoryAdmins(admin)
	repo.conflicts = 2
	svc, _ := buildTestService(t, repo, newClock())

	_, err := svc.Login(context.Background(), LoginRequest{Identifier: "contended", Password: "nope"})
	expectCode(t, err, pkgerrors.CodeInvalidCredentials)
	if got := repo.get(admin.ID).FailedAttempts; got != 1 {
		t.Fatalf("expected the failure recorded once after retries, got %d", got)
	}
	if repo.swaps != 3 {
		t.Fatalf("expected 3 swap attempts, got %d", repo.swaps)
	}
}

func TestServiceGuardPersistenceFailureNeverFailsOpen(t *testing.T) {
	admin := newAdmin(t, "fragile")
	repo := newMemoryAdmins(admin)
	repo.swapErr = errors.New("db down")
	svc, sessions := buildTestService(t, repo, newClock())

	_, err := svc.Login(context.Background(), LoginRequest{Identifier: "fragile", Password: testPassword})
	expectCode(t, err, pkgerrors.CodeInternal)
	if len(sessions.registered) != 0 {
		t.Fatalf("no session may be issued when guard state cannot be persisted")
	}

	repo.conflicts = maxGuardRetries
	repo.swapErr = nil
	_, err = svc.Login(context.Background(), LoginRequest{Identifier: "fragile", Password: "nope"})
	expectCode(t, err, pkgerrors.CodeInternal)
}

func TestServiceLoginRehashesWeakHash(t *testing.T) {
	admin := newAdmin(t, "legacy")
	repo := newMemoryAdmins(admin)
	sessions := &stubSessionManager{}
	svc, err := NewService(ServiceParams{
		AdminRepo:      repo,
		SessionManager: sessions,
		JWTConfig:      testJWTConfig,
		PasswordConfig: config.PasswordConfig{ArgonTime: 2},
		Clock:          newClock().Now,
	})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}

	if _, err := svc.Login(context.Background(), LoginRequest{Identifier: "legacy", Password: testPassword}); err != nil {
		t.Fatalf("login: %v", err)
	}
	stored := repo.get(admin.ID)
	if stored.PasswordHash == admin.PasswordHash || !strings.Contains(stored.PasswordHash, "t=2") {
		t.Fatalf("expected hash upgraded, got %s", stored.PasswordHash)
	}
}

func TestServiceMeAndLogout(t *testing.T) {
	admin := newAdmin(t, "viewer")
	repo := newMemoryAdmins(admin)
	svc, sessions := buildTestService(t, repo, newClock())
	ctx := context.Background()

	dto, err := svc.Me(ctx, admin.ID)
	if err != nil {
		t.Fatalf("me: %v", err)
	}
	if dto.Username != "viewer" {
		t.Fatalf("unexpected dto %+v", dto)
	}
	_, err = svc.Me(ctx, uuid.New())
	expectCode(t, err, pkgerrors.CodeUnauthorized)

	if err := svc.Logout(ctx, admin.ID, "jti-1"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if len(sessions.revoked) != 1 || sessions.revoked[0] != "jti-1" {
		t.Fatalf("expected jti revoked, got %v", sessions.revoked)
	}
	err = svc.Logout(ctx, admin.ID, "")
	expectCode(t, err, pkgerrors.CodeUnauthorized)
}

func TestServiceChangePassword(t *testing.T) {
	admin := newAdmin(t, "rotator")
	repo := newMemoryAdmins(admin)
	svc, _ := buildTestService(t, repo, newClock())
	ctx := context.Background()

	err := svc.ChangePassword(ctx, admin.ID, ChangePasswordRequest{CurrentPassword: "wrong", NewPassword: "another-pass-8"})
	expectCode(t, err, pkgerrors.CodeValidation)

	err = svc.ChangePassword(ctx, admin.ID, ChangePasswordRequest{CurrentPassword: testPassword, NewPassword: "weakweakweak"})
	expectCode(t, err, pkgerrors.CodeValidation)

	err = svc.ChangePassword(ctx, admin.ID, ChangePasswordRequest{CurrentPassword: testPassword, NewPassword: testPassword})
	expectCode(t, err, pkgerrors.CodeValidation)

	if err := svc.ChangePassword(ctx, admin.ID, ChangePasswordRequest{CurrentPassword: testPassword, NewPassword: "another-pass-8"}); err != nil {
		t.Fatalf("change password: %v", err)
	}
	ok, err := security.VerifyPassword("another-pass-8", repo.get(admin.ID).PasswordHash)
	if err != nil || !ok {
		t.Fatalf("expected new password stored, ok=%v err=%v", ok, err)
	}
}

// memoryAdmins is an in-memory adminRepository with guard_version semantics.
type memoryAdmins struct {
	mu        sync.Mutex
	byID      map[uuid.UUID]*models.Admin
	conflicts int
	swapErr   error
	swaps     int
}

func newMemoryAdmins(list ...*models.Admin) *memoryAdmins {
	m := &memoryAdmins{byID: map[uuid.UUID]*models.Admin{}}
	for _, a := range list {
		cp := *a
		m.byID[a.ID] = &cp
	}
	return m
}

func (m *memoryAdmins) get(id uuid.UUID) models.Admin {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.byID[id]
}

func (m *memoryAdmins) FindByIdentifier(_ context.Context, identifier string) (*models.Admin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value := strings.ToLower(strings.TrimSpace(identifier))
	for _, a := range m.byID {
		if strings.ToLower(a.Username) == value || strings.ToLower(a.Email) == value {
			cp := *a
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memoryAdmins) FindByID(_ context.Context, id uuid.UUID) (*models.Admin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memoryAdmins) SwapGuard(_ context.Context, id uuid.UUID, expectedVersion int64, upd admins.GuardUpdate) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.swaps++
	if m.swapErr != nil {
		return false, m.swapErr
	}
	a := m.byID[id]
	if m.conflicts > 0 {
		// simulate another writer bumping the version first
		m.conflicts--
		a.GuardVersion++
		return false, nil
	}
	if a.GuardVersion != expectedVersion {
		return false, nil
	}
	a.FailedAttempts = upd.FailedAttempts
	a.LockUntil = upd.LockUntil
	if upd.LastLoginAt != nil {
		at := *upd.LastLoginAt
		a.LastLoginAt = &at
	}
	a.GuardVersion++
	return true, nil
}

func (m *memoryAdmins) UpdatePasswordHash(_ context.Context, id uuid.UUID, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[id].PasswordHash = hash
	return nil
}

type registeredSession struct {
	adminID  uuid.UUID
	accessID string
	ttl      time.Duration
}

type stubSessionManager struct {
	registered []registeredSession
	revoked    []string
}

func (s *stubSessionManager) Register(_ context.Context, adminID uuid.UUID, accessID string, ttl time.Duration) error {
	s.registered = append(s.registered, registeredSession{adminID: adminID, accessID: accessID, ttl: ttl})
	return nil
}

func (s *stubSessionManager) Revoke(_ context.Context, _ uuid.UUID, accessID string) error {
	s.revoked = append(s.revoked, accessID)
	return nil
}
