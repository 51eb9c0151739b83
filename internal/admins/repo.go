package admins

import (
	"context"
	"strings"
	"time"

	"github.com/angelmondragon/folio-backend/pkg/db"
	"github.com/angelmondragon/folio-backend/pkg/db/models"
	"github.com/angelmondragon/folio-backend/pkg/enums"
	"github.com/angelmondragon/folio-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository exposes admin account persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an admins repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GuardUpdate is the lockout state written by SwapGuard. LastLoginAt is only
// written when set.
type GuardUpdate struct {
	FailedAttempts int
	LockUntil      *time.Time
	LastLoginAt    *time.Time
}

// ListFilters narrows List results.
type ListFilters struct {
	Search string
	Role   *enums.AdminRole
	Active *bool
}

// Create inserts a new admin and returns the persisted model.
func (r *Repository) Create(ctx context.Context, admin *models.Admin) (*models.Admin, error) {
	if err := r.db.WithContext(ctx).Create(admin).Error; err != nil {
		return nil, err
	}
	return admin, nil
}

// FindByID loads an admin by UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Admin, error) {
	var admin models.Admin
	if err := r.db.WithContext(ctx).First(&admin, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &admin, nil
}

// FindByIdentifier matches identifier against username or email, ignoring case.
func (r *Repository) FindByIdentifier(ctx context.Context, identifier string) (*models.Admin, error) {
	value := strings.ToLower(strings.TrimSpace(identifier))
	var admin models.Admin
	err := r.db.WithContext(ctx).
		Where("lower(username) = ? OR lower(email) = ?", value, value).
		First(&admin).Error
	if err != nil {
		return nil, err
	}
	return &admin, nil
}

// SwapGuard writes the guard state only if guard_version still equals
// expectedVersion, bumping the version. It reports whether the row changed.
func (r *Repository) SwapGuard(ctx context.Context, id uuid.UUID, expectedVersion int64, upd GuardUpdate) (bool, error) {
	values := map[string]any{
		"failed_attempts": upd.FailedAttempts,
		"lock_until":      upd.LockUntil,
		"guard_version":   gorm.Expr("guard_version + 1"),
	}
	if upd.LastLoginAt != nil {
		values["last_login_at"] = *upd.LastLoginAt
	}
	res := r.db.WithContext(ctx).
		Model(&models.Admin{}).
		Where("id = ? AND guard_version = ?", id, expectedVersion).
		Updates(values)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ResetGuard clears the lockout state unconditionally.
func (r *Repository) ResetGuard(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Admin{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"failed_attempts": 0,
			"lock_until":      nil,
			"guard_version":   gorm.Expr("guard_version + 1"),
		}).Error
}

// UpdatePasswordHash overwrites the stored password hash.
func (r *Repository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	return r.db.WithContext(ctx).
		Model(&models.Admin{}).
		Where("id = ?", id).
		Update("password_hash", hash).Error
}

// UpdateFields applies the provided column values to one admin.
func (r *Repository) UpdateFields(ctx context.Context, id uuid.UUID, values map[string]any) error {
	if len(values) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Admin{}).
		Where("id = ?", id).
		Updates(values).Error
}

// Delete removes an admin row.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Admin{}).Error
}

// List returns one page of admins ordered by username plus the total match count.
func (r *Repository) List(ctx context.Context, filters ListFilters, page pagination.Params) ([]models.Admin, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Admin{})
	if search := strings.ToLower(strings.TrimSpace(filters.Search)); search != "" {
		like := db.Contains(search)
		query = query.Where("lower(username) LIKE ? "+db.LikeEscape+" OR lower(email) LIKE ? "+db.LikeEscape, like, like)
	}
	if filters.Role != nil {
		query = query.Where("role = ?", *filters.Role)
	}
	if filters.Active != nil {
		query = query.Where("is_active = ?", *filters.Active)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page = page.Normalize()
	var rows []models.Admin
	err := query.
		Order("username ASC").
		Limit(page.Limit).
		Offset(page.Offset()).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// Count returns the number of admin accounts.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.Admin{}).Count(&total).Error
	return total, err
}

// CountActiveSuperadmins returns how many enabled superadmin accounts exist.
func (r *Repository) CountActiveSuperadmins(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.Admin{}).
		Where("role = ? AND is_active = ?", enums.AdminRoleSuperadmin, true).
		Count(&total).Error
	return total, err
}

// CountOwnedMedia returns how many media records reference the admin as uploader.
func (r *Repository) CountOwnedMedia(ctx context.Context, id uuid.UUID) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.Media{}).
		Where("uploaded_by = ?", id).
		Count(&total).Error
	return total, err
}
