package admins

import (
	"time"

	"github.com/angelmondragon/folio-backend/pkg/db/models"
	"github.com/angelmondragon/folio-backend/pkg/enums"
	"github.com/google/uuid"
)

// AdminDTO is the transport shape of an account. It never carries the hash.
type AdminDTO struct {
	ID             uuid.UUID       `json:"id"`
	Username       string          `json:"username"`
	Email          string          `json:"email"`
	Role           enums.AdminRole `json:"role"`
	IsActive       bool            `json:"is_active"`
	FailedAttempts int             `json:"failed_attempts"`
	LockUntil      *time.Time      `json:"lock_until,omitempty"`
	LastLoginAt    *time.Time      `json:"last_login_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func FromModel(a *models.Admin) *AdminDTO {
	if a == nil {
		return nil
	}
	return &AdminDTO{
		ID:             a.ID,
		Username:       a.Username,
		Email:          a.Email,
		Role:           a.Role,
		IsActive:       a.IsActive,
		FailedAttempts: a.FailedAttempts,
		LockUntil:      a.LockUntil,
		LastLoginAt:    a.LastLoginAt,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

// CreateAdminInput holds the fields accepted when creating an account.
type CreateAdminInput struct {
	Username string
	Email    string
	Password string
	Role     enums.AdminRole
	IsActive *bool
}

// UpdateAdminInput lists the mutable fields. Nil means unchanged.
type UpdateAdminInput struct {
	Email    *string
	Role     *enums.AdminRole
	IsActive *bool
	Password *string
}

// ListParams configures account listing.
type ListParams struct {
	Search string
	Role   *enums.AdminRole
	Active *bool
	Page   int
	Limit  int
}
