package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/folio-backend/pkg/enums"
)

// Admin is a back-office account allowed to manage the portfolio.
type Admin struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Username       string          `gorm:"column:username;not null;uniqueIndex"`
	Email          string          `gorm:"column:email;not null;uniqueIndex"`
	PasswordHash   string          `gorm:"column:password_hash;not null"`
	Role           enums.AdminRole `gorm:"column:role;not null"`
	FailedAttempts int             `gorm:"column:failed_attempts;not null"`
	LockUntil      *time.Time      `gorm:"column:lock_until"`
	GuardVersion   int64           `gorm:"column:guard_version;not null"`
	IsActive       bool            `gorm:"column:is_active;not null"`
	LastLoginAt    *time.Time      `gorm:"column:last_login_at"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (Admin) TableName() string { return "admins" }

// BeforeCreate assigns the primary key on drivers without gen_random_uuid.
func (a *Admin) BeforeCreate(_ *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
