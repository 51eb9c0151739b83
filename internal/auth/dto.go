package auth

import (
	"time"

	"github.com/angelmondragon/folio-backend/internal/admins"
)

// LoginRequest carries the credentials posted to the login endpoint. The
// identifier may be a username or an email address.
type LoginRequest struct {
	Identifier string `json:"identifier" validate:"required,max=254"`
	Password   string `json:"password" validate:"required,max=256"`
}

// LoginResponse contains the bearer token and the authenticated account.
type LoginResponse struct {
	AccessToken string           `json:"access_token"`
	TokenType   string           `json:"token_type"`
	ExpiresAt   time.Time        `json:"expires_at"`
	Admin       *admins.AdminDTO `json:"admin"`
}

// ChangePasswordRequest rotates the caller's own password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required,max=256"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=256"`
}
