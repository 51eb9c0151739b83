package auth

import (
	"github.com/angelmondragon/folio-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	AdminID uuid.UUID
	Role    enums.AdminRole
	// JTI is generated when empty.
	JTI string
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	AdminID uuid.UUID       `json:"admin_id"`
	Role    enums.AdminRole `json:"role"`
	jwt.RegisteredClaims
}
