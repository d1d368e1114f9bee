package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/peersenco/storefront-backend/pkg/enums"
)

// AccessTokenPayload is what the auth service knows when minting a token.
// SessionID doubles as the JWT id and the refresh session key.
type AccessTokenPayload struct {
	UserID    uuid.UUID
	Email     string
	Role      enums.UserRole
	SessionID string
}

// AccessTokenClaims is the JWT handed to clients.
type AccessTokenClaims struct {
	UserID uuid.UUID      `json:"user_id"`
	Email  string         `json:"email"`
	Role   enums.UserRole `json:"role"`
	jwt.RegisteredClaims
}

// SessionID returns the jti the token was minted with.
func (c *AccessTokenClaims) SessionID() string {
	return c.ID
}
