package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/magisurprise/backend/pkg/enums"
)

// AccessTokenPayload captures the identity asserted by a token.
type AccessTokenPayload struct {
	UserID    uuid.UUID
	Role      enums.UserRole
	NegocioID *uuid.UUID
}

// AccessTokenClaims is the token shape issued by the identity provider.
// The subject carries the user id.
type AccessTokenClaims struct {
	Role      enums.UserRole `json:"role"`
	NegocioID *uuid.UUID     `json:"negocio_id,omitempty"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim.
func (c *AccessTokenClaims) UserID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}
