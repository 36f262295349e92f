package auth

import (
	"slices"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/housebook/housebook-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID uuid.UUID
	Roles  []enums.ActorRole
	JTI    string
}

// AccessTokenClaims represents the typed JWT issued to clients. Roles are a
// routing hint only; services re-resolve profiles on every request.
type AccessTokenClaims struct {
	UserID uuid.UUID         `json:"user_id"`
	Roles  []enums.ActorRole `json:"roles"`
	jwt.RegisteredClaims
}

// HasRole reports whether the token carries role.
func (c *AccessTokenClaims) HasRole(role enums.ActorRole) bool {
	if c == nil {
		return false
	}
	return slices.Contains(c.Roles, role)
}
