package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/packfinderz-fulfillment/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT. UserID is
// the employee id; BusinessID is the vendor the employee works for.
type AccessTokenPayload struct {
	UserID     uuid.UUID
	BusinessID uuid.UUID
	Role       enums.MemberRole
	JTI        string
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	UserID     uuid.UUID        `json:"user_id"`
	BusinessID uuid.UUID        `json:"business_id"`
	Role       enums.MemberRole `json:"role"`
	jwt.RegisteredClaims
}
