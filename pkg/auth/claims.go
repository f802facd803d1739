package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenClaims is the subset of the storefront session token this service
// needs: who the user is. Everything else is owned by the auth service.
type AccessTokenClaims struct {
	UserID uuid.UUID `json:"user_id"`
	jwt.RegisteredClaims
}

// AccessTokenPayload carries the inputs for minting a token (tests and tooling).
type AccessTokenPayload struct {
	UserID uuid.UUID
	JTI    string
}
