package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/propertyloyalty/points-backend/pkg/enums"
)

// AccessTokenPayload is the caller a token is minted for. JTI defaults to a random uuid.
type AccessTokenPayload struct {
	UserID   uuid.UUID
	Identity enums.Identity
	JTI      string
}

// AccessTokenClaims is the token body shared by mini-program and admin clients.
// One token carries exactly one identity; switching identity means a new token.
type AccessTokenClaims struct {
	UserID   uuid.UUID      `json:"user_id"`
	Identity enums.Identity `json:"identity"`
	jwt.RegisteredClaims
}

var _ jwt.ClaimsValidator = (*AccessTokenClaims)(nil)

// Validate runs after the registered-claim checks during parsing.
func (c *AccessTokenClaims) Validate() error {
	if c.UserID == uuid.Nil {
		return errors.New("token missing user_id")
	}
	if c.Subject != "" && c.Subject != c.UserID.String() {
		return errors.New("token subject does not match user_id")
	}
	if !c.Identity.IsValid() {
		return fmt.Errorf("token carries invalid identity %q", c.Identity)
	}
	return nil
}
