package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token type discriminators. A refresh token can never be replayed as an
// access token even though both are signed with the same key material.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// JWTClaims is the claim set carried by both token kinds. Access tokens
// fill Roles and Email; refresh tokens fill FamilyID and RegisteredClaims.ID
// (the jti that keys the stored record).
type JWTClaims struct {
	jwt.RegisteredClaims
	TokenType string     `json:"type,omitempty"`
	SessionID string     `json:"sid,omitempty"`
	FamilyID  string     `json:"fam,omitempty"`
	Roles     []RoleCode `json:"roles,omitempty"`
	Email     string     `json:"email,omitempty"`
}

// UserID returns the subject account id
func (c *JWTClaims) UserID() string {
	return c.RegisteredClaims.Subject
}

// UserUUID parses the subject as a uuid
func (c *JWTClaims) UserUUID() (uuid.UUID, error) {
	return uuid.Parse(c.RegisteredClaims.Subject)
}

// JTI returns the token's unique id
func (c *JWTClaims) JTI() string {
	return c.RegisteredClaims.ID
}

// SessionUUID parses the sid claim
func (c *JWTClaims) SessionUUID() (uuid.UUID, error) {
	return uuid.Parse(c.SessionID)
}

// FamilyUUID parses the fam claim
func (c *JWTClaims) FamilyUUID() (uuid.UUID, error) {
	return uuid.Parse(c.FamilyID)
}

// IsAccess reports whether this is an access token claim set
func (c *JWTClaims) IsAccess() bool {
	return c.TokenType == TokenTypeAccess
}

// IsRefresh reports whether this is a refresh token claim set
func (c *JWTClaims) IsRefresh() bool {
	return c.TokenType == TokenTypeRefresh
}

// HasRole checks if the claim roles include the given code
func (c *JWTClaims) HasRole(role RoleCode) bool {
	return RolesInclude(c.Roles, role)
}

// IsAtLeast checks if any claimed role meets the minimum required role
func (c *JWTClaims) IsAtLeast(minRole RoleCode) bool {
	for _, role := range c.Roles {
		if RoleIsAtLeast(role, minRole) {
			return true
		}
	}
	return false
}

// Expires returns the expiration time
func (c *JWTClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAtTime returns the issued at time
func (c *JWTClaims) IssuedAtTime() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}
