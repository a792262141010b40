package auth

import (
	"time"

	"github.com/google/uuid"
)

// SessionObject is the request scoped view of a validated access token.
// Middleware builds one per request from the claims; handlers read it
// through the route context instead of re-parsing the token.
type SessionObject struct {
	UserID         string     `json:"user_id,omitempty"`
	SessionID      string     `json:"session_id,omitempty"`
	Email          string     `json:"email,omitempty"`
	Roles          []RoleCode `json:"roles,omitempty"`
	Audience       []string   `json:"audience,omitempty"`
	Issuer         string     `json:"issuer,omitempty"`
	IssuedAt       *time.Time `json:"issued_at,omitempty"`
	ExpirationDate *time.Time `json:"expiration_date,omitempty"`
}

// SessionFromClaims builds a SessionObject from validated access claims
func SessionFromClaims(claims *JWTClaims) (*SessionObject, error) {
	if claims == nil {
		return nil, ErrUnableToDecodeSession
	}

	session := &SessionObject{
		UserID:    claims.UserID(),
		SessionID: claims.SessionID,
		Email:     claims.Email,
		Roles:     claims.Roles,
		Audience:  claims.RegisteredClaims.Audience,
		Issuer:    claims.RegisteredClaims.Issuer,
	}

	if claims.RegisteredClaims.IssuedAt != nil {
		issuedAt := claims.RegisteredClaims.IssuedAt.Time
		session.IssuedAt = &issuedAt
	}

	if claims.RegisteredClaims.ExpiresAt != nil {
		expires := claims.RegisteredClaims.ExpiresAt.Time
		session.ExpirationDate = &expires
	}

	return session, nil
}

func (s *SessionObject) GetUserID() string {
	return s.UserID
}

func (s *SessionObject) GetUserUUID() (uuid.UUID, error) {
	return uuid.Parse(s.UserID)
}

func (s *SessionObject) GetSessionID() string {
	return s.SessionID
}

func (s *SessionObject) GetSessionUUID() (uuid.UUID, error) {
	return uuid.Parse(s.SessionID)
}

func (s *SessionObject) GetEmail() string {
	return s.Email
}

func (s *SessionObject) GetRoles() []RoleCode {
	return s.Roles
}

func (s *SessionObject) GetAudience() []string {
	return s.Audience
}

func (s *SessionObject) GetIssuer() string {
	return s.Issuer
}

func (s *SessionObject) GetIssuedAt() *time.Time {
	return s.IssuedAt
}

// HasRole checks if the session carries a specific role
func (s *SessionObject) HasRole(role RoleCode) bool {
	return RolesInclude(s.Roles, role)
}

// IsAtLeast checks if any session role meets the minimum required role
func (s *SessionObject) IsAtLeast(minRole RoleCode) bool {
	for _, role := range s.Roles {
		if RoleIsAtLeast(role, minRole) {
			return true
		}
	}
	return false
}

// Expired reports whether the session view is past its expiration
func (s *SessionObject) Expired(now time.Time) bool {
	if s.ExpirationDate == nil {
		return false
	}
	return now.After(*s.ExpirationDate)
}
