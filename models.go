package auth

import (
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the account model. It is owned by the wider user-management
// surface; the auth core only reads it and patches password_hash and
// last_login_at.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash  string     `bun:"password_hash" json:"-"`
	FullName      string     `bun:"full_name" json:"full_name,omitempty"`
	Phone         string     `bun:"phone_number" json:"phone_number,omitempty"`
	IsActive      bool       `bun:"is_active,notnull" json:"is_active,omitempty"`
	Roles         []RoleCode `bun:"roles,type:jsonb" json:"roles,omitempty"`
	LastLoginAt   *time.Time `bun:"last_login_at,nullzero" json:"last_login_at,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// HasRole reports whether the account carries the role code
func (u *User) HasRole(code RoleCode) bool {
	return RolesInclude(u.Roles, code)
}

// AddRole appends a role to the set if not already present
func (u *User) AddRole(code RoleCode) *User {
	if !u.HasRole(code) {
		u.Roles = append(u.Roles, code)
	}
	return u
}

// AuthSession is one logical login. It parents a refresh token family and
// is revoked on logout or on detected token theft.
type AuthSession struct {
	bun.BaseModel `bun:"table:auth_sessions,alias:sess"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	AccountID     uuid.UUID  `bun:"account_id,notnull,type:uuid" json:"account_id,omitempty"`
	IP            string     `bun:"ip" json:"ip,omitempty"`
	UserAgent     string     `bun:"user_agent" json:"user_agent,omitempty"`
	CreatedAt     time.Time  `bun:"created_at,notnull" json:"created_at,omitempty"`
	LastSeenAt    time.Time  `bun:"last_seen_at,notnull" json:"last_seen_at,omitempty"`
	RevokedAt     *time.Time `bun:"revoked_at,nullzero" json:"revoked_at,omitempty"`
}

// Revoked reports whether the session has been closed
func (s *AuthSession) Revoked() bool {
	return s.RevokedAt != nil
}

// RefreshToken mirrors one issued refresh token. Only a keyed hash of the
// raw token is stored. Tokens descended from one another via rotation share
// a family_id; at most one record per family is non-revoked.
type RefreshToken struct {
	bun.BaseModel `bun:"table:refresh_tokens,alias:rt"`
	JTI           uuid.UUID  `bun:"jti,pk,type:uuid" json:"jti,omitempty"`
	FamilyID      uuid.UUID  `bun:"family_id,notnull,type:uuid" json:"family_id,omitempty"`
	SessionID     uuid.UUID  `bun:"session_id,notnull,type:uuid" json:"session_id,omitempty"`
	AccountID     uuid.UUID  `bun:"account_id,notnull,type:uuid" json:"account_id,omitempty"`
	TokenHash     string     `bun:"token_hash,notnull" json:"-"`
	IssuedAt      time.Time  `bun:"issued_at,notnull" json:"issued_at,omitempty"`
	ExpiresAt     time.Time  `bun:"expires_at,notnull" json:"expires_at,omitempty"`
	RevokedAt     *time.Time `bun:"revoked_at,nullzero" json:"revoked_at,omitempty"`
	ReplacedBy    *uuid.UUID `bun:"replaced_by,nullzero,type:uuid" json:"replaced_by,omitempty"`
	IP            string     `bun:"ip" json:"ip,omitempty"`
	UserAgent     string     `bun:"user_agent" json:"user_agent,omitempty"`
}

// Revoked reports whether the record has been consumed or killed
func (t *RefreshToken) Revoked() bool {
	return t.RevokedAt != nil
}

// Expired reports whether the record is past its expiry at the given instant
func (t *RefreshToken) Expired(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}

// LoginAttempt is the append-only audit record behind the lockout window.
// Rows are never updated or deleted.
type LoginAttempt struct {
	bun.BaseModel  `bun:"table:login_attempts,alias:la"`
	ID             uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	EmailCanonical string    `bun:"email_canonical,notnull" json:"email_canonical,omitempty"`
	IP             string    `bun:"ip,notnull" json:"ip,omitempty"`
	Success        bool      `bun:"success,notnull" json:"success,omitempty"`
	AttemptedAt    time.Time `bun:"attempted_at,notnull" json:"attempted_at,omitempty"`
}

// CanonicalEmail normalizes an email for ledger keys and account lookups
func CanonicalEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func isEmail(email string) bool {
	_, err := mail.ParseAddress(email)
	return err == nil
}

func isUUID(identifier string) bool {
	_, err := uuid.Parse(identifier)
	return err == nil
}
