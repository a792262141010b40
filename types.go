package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/goliatone/go-router"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Error(format string, args ...any)
}

// Authenticator is the login/refresh/logout orchestrator contract
type Authenticator interface {
	Login(ctx context.Context, input LoginInput) (*LoginResult, error)
	Refresh(ctx context.Context, input RefreshInput) (*RefreshResult, error)
	Logout(ctx context.Context, sessionID uuid.UUID) error
	SessionFromToken(token string) (*SessionObject, error)
}

// PasswordHasher hashes and verifies passwords. Verify reports false on
// mismatch and on malformed hashes, never an error, so callers cannot
// distinguish the two.
type PasswordHasher interface {
	Hash(ctx context.Context, password string) (string, error)
	Verify(ctx context.Context, password, hash string) bool
}

// TokenService signs and validates the compact tokens we put on the wire
type TokenService interface {
	IssueAccessToken(user *User, sessionID uuid.UUID, ttl time.Duration) (string, *JWTClaims, error)
	IssueRefreshToken(accountID, sessionID, familyID, jti uuid.UUID, ttl time.Duration) (string, *JWTClaims, error)
	SignClaims(claims *JWTClaims) (string, error)
	Validate(tokenString, wantType string) (*JWTClaims, error)
}

// LoginPayload is the shape HTTP login handlers hand to the authenticator
type LoginPayload interface {
	GetIdentifier() string
	GetPassword() string
}

// HTTPAuthenticator adapts the orchestrator to the cookie/bearer transport
type HTTPAuthenticator interface {
	Login(c router.Context, payload LoginPayload) (*LoginResult, error)
	Refresh(c router.Context, fallbackToken string) (*RefreshResult, error)
	Logout(c router.Context) error
	TokenFromContext(c router.Context) string
	ProtectedRoute(optional bool) router.MiddlewareFunc
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetSigningMethod() string
	GetContextKey() string
	GetIssuer() string
	GetAudience() []string
	GetAccessTokenTTL() time.Duration
	GetRefreshTokenTTL() time.Duration
	GetMaxLoginAttempts() int
	GetLockoutWindow() time.Duration
	GetLockoutDuration() time.Duration
	GetRefreshTokenPepper() string
	GetCookieConfig() CookieConfig
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
