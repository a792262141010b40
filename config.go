package auth

import (
	"os"
	"strconv"
	"time"
)

// Env variable names the config reader understands
const (
	EnvSigningKey         = "JWT_SECRET"
	EnvSigningMethod      = "JWT_ALG"
	EnvIssuer             = "JWT_ISS"
	EnvAudience           = "JWT_AUD"
	EnvAccessTokenHours   = "ACCESS_TOKEN_EXPIRES_HOURS"
	EnvRefreshTokenDays   = "REFRESH_TOKEN_EXPIRES_DAYS"
	EnvMaxLoginAttempts   = "AUTH_MAX_LOGIN_ATTEMPTS"
	EnvLockoutWindow      = "AUTH_LOCKOUT_WINDOW"
	EnvLockoutDuration    = "AUTH_LOCKOUT_DURATION"
	EnvRefreshTokenPepper = "REFRESH_TOKEN_PEPPER"
	EnvCookieDomain       = "AUTH_COOKIE_DOMAIN"
	EnvCookieSecure       = "AUTH_COOKIE_SECURE"
)

// SimpleConfig is an env backed Config implementation. Library consumers
// with their own config layer implement the Config interface directly;
// this one covers the common case of twelve factor style deployment.
type SimpleConfig struct {
	SigningKey         string
	SigningMethod      string
	ContextKey         string
	Issuer             string
	Audience           []string
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
	MaxLoginAttempts   int
	LockoutWindow      time.Duration
	LockoutDuration    time.Duration
	RefreshTokenPepper string
	Cookies            CookieConfig
}

// NewConfigFromEnv builds a SimpleConfig from environment variables,
// falling back to defaults for anything unset.
func NewConfigFromEnv() *SimpleConfig {
	cfg := &SimpleConfig{
		SigningKey:         os.Getenv(EnvSigningKey),
		SigningMethod:      envString(EnvSigningMethod, "HS256"),
		ContextKey:         "user",
		Issuer:             os.Getenv(EnvIssuer),
		AccessTokenTTL:     time.Duration(envInt(EnvAccessTokenHours, 12)) * time.Hour,
		RefreshTokenTTL:    time.Duration(envInt(EnvRefreshTokenDays, 30)) * 24 * time.Hour,
		MaxLoginAttempts:   envInt(EnvMaxLoginAttempts, DefaultMaxLoginAttempts),
		LockoutWindow:      envDuration(EnvLockoutWindow, DefaultLockoutWindow),
		LockoutDuration:    envDuration(EnvLockoutDuration, DefaultLockoutDuration),
		RefreshTokenPepper: os.Getenv(EnvRefreshTokenPepper),
		Cookies:            DefaultCookieConfig(),
	}

	if aud := os.Getenv(EnvAudience); aud != "" {
		cfg.Audience = []string{aud}
	}
	if domain := os.Getenv(EnvCookieDomain); domain != "" {
		cfg.Cookies.Domain = domain
	}
	if secure, err := strconv.ParseBool(os.Getenv(EnvCookieSecure)); err == nil {
		cfg.Cookies.Secure = secure
	}

	return cfg
}

func (c *SimpleConfig) GetSigningKey() string              { return c.SigningKey }
func (c *SimpleConfig) GetSigningMethod() string           { return c.SigningMethod }
func (c *SimpleConfig) GetContextKey() string              { return c.ContextKey }
func (c *SimpleConfig) GetIssuer() string                  { return c.Issuer }
func (c *SimpleConfig) GetAudience() []string              { return c.Audience }
func (c *SimpleConfig) GetAccessTokenTTL() time.Duration   { return c.AccessTokenTTL }
func (c *SimpleConfig) GetRefreshTokenTTL() time.Duration  { return c.RefreshTokenTTL }
func (c *SimpleConfig) GetMaxLoginAttempts() int           { return c.MaxLoginAttempts }
func (c *SimpleConfig) GetLockoutWindow() time.Duration    { return c.LockoutWindow }
func (c *SimpleConfig) GetLockoutDuration() time.Duration  { return c.LockoutDuration }
func (c *SimpleConfig) GetRefreshTokenPepper() string      { return c.RefreshTokenPepper }
func (c *SimpleConfig) GetCookieConfig() CookieConfig      { return c.Cookies }

var _ Config = (*SimpleConfig)(nil)

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
