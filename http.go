package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

// DefaultAuthScheme is the bearer scheme checked on the Authorization header
const DefaultAuthScheme = "Bearer"

// CookieConfig controls how the token cookies are written
type CookieConfig struct {
	AccessName  string
	RefreshName string
	Domain      string
	Path        string
	Secure      bool
	HTTPOnly    bool
	SameSite    string
}

// DefaultCookieConfig returns the production cookie settings
func DefaultCookieConfig() CookieConfig {
	return CookieConfig{
		AccessName:  "access_token",
		RefreshName: "refresh_token",
		Path:        "/",
		Secure:      true,
		HTTPOnly:    true,
		SameSite:    "Lax",
	}
}

// RouteAuthenticator adapts the Authenticator to HTTP routes: it moves
// tokens between cookies and the Authorization header, guards protected
// routes, and translates auth failures into responses.
type RouteAuthenticator struct {
	auth         Authenticator
	cfg          Config
	cookies      CookieConfig
	Logger       Logger
	ErrorHandler func(c router.Context, err error) error
}

// NewHTTPAuthenticator wires a RouteAuthenticator from config
func NewHTTPAuthenticator(auther Authenticator, cfg Config) (*RouteAuthenticator, error) {
	a := &RouteAuthenticator{
		auth:    auther,
		cfg:     cfg,
		cookies: cfg.GetCookieConfig(),
		Logger:  defLogger{},
	}

	a.ErrorHandler = a.defaultErrHandler

	return a, nil
}

// Login authenticates the payload and writes both token cookies
func (a *RouteAuthenticator) Login(c router.Context, payload LoginPayload) (*LoginResult, error) {
	result, err := a.auth.Login(c.Context(), LoginInput{
		Email:     payload.GetIdentifier(),
		Password:  payload.GetPassword(),
		IP:        c.IP(),
		UserAgent: c.GetString("User-Agent", ""),
	})
	if err != nil {
		a.Logger.Error("Login error", "error", err)
		return nil, err
	}

	a.setTokenCookies(c, result.AccessToken, result.RefreshToken)
	return result, nil
}

// Refresh rotates the refresh token and rewrites both cookies. The cookie
// wins when both the cookie and fallbackToken are present.
func (a *RouteAuthenticator) Refresh(c router.Context, fallbackToken string) (*RefreshResult, error) {
	token := c.Cookies(a.cookies.RefreshName)
	if token == "" {
		token = fallbackToken
	}
	if token == "" {
		return nil, ErrTokenMalformed
	}

	result, err := a.auth.Refresh(c.Context(), RefreshInput{
		RefreshToken: token,
		IP:           c.IP(),
		UserAgent:    c.GetString("User-Agent", ""),
	})
	if err != nil {
		a.clearTokenCookies(c)
		return nil, err
	}

	a.setTokenCookies(c, result.AccessToken, result.RefreshToken)
	return result, nil
}

// Logout revokes the current session, if any, and clears both cookies.
// Always succeeds from the client's point of view.
func (a *RouteAuthenticator) Logout(c router.Context) error {
	defer a.clearTokenCookies(c)

	token := a.TokenFromContext(c)
	if token == "" {
		return nil
	}

	session, err := a.auth.SessionFromToken(token)
	if err != nil {
		// expired or garbled token still logs out, cookies are gone
		return nil
	}

	sessionID, err := session.GetSessionUUID()
	if err != nil {
		return nil
	}

	if err := a.auth.Logout(c.Context(), sessionID); err != nil {
		a.Logger.Error("Logout error", "error", err)
		return err
	}

	return nil
}

// TokenFromContext extracts the access token, cookie first then the
// Authorization header.
func (a *RouteAuthenticator) TokenFromContext(c router.Context) string {
	if token := c.Cookies(a.cookies.AccessName); token != "" {
		return token
	}

	header := c.GetString("Authorization", "")
	if header == "" {
		return ""
	}

	scheme := DefaultAuthScheme + " "
	if len(header) > len(scheme) && strings.EqualFold(header[:len(scheme)], scheme) {
		return strings.TrimSpace(header[len(scheme):])
	}

	return ""
}

// ProtectedRoute validates the access token and stores the session view in
// the route context under the configured context key. With optional set,
// requests without a valid token pass through unauthenticated.
func (a *RouteAuthenticator) ProtectedRoute(optional bool) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			token := a.TokenFromContext(c)
			if token == "" {
				if optional {
					return hf(c)
				}
				return a.ErrorHandler(c, errors.New("missing authentication token", errors.CategoryAuth).
					WithCode(errors.CodeUnauthorized))
			}

			session, err := a.auth.SessionFromToken(token)
			if err != nil {
				if optional {
					a.Logger.Info("Optional auth failed, proceeding", "error", err)
					return hf(c)
				}
				return a.ErrorHandler(c, err)
			}

			c.Locals(a.cfg.GetContextKey(), session)
			return hf(c)
		}
	}
}

// SessionFromRequestContext reads the session view the middleware stored
func SessionFromRequestContext(c router.Context, contextKey string) (*SessionObject, bool) {
	session, ok := c.Locals(contextKey).(*SessionObject)
	return session, ok
}

// RequireRole gates a route on a minimum role. Must run after ProtectedRoute.
func (a *RouteAuthenticator) RequireRole(minRole RoleCode) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			session, ok := SessionFromRequestContext(c, a.cfg.GetContextKey())
			if !ok {
				return a.ErrorHandler(c, errors.New("missing authentication token", errors.CategoryAuth).
					WithCode(errors.CodeUnauthorized))
			}
			if !session.IsAtLeast(minRole) {
				return a.ErrorHandler(c, ErrForbidden)
			}
			return hf(c)
		}
	}
}

func (a *RouteAuthenticator) setTokenCookies(c router.Context, accessToken, refreshToken string) {
	now := time.Now()
	a.writeCookie(c, a.cookies.AccessName, accessToken, now.Add(a.cfg.GetAccessTokenTTL()))
	a.writeCookie(c, a.cookies.RefreshName, refreshToken, now.Add(a.cfg.GetRefreshTokenTTL()))
}

func (a *RouteAuthenticator) clearTokenCookies(c router.Context) {
	expired := time.Now().Add(-time.Hour * (24 * 365))
	a.writeCookie(c, a.cookies.AccessName, "", expired)
	a.writeCookie(c, a.cookies.RefreshName, "", expired)
}

func (a *RouteAuthenticator) writeCookie(c router.Context, name, value string, expires time.Time) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    value,
		Expires:  expires,
		Domain:   a.cookies.Domain,
		Path:     a.cookies.Path,
		HTTPOnly: a.cookies.HTTPOnly,
		Secure:   a.cookies.Secure,
		SameSite: a.cookies.SameSite,
	})
}

func (a *RouteAuthenticator) defaultErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryAuth, "Invalid or expired credentials").
			WithCode(errors.CodeUnauthorized).
			WithTextCode(TextCodeInvalidCredentials)
	}

	a.Logger.Info(
		"Authentication error",
		"error", richErr.Message,
		"text_code", richErr.TextCode,
		"path", c.OriginalURL(),
	)

	code := richErr.Code
	if code == 0 {
		code = http.StatusUnauthorized
	}

	return c.JSON(code, map[string]any{
		"error": map[string]any{
			"message":   richErr.Message,
			"text_code": richErr.TextCode,
		},
	})
}

var _ HTTPAuthenticator = (*RouteAuthenticator)(nil)
