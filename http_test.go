package auth_test

import (
	"context"
	"testing"

	auth "github.com/askgear/go-auth"
	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newHTTPFixture(t *testing.T) (*authFixture, *auth.RouteAuthenticator) {
	t.Helper()

	f := newAuthFixture(t)
	ra, err := auth.NewHTTPAuthenticator(f.auther, newTestConfig())
	require.NoError(t, err)

	return f, ra
}

func TestTokenFromContextCookieFirst(t *testing.T) {
	_, ra := newHTTPFixture(t)

	ctx := router.NewMockContext()
	ctx.CookiesM["access_token"] = "cookie-token"

	assert.Equal(t, "cookie-token", ra.TokenFromContext(ctx))
}

func TestTokenFromContextBearerFallback(t *testing.T) {
	_, ra := newHTTPFixture(t)

	ctx := router.NewMockContext()
	ctx.CookiesM["access_token"] = ""
	ctx.On("GetString", "Authorization", "").Return("Bearer header-token")

	assert.Equal(t, "header-token", ra.TokenFromContext(ctx))
}

func TestTokenFromContextRejectsBadScheme(t *testing.T) {
	_, ra := newHTTPFixture(t)

	for _, header := range []string{"", "Basic abc123", "Bearer", "header-token"} {
		ctx := router.NewMockContext()
		ctx.CookiesM["access_token"] = ""
		ctx.On("GetString", "Authorization", "").Return(header)

		assert.Empty(t, ra.TokenFromContext(ctx), "header %q", header)
	}
}

func TestProtectedRouteStoresSession(t *testing.T) {
	f, ra := newHTTPFixture(t)
	registerTestUser(t, f.repo, "ada@example.com", "correct-horse-battery")

	login, err := f.login(t, "ada@example.com", "correct-horse-battery")
	require.NoError(t, err)

	ctx := router.NewMockContext()
	ctx.CookiesM["access_token"] = login.AccessToken
	ctx.On("Locals", "user", mock.Anything).Return(nil)

	handlerCalled := false
	handler := ra.ProtectedRoute(false)(func(c router.Context) error {
		handlerCalled = true
		session, ok := auth.SessionFromRequestContext(c, "user")
		_ = session
		_ = ok
		return nil
	})

	require.NoError(t, handler(ctx))
	assert.True(t, handlerCalled)
	ctx.AssertCalled(t, "Locals", "user", mock.AnythingOfType("*auth.SessionObject"))
}

func TestProtectedRouteRejectsMissingToken(t *testing.T) {
	_, ra := newHTTPFixture(t)

	var captured error
	ra.ErrorHandler = func(c router.Context, err error) error {
		captured = err
		return nil
	}

	ctx := router.NewMockContext()
	ctx.CookiesM["access_token"] = ""
	ctx.On("GetString", "Authorization", "").Return("")

	handlerCalled := false
	handler := ra.ProtectedRoute(false)(func(c router.Context) error {
		handlerCalled = true
		return nil
	})

	require.NoError(t, handler(ctx))
	assert.False(t, handlerCalled)
	require.Error(t, captured)
}

func TestProtectedRouteRejectsGarbageToken(t *testing.T) {
	_, ra := newHTTPFixture(t)

	var captured error
	ra.ErrorHandler = func(c router.Context, err error) error {
		captured = err
		return nil
	}

	ctx := router.NewMockContext()
	ctx.CookiesM["access_token"] = "not-a-jwt"

	handler := ra.ProtectedRoute(false)(func(c router.Context) error {
		t.Fatal("handler must not run")
		return nil
	})

	require.NoError(t, handler(ctx))
	require.Error(t, captured)
	assert.True(t, auth.IsMalformedError(captured))
}

func TestProtectedRouteOptional(t *testing.T) {
	_, ra := newHTTPFixture(t)

	ctx := router.NewMockContext()
	ctx.CookiesM["access_token"] = ""
	ctx.On("GetString", "Authorization", "").Return("")

	handlerCalled := false
	handler := ra.ProtectedRoute(true)(func(c router.Context) error {
		handlerCalled = true
		return nil
	})

	require.NoError(t, handler(ctx))
	assert.True(t, handlerCalled, "optional auth lets anonymous requests through")
}

func TestRequireRole(t *testing.T) {
	_, ra := newHTTPFixture(t)

	var captured error
	ra.ErrorHandler = func(c router.Context, err error) error {
		captured = err
		return nil
	}

	session := &auth.SessionObject{Roles: []string{auth.RoleSupport}}

	t.Run("sufficient role", func(t *testing.T) {
		captured = nil
		ctx := router.NewMockContext()
		ctx.LocalsMock["user"] = session

		handlerCalled := false
		handler := ra.RequireRole(auth.RoleCustomer)(func(c router.Context) error {
			handlerCalled = true
			return nil
		})

		require.NoError(t, handler(ctx))
		assert.True(t, handlerCalled)
		assert.NoError(t, captured)
	})

	t.Run("insufficient role", func(t *testing.T) {
		captured = nil
		ctx := router.NewMockContext()
		ctx.LocalsMock["user"] = session

		handler := ra.RequireRole(auth.RoleAdmin)(func(c router.Context) error {
			t.Fatal("handler must not run")
			return nil
		})

		require.NoError(t, handler(ctx))
		require.Error(t, captured)
	})

	t.Run("no session", func(t *testing.T) {
		captured = nil
		ctx := router.NewMockContext()
		ctx.LocalsMock["user"] = nil

		handler := ra.RequireRole(auth.RoleCustomer)(func(c router.Context) error {
			t.Fatal("handler must not run")
			return nil
		})

		require.NoError(t, handler(ctx))
		require.Error(t, captured)
	})
}

func TestHTTPLoginSetsCookies(t *testing.T) {
	f, ra := newHTTPFixture(t)
	registerTestUser(t, f.repo, "ada@example.com", "correct-horse-battery")

	var cookies []*router.Cookie
	ctx := router.NewMockContext()
	ctx.On("Context").Return(context.Background())
	ctx.On("IP").Return("127.0.0.1")
	ctx.On("GetString", "User-Agent", "").Return("test-agent")
	ctx.On("Cookie", mock.Anything).Run(func(args mock.Arguments) {
		cookies = append(cookies, args.Get(0).(*router.Cookie))
	}).Return()

	result, err := ra.Login(ctx, auth.LoginRequest{
		Email:    "ada@example.com",
		Password: "correct-horse-battery",
	})
	require.NoError(t, err)

	require.Len(t, cookies, 2)
	byName := map[string]*router.Cookie{}
	for _, c := range cookies {
		byName[c.Name] = c
	}

	access, ok := byName["access_token"]
	require.True(t, ok)
	assert.Equal(t, result.AccessToken, access.Value)
	assert.True(t, access.HTTPOnly)
	assert.True(t, access.Secure)
	assert.Equal(t, "Lax", access.SameSite)

	refresh, ok := byName["refresh_token"]
	require.True(t, ok)
	assert.Equal(t, result.RefreshToken, refresh.Value)
	assert.True(t, refresh.Expires.After(access.Expires), "refresh cookie outlives the access cookie")
}

func TestHTTPRefreshPrefersCookie(t *testing.T) {
	f, ra := newHTTPFixture(t)
	registerTestUser(t, f.repo, "ada@example.com", "correct-horse-battery")

	login, err := f.login(t, "ada@example.com", "correct-horse-battery")
	require.NoError(t, err)

	ctx := router.NewMockContext()
	ctx.On("Context").Return(context.Background())
	ctx.On("IP").Return("127.0.0.1")
	ctx.On("GetString", "User-Agent", "").Return("test-agent")
	ctx.CookiesM["refresh_token"] = login.RefreshToken
	ctx.On("Cookie", mock.Anything).Return()

	result, err := ra.Refresh(ctx, "this-fallback-is-ignored")
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, result.RefreshToken)
}

func TestHTTPRefreshFallbackToken(t *testing.T) {
	f, ra := newHTTPFixture(t)
	registerTestUser(t, f.repo, "ada@example.com", "correct-horse-battery")

	login, err := f.login(t, "ada@example.com", "correct-horse-battery")
	require.NoError(t, err)

	ctx := router.NewMockContext()
	ctx.On("Context").Return(context.Background())
	ctx.On("IP").Return("127.0.0.1")
	ctx.On("GetString", "User-Agent", "").Return("test-agent")
	ctx.CookiesM["refresh_token"] = ""
	ctx.On("Cookie", mock.Anything).Return()

	result, err := ra.Refresh(ctx, login.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, result.AccessToken)
}

func TestHTTPRefreshWithoutToken(t *testing.T) {
	_, ra := newHTTPFixture(t)

	ctx := router.NewMockContext()
	ctx.CookiesM["refresh_token"] = ""

	_, err := ra.Refresh(ctx, "")
	require.Error(t, err)
}

func TestHTTPLogoutClearsCookies(t *testing.T) {
	f, ra := newHTTPFixture(t)
	registerTestUser(t, f.repo, "ada@example.com", "correct-horse-battery")

	login, err := f.login(t, "ada@example.com", "correct-horse-battery")
	require.NoError(t, err)

	var cookies []*router.Cookie
	ctx := router.NewMockContext()
	ctx.On("Context").Return(context.Background())
	ctx.CookiesM["access_token"] = login.AccessToken
	ctx.On("Cookie", mock.Anything).Run(func(args mock.Arguments) {
		cookies = append(cookies, args.Get(0).(*router.Cookie))
	}).Return()

	require.NoError(t, ra.Logout(ctx))

	require.Len(t, cookies, 2)
	for _, c := range cookies {
		assert.Empty(t, c.Value)
	}

	session, err := f.repo.Sessions().GetByID(context.Background(), login.Session.ID)
	require.NoError(t, err)
	assert.True(t, session.Revoked())
}

func TestHTTPLogoutWithoutToken(t *testing.T) {
	_, ra := newHTTPFixture(t)

	ctx := router.NewMockContext()
	ctx.CookiesM["access_token"] = ""
	ctx.On("GetString", "Authorization", "").Return("")
	ctx.On("Cookie", mock.Anything).Return()

	require.NoError(t, ra.Logout(ctx))
}
