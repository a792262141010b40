package auth

import "context"

var userCtxKey = &contextKey{"user"}
var sessionCtxKey = &contextKey{"session"}

type contextKey struct {
	name string
}

// WithContext sets the User in the given context
func WithContext(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userCtxKey, user)
}

// FromContext finds the user from the context.
func FromContext(ctx context.Context) (*User, bool) {
	raw, ok := ctx.Value(userCtxKey).(*User)
	return raw, ok
}

// WithSessionContext sets the SessionObject in the given context
func WithSessionContext(ctx context.Context, session *SessionObject) context.Context {
	return context.WithValue(ctx, sessionCtxKey, session)
}

// SessionContext extracts the SessionObject from the standard context
func SessionContext(ctx context.Context) (*SessionObject, bool) {
	raw, ok := ctx.Value(sessionCtxKey).(*SessionObject)
	return raw, ok
}

// HasRoleContext checks the session in the context for a role. It is a
// convenience for code running below the HTTP layer that still needs an
// authorization decision.
func HasRoleContext(ctx context.Context, role RoleCode) bool {
	session, ok := SessionContext(ctx)
	if !ok {
		return false
	}
	return session.HasRole(role)
}
