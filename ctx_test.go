package auth_test

import (
	"context"
	"testing"

	auth "github.com/askgear/go-auth"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestUserContextRoundTrip(t *testing.T) {
	user := &auth.User{
		ID:    uuid.New(),
		Email: "ctx@example.com",
		Roles: []auth.RoleCode{auth.RoleCustomer},
	}

	ctx := auth.WithContext(context.Background(), user)

	got, ok := auth.FromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, "ctx@example.com", got.Email)
}

func TestFromContextMissing(t *testing.T) {
	got, ok := auth.FromContext(context.Background())
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestSessionContextRoundTrip(t *testing.T) {
	session := &auth.SessionObject{
		UserID:    uuid.NewString(),
		SessionID: uuid.NewString(),
		Email:     "ctx@example.com",
		Roles:     []auth.RoleCode{auth.RoleSupport},
	}

	ctx := auth.WithSessionContext(context.Background(), session)

	got, ok := auth.SessionContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, session.SessionID, got.SessionID)
}

func TestHasRoleContext(t *testing.T) {
	session := &auth.SessionObject{
		UserID: uuid.NewString(),
		Roles:  []auth.RoleCode{auth.RoleSupport},
	}

	ctx := auth.WithSessionContext(context.Background(), session)

	assert.True(t, auth.HasRoleContext(ctx, auth.RoleSupport))
	assert.False(t, auth.HasRoleContext(ctx, auth.RoleAdmin))
	assert.False(t, auth.HasRoleContext(context.Background(), auth.RoleSupport))
}
