package auth_test

import (
	"context"
	"testing"

	auth "github.com/askgear/go-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindByEmail(t *testing.T) {
	repo := newTestRepo(t)
	user := registerTestUser(t, repo, "ada@example.com", "correct-horse-battery")

	got, err := repo.Users().FindByEmail(context.Background(), "ada@example.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, user.ID, got.ID)

	// lookup is case and whitespace insensitive
	got, err = repo.Users().FindByEmail(context.Background(), "  ADA@Example.com ")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, user.ID, got.ID)
}

func TestFindByEmailAbsent(t *testing.T) {
	repo := newTestRepo(t)

	got, err := repo.Users().FindByEmail(context.Background(), "nobody@example.com")
	require.NoError(t, err, "an unknown email is not an error")
	assert.Nil(t, got)

	got, err = repo.Users().FindByEmail(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGetByIdentifier(t *testing.T) {
	repo := newTestRepo(t)
	user := registerTestUser(t, repo, "ada@example.com", "correct-horse-battery")

	byID, err := repo.Users().GetByIdentifier(context.Background(), user.ID.String())
	require.NoError(t, err)
	assert.Equal(t, user.ID, byID.ID)

	byEmail, err := repo.Users().GetByIdentifier(context.Background(), "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	_, err = repo.Users().GetByIdentifier(context.Background(), "nobody@example.com")
	require.Error(t, err)
}

func TestAddRole(t *testing.T) {
	repo := newTestRepo(t)
	user := registerTestUser(t, repo, "ada@example.com", "correct-horse-battery")

	updated, err := repo.Users().AddRole(context.Background(), user.ID, auth.RoleSupport)
	require.NoError(t, err)
	assert.True(t, updated.HasRole(auth.RoleSupport))
	assert.True(t, updated.HasRole(auth.RoleCustomer), "existing roles survive")

	// adding the same role twice is a no-op
	again, err := repo.Users().AddRole(context.Background(), user.ID, auth.RoleSupport)
	require.NoError(t, err)
	assert.Len(t, again.Roles, 2)

	_, err = repo.Users().AddRole(context.Background(), user.ID, "made-up-role")
	require.Error(t, err)
}

func TestUpdatePasswordHash(t *testing.T) {
	repo := newTestRepo(t)
	user := registerTestUser(t, repo, "ada@example.com", "correct-horse-battery")

	require.NoError(t, repo.Users().UpdatePasswordHash(context.Background(), user.ID, "new-hash-value"))

	fresh, err := repo.Users().GetByID(context.Background(), user.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "new-hash-value", fresh.PasswordHash)

	err = repo.Users().UpdatePasswordHash(context.Background(), mustUUID(t, "2b8e0f5e-0000-0000-0000-000000000000"), "x")
	require.Error(t, err)
}

func TestTrackSuccessfulLogin(t *testing.T) {
	repo := newTestRepo(t)
	user := registerTestUser(t, repo, "ada@example.com", "correct-horse-battery")
	require.Nil(t, user.LastLoginAt)

	require.NoError(t, repo.Users().TrackSuccessfulLogin(context.Background(), user))

	fresh, err := repo.Users().GetByID(context.Background(), user.ID.String())
	require.NoError(t, err)
	assert.NotNil(t, fresh.LastLoginAt)
}
