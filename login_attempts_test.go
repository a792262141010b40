package auth_test

import (
	"context"
	"testing"
	"time"

	auth "github.com/askgear/go-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordFailures(t *testing.T, store *auth.LoginAttemptStore, email string, times ...time.Time) {
	t.Helper()
	for _, at := range times {
		err := store.Record(context.Background(), &auth.LoginAttempt{
			EmailCanonical: email,
			IP:             "10.0.0.1",
			Success:        false,
			AttemptedAt:    at,
		})
		require.NoError(t, err)
	}
}

func TestLockoutTripsAtThreshold(t *testing.T) {
	store := auth.NewLoginAttemptStore(newTestDB(t),
		auth.WithMaxAttempts(3),
		auth.WithLockoutWindow(15*time.Minute),
		auth.WithLockoutDuration(15*time.Minute),
	)
	ctx := context.Background()
	now := time.Now()

	recordFailures(t, store, "ada@example.com", now.Add(-3*time.Minute), now.Add(-2*time.Minute))

	until, err := store.LockedUntil(ctx, "ada@example.com", "10.0.0.1", now)
	require.NoError(t, err)
	assert.True(t, until.IsZero(), "two failures should not lock")

	recordFailures(t, store, "ada@example.com", now.Add(-time.Minute))

	until, err = store.LockedUntil(ctx, "ada@example.com", "10.0.0.1", now)
	require.NoError(t, err)
	require.False(t, until.IsZero(), "third failure should lock")
	assert.WithinDuration(t, now.Add(-time.Minute).Add(15*time.Minute), until, time.Second)
}

func TestLockoutExpires(t *testing.T) {
	store := auth.NewLoginAttemptStore(newTestDB(t),
		auth.WithMaxAttempts(3),
		auth.WithLockoutWindow(15*time.Minute),
		auth.WithLockoutDuration(5*time.Minute),
	)
	ctx := context.Background()
	now := time.Now()

	recordFailures(t, store, "ada@example.com",
		now.Add(-10*time.Minute), now.Add(-9*time.Minute), now.Add(-8*time.Minute))

	until, err := store.LockedUntil(ctx, "ada@example.com", "10.0.0.1", now.Add(-7*time.Minute))
	require.NoError(t, err)
	assert.False(t, until.IsZero(), "inside the lock window")

	until, err = store.LockedUntil(ctx, "ada@example.com", "10.0.0.1", now)
	require.NoError(t, err)
	assert.True(t, until.IsZero(), "lock ran out 8m after the last failure")
}

func TestLockoutIgnoresOldFailures(t *testing.T) {
	store := auth.NewLoginAttemptStore(newTestDB(t),
		auth.WithMaxAttempts(3),
		auth.WithLockoutWindow(15*time.Minute),
		auth.WithLockoutDuration(15*time.Minute),
	)
	ctx := context.Background()
	now := time.Now()

	// two stale failures outside the window plus two fresh ones
	recordFailures(t, store, "ada@example.com",
		now.Add(-2*time.Hour), now.Add(-90*time.Minute),
		now.Add(-2*time.Minute), now.Add(-time.Minute))

	until, err := store.LockedUntil(ctx, "ada@example.com", "10.0.0.1", now)
	require.NoError(t, err)
	assert.True(t, until.IsZero())
}

func TestLockoutIgnoresSuccesses(t *testing.T) {
	store := auth.NewLoginAttemptStore(newTestDB(t),
		auth.WithMaxAttempts(2),
		auth.WithLockoutWindow(15*time.Minute),
		auth.WithLockoutDuration(15*time.Minute),
	)
	ctx := context.Background()
	now := time.Now()

	recordFailures(t, store, "ada@example.com", now.Add(-2*time.Minute))
	require.NoError(t, store.Record(ctx, &auth.LoginAttempt{
		EmailCanonical: "ada@example.com",
		IP:             "10.0.0.1",
		Success:        true,
		AttemptedAt:    now.Add(-time.Minute),
	}))

	until, err := store.LockedUntil(ctx, "ada@example.com", "10.0.0.1", now)
	require.NoError(t, err)
	assert.True(t, until.IsZero(), "successes must not count toward the lockout")
}

func TestLockoutIsPerIdentifier(t *testing.T) {
	store := auth.NewLoginAttemptStore(newTestDB(t),
		auth.WithMaxAttempts(2),
		auth.WithLockoutWindow(15*time.Minute),
		auth.WithLockoutDuration(15*time.Minute),
	)
	ctx := context.Background()
	now := time.Now()

	recordFailures(t, store, "ada@example.com", now.Add(-2*time.Minute), now.Add(-time.Minute))

	until, err := store.LockedUntil(ctx, "ada@example.com", "10.0.0.1", now)
	require.NoError(t, err)
	assert.False(t, until.IsZero())

	until, err = store.LockedUntil(ctx, "grace@example.com", "10.0.0.1", now)
	require.NoError(t, err)
	assert.True(t, until.IsZero())

	// the lock is scoped to the (email, ip) pair
	until, err = store.LockedUntil(ctx, "ada@example.com", "10.0.0.2", now)
	require.NoError(t, err)
	assert.True(t, until.IsZero())
}

func TestRecordRequiresEmail(t *testing.T) {
	store := auth.NewLoginAttemptStore(newTestDB(t))

	err := store.Record(context.Background(), &auth.LoginAttempt{IP: "10.0.0.1"})
	require.Error(t, err)
}
