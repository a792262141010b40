package auth_test

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	auth "github.com/askgear/go-auth"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"golang.org/x/crypto/bcrypt"
)

const testPepper = "test-pepper-keep-stable"

var testDBSeq atomic.Int64

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", testDBSeq.Add(1))
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())

	err = db.ResetModel(context.Background(),
		(*auth.User)(nil),
		(*auth.AuthSession)(nil),
		(*auth.RefreshToken)(nil),
		(*auth.LoginAttempt)(nil),
	)
	if err != nil {
		t.Fatalf("reset models: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func newTestRepo(t *testing.T, opts ...auth.ManagerOption) auth.RepositoryManager {
	t.Helper()

	opts = append([]auth.ManagerOption{
		auth.WithManagerRefreshTokenPepper([]byte(testPepper)),
	}, opts...)

	return auth.NewRepositoryManager(newTestDB(t), opts...)
}

func newTestConfig() *auth.SimpleConfig {
	cfg := &auth.SimpleConfig{
		SigningKey:         "test-signing-key",
		SigningMethod:      "HS256",
		ContextKey:         "user",
		Issuer:             "test-issuer",
		Audience:           []string{"test-audience"},
		AccessTokenTTL:     12 * time.Hour,
		RefreshTokenTTL:    30 * 24 * time.Hour,
		MaxLoginAttempts:   auth.DefaultMaxLoginAttempts,
		LockoutWindow:      auth.DefaultLockoutWindow,
		LockoutDuration:    auth.DefaultLockoutDuration,
		RefreshTokenPepper: testPepper,
		Cookies:            auth.DefaultCookieConfig(),
	}
	return cfg
}

// fastHasher keeps bcrypt at its minimum cost so the suite stays quick
func fastHasher() *auth.Hasher {
	return auth.NewHasher(auth.WithHasherCost(bcrypt.MinCost))
}

func mustUUID(t *testing.T, s string) uuid.UUID {
	t.Helper()
	id, err := uuid.Parse(s)
	if err != nil {
		t.Fatalf("parse uuid %q: %v", s, err)
	}
	return id
}

func registerTestUser(t *testing.T, repo auth.RepositoryManager, email, password string, roles ...string) *auth.User {
	t.Helper()

	handler := auth.NewRegisterUserHandler(repo).WithRegisterHasher(fastHasher())
	user, err := handler.Execute(context.Background(), auth.RegisterUserMessage{
		FullName: "Test User",
		Email:    email,
		Password: password,
		Roles:    roles,
	})
	if err != nil {
		t.Fatalf("register user: %v", err)
	}
	return user
}
