package auth

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// RepositoryManager exposes all repositories
type RepositoryManager interface {
	repository.Validator
	repository.TransactionManager
	Users() Users
	Sessions() Sessions
	RefreshTokens() RefreshTokens
	LoginAttempts() LoginAttempts
}

// ManagerOption configures a RepositoryManager
type ManagerOption func(*mngr)

// WithManagerRefreshTokenPepper keys the stored refresh token hashes
func WithManagerRefreshTokenPepper(pepper []byte) ManagerOption {
	return func(m *mngr) {
		m.pepper = pepper
	}
}

// WithManagerLoginAttemptOptions configures the lockout policy
func WithManagerLoginAttemptOptions(opts ...LoginAttemptOption) ManagerOption {
	return func(m *mngr) {
		m.attemptOpts = append(m.attemptOpts, opts...)
	}
}

// WithManagerLogger sets the logger shared by the stores
func WithManagerLogger(logger Logger) ManagerOption {
	return func(m *mngr) {
		if logger != nil {
			m.logger = logger
		}
	}
}

type mngr struct {
	db            *bun.DB
	logger        Logger
	pepper        []byte
	attemptOpts   []LoginAttemptOption
	users         Users
	sessions      Sessions
	refreshTokens RefreshTokens
	loginAttempts LoginAttempts
}

func NewRepositoryManager(db *bun.DB, opts ...ManagerOption) RepositoryManager {
	m := &mngr{
		db:     db,
		logger: defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	m.users = NewUsersRepository(db)
	m.sessions = NewSessionStore(db, m.logger)
	m.refreshTokens = NewRefreshTokenStore(db, m.pepper, m.logger)
	m.loginAttempts = NewLoginAttemptStore(db, append([]LoginAttemptOption{
		WithLoginAttemptLogger(m.logger),
	}, m.attemptOpts...)...)

	return m
}

func (m mngr) Validate() error {
	if m.users == nil {
		return errors.New("repository users should be initialized")
	}

	if m.sessions == nil {
		return errors.New("repository sessions should be initialized")
	}

	if m.refreshTokens == nil {
		return errors.New("repository refreshTokens should be initialized")
	}

	if m.loginAttempts == nil {
		return errors.New("repository loginAttempts should be initialized")
	}

	if len(m.pepper) == 0 {
		return errors.New("refresh token pepper should be configured")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Users() Users {
	return m.users
}

func (m mngr) Sessions() Sessions {
	return m.sessions
}

func (m mngr) RefreshTokens() RefreshTokens {
	return m.refreshTokens
}

func (m mngr) LoginAttempts() LoginAttempts {
	return m.loginAttempts
}
