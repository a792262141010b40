package auth

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const (
	// DefaultMaxLoginAttempts is how many failures inside the window trip the lockout
	DefaultMaxLoginAttempts = 5
	// DefaultLockoutWindow is the sliding window failures are counted over
	DefaultLockoutWindow = 15 * time.Minute
	// DefaultLockoutDuration is how long an account stays locked after tripping
	DefaultLockoutDuration = 15 * time.Minute
)

// LoginAttempts records login outcomes and answers lockout questions. The
// lockout is computed from the attempt ledger on every check, never stored,
// so a successful attempt after the lock expires clears nothing and needs no
// cleanup job.
type LoginAttempts interface {
	Record(ctx context.Context, attempt *LoginAttempt) error
	RecordTx(ctx context.Context, tx bun.IDB, attempt *LoginAttempt) error
	LockedUntil(ctx context.Context, emailCanonical, ip string, now time.Time) (time.Time, error)
}

// LoginAttemptStore is the bun backed LoginAttempts implementation
type LoginAttemptStore struct {
	db          *bun.DB
	maxAttempts int
	window      time.Duration
	lockout     time.Duration
	logger      Logger
}

// LoginAttemptOption configures a LoginAttemptStore
type LoginAttemptOption func(*LoginAttemptStore)

// WithMaxAttempts sets the failure count that trips the lockout
func WithMaxAttempts(max int) LoginAttemptOption {
	return func(s *LoginAttemptStore) {
		if max > 0 {
			s.maxAttempts = max
		}
	}
}

// WithLockoutWindow sets the sliding window failures are counted over
func WithLockoutWindow(window time.Duration) LoginAttemptOption {
	return func(s *LoginAttemptStore) {
		if window > 0 {
			s.window = window
		}
	}
}

// WithLockoutDuration sets how long the lock lasts once tripped
func WithLockoutDuration(lockout time.Duration) LoginAttemptOption {
	return func(s *LoginAttemptStore) {
		if lockout > 0 {
			s.lockout = lockout
		}
	}
}

// WithLoginAttemptLogger sets the logger
func WithLoginAttemptLogger(logger Logger) LoginAttemptOption {
	return func(s *LoginAttemptStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewLoginAttemptStore creates a LoginAttempts backed by bun
func NewLoginAttemptStore(db *bun.DB, opts ...LoginAttemptOption) *LoginAttemptStore {
	store := &LoginAttemptStore{
		db:          db,
		maxAttempts: DefaultMaxLoginAttempts,
		window:      DefaultLockoutWindow,
		lockout:     DefaultLockoutDuration,
		logger:      defLogger{},
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Record persists a login attempt. Failures here are fatal to the login
// request: an attempt we cannot record is an attempt the lockout cannot
// count.
func (s *LoginAttemptStore) Record(ctx context.Context, attempt *LoginAttempt) error {
	return s.RecordTx(ctx, s.db, attempt)
}

// RecordTx is Record inside an existing transaction
func (s *LoginAttemptStore) RecordTx(ctx context.Context, tx bun.IDB, attempt *LoginAttempt) error {
	if attempt.EmailCanonical == "" {
		return errors.New("login attempt requires an email", errors.CategoryInternal)
	}
	if attempt.ID == uuid.Nil {
		attempt.ID = uuid.New()
	}
	if attempt.AttemptedAt.IsZero() {
		attempt.AttemptedAt = time.Now()
	}

	if _, err := tx.NewInsert().Model(attempt).Exec(ctx); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to record login attempt")
	}
	return nil
}

// LockedUntil returns when the lockout for the (email, ip) pair ends, or the
// zero time when no lockout is active. Only the most recent failure matters:
// the pair is locked when the window ending at `now` holds maxAttempts or
// more failures, and the lock runs from the latest of them. Rejections on a
// live lock are recorded as failures too, so hammering a locked pair keeps
// the lock alive.
func (s *LoginAttemptStore) LockedUntil(ctx context.Context, emailCanonical, ip string, now time.Time) (time.Time, error) {
	since := now.Add(-s.window)

	var latest []time.Time
	err := s.db.NewSelect().
		Model((*LoginAttempt)(nil)).
		Column("attempted_at").
		Where("email_canonical = ?", emailCanonical).
		Where("ip = ?", ip).
		Where("success = ?", false).
		Where("attempted_at > ?", since).
		OrderExpr("attempted_at DESC").
		Limit(s.maxAttempts).
		Scan(ctx, &latest)
	if err != nil {
		return time.Time{}, errors.Wrap(err, errors.CategoryInternal, "failed to count login attempts")
	}

	if len(latest) < s.maxAttempts {
		return time.Time{}, nil
	}

	until := latest[0].Add(s.lockout)
	if !until.After(now) {
		return time.Time{}, nil
	}
	return until, nil
}

var _ LoginAttempts = (*LoginAttemptStore)(nil)
