package auth

import (
	"context"
	"database/sql"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Sessions tracks server side session records. Each login creates one; the
// record outlives the access token and is what Logout actually revokes.
type Sessions interface {
	Create(ctx context.Context, session *AuthSession) error
	CreateTx(ctx context.Context, tx bun.IDB, session *AuthSession) error
	GetByID(ctx context.Context, id uuid.UUID) (*AuthSession, error)
	Touch(ctx context.Context, id uuid.UUID, seenAt time.Time) error
	Revoke(ctx context.Context, id uuid.UUID, revokedAt time.Time) error
	RevokeTx(ctx context.Context, tx bun.IDB, id uuid.UUID, revokedAt time.Time) error
}

// SessionStore is the bun backed Sessions implementation
type SessionStore struct {
	db     *bun.DB
	logger Logger
}

// NewSessionStore creates a Sessions backed by bun
func NewSessionStore(db *bun.DB, logger Logger) *SessionStore {
	if logger == nil {
		logger = defLogger{}
	}
	return &SessionStore{db: db, logger: logger}
}

// Create persists a new session record
func (s *SessionStore) Create(ctx context.Context, session *AuthSession) error {
	return s.CreateTx(ctx, s.db, session)
}

// CreateTx is Create inside an existing transaction
func (s *SessionStore) CreateTx(ctx context.Context, tx bun.IDB, session *AuthSession) error {
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	now := time.Now()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	if session.LastSeenAt.IsZero() {
		session.LastSeenAt = session.CreatedAt
	}

	if _, err := tx.NewInsert().Model(session).Exec(ctx); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to create session")
	}
	return nil
}

// GetByID fetches a session record, nil when it does not exist
func (s *SessionStore) GetByID(ctx context.Context, id uuid.UUID) (*AuthSession, error) {
	session := new(AuthSession)
	err := s.db.NewSelect().
		Model(session).
		Where("sess.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to load session")
	}
	return session, nil
}

// Touch advances last_seen_at. Refresh calls it; losing a touch is harmless
// so callers may ignore the error.
func (s *SessionStore) Touch(ctx context.Context, id uuid.UUID, seenAt time.Time) error {
	_, err := s.db.NewUpdate().
		Model((*AuthSession)(nil)).
		Set("last_seen_at = ?", seenAt).
		Where("id = ?", id).
		Where("revoked_at IS NULL").
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to touch session")
	}
	return nil
}

// Revoke marks a session revoked. Idempotent: revoking an already revoked
// or unknown session succeeds without touching the original revoked_at.
func (s *SessionStore) Revoke(ctx context.Context, id uuid.UUID, revokedAt time.Time) error {
	return s.RevokeTx(ctx, s.db, id, revokedAt)
}

// RevokeTx is Revoke inside an existing transaction
func (s *SessionStore) RevokeTx(ctx context.Context, tx bun.IDB, id uuid.UUID, revokedAt time.Time) error {
	_, err := tx.NewUpdate().
		Model((*AuthSession)(nil)).
		Set("revoked_at = ?", revokedAt).
		Where("id = ?", id).
		Where("revoked_at IS NULL").
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to revoke session")
	}
	return nil
}

var _ Sessions = (*SessionStore)(nil)
