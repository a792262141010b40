package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RefreshTokens persists refresh token records keyed by jti. Raw token
// strings are never stored; only their keyed hash is, so a database dump
// alone cannot mint usable refresh tokens.
type RefreshTokens interface {
	Issue(ctx context.Context, record *RefreshToken) error
	IssueTx(ctx context.Context, tx bun.IDB, record *RefreshToken) error
	GetByJTI(ctx context.Context, jti uuid.UUID) (*RefreshToken, error)
	Rotate(ctx context.Context, old *RefreshToken, next *RefreshToken, revokedAt time.Time) error
	RevokeFamily(ctx context.Context, familyID uuid.UUID, revokedAt time.Time) (int64, error)
	RevokeFamilyTx(ctx context.Context, tx bun.IDB, familyID uuid.UUID, revokedAt time.Time) (int64, error)
	RevokeSessionTokens(ctx context.Context, tx bun.IDB, sessionID uuid.UUID, revokedAt time.Time) error
	HashToken(raw string) string
}

// RefreshTokenStore is the bun backed RefreshTokens implementation
type RefreshTokenStore struct {
	db     *bun.DB
	pepper []byte
	logger Logger
}

// NewRefreshTokenStore creates a RefreshTokens backed by bun. The pepper
// keys the stored token hashes and must stay stable across restarts or
// every outstanding refresh token dies.
func NewRefreshTokenStore(db *bun.DB, pepper []byte, logger Logger) *RefreshTokenStore {
	if logger == nil {
		logger = defLogger{}
	}
	return &RefreshTokenStore{db: db, pepper: pepper, logger: logger}
}

// HashToken returns the keyed hash of a raw refresh token string
func (s *RefreshTokenStore) HashToken(raw string) string {
	mac := hmac.New(sha256.New, s.pepper)
	mac.Write([]byte(raw))
	return hex.EncodeToString(mac.Sum(nil))
}

// Issue persists a new refresh token record
func (s *RefreshTokenStore) Issue(ctx context.Context, record *RefreshToken) error {
	return s.IssueTx(ctx, s.db, record)
}

// IssueTx is Issue inside an existing transaction
func (s *RefreshTokenStore) IssueTx(ctx context.Context, tx bun.IDB, record *RefreshToken) error {
	if record.JTI == uuid.Nil {
		return errors.New("refresh token requires a jti", errors.CategoryInternal)
	}
	if record.IssuedAt.IsZero() {
		record.IssuedAt = time.Now()
	}

	if _, err := tx.NewInsert().Model(record).Exec(ctx); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to store refresh token")
	}
	return nil
}

// GetByJTI fetches a refresh token record by jti, nil when absent
func (s *RefreshTokenStore) GetByJTI(ctx context.Context, jti uuid.UUID) (*RefreshToken, error) {
	record := new(RefreshToken)
	err := s.db.NewSelect().
		Model(record).
		Where("rt.jti = ?", jti).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to load refresh token")
	}
	return record, nil
}

// Rotate revokes the old record and inserts its successor in one
// transaction. The revoke is a conditional update on `revoked_at IS NULL`;
// when it matches no row some concurrent rotation got there first, which is
// indistinguishable from replay of a stolen token, and the caller gets
// ErrTokenReused.
func (s *RefreshTokenStore) Rotate(ctx context.Context, old *RefreshToken, next *RefreshToken, revokedAt time.Time) error {
	return s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model((*RefreshToken)(nil)).
			Set("revoked_at = ?", revokedAt).
			Set("replaced_by = ?", next.JTI).
			Where("jti = ?", old.JTI).
			Where("revoked_at IS NULL").
			Exec(ctx)
		if err != nil {
			return errors.Wrap(err, errors.CategoryInternal, "failed to rotate refresh token")
		}

		rows, err := res.RowsAffected()
		if err != nil {
			return errors.Wrap(err, errors.CategoryInternal, "failed to rotate refresh token")
		}
		if rows == 0 {
			return ErrTokenReused
		}

		return s.IssueTx(ctx, tx, next)
	})
}

// RevokeFamily revokes every live token in a family and returns how many it
// caught. Called when reuse is detected; the whole lineage dies, including
// the current tip held by whoever presented the stale token.
func (s *RefreshTokenStore) RevokeFamily(ctx context.Context, familyID uuid.UUID, revokedAt time.Time) (int64, error) {
	return s.RevokeFamilyTx(ctx, s.db, familyID, revokedAt)
}

// RevokeFamilyTx is RevokeFamily inside an existing transaction
func (s *RefreshTokenStore) RevokeFamilyTx(ctx context.Context, tx bun.IDB, familyID uuid.UUID, revokedAt time.Time) (int64, error) {
	res, err := tx.NewUpdate().
		Model((*RefreshToken)(nil)).
		Set("revoked_at = ?", revokedAt).
		Where("family_id = ?", familyID).
		Where("revoked_at IS NULL").
		Exec(ctx)
	if err != nil {
		return 0, errors.Wrap(err, errors.CategoryInternal, "failed to revoke token family")
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, errors.CategoryInternal, "failed to revoke token family")
	}
	return rows, nil
}

// RevokeSessionTokens revokes every live token tied to a session. Logout
// uses it so the session and its refresh tokens die together.
func (s *RefreshTokenStore) RevokeSessionTokens(ctx context.Context, tx bun.IDB, sessionID uuid.UUID, revokedAt time.Time) error {
	_, err := tx.NewUpdate().
		Model((*RefreshToken)(nil)).
		Set("revoked_at = ?", revokedAt).
		Where("session_id = ?", sessionID).
		Where("revoked_at IS NULL").
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to revoke session tokens")
	}
	return nil
}

var _ RefreshTokens = (*RefreshTokenStore)(nil)
