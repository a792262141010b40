package auth

import (
	"context"
	"crypto/hmac"
	"database/sql"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// LoginInput carries the credentials plus the request metadata the session
// and attempt records keep.
type LoginInput struct {
	Email     string
	Password  string
	IP        string
	UserAgent string
}

// LoginResult is what a successful login hands back
type LoginResult struct {
	User          *User
	Session       *AuthSession
	AccessToken   string
	RefreshToken  string
	AccessClaims  *JWTClaims
	RefreshClaims *JWTClaims
}

// RefreshInput carries the presented refresh token plus request metadata
type RefreshInput struct {
	RefreshToken string
	IP           string
	UserAgent    string
}

// RefreshResult is what a successful rotation hands back
type RefreshResult struct {
	User          *User
	Session       *AuthSession
	AccessToken   string
	RefreshToken  string
	AccessClaims  *JWTClaims
	RefreshClaims *JWTClaims
}

// Auther orchestrates login, refresh rotation, and logout over the account,
// session, refresh token, and login attempt stores.
type Auther struct {
	repo            RepositoryManager
	hasher          PasswordHasher
	tokenService    TokenService
	logger          Logger
	accessTokenTTL  time.Duration
	refreshTokenTTL time.Duration
	nowFn           func() time.Time
}

// NewAuthenticator returns a new Authenticator wired from config
func NewAuthenticator(repo RepositoryManager, cfg Config) *Auther {
	tokenService := NewTokenService(
		[]byte(cfg.GetSigningKey()),
		cfg.GetIssuer(),
		jwt.ClaimStrings(cfg.GetAudience()),
		defLogger{},
	).WithSigningMethod(cfg.GetSigningMethod())

	return &Auther{
		repo:            repo,
		hasher:          NewHasher(),
		tokenService:    tokenService,
		logger:          defLogger{},
		accessTokenTTL:  cfg.GetAccessTokenTTL(),
		refreshTokenTTL: cfg.GetRefreshTokenTTL(),
		nowFn:           time.Now,
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithHasher swaps the password hasher
func (s *Auther) WithHasher(hasher PasswordHasher) *Auther {
	if hasher != nil {
		s.hasher = hasher
	}
	return s
}

// WithTokenService swaps the token service
func (s *Auther) WithTokenService(ts TokenService) *Auther {
	if ts != nil {
		s.tokenService = ts
	}
	return s
}

// WithClock overrides the time source
func (s *Auther) WithClock(nowFn func() time.Time) *Auther {
	if nowFn != nil {
		s.nowFn = nowFn
	}
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokenService
}

// Login verifies credentials and opens a session. Every credential failure
// collapses into ErrInvalidCredentials so callers cannot tell an unknown
// email from a wrong password or a deactivated account. Every terminal
// outcome lands in the attempt ledger, the lockout rejection included, so
// probing cannot starve the ledger.
func (s *Auther) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	now := s.nowFn()
	email := CanonicalEmail(input.Email)

	// no identifier means no ledger key; everything else runs the full
	// path so even empty-password probes leave an attempt row
	if email == "" {
		return nil, ErrInvalidCredentials
	}

	lockedUntil, err := s.repo.LoginAttempts().LockedUntil(ctx, email, input.IP, now)
	if err != nil {
		return nil, err
	}
	if !lockedUntil.IsZero() {
		s.logger.Info("Login rejected by lockout", "email", email, "until", lockedUntil)
		if err := s.recordAttempt(ctx, email, input.IP, false, now); err != nil {
			return nil, err
		}
		return nil, ErrTooManyLoginAttempts
	}

	user, err := s.repo.Users().FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if user == nil {
		// burn a hash comparison so unknown emails cost the same as bad passwords
		s.hasher.Verify(ctx, input.Password, "")
		if err := s.recordAttempt(ctx, email, input.IP, false, now); err != nil {
			return nil, err
		}
		return nil, ErrInvalidCredentials
	}

	if !s.hasher.Verify(ctx, input.Password, user.PasswordHash) {
		if err := s.recordAttempt(ctx, email, input.IP, false, now); err != nil {
			return nil, err
		}
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		if err := s.recordAttempt(ctx, email, input.IP, false, now); err != nil {
			return nil, err
		}
		s.logger.Info("Login blocked for inactive account", "user", user.ID)
		return nil, ErrInvalidCredentials
	}

	session := &AuthSession{
		ID:         uuid.New(),
		AccountID:  user.ID,
		IP:         input.IP,
		UserAgent:  input.UserAgent,
		CreatedAt:  now,
		LastSeenAt: now,
	}

	jti := uuid.New()
	familyID := uuid.New()

	refreshToken, refreshClaims, err := s.tokenService.IssueRefreshToken(user.ID, session.ID, familyID, jti, s.refreshTokenTTL)
	if err != nil {
		return nil, err
	}

	record := &RefreshToken{
		JTI:       jti,
		FamilyID:  familyID,
		SessionID: session.ID,
		AccountID: user.ID,
		TokenHash: s.repo.RefreshTokens().HashToken(refreshToken),
		IssuedAt:  now,
		ExpiresAt: now.Add(s.refreshTokenTTL),
		IP:        input.IP,
		UserAgent: input.UserAgent,
	}

	err = s.repo.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if err := s.repo.LoginAttempts().RecordTx(ctx, tx, &LoginAttempt{
			EmailCanonical: email,
			IP:             input.IP,
			Success:        true,
			AttemptedAt:    now,
		}); err != nil {
			return err
		}
		if err := s.repo.Sessions().CreateTx(ctx, tx, session); err != nil {
			return err
		}
		if err := s.repo.RefreshTokens().IssueTx(ctx, tx, record); err != nil {
			return err
		}
		return s.repo.Users().TrackSuccessfulLoginTx(ctx, tx, user)
	})
	if err != nil {
		return nil, err
	}

	accessToken, accessClaims, err := s.tokenService.IssueAccessToken(user, session.ID, s.accessTokenTTL)
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		User:          user,
		Session:       session,
		AccessToken:   accessToken,
		RefreshToken:  refreshToken,
		AccessClaims:  accessClaims,
		RefreshClaims: refreshClaims,
	}, nil
}

// Refresh rotates a refresh token. Presenting a token that was already
// rotated, or that lost a rotation race, revokes the whole family including
// the current tip; whoever holds it has to log in again.
func (s *Auther) Refresh(ctx context.Context, input RefreshInput) (*RefreshResult, error) {
	now := s.nowFn()

	claims, err := s.tokenService.Validate(input.RefreshToken, TokenTypeRefresh)
	if err != nil {
		return nil, err
	}

	jti, err := uuid.Parse(claims.JTI())
	if err != nil {
		return nil, ErrTokenMalformed
	}
	familyID, err := claims.FamilyUUID()
	if err != nil {
		return nil, ErrTokenMalformed
	}
	sessionID, err := claims.SessionUUID()
	if err != nil {
		return nil, ErrTokenMalformed
	}

	record, err := s.repo.RefreshTokens().GetByJTI(ctx, jti)
	if err != nil {
		return nil, err
	}
	if record == nil {
		// valid signature but no record: treat like theft and kill the lineage
		return nil, s.killFamily(ctx, familyID, sessionID, now)
	}

	presented := s.repo.RefreshTokens().HashToken(input.RefreshToken)
	if !hmac.Equal([]byte(record.TokenHash), []byte(presented)) {
		return nil, ErrTokenMalformed
	}

	if record.Revoked() {
		s.logger.Error("Refresh token reuse detected", "jti", jti, "family", familyID)
		return nil, s.killFamily(ctx, familyID, sessionID, now)
	}

	if record.Expired(now) {
		return nil, ErrTokenExpired
	}

	session, err := s.repo.Sessions().GetByID(ctx, record.SessionID)
	if err != nil {
		return nil, err
	}
	if session == nil || session.Revoked() {
		return nil, ErrUnableToFindSession
	}

	user, err := s.repo.Users().GetByID(ctx, record.AccountID.String())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, s.killFamily(ctx, familyID, sessionID, now)
		}
		return nil, err
	}
	if user == nil || !user.IsActive {
		return nil, s.killFamily(ctx, familyID, sessionID, now)
	}

	nextJTI := uuid.New()
	nextToken, nextClaims, err := s.tokenService.IssueRefreshToken(record.AccountID, record.SessionID, record.FamilyID, nextJTI, s.refreshTokenTTL)
	if err != nil {
		return nil, err
	}

	next := &RefreshToken{
		JTI:       nextJTI,
		FamilyID:  record.FamilyID,
		SessionID: record.SessionID,
		AccountID: record.AccountID,
		TokenHash: s.repo.RefreshTokens().HashToken(nextToken),
		IssuedAt:  now,
		ExpiresAt: now.Add(s.refreshTokenTTL),
		IP:        input.IP,
		UserAgent: input.UserAgent,
	}

	if err := s.repo.RefreshTokens().Rotate(ctx, record, next, now); err != nil {
		if errors.Is(err, ErrTokenReused) {
			// lost the race to a concurrent rotation of the same token
			return nil, s.killFamily(ctx, familyID, sessionID, now)
		}
		return nil, err
	}

	accessToken, accessClaims, err := s.tokenService.IssueAccessToken(user, session.ID, s.accessTokenTTL)
	if err != nil {
		return nil, err
	}

	// best effort, losing a touch is harmless
	if err := s.repo.Sessions().Touch(ctx, session.ID, now); err != nil {
		s.logger.Error("Refresh failed to touch session", "error", err)
	}

	return &RefreshResult{
		User:          user,
		Session:       session,
		AccessToken:   accessToken,
		RefreshToken:  nextToken,
		AccessClaims:  accessClaims,
		RefreshClaims: nextClaims,
	}, nil
}

// Logout revokes the session and every live refresh token tied to it.
// Idempotent: logging out twice, or with an unknown session id, succeeds.
func (s *Auther) Logout(ctx context.Context, sessionID uuid.UUID) error {
	now := s.nowFn()
	return s.repo.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if err := s.repo.Sessions().RevokeTx(ctx, tx, sessionID, now); err != nil {
			return err
		}
		return s.repo.RefreshTokens().RevokeSessionTokens(ctx, tx, sessionID, now)
	})
}

// SessionFromToken validates an access token and returns its session view
func (s *Auther) SessionFromToken(token string) (*SessionObject, error) {
	claims, err := s.tokenService.Validate(token, TokenTypeAccess)
	if err != nil {
		return nil, err
	}
	return SessionFromClaims(claims)
}

func (s *Auther) recordAttempt(ctx context.Context, email, ip string, success bool, now time.Time) error {
	return s.repo.LoginAttempts().Record(ctx, &LoginAttempt{
		EmailCanonical: email,
		IP:             ip,
		Success:        success,
		AttemptedAt:    now,
	})
}

// killFamily revokes the token family and its session in one transaction,
// then reports reuse
func (s *Auther) killFamily(ctx context.Context, familyID, sessionID uuid.UUID, now time.Time) error {
	err := s.repo.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		n, err := s.repo.RefreshTokens().RevokeFamilyTx(ctx, tx, familyID, now)
		if err != nil {
			return err
		}
		if n > 0 {
			s.logger.Info("Revoked refresh token family", "family", familyID, "tokens", n)
		}
		return s.repo.Sessions().RevokeTx(ctx, tx, sessionID, now)
	})
	if err != nil {
		return err
	}
	return ErrTokenReused
}

var _ Authenticator = (*Auther)(nil)
