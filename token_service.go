package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// TokenServiceImpl implements the TokenService interface
type TokenServiceImpl struct {
	signingKey []byte
	method     *jwt.SigningMethodHMAC
	issuer     string
	audience   jwt.ClaimStrings
	logger     Logger
}

// NewTokenService creates a new TokenService instance signing with HS256
func NewTokenService(signingKey []byte, issuer string, audience jwt.ClaimStrings, logger Logger) *TokenServiceImpl {
	if logger == nil {
		logger = defLogger{}
	}
	return &TokenServiceImpl{
		signingKey: signingKey,
		method:     jwt.SigningMethodHS256,
		issuer:     issuer,
		audience:   audience,
		logger:     logger,
	}
}

// WithSigningMethod selects the HMAC variant used to sign and verify tokens,
// e.g. "HS256" or "HS512". Names outside the HMAC family are ignored and the
// current method stays in place.
func (ts *TokenServiceImpl) WithSigningMethod(alg string) *TokenServiceImpl {
	if method, ok := jwt.GetSigningMethod(alg).(*jwt.SigningMethodHMAC); ok {
		ts.method = method
	}
	return ts
}

// IssueAccessToken mints a short lived access token for the given user and
// session. Roles and email ride in the claims so protected routes never have
// to hit the database.
func (ts *TokenServiceImpl) IssueAccessToken(user *User, sessionID uuid.UUID, ttl time.Duration) (string, *JWTClaims, error) {
	if user == nil {
		return "", nil, errors.New("user must not be nil", errors.CategoryInternal)
	}

	now := time.Now()
	claims := &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   user.ID.String(),
			Audience:  ts.audience,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.New().String(),
		},
		TokenType: TokenTypeAccess,
		SessionID: sessionID.String(),
		Roles:     user.Roles,
		Email:     user.Email,
	}

	signed, err := ts.SignClaims(claims)
	if err != nil {
		return "", nil, err
	}

	return signed, claims, nil
}

// IssueRefreshToken mints a refresh token. The jti is supplied by the caller
// so the stored record and the token agree on the id before signing.
func (ts *TokenServiceImpl) IssueRefreshToken(accountID, sessionID, familyID, jti uuid.UUID, ttl time.Duration) (string, *JWTClaims, error) {
	now := time.Now()
	claims := &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   accountID.String(),
			Audience:  ts.audience,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        jti.String(),
		},
		TokenType: TokenTypeRefresh,
		SessionID: sessionID.String(),
		FamilyID:  familyID.String(),
	}

	signed, err := ts.SignClaims(claims)
	if err != nil {
		return "", nil, err
	}

	return signed, claims, nil
}

// SignClaims signs arbitrary JWT claims using the configured signing key.
func (ts *TokenServiceImpl) SignClaims(claims *JWTClaims) (string, error) {
	if claims == nil {
		return "", errors.New("claims must not be nil", errors.CategoryInternal)
	}

	token := jwt.NewWithClaims(ts.method, claims)

	signedString, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

// Validate parses and validates a token string, returning structured claims.
// wantType pins the expected token kind; an access token presented where a
// refresh token is required fails as malformed, and vice versa.
func (ts *TokenServiceImpl) Validate(tokenString string, wantType string) (*JWTClaims, error) {
	parserOptions := make([]jwt.ParserOption, 0, 2)
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience...))
	}

	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(t *jwt.Token) (any, error) {
		if t.Method != ts.method {
			ts.logger.Error("TokenService validate encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).WithTextCode(ErrTokenMalformed.TextCode)
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		ts.logger.Error("TokenService validate could not decode or validate claims")
		return nil, ErrUnableToDecodeSession
	}

	if wantType != "" && claims.TokenType != wantType {
		return nil, ErrTokenMalformed
	}

	return claims, nil
}
