package auth

import (
	"errors"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// Text codes surfaced to API clients next to the generic message. They are
// stable identifiers; the human readable message can change.
const (
	TextCodeInvalidCredentials = "INVALID_CREDENTIALS"
	TextCodeTooManyAttempts    = "TOO_MANY_ATTEMPTS"
	TextCodeTokenExpired       = "TOKEN_EXPIRED"
	TextCodeTokenMalformed     = "TOKEN_MALFORMED"
	TextCodeEmailExists        = "EMAIL_EXISTS"
	TextCodeForbidden          = "FORBIDDEN"
)

// ErrInvalidCredentials is the single error we surface for every credential
// failure: unknown email, inactive account, bad password, bad/expired/reused
// refresh token. Collapsing them denies user enumeration.
var ErrInvalidCredentials = goerrors.New("invalid credentials", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeInvalidCredentials)

// ErrTooManyLoginAttempts fires while the (email, ip) pair is inside an
// active lockout window.
var ErrTooManyLoginAttempts = goerrors.New("too many login attempts, try again later", goerrors.CategoryRateLimit).
	WithCode(http.StatusTooManyRequests).
	WithTextCode(TextCodeTooManyAttempts)

// ErrTokenExpired is returned by TokenService.Validate for expired tokens
var ErrTokenExpired = goerrors.New("authentication token expired", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeTokenExpired)

// ErrTokenMalformed covers every other token validation failure: bad
// signature, not yet valid, issuer/audience mismatch, wrong token type
var ErrTokenMalformed = goerrors.New("invalid authentication token", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeTokenMalformed)

// ErrEmailTaken is returned on registration when the email is already in use
var ErrEmailTaken = goerrors.New("email already in use", goerrors.CategoryConflict).
	WithCode(goerrors.CodeConflict).
	WithTextCode(TextCodeEmailExists)

// ErrForbidden is returned when the caller is authenticated but lacks the
// role or ownership required by the route
var ErrForbidden = goerrors.New("insufficient permissions", goerrors.CategoryAuthz).
	WithCode(goerrors.CodeForbidden).
	WithTextCode(TextCodeForbidden)

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = errors.New("identity not found")

// ErrNoEmptyString rejects empty passwords before they reach bcrypt
var ErrNoEmptyString = errors.New("value must not be an empty string")

// ErrMismatchedHashAndPassword is the internal bcrypt mismatch signal
var ErrMismatchedHashAndPassword = errors.New("password does not match hash")

// ErrTokenReused marks a rotation that lost to a concurrent (or malicious)
// consumer of the same jti. The orchestrator treats it as family compromise.
var ErrTokenReused = errors.New("refresh token already consumed")

// ErrUnableToFindSession is the error when our request has no cookie
var ErrUnableToFindSession = errors.New("unable to find session")

// ErrUnableToDecodeSession unable to decode JWT from session cookie
var ErrUnableToDecodeSession = errors.New("unable to decode session")

// ErrUnableToParseData parse error
var ErrUnableToParseData = errors.New("unable to parse data")

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.TextCode == TextCodeTokenExpired {
		return true
	}

	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.TextCode == TextCodeTokenMalformed {
		return true
	}

	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
