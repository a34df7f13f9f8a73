package accounts

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	// TextCodeInvalidCredentials deliberately covers unknown identity and
	// wrong password so responses never leak which one failed.
	TextCodeInvalidCredentials = "INVALID_CREDENTIALS"
	// TextCodeAccountLocked marks lockout rejections; metadata carries the
	// remaining wait in minutes.
	TextCodeAccountLocked = "ACCOUNT_LOCKED"
	// TextCodeDuplicateIdentity marks signup conflicts on email or username.
	TextCodeDuplicateIdentity = "DUPLICATE_IDENTITY"
	// TextCodeTokenExpired marks expired session tokens.
	TextCodeTokenExpired = "TOKEN_EXPIRED"
	// TextCodeTokenMalformed marks unparseable or badly signed tokens.
	TextCodeTokenMalformed = "TOKEN_MALFORMED"
	// TextCodeResetTokenInvalid marks unknown, expired, or already used
	// password reset tokens.
	TextCodeResetTokenInvalid = "RESET_TOKEN_INVALID"
)

// ErrInvalidCredentials is the generic login failure. Lookup misses and
// password mismatches both map here.
var ErrInvalidCredentials = goerrors.New("invalid username/email or password", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(goerrors.CodeUnauthorized)

// ErrAccountLocked is returned while an account's lock window is active.
var ErrAccountLocked = goerrors.New("account is temporarily locked", goerrors.CategoryAuth).
	WithTextCode(TextCodeAccountLocked).
	WithCode(goerrors.CodeUnauthorized)

// ErrDuplicateIdentity is returned when signup hits an existing email or
// username.
var ErrDuplicateIdentity = goerrors.New("email or username is already registered", goerrors.CategoryConflict).
	WithTextCode(TextCodeDuplicateIdentity).
	WithCode(goerrors.CodeConflict)

// ErrAccountNotFound is the error we return for accounts we cannot resolve.
var ErrAccountNotFound = goerrors.New("account not found", goerrors.CategoryNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrAccountInactive is returned when a deactivated account authenticates
// with otherwise valid credentials.
var ErrAccountInactive = goerrors.New("account has been deactivated", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenExpired is returned for structurally valid session tokens past
// their expiry.
var ErrTokenExpired = goerrors.New("token is expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenMalformed is returned for tokens that fail parsing or signature
// verification.
var ErrTokenMalformed = goerrors.New("token is malformed", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(goerrors.CodeUnauthorized)

// ErrInvalidResetToken covers every reset redemption failure: unknown
// token, expired token, and token already used.
var ErrInvalidResetToken = goerrors.New("invalid or expired reset token", goerrors.CategoryAuth).
	WithTextCode(TextCodeResetTokenInvalid).
	WithCode(goerrors.CodeUnauthorized)

// ErrMismatchedHashAndPassword is the low-level bcrypt mismatch sentinel.
var ErrMismatchedHashAndPassword = goerrors.New("hashed password does not match", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized)

// ErrNoEmptyString rejects empty plaintext passwords before hashing.
var ErrNoEmptyString = goerrors.New("value cannot be an empty string", goerrors.CategoryValidation).
	WithCode(goerrors.CodeBadRequest)

// ErrUnableToFindSession is the error when a request has no session cookie.
var ErrUnableToFindSession = goerrors.New("unable to find session", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized)

// ErrUnableToDecodeSession is returned when claims cannot be decoded from a
// validated token.
var ErrUnableToDecodeSession = goerrors.New("unable to decode session", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized)

// IsAccountLocked reports whether err carries the lockout text code.
func IsAccountLocked(err error) bool {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == TextCodeAccountLocked
}

// IsDuplicateIdentity reports whether err carries the duplicate identity
// text code.
func IsDuplicateIdentity(err error) bool {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == TextCodeDuplicateIdentity
}

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
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
