package places

import (
	"strings"

	"github.com/goliatone/go-errors"
)

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = errors.New("identity not found", errors.CategoryNotFound).
	WithTextCode("IDENTITY_NOT_FOUND").
	WithCode(errors.CodeNotFound)

// ErrInvalidCredentials covers both an unknown identifier and a bad
// password so the response does not reveal which one failed.
var ErrInvalidCredentials = errors.New("invalid credentials, please try again", errors.CategoryAuth).
	WithTextCode("INVALID_CREDENTIALS").
	WithCode(errors.CodeUnauthorized)

// ErrTokenExpired is returned when a token fails validation due to age
var ErrTokenExpired = errors.New("token is expired", errors.CategoryAuth).
	WithTextCode("TOKEN_EXPIRED").
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed is returned for any other token validation failure
var ErrTokenMalformed = errors.New("token is malformed", errors.CategoryAuth).
	WithTextCode("TOKEN_MALFORMED").
	WithCode(errors.CodeUnauthorized)

// ErrAuthorizationFailed is the guard's single outward rejection; token
// problems of every kind collapse into it before leaving the middleware.
var ErrAuthorizationFailed = errors.New("authorization failed", errors.CategoryAuth).
	WithTextCode("AUTHORIZATION_FAILED").
	WithCode(errors.CodeUnauthorized)

// ErrNotAuthorized is returned when a caller mutates a resource they do not own
var ErrNotAuthorized = errors.New("you are not authorized", errors.CategoryAuth).
	WithTextCode("NOT_AUTHORIZED").
	WithCode(errors.CodeUnauthorized)

// ErrUserNotFound is returned when a user lookup comes back empty
var ErrUserNotFound = errors.New("could not find user for the provided id", errors.CategoryNotFound).
	WithTextCode("USER_NOT_FOUND").
	WithCode(errors.CodeNotFound)

// ErrPlaceNotFound is returned when a place lookup comes back empty
var ErrPlaceNotFound = errors.New("could not find place for the provided id", errors.CategoryNotFound).
	WithTextCode("PLACE_NOT_FOUND").
	WithCode(errors.CodeNotFound)

// ErrEmailTaken is returned on signup with an already registered email
var ErrEmailTaken = errors.New("user with that email already exists", errors.CategoryConflict).
	WithTextCode("EMAIL_TAKEN").
	WithCode(errors.CodeConflict)

// ErrNoEmptyString rejects empty passwords before hashing
var ErrNoEmptyString = errors.New("value must not be empty", errors.CategoryBadInput).
	WithTextCode("EMPTY_VALUE").
	WithCode(errors.CodeBadRequest)

// ErrMismatchedHashAndPassword is the mismatch sentinel for password checks
var ErrMismatchedHashAndPassword = errors.New("password does not match", errors.CategoryAuth).
	WithTextCode("PASSWORD_MISMATCH").
	WithCode(errors.CodeUnauthorized)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
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
