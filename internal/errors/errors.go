package errors

import (
	"errors"
	"fmt"
)

// Kind classifies an operational error. The transport layer maps each kind
// to an HTTP status exactly once; business code never hard-codes statuses.
type Kind int

const (
	KindValidation Kind = iota
	KindUnauthorized
	KindForbidden
	KindConflict
	KindPrecondition
	KindRateLimited
	KindNotFound
	KindInternal
)

// Error is the single operational error type for the service. Anything that
// reaches the transport layer and is not an *Error is treated as a
// programming error and rendered as a generic 500.
type Error struct {
	Kind    Kind
	Status  int
	Code    string
	Message string

	// RetryAfter is set only on rate-limit errors, in seconds.
	RetryAfter int
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is compares errors by code so the sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

func Validation(code, message string) *Error {
	return &Error{Kind: KindValidation, Status: 400, Code: code, Message: message}
}

func Unauthorized(code, message string) *Error {
	return &Error{Kind: KindUnauthorized, Status: 401, Code: code, Message: message}
}

func Forbidden(code, message string) *Error {
	return &Error{Kind: KindForbidden, Status: 403, Code: code, Message: message}
}

func Conflict(code, message string) *Error {
	return &Error{Kind: KindConflict, Status: 409, Code: code, Message: message}
}

func Precondition(code, message string) *Error {
	return &Error{Kind: KindPrecondition, Status: 428, Code: code, Message: message}
}

func RateLimited(retryAfterSeconds int) *Error {
	return &Error{
		Kind:       KindRateLimited,
		Status:     429,
		Code:       "RATE_LIMITED",
		Message:    fmt.Sprintf("too many requests, retry in %d seconds", retryAfterSeconds),
		RetryAfter: retryAfterSeconds,
	}
}

func NotFound(code, message string) *Error {
	return &Error{Kind: KindNotFound, Status: 404, Code: code, Message: message}
}

func Internal(message string) *Error {
	return &Error{Kind: KindInternal, Status: 500, Code: "INTERNAL_ERROR", Message: message}
}

// Common sentinels. Credential failures share one shape so responses never
// reveal whether an account exists.
var (
	ErrInvalidCredentials  = Unauthorized("INVALID_CREDENTIALS", "invalid email or password")
	ErrInvalidMfaCode      = Unauthorized("INVALID_MFA_CODE", "invalid MFA code")
	ErrMfaRequired         = Precondition("MFA_REQUIRED", "MFA code required")
	ErrUserExists          = Conflict("USER_EXISTS", "email already in use")
	ErrInvalidRefreshToken = Unauthorized("INVALID_REFRESH_TOKEN", "invalid refresh token")
	ErrTokenRevoked        = Unauthorized("TOKEN_REVOKED", "refresh token revoked")
	ErrTokenExpired        = Unauthorized("TOKEN_EXPIRED", "token expired")
	ErrTokenInvalid        = Unauthorized("TOKEN_INVALID", "token invalid")
	ErrUserInactive        = Unauthorized("USER_INACTIVE", "user account is inactive")
	ErrInvalidPassword     = Unauthorized("INVALID_PASSWORD", "current password is incorrect")
	ErrInvalidResetToken   = Validation("INVALID_RESET_TOKEN", "reset token is invalid or expired")
	ErrInvalidSetupToken   = NotFound("INVALID_SETUP_TOKEN", "MFA setup token is invalid or expired")
	ErrNotAuthenticated    = Unauthorized("NOT_AUTHENTICATED", "authentication required")
	ErrInsufficientRole    = Forbidden("INSUFFICIENT_PERMISSIONS", "insufficient permissions")
	ErrAuthorizationFailed = Forbidden("AUTHORIZATION_FAILED", "authorization failed")
)

// AccountLocked builds the lockout rejection with the remaining minutes,
// the only lock detail safe to expose.
func AccountLocked(minutesRemaining int) *Error {
	return Forbidden("ACCOUNT_LOCKED",
		fmt.Sprintf("account locked, try again in %d minutes", minutesRemaining))
}

// From extracts the operational error, or wraps unknown errors as internal.
func From(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal("an unexpected error occurred")
}
