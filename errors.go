package authcore

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes carried in the response envelope.
const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeUserNotFound       = "USER_NOT_FOUND"
	CodeEmailAlreadyExists = "EMAIL_ALREADY_EXISTS"
	CodeInvalidToken       = "INVALID_TOKEN"
	CodeTokenExpired       = "TOKEN_EXPIRED"
	CodeTokenRevoked       = "TOKEN_REVOKED"
	CodeUserInactive       = "USER_INACTIVE"
	CodeUserSuspended      = "USER_SUSPENDED"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeInvalidPassword    = "INVALID_PASSWORD"
	CodeRateLimitExceeded  = "RATE_LIMIT_EXCEEDED"
	CodeNotFound           = "NOT_FOUND"
	CodeInternal           = "INTERNAL_ERROR"
)

// Sentinel errors for use with errors.Is(). Any *AuthError with the same
// code matches, so a sentinel also matches copies carrying a field, a
// message override or a wrapped cause.
var (
	ErrValidation         = &AuthError{Status: http.StatusBadRequest, Code: CodeValidation, Message: MsgValidationFailed}
	ErrInvalidCredentials = &AuthError{Status: http.StatusUnauthorized, Code: CodeInvalidCredentials, Message: MsgInvalidCredentials}
	ErrUserNotFound       = &AuthError{Status: http.StatusNotFound, Code: CodeUserNotFound, Message: MsgUserNotFound}
	ErrEmailAlreadyExists = &AuthError{Status: http.StatusConflict, Code: CodeEmailAlreadyExists, Message: MsgEmailAlreadyExists, Field: FieldEmail}
	ErrInvalidToken       = &AuthError{Status: http.StatusUnauthorized, Code: CodeInvalidToken, Message: MsgInvalidToken}
	ErrTokenExpired       = &AuthError{Status: http.StatusUnauthorized, Code: CodeTokenExpired, Message: MsgTokenExpired}
	ErrTokenRevoked       = &AuthError{Status: http.StatusUnauthorized, Code: CodeTokenRevoked, Message: MsgTokenRevoked}
	ErrUserInactive       = &AuthError{Status: http.StatusForbidden, Code: CodeUserInactive, Message: MsgUserInactive}
	ErrUserSuspended      = &AuthError{Status: http.StatusForbidden, Code: CodeUserSuspended, Message: MsgUserSuspended}
	ErrUnauthorized       = &AuthError{Status: http.StatusUnauthorized, Code: CodeUnauthorized, Message: MsgUnauthorized}
	ErrForbidden          = &AuthError{Status: http.StatusForbidden, Code: CodeForbidden, Message: MsgForbidden}
	ErrInvalidPassword    = &AuthError{Status: http.StatusBadRequest, Code: CodeInvalidPassword, Message: MsgInvalidPassword}
	ErrRateLimitExceeded  = &AuthError{Status: http.StatusTooManyRequests, Code: CodeRateLimitExceeded, Message: MsgRateLimitAuth}
	ErrNotFound           = &AuthError{Status: http.StatusNotFound, Code: CodeNotFound, Message: "Not found"}
	ErrInternal           = &AuthError{Status: http.StatusInternalServerError, Code: CodeInternal, Message: MsgInternal}
)

// Configuration errors.
var (
	ErrConfigInvalid = errors.New("configuration is invalid")
	ErrStoreRequired = errors.New("store is required")
)

// FieldError describes one failing input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// AuthError is a structured error carrying everything needed to render the
// response envelope.
type AuthError struct {
	Status  int
	Code    string
	Message string
	Field   string
	Errors  []FieldError

	// Err is the underlying cause. Never rendered.
	Err error
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for use with errors.Is() and errors.As().
func (e *AuthError) Unwrap() error {
	return e.Err
}

// Is matches any *AuthError with the same code.
func (e *AuthError) Is(target error) bool {
	t, ok := target.(*AuthError)
	return ok && t.Code == e.Code
}

// WithStatus returns a copy with a different HTTP status.
func (e *AuthError) WithStatus(status int) *AuthError {
	cp := *e
	cp.Status = status
	return &cp
}

// WithMessage returns a copy with a different message.
func (e *AuthError) WithMessage(msg string) *AuthError {
	cp := *e
	cp.Message = msg
	return &cp
}

// WithField returns a copy tagged with the offending field.
func (e *AuthError) WithField(field string) *AuthError {
	cp := *e
	cp.Field = field
	return &cp
}

// Wrap returns a copy carrying err as its cause.
func (e *AuthError) Wrap(err error) *AuthError {
	cp := *e
	cp.Err = err
	return &cp
}

// NewAuthError creates a new AuthError.
func NewAuthError(status int, code, message string, err error) *AuthError {
	return &AuthError{Status: status, Code: code, Message: message, Err: err}
}

// NewValidationError builds a VALIDATION_ERROR from the failing fields. The
// top-level message and field are those of the first failure.
func NewValidationError(errs ...FieldError) *AuthError {
	e := *ErrValidation
	e.Errors = errs
	if len(errs) > 0 {
		e.Message = errs[0].Message
		e.Field = errs[0].Field
	}
	return &e
}

// Internal wraps an unexpected failure.
func Internal(err error) *AuthError {
	return ErrInternal.Wrap(err)
}

// AsAuthError converts any error into an *AuthError. Unknown errors become
// INTERNAL_ERROR with a generic message.
func AsAuthError(err error) *AuthError {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae
	}
	return Internal(err)
}

// IsTokenError returns true if the error is a token verification failure.
func IsTokenError(err error) bool {
	return errors.Is(err, ErrTokenExpired) ||
		errors.Is(err, ErrInvalidToken) ||
		errors.Is(err, ErrTokenRevoked)
}

// IsClientError returns true for errors caused by the request rather than
// the server.
func IsClientError(err error) bool {
	ae := AsAuthError(err)
	return ae.Status >= 400 && ae.Status < 500
}
