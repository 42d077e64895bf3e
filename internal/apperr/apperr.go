// Package apperr defines the closed set of domain error codes used across
// OpenVault services. Services return *Error values; the HTTP boundary maps
// codes to statuses. Callers match with errors.As or CodeOf, never by
// comparing message strings.
package apperr

import (
	"errors"
	"fmt"
)

// Code identifies one domain failure. The set is closed: services never
// invent codes outside this list.
type Code string

const (
	// Credential subsystem.
	CodeEmailExists         Code = "EMAIL_EXISTS"
	CodeInvalidCredentials  Code = "INVALID_CREDENTIALS"
	CodeMfaRequired         Code = "MFA_REQUIRED"
	CodeInvalidMfa          Code = "INVALID_MFA"
	CodeTokenExpired        Code = "TOKEN_EXPIRED"
	CodeInvalidRefresh      Code = "INVALID_REFRESH"
	CodeMfaSetupIncomplete  Code = "MFA_SETUP_INCOMPLETE"
	CodeUserSetupIncomplete Code = "USER_SETUP_INCOMPLETE"
	CodeUnauthorized        Code = "UNAUTHORIZED"

	// Share-link gate.
	CodeWrongPassword  Code = "WRONG_PASSWORD"
	CodeWrongOtp       Code = "WRONG_OTP"
	CodeNoPassword     Code = "NO_PASSWORD"
	CodeNoOtp          Code = "NO_OTP"
	CodeLinkDisabled   Code = "LINK_DISABLED"
	CodeLinkExpired    Code = "EXPIRED"
	CodeLimitReached   Code = "LIMIT_REACHED"
	CodeNotYetOpen     Code = "NOT_YET_OPEN"
	CodeNotFound       Code = "NOT_FOUND"
	CodeFileNotInShare Code = "FILE_NOT_IN_SHARE"

	// Boundary.
	CodeValidationFailed Code = "VALIDATION_FAILED"
	CodeInternal         Code = "INTERNAL_ERROR"
)

// Error is a typed domain failure. Message is user-visible; Err, when set,
// carries internal detail for the log only.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is match two *Error values by code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// New builds a typed error with a user-visible message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap builds a typed error around an internal cause.
func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// Internal wraps an unexpected failure. The cause never reaches the client.
func Internal(err error) *Error {
	return &Error{Code: CodeInternal, Message: "internal error", Err: err}
}

// CodeOf extracts the domain code from err, or CodeInternal when err is not
// a typed domain error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}
