package domain

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound is returned by stores when the requested record does not exist.
	// The orchestrator translates it into a flow specific error.
	ErrNotFound = errors.New("resource not found")
	// ErrConflict is returned by stores on a uniqueness violation.
	ErrConflict = errors.New("conflict")
	// ErrUnavailable signals that a backing store could not be reached.
	// It is surfaced as 503 and never replaced by a fabricated success path.
	ErrUnavailable = errors.New("service unavailable")

	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidCredentials hides whether the identifier or the password failed.
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrAccountInactive = errors.New("account is not active")
	ErrAccountLocked   = errors.New("account locked")
	ErrRateLimited     = errors.New("rate limited")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrSessionExpired  = errors.New("session token expired")
	ErrNotAdmin        = errors.New("admin privileges required")
	ErrInvalidAdminKey = errors.New("invalid admin creation key")

	ErrInvalidToken   = errors.New("invalid or unknown reset token")
	ErrExpiredToken   = errors.New("reset token expired")
	ErrForbiddenScope = errors.New("token scope does not match this flow")

	ErrInvalidOrExpiredCode = errors.New("invalid or expired verification code")
	ErrAlreadyVerified      = errors.New("contact already verified")

	ErrRefreshTokenMissing = errors.New("refresh token is required")
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")
	ErrInvalidTokenType    = errors.New("invalid token type")

	ErrUserExists   = errors.New("user already exists")
	ErrUserNotFound = errors.New("user not found")
)

// FieldError names one failing validation rule.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects every failing rule of a request.
// It unwraps to ErrInvalidInput so callers can match it with errors.Is.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

// Err returns nil when no rule failed.
func (e *ValidationError) Err() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return ErrInvalidInput.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// Invalid builds a single-field validation error.
func Invalid(field, message string) error {
	v := &ValidationError{}
	v.Add(field, message)
	return v
}
