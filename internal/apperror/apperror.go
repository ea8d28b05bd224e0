// Package apperror defines the error taxonomy shared by every layer.
//
// Each *AppError wraps one sentinel so callers can branch with errors.Is
// without caring which layer produced the failure:
//
//	ErrValidation    → malformed input, never reaches persistence
//	ErrConflict      → uniqueness violation (DuplicateIdentity), field-scoped
//	ErrNotFound      → lookup by id/email found nothing
//	ErrUnauthorized  → credentials rejected
//	ErrUnavailable   → a dependency (the datastore) could not be reached
//	ErrConfiguration → a required setting is missing; fatal at startup only
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrValidation    = errors.New("validation error")
	ErrConflict      = errors.New("conflict")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrUnavailable   = errors.New("dependency unavailable")
	ErrConfiguration = errors.New("configuration error")
)

type AppError struct {
	Err     error  // sentinel
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
	Cause   error  // Optional: underlying infrastructure error
}

func (e *AppError) Error() string {
	return e.Message
}

// Unwrap exposes both the sentinel and the cause, so errors.Is matches
// ErrUnavailable as well as e.g. context.DeadlineExceeded.
func (e *AppError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// DuplicateIdentity reports a uniqueness violation on a user identity field
// ("email" or "username"). HTTP handlers map this to 409 Conflict.
func DuplicateIdentity(field string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("a user with this %s already exists", field),
		Field:   field,
	}
}

// Unauthorized is returned when credentials do not match an active account.
// The message is deliberately the same for every cause.
func Unauthorized() *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: "invalid email or password",
	}
}

// Unavailable wraps an infrastructure failure of the named dependency.
// The message carries the cause's text; handlers decide whether to expose it.
func Unavailable(dependency string, cause error) *AppError {
	msg := dependency + " unavailable"
	if cause != nil {
		msg = cause.Error()
	}
	return &AppError{
		Err:     ErrUnavailable,
		Message: msg,
		Field:   dependency,
		Cause:   cause,
	}
}

// Configuration reports a missing or invalid setting. Field holds the
// environment variable name.
func Configuration(key, message string) *AppError {
	return &AppError{
		Err:     ErrConfiguration,
		Message: fmt.Sprintf("%s: %s", key, message),
		Field:   key,
	}
}

// FieldOf returns the Field of the first *AppError in err's chain, or "".
func FieldOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Field
	}
	return ""
}
