package apperror

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestErrorsIs(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		target    error
		wantMatch bool
	}{
		{
			name:      "NotFound wraps ErrNotFound",
			err:       NotFound("user", "abc123"),
			target:    ErrNotFound,
			wantMatch: true,
		},
		{
			name:      "ValidationFailed wraps ErrValidation",
			err:       ValidationFailed("email", "email is required"),
			target:    ErrValidation,
			wantMatch: true,
		},
		{
			name:      "DuplicateIdentity wraps ErrConflict",
			err:       DuplicateIdentity("email"),
			target:    ErrConflict,
			wantMatch: true,
		},
		{
			name:      "Unavailable wraps ErrUnavailable",
			err:       Unavailable("database", errors.New("connection refused")),
			target:    ErrUnavailable,
			wantMatch: true,
		},
		{
			name:      "Unavailable also matches its cause",
			err:       Unavailable("database", context.DeadlineExceeded),
			target:    context.DeadlineExceeded,
			wantMatch: true,
		},
		{
			name:      "Configuration wraps ErrConfiguration",
			err:       Configuration("SECRET_KEY", "required in production"),
			target:    ErrConfiguration,
			wantMatch: true,
		},
		{
			name:      "wrapped DuplicateIdentity still matches",
			err:       fmt.Errorf("service/user: creating user: %w", DuplicateIdentity("username")),
			target:    ErrConflict,
			wantMatch: true,
		},
		{
			name:      "NotFound does NOT match ErrValidation",
			err:       NotFound("user", "abc123"),
			target:    ErrValidation,
			wantMatch: false,
		},
		{
			name:      "Unauthorized does NOT match ErrNotFound",
			err:       Unauthorized(),
			target:    ErrNotFound,
			wantMatch: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := errors.Is(tt.err, tt.target)
			if got != tt.wantMatch {
				t.Errorf("errors.Is(%v, %v) = %v, want %v", tt.err, tt.target, got, tt.wantMatch)
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name        string
		err         *AppError
		wantMessage string
	}{
		{
			name:        "NotFound message includes resource and id",
			err:         NotFound("user", "abc123"),
			wantMessage: "user not found with id abc123",
		},
		{
			name:        "ValidationFailed uses custom message",
			err:         ValidationFailed("email", "enter a valid email address"),
			wantMessage: "enter a valid email address",
		},
		{
			name:        "DuplicateIdentity names the field",
			err:         DuplicateIdentity("email"),
			wantMessage: "a user with this email already exists",
		},
		{
			name:        "Unavailable surfaces the cause text",
			err:         Unavailable("database", errors.New("dial tcp: connection refused")),
			wantMessage: "dial tcp: connection refused",
		},
		{
			name:        "Unavailable without cause",
			err:         Unavailable("database", nil),
			wantMessage: "database unavailable",
		},
		{
			name:        "Configuration message includes key",
			err:         Configuration("ALLOWED_HOSTS", "required in production"),
			wantMessage: "ALLOWED_HOSTS: required in production",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMessage {
				t.Errorf("Error() = %q, want %q", got, tt.wantMessage)
			}
		})
	}
}

func TestFieldOf(t *testing.T) {
	err := fmt.Errorf("outer: %w", DuplicateIdentity("username"))
	if got := FieldOf(err); got != "username" {
		t.Errorf("FieldOf() = %q, want %q", got, "username")
	}
	if got := FieldOf(errors.New("plain")); got != "" {
		t.Errorf("FieldOf(plain) = %q, want empty", got)
	}
}

func TestDuplicateIdentityField(t *testing.T) {
	err := DuplicateIdentity("email")

	if err.Field != "email" {
		t.Errorf("Field = %q, want %q", err.Field, "email")
	}
}
