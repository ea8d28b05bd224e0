// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents an account. The email address is the login identifier;
// the username is a display handle that is generated when not supplied.
//
// WHY A STRING ID?
// IDs are xids generated by the store (sortable by creation time, URL-safe,
// 20 chars). They keep primary keys independent of any database sequence,
// so the SQLite and Postgres stores hand out the same shape of id.
//
// WHY PasswordHash HAS json:"-"?
// The hash is needed by the service to verify credentials but must never
// leave the process. The "-" tag makes encoding/json skip it entirely, so a
// handler that serializes a User can't leak it by accident.
//
// LIFECYCLE:
// Users are never hard-deleted. Deactivation (IsActive=false) is the only
// removal path.
type User struct {
	ID              string    `json:"id"              db:"id"`
	Email           string    `json:"email"           db:"email"`    // unique, normalized
	Username        string    `json:"username"        db:"username"` // unique, never empty once stored
	FullName        string    `json:"fullName"        db:"full_name"`
	PasswordHash    string    `json:"-"               db:"password"`
	IsEmailVerified bool      `json:"isEmailVerified" db:"is_email_verified"`
	IsActive        bool      `json:"isActive"        db:"is_active"`
	IsStaff         bool      `json:"isStaff"         db:"is_staff"`
	IsSuperuser     bool      `json:"isSuperuser"     db:"is_superuser"`
	CreatedAt       time.Time `json:"createdAt"       db:"created_at"`
	UpdatedAt       time.Time `json:"updatedAt"       db:"updated_at"`
}

// Column limits enforced by both stores and by the service before insert.
const (
	MaxEmailLength    = 254
	MaxUsernameLength = 150
	MaxFullNameLength = 255
)

// String identifies the user in logs without exposing the password hash.
func (u *User) String() string {
	return u.Email
}
