// Package repository declares the storage contracts the service layer
// depends on. Implementations live in the sqlite and postgres subpackages.
//
// Uniqueness of email and username is enforced by the store's unique
// constraints, never by a lookup before insert: CreateUser reports a
// violation as apperror.DuplicateIdentity naming the offending field.
package repository

import (
	"context"

	"github.com/sakif/base-backend/internal/model"
)

type UserRepository interface {
	// CreateUser inserts user, assigning ID, CreatedAt and UpdatedAt.
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	// GetUserByEmail matches the normalized email exactly.
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	// SetUserActive flips is_active and refreshes updated_at.
	SetUserActive(ctx context.Context, id string, active bool) (*model.User, error)
}

// Pinger checks datastore connectivity. The readiness probe depends only on this.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Store is everything a concrete backend provides.
type Store interface {
	UserRepository
	Pinger
	Close() error
}
