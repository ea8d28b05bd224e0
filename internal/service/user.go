// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes to the database
//
// The only business domain here is identity: creating accounts, checking
// credentials and deactivating accounts. The service takes a
// repository.UserRepository (interface), so tests run it against the
// in-memory SQLite store or a hand-written fake, and production against
// Postgres, without the service importing either.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/sakif/base-backend/internal/apperror"
	"github.com/sakif/base-backend/internal/auth"
	"github.com/sakif/base-backend/internal/logging"
	"github.com/sakif/base-backend/internal/model"
	"github.com/sakif/base-backend/internal/repository"
)

// PasswordHasher is the slice of auth.PasswordService the service needs.
// The deployment profile picks the cost: 12 normally, bcrypt.MinCost in tests.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(hash, plaintext string) error
	Unusable() string
}

// compile-time check that the bcrypt service satisfies PasswordHasher
var _ PasswordHasher = (*auth.PasswordService)(nil)

// UserService handles account creation, credential checks and deactivation.
type UserService struct {
	users     repository.UserRepository
	passwords PasswordHasher
	logger    *slog.Logger

	// dummyHash is verified against when the email is unknown, so a miss
	// costs the same bcrypt work as a wrong password.
	dummyOnce sync.Once
	dummyHash string
}

// NewUserService creates a new UserService.
func NewUserService(users repository.UserRepository, passwords PasswordHasher, logger *slog.Logger) *UserService {
	return &UserService{
		users:     users,
		passwords: passwords,
		logger:    logging.Named(logger, "apps.users"),
	}
}

// CreateUserParams are the inputs of CreateUser. Only Email is required.
type CreateUserParams struct {
	Email    string
	Password string // empty → the account gets an unusable password
	Username string // empty → generated from the email
	FullName string

	IsStaff     bool
	IsSuperuser bool
}

// CreateUser validates p and persists a new, active account.
//
// ORDER OF OPERATIONS:
//  1. Normalize and validate every field (no I/O yet)
//  2. Hash the password (CPU-bound, on the caller's goroutine)
//  3. INSERT (the store's unique constraints decide duplicates)
//
// Errors:
//   - apperror.ErrValidation for malformed input (Field names the input)
//   - apperror.ErrConflict (DuplicateIdentity) when email or username is taken;
//     nothing is overwritten
func (s *UserService) CreateUser(ctx context.Context, p CreateUserParams) (*model.User, error) {
	// === VALIDATION ===
	email := NormalizeEmail(p.Email)
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}

	username := strings.TrimSpace(p.Username)
	if username == "" {
		username = GenerateUsername(email)
	} else if err := ValidateUsername(username); err != nil {
		return nil, err
	}

	fullName := strings.TrimSpace(p.FullName)
	if utf8.RuneCountInString(fullName) > model.MaxFullNameLength {
		return nil, apperror.ValidationFailed("full_name",
			fmt.Sprintf("full name must be %d characters or less", model.MaxFullNameLength))
	}

	if p.IsSuperuser && !p.IsStaff {
		return nil, apperror.ValidationFailed("is_staff", "a superuser must have is_staff=true")
	}

	// === PASSWORD ===
	var hash string
	if p.Password == "" {
		hash = s.passwords.Unusable()
	} else {
		h, err := s.passwords.Hash(p.Password)
		if err != nil {
			return nil, err
		}
		hash = h
	}

	user := &model.User{
		Email:        email,
		Username:     username,
		FullName:     fullName,
		PasswordHash: hash,
		IsActive:     true,
		IsStaff:      p.IsStaff,
		IsSuperuser:  p.IsSuperuser,
	}

	// === PERSIST ===
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			s.logger.InfoContext(ctx, "user not created: identity taken",
				slog.String("field", apperror.FieldOf(err)),
			)
			return nil, err
		}
		s.logger.ErrorContext(ctx, "failed to create user", logging.Exception(err))
		return nil, fmt.Errorf("creating user: %w", err)
	}

	s.logger.InfoContext(ctx, "user created",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
		slog.Bool("is_staff", user.IsStaff),
		slog.Bool("is_superuser", user.IsSuperuser),
	)
	return user, nil
}

// CreateSuperuserParams are the inputs of CreateSuperuser.
//
// IsStaff and IsSuperuser are pointers so the service can tell "not given"
// (nil, forced to true) from an explicit false, which is rejected.
type CreateSuperuserParams struct {
	Email    string
	Password string
	Username string
	FullName string

	IsStaff     *bool
	IsSuperuser *bool
}

// CreateSuperuser creates an account with is_staff and is_superuser set.
// An explicit false for either flag is a validation error naming the flag.
func (s *UserService) CreateSuperuser(ctx context.Context, p CreateSuperuserParams) (*model.User, error) {
	if p.IsStaff != nil && !*p.IsStaff {
		return nil, apperror.ValidationFailed("is_staff", "superuser must have is_staff=true")
	}
	if p.IsSuperuser != nil && !*p.IsSuperuser {
		return nil, apperror.ValidationFailed("is_superuser", "superuser must have is_superuser=true")
	}

	return s.CreateUser(ctx, CreateUserParams{
		Email:       p.Email,
		Password:    p.Password,
		Username:    p.Username,
		FullName:    p.FullName,
		IsStaff:     true,
		IsSuperuser: true,
	})
}

// Authenticate returns the active user whose email and password match.
//
// Every rejection (unknown email, wrong password, inactive account, no
// usable password) is the same apperror.Unauthorized, so callers can't
// probe which emails are registered.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	email = NormalizeEmail(email)

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			_ = s.passwords.Verify(s.timingHash(), password)
			return nil, apperror.Unauthorized()
		}
		return nil, fmt.Errorf("authenticating: %w", err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) || errors.Is(err, auth.ErrUnusablePassword) {
			return nil, apperror.Unauthorized()
		}
		return nil, fmt.Errorf("authenticating: %w", err)
	}

	if !user.IsActive {
		return nil, apperror.Unauthorized()
	}
	return user, nil
}

func (s *UserService) timingHash() string {
	s.dummyOnce.Do(func() {
		// Hash only fails for >72-byte input, which this isn't.
		s.dummyHash, _ = s.passwords.Hash("timing-equalizer-password")
	})
	return s.dummyHash
}

// Deactivate sets is_active=false. It is the only way an account is removed;
// rows are never deleted. Deactivating an inactive account is a no-op
// apart from refreshing updated_at.
func (s *UserService) Deactivate(ctx context.Context, id string) (*model.User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "user ID is required")
	}

	user, err := s.users.SetUserActive(ctx, id, false)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		s.logger.ErrorContext(ctx, "failed to deactivate user",
			slog.String("user_id", id),
			logging.Exception(err),
		)
		return nil, fmt.Errorf("deactivating user: %w", err)
	}

	s.logger.InfoContext(ctx, "user deactivated", slog.String("user_id", id))
	return user, nil
}

// GetByID retrieves a user. Returns apperror.ErrNotFound if there is none.
func (s *UserService) GetByID(ctx context.Context, id string) (*model.User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "user ID is required")
	}
	return s.users.GetUserByID(ctx, id)
}

// GetByEmail retrieves a user by email, normalizing it first.
func (s *UserService) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.users.GetUserByEmail(ctx, NormalizeEmail(email))
}
