package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/xid"

	"github.com/sakif/base-backend/internal/apperror"
	"github.com/sakif/base-backend/internal/model"
	"github.com/sakif/base-backend/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, email, username, full_name, password, is_email_verified,
	is_active, is_staff, is_superuser, created_at, updated_at`

// uniqueViolationCode is SQLSTATE unique_violation.
const uniqueViolationCode = "23505"

// Constraint names from migrations/00001_create_users.sql.
var constraintFields = map[string]string{
	"users_email_key":    "email",
	"users_username_key": "username",
}

// CreateUser inserts a new user row and fills in ID and timestamps.
// A unique violation is reported as apperror.DuplicateIdentity for the
// column whose constraint failed.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	now := time.Now().UTC().Truncate(time.Microsecond)
	id := xid.New().String()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		id,
		user.Email,
		user.Username,
		user.FullName,
		user.PasswordHash,
		user.IsEmailVerified,
		user.IsActive,
		user.IsStaff,
		user.IsSuperuser,
		now,
		now,
	)
	if err != nil {
		if field, ok := uniqueViolation(err); ok {
			return apperror.DuplicateIdentity(field)
		}
		return fmt.Errorf("postgres: inserting user: %w", err)
	}

	user.ID = id
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

// GetUserByID retrieves a user by their internal ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	u, err := scanUser(db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("postgres: getting user %s: %w", id, err)
	}
	return u, nil
}

// GetUserByEmail retrieves a user by exact (already normalized) email.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	u, err := scanUser(db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", email)
		}
		return nil, fmt.Errorf("postgres: getting user by email: %w", err)
	}
	return u, nil
}

// SetUserActive updates is_active and updated_at in one statement and
// returns the row as stored.
func (db *DB) SetUserActive(ctx context.Context, id string, active bool) (*model.User, error) {
	now := time.Now().UTC().Truncate(time.Microsecond)

	u, err := scanUser(db.conn.QueryRowContext(ctx,
		`UPDATE users SET is_active = $1, updated_at = $2 WHERE id = $3
		 RETURNING `+userColumns,
		active, now, id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("postgres: updating user %s: %w", id, err)
	}
	return u, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*model.User, error) {
	var u model.User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Username,
		&u.FullName,
		&u.PasswordHash,
		&u.IsEmailVerified,
		&u.IsActive,
		&u.IsStaff,
		&u.IsSuperuser,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return &u, nil
}

// uniqueViolation maps a Postgres unique_violation to the identity field
// whose constraint failed.
func uniqueViolation(err error) (field string, ok bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolationCode {
		return "", false
	}
	field, ok = constraintFields[pgErr.ConstraintName]
	return field, ok
}
