package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sakif/base-backend/internal/apperror"
	"github.com/sakif/base-backend/internal/model"
	"github.com/sakif/base-backend/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, email, username, full_name, password, is_email_verified,
	is_active, is_staff, is_superuser, created_at, updated_at`

// CreateUser inserts a new user row.
//
// ID AND TIMESTAMPS:
// The ID (xid) and both timestamps are assigned here and written back into
// the caller's struct, so the service returns a fully populated entity
// without a second SELECT. Timestamps are UTC, truncated to microseconds so
// values round-trip identically through SQLite and Postgres.
//
// UNIQUENESS:
// There is deliberately no "SELECT ... WHERE email = ?" first. Two requests
// racing to create the same email would both pass such a check. The UNIQUE
// constraint is atomic; the loser's INSERT fails and is mapped to
// apperror.DuplicateIdentity naming the column.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	now := time.Now().UTC().Truncate(time.Microsecond)
	id := xid.New().String()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
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
		return fmt.Errorf("sqlite: inserting user: %w", err)
	}

	user.ID = id
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

// GetUserByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	u, err := scanUser(db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return u, nil
}

// GetUserByEmail retrieves a user by exact (already normalized) email.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	u, err := scanUser(db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", email)
		}
		return nil, fmt.Errorf("sqlite: getting user by email: %w", err)
	}
	return u, nil
}

// SetUserActive updates is_active and updated_at, then returns the stored row.
//
// RowsAffected == 0 means the id does not exist (the UPDATE matched
// nothing), which is reported as NotFound rather than silently succeeding.
func (db *DB) SetUserActive(ctx context.Context, id string, active bool) (*model.User, error) {
	now := time.Now().UTC().Truncate(time.Microsecond)

	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET is_active = ?, updated_at = ? WHERE id = ?`,
		active, now, id,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: updating user %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return nil, apperror.NotFound("user", id)
	}

	return db.GetUserByID(ctx, id)
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
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

// uniqueViolation reports whether err is a UNIQUE constraint failure and,
// if so, which identity column caused it. SQLite's message names the column
// as "users.email" / "users.username".
func uniqueViolation(err error) (field string, ok bool) {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return "", false
	}
	if se.Code() != sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return "", false
	}
	msg := strings.ToLower(se.Error())
	switch {
	case strings.Contains(msg, "users.email"):
		return "email", true
	case strings.Contains(msg, "users.username"):
		return "username", true
	}
	return "", false
}
