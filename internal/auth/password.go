// Package auth holds credential handling for the identity model: bcrypt
// password hashing and the password strength policy.
//
// WHY BCRYPT?
// bcrypt is a password hashing function specifically designed to be slow.
// That slowness is what makes brute-force attacks expensive.
//
// bcrypt automatically:
//   - Generates a random salt (two users with the same password get different hashes)
//   - Embeds the salt in the output hash (no separate salt column needed)
//   - Controls the work factor via "cost" (higher = slower = harder to crack)
//
// Hash format (the full output of bcrypt.GenerateFromPassword):
//
//	$2a$12$<22-char salt><31-char hash>
//	 ^   ^
//	 |   cost (12 rounds → 2^12 = 4096 iterations)
//	 version
//
// UNUSABLE PASSWORDS:
// An account created without a password stores "!" followed by random
// characters. No bcrypt hash starts with "!", so Verify can reject it without
// ever calling bcrypt, and the column is never empty.
package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/xid"
	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/base-backend/internal/apperror"
)

// defaultCost is the bcrypt work factor used outside the test profile.
//
// COST TUNING RULE OF THUMB:
// Set cost so that hashing takes ~200–300ms on your production hardware.
// Too low → easy to crack. Too high → login is sluggish and your server
// spends all its time on bcrypt during traffic spikes.
const defaultCost = 12

// maxPasswordBytes is bcrypt's input limit. Longer inputs are silently
// truncated by bcrypt, so Hash rejects them instead.
const maxPasswordBytes = 72

// unusablePrefix marks a stored password that can never match.
const unusablePrefix = "!"

var (
	// ErrPasswordMismatch is returned by Verify when the password is wrong.
	ErrPasswordMismatch = errors.New("auth: invalid password")
	// ErrUnusablePassword is returned by Verify for accounts without a password.
	ErrUnusablePassword = errors.New("auth: account has no usable password")
)

// PasswordService provides bcrypt hashing and verification.
//
// It's a struct (not free functions) so that the cost can be injected:
// the test profile uses bcrypt.MinCost so suites run in milliseconds.
type PasswordService struct {
	cost int
}

// NewPasswordService creates a PasswordService with the default cost (12).
func NewPasswordService() *PasswordService {
	return &PasswordService{cost: defaultCost}
}

// NewFastPasswordService uses bcrypt.MinCost (4). It is what the test profile
// wires in; never use it for real accounts.
func NewFastPasswordService() *PasswordService {
	return &PasswordService{cost: bcrypt.MinCost}
}

// NewPasswordServiceWithCost creates a PasswordService with a custom cost.
// Costs outside bcrypt's range are clamped by the bcrypt package itself.
func NewPasswordServiceWithCost(cost int) *PasswordService {
	return &PasswordService{cost: cost}
}

// Cost reports the configured work factor.
func (p *PasswordService) Cost() int {
	return p.cost
}

// Hash hashes the given plaintext password with bcrypt.
//
// The output is a self-contained string like:
//
//	$2a$12$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy
//
// Store it directly; it includes the salt and cost.
//
// Returns a validation error if the plaintext is longer than 72 bytes.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if len(plaintext) > maxPasswordBytes {
		return "", apperror.ValidationFailed("password", "password must be 72 bytes or fewer")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}

	return string(hashed), nil
}

// Unusable returns a marker to store for accounts created without a password.
// Each call returns a different value.
func (p *PasswordService) Unusable() string {
	return unusablePrefix + xid.New().String()
}

// IsUsable reports whether hash could ever verify.
func IsUsable(hash string) bool {
	return hash != "" && !strings.HasPrefix(hash, unusablePrefix)
}

// Verify checks whether a plaintext password matches a stored hash.
//
// Returns nil if they match, ErrPasswordMismatch if they don't and
// ErrUnusablePassword for the "no password" marker.
//
// TIMING SAFETY:
// bcrypt.CompareHashAndPassword uses a constant-time comparison internally.
func (p *PasswordService) Verify(hash, plaintext string) error {
	if !IsUsable(hash) {
		return ErrUnusablePassword
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrPasswordMismatch
		}
		return fmt.Errorf("auth: comparing password hash: %w", err)
	}
	return nil
}
