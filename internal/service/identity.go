package service

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/sakif/base-backend/internal/apperror"
	"github.com/sakif/base-backend/internal/model"
)

// === EMAIL ===

// NormalizeEmail trims surrounding whitespace and lower-cases the domain.
// The local part is kept as typed: "John.Doe@Example.COM" → "John.Doe@example.com".
//
// WHY NOT LOWER-CASE EVERYTHING?
// Per RFC 5321 the local part may be case-sensitive on the receiving server;
// only the domain is case-insensitive. Two addresses differing only in
// local-part case are therefore distinct accounts.
func NormalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}
	return email[:at] + "@" + strings.ToLower(email[at+1:])
}

// ValidateEmail checks that email (already normalized) is a bare address:
// no display name, no angle brackets, a non-empty local part and domain.
func ValidateEmail(email string) error {
	if email == "" {
		return apperror.ValidationFailed("email", "email is required")
	}
	if len(email) > model.MaxEmailLength {
		return apperror.ValidationFailed("email",
			fmt.Sprintf("email must be %d characters or less", model.MaxEmailLength))
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Name != "" || addr.Address != email {
		return apperror.ValidationFailed("email", "enter a valid email address")
	}
	local, domain, _ := strings.Cut(email, "@")
	if local == "" || domain == "" || (!strings.Contains(domain, ".") && domain != "localhost") {
		return apperror.ValidationFailed("email", "enter a valid email address")
	}
	return nil
}

// === USERNAME ===

const (
	// maxUsernameBase is how much of the email local part survives into a
	// generated username.
	maxUsernameBase = 50
	// usernameSuffixLength is the number of random hex chars appended.
	usernameSuffixLength = 12
	fallbackUsername     = "user"
)

// GenerateUsername derives a username from email:
//
//  1. take the local part (before the last "@")
//  2. keep only letters, digits, ".", "_" and "-"
//  3. truncate to 50 characters
//  4. fall back to "user" if nothing is left
//  5. append "_" and 12 random lowercase hex characters
//
// "john.doe+news@example.com" → "john.doenews_3f9a0c1b2d4e"
//
// WHY A RANDOM SUFFIX INSTEAD OF CHECKING THE DATABASE?
// A "does this username exist?" query followed by an INSERT is a race: two
// concurrent sign-ups can both see "free". 48 random bits make a collision
// vanishingly unlikely, and if one ever happens the unique constraint still
// rejects it as DuplicateIdentity{username}.
func GenerateUsername(email string) string {
	local := email
	if at := strings.LastIndex(email, "@"); at >= 0 {
		local = email[:at]
	}

	var b strings.Builder
	n := 0
	for _, r := range local {
		if n == maxUsernameBase {
			break
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.' || r == '_' || r == '-' {
			b.WriteRune(r)
			n++
		}
	}
	base := b.String()
	if base == "" {
		base = fallbackUsername
	}

	return base + "_" + randomHex(usernameSuffixLength)
}

// randomHex returns n lowercase hex chars from a fresh UUIDv4 (n <= 32).
func randomHex(n int) string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:n]
}

// ValidateUsername checks an explicitly supplied username: at most 150
// characters of letters, digits and @ . + - _.
func ValidateUsername(username string) error {
	if username == "" {
		return apperror.ValidationFailed("username", "username must not be empty")
	}
	if utf8.RuneCountInString(username) > model.MaxUsernameLength {
		return apperror.ValidationFailed("username",
			fmt.Sprintf("username must be %d characters or less", model.MaxUsernameLength))
	}
	for _, r := range username {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune("@.+-_", r) {
			continue
		}
		return apperror.ValidationFailed("username",
			"username may contain only letters, digits and @/./+/-/_ characters")
	}
	return nil
}
