package auth

import (
	"bufio"
	_ "embed"
	"regexp"
	"strings"
	"sync"
	"unicode"

	"github.com/sakif/base-backend/internal/apperror"
)

// MinPasswordLength is the shortest password the policy accepts.
const MinPasswordLength = 12

// maxSimilarity is the character-overlap ratio (0..1) at or above which a
// password counts as too similar to one of the user's attributes.
const maxSimilarity = 0.7

//go:embed common_passwords.txt
var commonPasswordsFile string

var (
	commonOnce      sync.Once
	commonPasswords map[string]struct{}
)

func loadCommonPasswords() map[string]struct{} {
	commonOnce.Do(func() {
		commonPasswords = make(map[string]struct{})
		sc := bufio.NewScanner(strings.NewReader(commonPasswordsFile))
		for sc.Scan() {
			if line := strings.TrimSpace(sc.Text()); line != "" && !strings.HasPrefix(line, "#") {
				commonPasswords[strings.ToLower(line)] = struct{}{}
			}
		}
	})
	return commonPasswords
}

var attributeSplit = regexp.MustCompile(`\W+`)

// ValidatePassword applies the password policy used when an operator sets a
// password interactively:
//
//   - at least MinPasswordLength characters
//   - not entirely numeric
//   - not on the common-password list
//   - not too similar to any of attributes (email, full name)
//
// All violations are reported together in one validation error on the
// "password" field.
func ValidatePassword(password string, attributes ...string) error {
	var problems []string

	if len([]rune(password)) < MinPasswordLength {
		problems = append(problems, "This password is too short. It must contain at least 12 characters.")
	}
	if password != "" && isNumeric(password) {
		problems = append(problems, "This password is entirely numeric.")
	}
	if _, ok := loadCommonPasswords()[strings.ToLower(strings.TrimSpace(password))]; ok {
		problems = append(problems, "This password is too common.")
	}
	if tooSimilar(password, attributes) {
		problems = append(problems, "The password is too similar to your personal details.")
	}

	if len(problems) == 0 {
		return nil
	}
	return apperror.ValidationFailed("password", strings.Join(problems, " "))
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// tooSimilar compares the password against each attribute and against each
// word of it (so "jane.doe@example.com" is also checked as "jane", "doe", ...).
func tooSimilar(password string, attributes []string) bool {
	pw := strings.ToLower(password)
	if pw == "" {
		return false
	}
	for _, attr := range attributes {
		attr = strings.ToLower(strings.TrimSpace(attr))
		if attr == "" {
			continue
		}
		candidates := append([]string{attr}, attributeSplit.Split(attr, -1)...)
		for _, c := range candidates {
			if len(c) < 3 {
				continue
			}
			if similarity(pw, c) >= maxSimilarity {
				return true
			}
		}
	}
	return false
}

// similarity is 2*L/T where L is the length of the longest common
// subsequence of a and b and T their combined length: 1 for equal strings,
// 0 for strings sharing no characters.
func similarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	if len(ra)+len(rb) == 0 {
		return 0
	}
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for i := 1; i <= len(ra); i++ {
		for j := 1; j <= len(rb); j++ {
			switch {
			case ra[i-1] == rb[j-1]:
				cur[j] = prev[j-1] + 1
			case prev[j] >= cur[j-1]:
				cur[j] = prev[j]
			default:
				cur[j] = cur[j-1]
			}
		}
		prev, cur = cur, prev
	}
	return 2 * float64(prev[len(rb)]) / float64(len(ra)+len(rb))
}
