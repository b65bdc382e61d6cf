package auth

import (
	"fmt"
	"strings"
	"unicode"

	"commauth/internal/models"
	"commauth/internal/password"
	"commauth/internal/policy"
)

// SpecialChars is the set of characters that satisfy the special-character
// complexity requirement.
const SpecialChars = "!@#$%^&*()-_=+{}[]"

// ValidatePassword accepts or rejects a candidate password. Checks run in a
// fixed order and stop at the first failure, so callers always get the
// cheapest, most actionable reason: length, then each complexity class, then
// common-password membership, then history reuse. history must be ordered
// most-recent-first; pass nil at registration.
func ValidatePassword(candidate string, pol policy.Config, common policy.CommonPasswordSet, history []models.PasswordHistory) error {
	if len(candidate) < pol.MinLength {
		return &ValidationError{Reason: fmt.Sprintf("password must be at least %d characters", pol.MinLength)}
	}

	if pol.Complexity.Uppercase && !containsFunc(candidate, unicode.IsUpper) {
		return &ValidationError{Reason: "password must include an uppercase letter"}
	}
	if pol.Complexity.Lowercase && !containsFunc(candidate, unicode.IsLower) {
		return &ValidationError{Reason: "password must include a lowercase letter"}
	}
	if pol.Complexity.Digits && !containsFunc(candidate, unicode.IsDigit) {
		return &ValidationError{Reason: "password must include a digit"}
	}
	if pol.Complexity.Special && !strings.ContainsAny(candidate, SpecialChars) {
		return &ValidationError{Reason: "password must include a special character"}
	}

	if common.Contains(candidate) {
		return &ValidationError{Reason: "password is too common; please choose a stronger password"}
	}

	if pol.PreventReuse && pol.HistoryCount > 0 {
		entries := history
		if len(entries) > pol.HistoryCount {
			entries = entries[:pol.HistoryCount]
		}
		for _, entry := range entries {
			if password.Verify(candidate, entry.Salt, entry.PasswordHash) {
				return &ValidationError{Reason: fmt.Sprintf("password was used recently; cannot reuse the last %d passwords", pol.HistoryCount)}
			}
		}
	}

	return nil
}

func containsFunc(s string, fn func(rune) bool) bool {
	for _, r := range s {
		if fn(r) {
			return true
		}
	}
	return false
}
