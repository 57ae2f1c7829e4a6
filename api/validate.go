package api

import (
	"regexp"
	"unicode"
)

var emailRx = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func validateEmailAddress(email string) error {
	if !emailRx.MatchString(email) {
		return &ValidationError{Field: "email", Reason: "not a valid email address"}
	}
	return nil
}

// validatePassword enforces the account password rule: at least 8 characters,
// letters and digits only, with at least one of each.
func validatePassword(password string) error {
	reason := "must be at least 8 characters long and contain at least one letter and one number"
	if len(password) < 8 {
		return &ValidationError{Field: "password", Reason: reason}
	}
	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			return &ValidationError{Field: "password", Reason: reason}
		}
	}
	if !hasLetter || !hasDigit {
		return &ValidationError{Field: "password", Reason: reason}
	}
	return nil
}

func validateName(name string) error {
	if name == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	return nil
}
