package auth

import "unicode"

const MinPasswordLength = 8

// ValidatePasswordStrength returns every rule the password breaks.
func ValidatePasswordStrength(password string) []string {
	var msgs []string
	if len([]rune(password)) < MinPasswordLength {
		msgs = append(msgs, "password must be at least 8 characters")
	}
	var lower, upper, digit bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !lower {
		msgs = append(msgs, "password must contain a lowercase letter")
	}
	if !upper {
		msgs = append(msgs, "password must contain an uppercase letter")
	}
	if !digit {
		msgs = append(msgs, "password must contain a digit")
	}
	return msgs
}
