package domain

import (
	"unicode"
	"unicode/utf8"
)

const (
	minPasswordLength = 8
	// bcrypt ignores everything past 72 bytes, so longer secrets are refused.
	maxPasswordLength = 72
)

// ValidatePassword enforces the account password policy on a password and its confirmation.
// Every failing rule is reported, not only the first one.
func ValidatePassword(password, confirm string) error {
	v := &ValidationError{}
	CheckPassword(v, "password", "confirmPassword", password, confirm)
	return v.Err()
}

// CheckPassword appends policy failures for the named fields to v.
func CheckPassword(v *ValidationError, field, confirmField, password, confirm string) {
	if password == "" {
		v.Add(field, "Password is required")
		return
	}
	if utf8.RuneCountInString(password) < minPasswordLength {
		v.Add(field, "Password must be at least 8 characters long")
	}
	if len(password) > maxPasswordLength {
		v.Add(field, "Password must be at most 72 bytes long")
	}

	var (
		hasUpper bool
		hasLower bool
		hasDigit bool
		hasPunct bool
	)

	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasPunct = true
		}
	}

	if !hasUpper {
		v.Add(field, "Password must contain at least one uppercase letter")
	}
	if !hasLower {
		v.Add(field, "Password must contain at least one lowercase letter")
	}
	if !hasDigit {
		v.Add(field, "Password must contain at least one number")
	}
	if !hasPunct {
		v.Add(field, "Password must contain at least one special character")
	}
	if password != confirm {
		v.Add(confirmField, "Passwords do not match")
	}
}
