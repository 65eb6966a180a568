package domain

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^(\+?1[-.\s]?)?\(?([0-9]{3})\)?[-.\s]?([0-9]{3})[-.\s]?([0-9]{4})$|^\+?[1-9]\d{1,14}$`)
	phoneNoise   = regexp.MustCompile(`[\s\-().]`)
)

const (
	minNameLength  = 2
	maxNameLength  = 50
	minPhoneDigits = 10
)

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// NormalizePhone trims a phone number; formatting inside the number is kept.
func NormalizePhone(raw string) string {
	return strings.TrimSpace(raw)
}

func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// ValidPhone accepts North American and E.164 formats with at least ten digits.
func ValidPhone(phone string) bool {
	if !phonePattern.MatchString(phone) {
		return false
	}
	return len(phoneNoise.ReplaceAllString(phone, "")) >= minPhoneDigits
}

// CheckName appends display-name failures to v.
func CheckName(v *ValidationError, name string) {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	switch {
	case n == 0:
		v.Add("name", "Name is required")
	case n < minNameLength || n > maxNameLength:
		v.Add("name", "Name must be between 2 and 50 characters")
	}
}

// CheckContact appends failures for the email and phone identifiers of a new account.
// At least one of them must be present; normalized values must already be applied.
func CheckContact(v *ValidationError, email, phone string) {
	if email == "" && phone == "" {
		v.Add("email", "Either email or phone number is required")
		return
	}
	if email != "" && !ValidEmail(email) {
		v.Add("email", "Please provide a valid email address")
	}
	if phone != "" && !ValidPhone(phone) {
		v.Add("phone", "Please provide a valid phone number")
	}
}
