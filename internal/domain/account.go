package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleModerator:
		return true
	}
	return false
}

type Status string

const (
	StatusActive    Status = "active"
	StatusInactive  Status = "inactive"
	StatusSuspended Status = "suspended"
	StatusPending   Status = "pending"
)

// Purpose selects the contact channel a verification code proves control of.
type Purpose string

const (
	PurposeEmail Purpose = "email"
	PurposePhone Purpose = "phone"
)

func ParsePurpose(raw string) (Purpose, error) {
	switch Purpose(strings.ToLower(strings.TrimSpace(raw))) {
	case PurposeEmail:
		return PurposeEmail, nil
	case PurposePhone:
		return PurposePhone, nil
	}
	return "", Invalid("type", fmt.Sprintf("Verification type must be %q or %q", PurposeEmail, PurposePhone))
}

// VerificationCode is a pending purpose-scoped code stored on the account.
type VerificationCode struct {
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Account is the persistent identity record.
// PasswordHash and VerificationCodes never leave the service.
type Account struct {
	ID                uuid.UUID
	Name              string
	Email             string
	Phone             string
	PasswordHash      string
	Role              Role
	Status            Status
	EmailVerified     bool
	PhoneVerified     bool
	VerificationCodes map[Purpose]VerificationCode
	CreatedAt         time.Time
	UpdatedAt         time.Time
	LastLoginAt       *time.Time
}

func (a Account) IsActive() bool {
	return a.Status == StatusActive
}

// Contact returns the identifier for a channel, empty when the account has none.
func (a Account) Contact(p Purpose) string {
	if p == PurposePhone {
		return a.Phone
	}
	return a.Email
}

func (a Account) Verified(p Purpose) bool {
	if p == PurposePhone {
		return a.PhoneVerified
	}
	return a.EmailVerified
}

// PrimaryIdentifier is the identifier used in token claims and logs.
func (a Account) PrimaryIdentifier() string {
	if a.Email != "" {
		return a.Email
	}
	return a.Phone
}

// LoginAttempt records one login outcome for audit.
type LoginAttempt struct {
	ID            int64
	AccountID     *uuid.UUID
	Identifier    string
	Scope         Scope
	Success       bool
	FailureReason string
	IPAddress     string
	UserAgent     string
	AttemptAt     time.Time
}
