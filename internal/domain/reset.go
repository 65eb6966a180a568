package domain

import "time"

// ResetGrant is what a password reset token resolves to.
// It lives in the reset token store, never on the account record.
type ResetGrant struct {
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Scope     Scope     `json:"scope"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
