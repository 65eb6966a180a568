package ports

import (
	"time"

	"github.com/google/uuid"
)

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// TokenType discriminates session tokens. Access tokens carry no type claim.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

type TokenClaims struct {
	TokenID     uuid.UUID
	Subject     uuid.UUID
	Email       string
	Phone       string
	Role        string
	Permissions []string
	Type        TokenType
	Issuer      string
	Audience    string
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

// TokenExpectation lists what a presented token must match to be accepted.
type TokenExpectation struct {
	Issuer   string
	Audience string
	Type     TokenType
}

// TokenSigner signs and verifies session tokens.
// Parse returns domain.ErrSessionExpired for an expired token, domain.ErrInvalidTokenType
// when the type discriminator does not match and domain.ErrUnauthorized otherwise.
type TokenSigner interface {
	Sign(claims TokenClaims) (string, error)
	Parse(token string, expect TokenExpectation) (TokenClaims, error)
}
