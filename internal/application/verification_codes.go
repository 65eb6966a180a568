package application

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"io"
	"math/big"
	"time"

	"github.com/majidtwaha5-svg/maijjd-backend/internal/domain"
)

const (
	codeFloor = 100000
	codeSpan  = 900000
)

// CodeIssuer issues and redeems purpose-scoped numeric verification codes.
// Codes live on the account; callers persist the account after Issue and Consume.
type CodeIssuer struct {
	ttl  time.Duration
	now  func() time.Time
	rand io.Reader
}

func NewCodeIssuer(ttl time.Duration, now func() time.Time) *CodeIssuer {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if now == nil {
		now = time.Now
	}
	return &CodeIssuer{ttl: ttl, now: now, rand: rand.Reader}
}

// Issue stores a fresh code for purpose, replacing any earlier one.
func (c *CodeIssuer) Issue(account *domain.Account, purpose domain.Purpose) (string, time.Time, error) {
	n, err := rand.Int(c.rand, big.NewInt(codeSpan))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generate verification code: %w", err)
	}
	code := fmt.Sprintf("%06d", n.Int64()+codeFloor)
	expiresAt := c.now().UTC().Add(c.ttl)

	if account.VerificationCodes == nil {
		account.VerificationCodes = make(map[domain.Purpose]domain.VerificationCode, 2)
	}
	account.VerificationCodes[purpose] = domain.VerificationCode{Code: code, ExpiresAt: expiresAt}
	return code, expiresAt, nil
}

// Verify reports whether candidate matches the live code for purpose.
func (c *CodeIssuer) Verify(account domain.Account, purpose domain.Purpose, candidate string) bool {
	stored, ok := account.VerificationCodes[purpose]
	if !ok || stored.Code == "" {
		return false
	}
	if c.now().After(stored.ExpiresAt) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored.Code), []byte(candidate)) == 1
}

// Consume marks the channel verified and drops its code.
func (c *CodeIssuer) Consume(account *domain.Account, purpose domain.Purpose) {
	switch purpose {
	case domain.PurposeEmail:
		account.EmailVerified = true
	case domain.PurposePhone:
		account.PhoneVerified = true
	}
	delete(account.VerificationCodes, purpose)
}
