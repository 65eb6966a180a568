package application

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/majidtwaha5-svg/maijjd-backend/internal/domain"
	"github.com/majidtwaha5-svg/maijjd-backend/internal/ports"
)

const bearerTokenType = "Bearer"

// SessionTokens mints and verifies access and refresh tokens per scope.
type SessionTokens struct {
	signer   ports.TokenSigner
	policies map[domain.Scope]TokenPolicy
	now      func() time.Time
}

func NewSessionTokens(signer ports.TokenSigner, policies map[domain.Scope]TokenPolicy, now func() time.Time) *SessionTokens {
	if now == nil {
		now = time.Now
	}
	return &SessionTokens{signer: signer, policies: policies, now: now}
}

func (t *SessionTokens) policy(scope domain.Scope) (TokenPolicy, error) {
	p, ok := t.policies[scope]
	if !ok || p.AccessTTL <= 0 || p.RefreshTTL <= 0 {
		return TokenPolicy{}, fmt.Errorf("no token policy for scope %q", scope)
	}
	return p, nil
}

// IssueAccess signs a short-lived token carrying identity, role and permissions.
func (t *SessionTokens) IssueAccess(scope domain.Scope, account domain.Account) (string, time.Time, error) {
	p, err := t.policy(scope)
	if err != nil {
		return "", time.Time{}, err
	}
	now := t.now().UTC()
	expiresAt := now.Add(p.AccessTTL)
	token, err := t.signer.Sign(ports.TokenClaims{
		TokenID:     uuid.New(),
		Subject:     account.ID,
		Email:       account.Email,
		Phone:       account.Phone,
		Role:        string(account.Role),
		Permissions: scope.Permissions(account.Role),
		Type:        ports.TokenTypeAccess,
		Issuer:      p.Issuer,
		Audience:    p.Audience,
		IssuedAt:    now,
		ExpiresAt:   expiresAt,
	})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return token, expiresAt, nil
}

// IssueRefresh signs a long-lived token that only carries the subject and the refresh discriminator.
func (t *SessionTokens) IssueRefresh(scope domain.Scope, account domain.Account) (string, time.Time, error) {
	p, err := t.policy(scope)
	if err != nil {
		return "", time.Time{}, err
	}
	now := t.now().UTC()
	expiresAt := now.Add(p.RefreshTTL)
	token, err := t.signer.Sign(ports.TokenClaims{
		TokenID:   uuid.New(),
		Subject:   account.ID,
		Type:      ports.TokenTypeRefresh,
		Issuer:    p.Issuer,
		Audience:  p.Audience,
		IssuedAt:  now,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign refresh token: %w", err)
	}
	return token, expiresAt, nil
}

func (t *SessionTokens) IssuePair(scope domain.Scope, account domain.Account) (TokenPair, error) {
	access, accessExp, err := t.IssueAccess(scope, account)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, refreshExp, err := t.IssueRefresh(scope, account)
	if err != nil {
		return TokenPair{}, err
	}
	now := t.now().UTC()
	return TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		TokenType:        bearerTokenType,
		ExpiresIn:        int64(accessExp.Sub(now).Seconds()),
		RefreshExpiresIn: int64(refreshExp.Sub(now).Seconds()),
		ExpiresAt:        accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// Verify checks signature, issuer, audience, expiry and the type discriminator.
func (t *SessionTokens) Verify(scope domain.Scope, raw string, expected ports.TokenType) (ports.TokenClaims, error) {
	p, err := t.policy(scope)
	if err != nil {
		return ports.TokenClaims{}, err
	}
	claims, err := t.signer.Parse(raw, ports.TokenExpectation{
		Issuer:   p.Issuer,
		Audience: p.Audience,
		Type:     expected,
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidTokenType) ||
			errors.Is(err, domain.ErrSessionExpired) ||
			errors.Is(err, domain.ErrUnauthorized) {
			return ports.TokenClaims{}, err
		}
		return ports.TokenClaims{}, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	return claims, nil
}
