package application

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/majidtwaha5-svg/maijjd-backend/internal/domain"
	"github.com/majidtwaha5-svg/maijjd-backend/internal/ports"
)

// ResetIdentity is the account identity a reset token is bound to.
type ResetIdentity struct {
	Email string
	Phone string
}

// ResetTokenIssuer issues opaque single-use password reset tokens.
// Only a SHA-256 fingerprint of each token is used as the store key.
type ResetTokenIssuer struct {
	store     ports.ResetTokenStore
	ttl       time.Duration
	retention time.Duration
	now       func() time.Time
	rand      io.Reader
}

func NewResetTokenIssuer(store ports.ResetTokenStore, ttl, retention time.Duration, now func() time.Time) *ResetTokenIssuer {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	if retention < 0 {
		retention = 0
	}
	if now == nil {
		now = time.Now
	}
	return &ResetTokenIssuer{store: store, ttl: ttl, retention: retention, now: now, rand: rand.Reader}
}

func (r *ResetTokenIssuer) Issue(ctx context.Context, identity ResetIdentity, scope domain.Scope) (string, time.Time, error) {
	if identity.Email == "" && identity.Phone == "" {
		return "", time.Time{}, fmt.Errorf("%w: reset identity is empty", domain.ErrInvalidInput)
	}
	if !scope.Valid() {
		return "", time.Time{}, fmt.Errorf("%w: unknown scope %q", domain.ErrInvalidInput, scope)
	}

	token, err := randomHex(r.rand, 32)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generate reset token: %w", err)
	}
	now := r.now().UTC()
	grant := domain.ResetGrant{
		Email:     identity.Email,
		Phone:     identity.Phone,
		Scope:     scope,
		IssuedAt:  now,
		ExpiresAt: now.Add(r.ttl),
	}
	raw, err := json.Marshal(grant)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("encode reset grant: %w", err)
	}
	if err := r.store.Set(ctx, hashToken(token), raw, r.ttl+r.retention); err != nil {
		return "", time.Time{}, err
	}
	return token, grant.ExpiresAt, nil
}

// Consume redeems a token for the expected scope. Any lookup that finds the token
// removes it, whatever the outcome.
func (r *ResetTokenIssuer) Consume(ctx context.Context, token string, expected domain.Scope) (domain.ResetGrant, error) {
	if strings.TrimSpace(token) == "" {
		return domain.ResetGrant{}, domain.ErrInvalidToken
	}
	raw, err := r.store.GetAndDelete(ctx, hashToken(token))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ResetGrant{}, domain.ErrInvalidToken
		}
		return domain.ResetGrant{}, err
	}

	var grant domain.ResetGrant
	if err := json.Unmarshal(raw, &grant); err != nil {
		return domain.ResetGrant{}, domain.ErrInvalidToken
	}
	if r.now().After(grant.ExpiresAt) {
		return domain.ResetGrant{}, domain.ErrExpiredToken
	}
	if grant.Scope != expected {
		return domain.ResetGrant{}, domain.ErrForbiddenScope
	}
	return grant, nil
}
