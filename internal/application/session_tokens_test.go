package application_test

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/majidtwaha5-svg/maijjd-backend/internal/adapters/security"
	"github.com/majidtwaha5-svg/maijjd-backend/internal/application"
	"github.com/majidtwaha5-svg/maijjd-backend/internal/domain"
	"github.com/majidtwaha5-svg/maijjd-backend/internal/ports"
)

func newSessionTokens(t *testing.T, now func() time.Time) *application.SessionTokens {
	t.Helper()
	signer, err := security.NewJWTSigner(testSecret)
	if err != nil {
		t.Fatalf("new jwt signer: %v", err)
	}
	return application.NewSessionTokens(signer, application.DefaultConfig().Tokens, now)
}

func TestSessionTokensPairRoundTrip(t *testing.T) {
	t.Parallel()
	tokens := newSessionTokens(t, nil)
	account := domain.Account{ID: uuid.New(), Email: "jane@example.com", Role: domain.RoleAdmin}

	pair, err := tokens.IssuePair(domain.ScopeAdmin, account)
	if err != nil {
		t.Fatalf("issue pair: %v", err)
	}
	if pair.TokenType != "Bearer" || pair.ExpiresIn < int64((24*time.Hour).Seconds())-1 {
		t.Fatalf("unexpected pair metadata %+v", pair)
	}

	access, err := tokens.Verify(domain.ScopeAdmin, pair.AccessToken, ports.TokenTypeAccess)
	if err != nil {
		t.Fatalf("verify access: %v", err)
	}
	if access.Subject != account.ID || access.Email != account.Email || len(access.Permissions) != 5 {
		t.Fatalf("unexpected access claims %+v", access)
	}
	refresh, err := tokens.Verify(domain.ScopeAdmin, pair.RefreshToken, ports.TokenTypeRefresh)
	if err != nil {
		t.Fatalf("verify refresh: %v", err)
	}
	if refresh.Subject != account.ID || refresh.Email != "" {
		t.Fatalf("refresh token should only carry the subject, got %+v", refresh)
	}
	if refresh.TokenID == access.TokenID {
		t.Fatal("access and refresh tokens must have distinct ids")
	}
}

func TestSessionTokensRejectCrossUse(t *testing.T) {
	t.Parallel()
	tokens := newSessionTokens(t, nil)
	account := domain.Account{ID: uuid.New(), Role: domain.RoleUser}

	pair, err := tokens.IssuePair(domain.ScopeGeneral, account)
	if err != nil {
		t.Fatalf("issue pair: %v", err)
	}

	if _, err := tokens.Verify(domain.ScopeGeneral, pair.RefreshToken, ports.TokenTypeAccess); !errors.Is(err, domain.ErrInvalidTokenType) {
		t.Fatalf("refresh used as access: expected ErrInvalidTokenType, got %v", err)
	}
	if _, err := tokens.Verify(domain.ScopeGeneral, pair.AccessToken, ports.TokenTypeRefresh); !errors.Is(err, domain.ErrInvalidTokenType) {
		t.Fatalf("access used as refresh: expected ErrInvalidTokenType, got %v", err)
	}
	// General tokens carry the general issuer and audience.
	if _, err := tokens.Verify(domain.ScopeAdmin, pair.AccessToken, ports.TokenTypeAccess); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("general token in admin scope: expected ErrUnauthorized, got %v", err)
	}
	if _, err := tokens.Verify(domain.ScopeGeneral, pair.AccessToken+"x", ports.TokenTypeAccess); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("tampered token: expected ErrUnauthorized, got %v", err)
	}
}

func TestSessionTokensExpiry(t *testing.T) {
	t.Parallel()
	issuedAt := time.Now().Add(-13 * time.Hour)
	tokens := newSessionTokens(t, func() time.Time { return issuedAt })
	account := domain.Account{ID: uuid.New(), Role: domain.RoleUser}

	access, _, err := tokens.IssueAccess(domain.ScopeGeneral, account)
	if err != nil {
		t.Fatalf("issue access: %v", err)
	}
	if _, err := tokens.Verify(domain.ScopeGeneral, access, ports.TokenTypeAccess); !errors.Is(err, domain.ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}

	refresh, _, err := tokens.IssueRefresh(domain.ScopeGeneral, account)
	if err != nil {
		t.Fatalf("issue refresh: %v", err)
	}
	if _, err := tokens.Verify(domain.ScopeGeneral, refresh, ports.TokenTypeRefresh); err != nil {
		t.Fatalf("14 day refresh token should still be valid: %v", err)
	}
}

func TestSessionTokensUnknownScope(t *testing.T) {
	t.Parallel()
	tokens := newSessionTokens(t, nil)
	if _, err := tokens.IssuePair(domain.Scope("partner"), domain.Account{ID: uuid.New()}); err == nil {
		t.Fatal("expected an error for a scope without a token policy")
	}
}
