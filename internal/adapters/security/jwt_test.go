package security

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/majidtwaha5-svg/maijjd-backend/internal/domain"
	"github.com/majidtwaha5-svg/maijjd-backend/internal/ports"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestSigner(t *testing.T, now time.Time) *JWTSigner {
	t.Helper()
	s, err := NewJWTSigner(testSecret)
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	s.now = func() time.Time { return now }
	return s
}

func testClaims(now time.Time, tokenType ports.TokenType) ports.TokenClaims {
	return ports.TokenClaims{
		TokenID:     uuid.New(),
		Subject:     uuid.New(),
		Email:       "jane@x.com",
		Role:        "user",
		Permissions: []string{"read", "write", "user"},
		Type:        tokenType,
		Issuer:      "maijjd-api",
		Audience:    "maijjd-clients",
		IssuedAt:    now,
		ExpiresAt:   now.Add(time.Hour),
	}
}

func TestJWTSignerRoundTrip(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	s := newTestSigner(t, now)
	in := testClaims(now, ports.TokenTypeAccess)

	raw, err := s.Sign(in)
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	out, err := s.Parse(raw, ports.TokenExpectation{Issuer: "maijjd-api", Audience: "maijjd-clients"})
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if out.Subject != in.Subject || out.TokenID != in.TokenID {
		t.Fatalf("identity claims lost: %+v", out)
	}
	if out.Type != ports.TokenTypeAccess || out.Role != "user" || len(out.Permissions) != 3 {
		t.Fatalf("unexpected claims: %+v", out)
	}
	if !out.ExpiresAt.Equal(in.ExpiresAt) {
		t.Fatalf("expected exp %v, got %v", in.ExpiresAt, out.ExpiresAt)
	}
}

func TestJWTSignerTypeDiscriminator(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	s := newTestSigner(t, now)
	expectRefresh := ports.TokenExpectation{Issuer: "maijjd-api", Audience: "maijjd-clients", Type: ports.TokenTypeRefresh}
	expectAccess := ports.TokenExpectation{Issuer: "maijjd-api", Audience: "maijjd-clients", Type: ports.TokenTypeAccess}

	access, err := s.Sign(testClaims(now, ports.TokenTypeAccess))
	if err != nil {
		t.Fatalf("sign access: %v", err)
	}
	refresh, err := s.Sign(testClaims(now, ports.TokenTypeRefresh))
	if err != nil {
		t.Fatalf("sign refresh: %v", err)
	}

	if _, err := s.Parse(access, expectRefresh); !errors.Is(err, domain.ErrInvalidTokenType) {
		t.Fatalf("access token accepted as refresh: %v", err)
	}
	if _, err := s.Parse(refresh, expectAccess); !errors.Is(err, domain.ErrInvalidTokenType) {
		t.Fatalf("refresh token accepted as access: %v", err)
	}
	got, err := s.Parse(refresh, expectRefresh)
	if err != nil {
		t.Fatalf("refresh parse failed: %v", err)
	}
	if got.Type != ports.TokenTypeRefresh {
		t.Fatalf("expected refresh type, got %q", got.Type)
	}
}

func TestJWTSignerRejections(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	s := newTestSigner(t, now)
	raw, err := s.Sign(testClaims(now, ports.TokenTypeAccess))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	good := ports.TokenExpectation{Issuer: "maijjd-api", Audience: "maijjd-clients"}

	cases := []struct {
		name   string
		token  string
		expect ports.TokenExpectation
		signer *JWTSigner
		want   error
	}{
		{name: "wrong audience", token: raw, expect: ports.TokenExpectation{Issuer: "maijjd-api", Audience: "maijjd-app"}, signer: s, want: domain.ErrUnauthorized},
		{name: "wrong issuer", token: raw, expect: ports.TokenExpectation{Issuer: "maijjd", Audience: "maijjd-clients"}, signer: s, want: domain.ErrUnauthorized},
		{name: "tampered", token: raw[:len(raw)-2] + flip(raw[len(raw)-2:]), expect: good, signer: s, want: domain.ErrUnauthorized},
		{name: "garbage", token: "not-a-token", expect: good, signer: s, want: domain.ErrUnauthorized},
		{name: "expired", token: raw, expect: good, signer: newTestSigner(t, now.Add(2*time.Hour)), want: domain.ErrSessionExpired},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if _, err := tc.signer.Parse(tc.token, tc.expect); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestJWTSignerOtherSecretRejected(t *testing.T) {
	t.Parallel()

	now := time.Now()
	a, err := NewJWTSigner(testSecret)
	if err != nil {
		t.Fatalf("signer a: %v", err)
	}
	b, err := NewJWTSigner(strings.Repeat("z", 40))
	if err != nil {
		t.Fatalf("signer b: %v", err)
	}
	raw, err := a.Sign(testClaims(now, ports.TokenTypeAccess))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := b.Parse(raw, ports.TokenExpectation{}); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected signature failure, got %v", err)
	}
}

func TestNewJWTSignerRejectsShortSecret(t *testing.T) {
	t.Parallel()

	if _, err := NewJWTSigner("short"); err == nil {
		t.Fatalf("expected short secret rejection")
	}
}

func flip(s string) string {
	out := []byte(s)
	for i := range out {
		if out[i] == 'A' {
			out[i] = 'B'
		} else {
			out[i] = 'A'
		}
	}
	return string(out)
}
