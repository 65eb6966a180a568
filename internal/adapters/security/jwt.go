package security

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/majidtwaha5-svg/maijjd-backend/internal/domain"
	"github.com/majidtwaha5-svg/maijjd-backend/internal/ports"
)

// MinSecretLength is the shortest HMAC secret accepted for HS256.
const MinSecretLength = 32

// JWTSigner implements HS256 session token signing and verification.
// The shared secret is held at adapter level so the application layer stays crypto-library agnostic.
type JWTSigner struct {
	secret []byte
	leeway time.Duration
	now    func() time.Time
}

// NewJWTSigner builds a signer from the configured shared secret.
func NewJWTSigner(secret string) (*JWTSigner, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("jwt secret must be at least %d bytes", MinSecretLength)
	}
	return &JWTSigner{
		secret: []byte(secret),
		leeway: 30 * time.Second,
		now:    time.Now,
	}, nil
}

// NewEphemeralJWTSigner creates a random in-memory secret for local/dev use.
// Tokens do not survive a restart.
func NewEphemeralJWTSigner() (*JWTSigner, error) {
	secret := make([]byte, 48)
	if _, err := rand.Read(secret); err != nil {
		return nil, err
	}
	return &JWTSigner{
		secret: secret,
		leeway: 30 * time.Second,
		now:    time.Now,
	}, nil
}

type sessionJWTClaims struct {
	Email       string   `json:"email,omitempty"`
	Phone       string   `json:"phone,omitempty"`
	Role        string   `json:"role,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
	Type        string   `json:"type,omitempty"`
	jwt.RegisteredClaims
}

func (s *JWTSigner) Sign(claims ports.TokenClaims) (string, error) {
	tokenType := ""
	if claims.Type == ports.TokenTypeRefresh {
		tokenType = string(ports.TokenTypeRefresh)
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionJWTClaims{
		Email:       claims.Email,
		Phone:       claims.Phone,
		Role:        claims.Role,
		Permissions: claims.Permissions,
		Type:        tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        claims.TokenID.String(),
			Subject:   claims.Subject.String(),
			Issuer:    claims.Issuer,
			Audience:  jwt.ClaimStrings{claims.Audience},
			IssuedAt:  jwt.NewNumericDate(claims.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
		},
	})
	return token.SignedString(s.secret)
}

func (s *JWTSigner) Parse(raw string, expect ports.TokenExpectation) (ports.TokenClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(s.leeway),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if expect.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(expect.Issuer))
	}
	if expect.Audience != "" {
		opts = append(opts, jwt.WithAudience(expect.Audience))
	}

	parsed, err := jwt.ParseWithClaims(raw, &sessionJWTClaims{}, func(token *jwt.Token) (any, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %s", token.Method.Alg())
		}
		return s.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ports.TokenClaims{}, domain.ErrSessionExpired
		}
		return ports.TokenClaims{}, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	claims, ok := parsed.Claims.(*sessionJWTClaims)
	if !ok || !parsed.Valid {
		return ports.TokenClaims{}, fmt.Errorf("%w: invalid token claims", domain.ErrUnauthorized)
	}

	tokenType := ports.TokenTypeAccess
	if claims.Type == string(ports.TokenTypeRefresh) {
		tokenType = ports.TokenTypeRefresh
	} else if claims.Type != "" {
		return ports.TokenClaims{}, domain.ErrInvalidTokenType
	}
	want := expect.Type
	if want == "" {
		want = ports.TokenTypeAccess
	}
	if tokenType != want {
		return ports.TokenClaims{}, domain.ErrInvalidTokenType
	}

	subject, err := uuid.Parse(claims.Subject)
	if err != nil {
		return ports.TokenClaims{}, fmt.Errorf("%w: parse subject: %v", domain.ErrUnauthorized, err)
	}
	tokenID, _ := uuid.Parse(claims.ID)

	audience := ""
	if len(claims.Audience) > 0 {
		audience = claims.Audience[0]
	}
	out := ports.TokenClaims{
		TokenID:     tokenID,
		Subject:     subject,
		Email:       claims.Email,
		Phone:       claims.Phone,
		Role:        claims.Role,
		Permissions: claims.Permissions,
		Type:        tokenType,
		Issuer:      claims.Issuer,
		Audience:    audience,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time.UTC()
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time.UTC()
	}
	return out, nil
}
