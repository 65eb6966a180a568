package application

import (
	"context"
	"time"

	"github.com/majidtwaha5-svg/maijjd-backend/internal/domain"
	"github.com/majidtwaha5-svg/maijjd-backend/internal/ports"
)

// Service is the authentication orchestrator. Every flow takes the domain.Scope
// it runs in; general and admin endpoints share one implementation.
type Service struct {
	cfg           Config
	accounts      ports.AccountRepository
	loginAttempts ports.LoginAttemptRepository
	outbox        ports.OutboxRepository
	lockouts      ports.LockoutStore
	hasher        ports.PasswordHasher
	notifier      ports.NotificationSender
	codes         *CodeIssuer
	resets        *ResetTokenIssuer
	tokens        *SessionTokens
	nowFn         func() time.Time
}

type Dependencies struct {
	Config        Config
	Accounts      ports.AccountRepository
	LoginAttempts ports.LoginAttemptRepository
	Outbox        ports.OutboxRepository
	Lockouts      ports.LockoutStore
	ResetTokens   ports.ResetTokenStore
	Hasher        ports.PasswordHasher
	TokenSigner   ports.TokenSigner
	Notifier      ports.NotificationSender
	// Clock defaults to time.Now in UTC.
	Clock func() time.Time
}

func NewService(deps Dependencies) *Service {
	cfg := deps.Config.withDefaults()
	nowFn := deps.Clock
	if nowFn == nil {
		nowFn = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		cfg:           cfg,
		accounts:      deps.Accounts,
		loginAttempts: deps.LoginAttempts,
		outbox:        deps.Outbox,
		lockouts:      deps.Lockouts,
		hasher:        deps.Hasher,
		notifier:      deps.Notifier,
		codes:         NewCodeIssuer(cfg.VerificationCodeTTL, nowFn),
		resets:        NewResetTokenIssuer(deps.ResetTokens, cfg.ResetTokenTTL, cfg.ResetTokenRetention, nowFn),
		tokens:        NewSessionTokens(deps.TokenSigner, cfg.Tokens, nowFn),
		nowFn:         nowFn,
	}
}

// Ready reports whether the account store can serve requests.
func (s *Service) Ready(ctx context.Context) error {
	return s.accounts.Ping(ctx)
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if len(c.Tokens) == 0 {
		c.Tokens = def.Tokens
	} else {
		merged := make(map[domain.Scope]TokenPolicy, len(def.Tokens))
		for scope, p := range def.Tokens {
			merged[scope] = p
		}
		for scope, p := range c.Tokens {
			base := merged[scope]
			if p.Issuer != "" {
				base.Issuer = p.Issuer
			}
			if p.Audience != "" {
				base.Audience = p.Audience
			}
			if p.AccessTTL > 0 {
				base.AccessTTL = p.AccessTTL
			}
			if p.RefreshTTL > 0 {
				base.RefreshTTL = p.RefreshTTL
			}
			merged[scope] = base
		}
		c.Tokens = merged
	}
	if c.VerificationCodeTTL <= 0 {
		c.VerificationCodeTTL = def.VerificationCodeTTL
	}
	if c.ResetTokenTTL <= 0 {
		c.ResetTokenTTL = def.ResetTokenTTL
	}
	if c.ResetTokenRetention <= 0 {
		c.ResetTokenRetention = def.ResetTokenRetention
	}
	if c.FailedLoginThreshold <= 0 {
		c.FailedLoginThreshold = def.FailedLoginThreshold
	}
	if c.LoginIPThreshold <= 0 {
		c.LoginIPThreshold = def.LoginIPThreshold
	}
	if c.LockoutDuration <= 0 {
		c.LockoutDuration = def.LockoutDuration
	}
	if c.VerifyAttemptThreshold <= 0 {
		c.VerifyAttemptThreshold = def.VerifyAttemptThreshold
	}
	if c.SendCodeThreshold <= 0 {
		c.SendCodeThreshold = def.SendCodeThreshold
	}
	if c.SendCodeWindow <= 0 {
		c.SendCodeWindow = def.SendCodeWindow
	}
	if c.FrontendBaseURL == "" {
		c.FrontendBaseURL = def.FrontendBaseURL
	}
	return c
}
