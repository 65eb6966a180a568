package application

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/majidtwaha5-svg/maijjd-backend/internal/domain"
	"github.com/majidtwaha5-svg/maijjd-backend/internal/ports"
)

// Login authenticates an email or phone identifier with a password.
// A missing account and a wrong password produce the same ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, scope domain.Scope, req LoginRequest) (AuthResponse, error) {
	email, phone := normalizeIdentity(req.Email, req.Phone)
	v := &domain.ValidationError{}
	if email == "" && phone == "" {
		v.Add("email", "Email or phone number is required")
	}
	if req.Password == "" {
		v.Add("password", "Password is required")
	}
	if err := v.Err(); err != nil {
		return AuthResponse{}, err
	}

	identifier := identifierOf(email, phone)
	identityKey := "login:" + string(scope) + ":" + identifier
	ipKey := ""
	if req.IPAddress != "" {
		ipKey = "login-ip:" + req.IPAddress
	}
	attempt := domain.LoginAttempt{
		Identifier: identifier,
		Scope:      scope,
		IPAddress:  req.IPAddress,
		UserAgent:  req.UserAgent,
	}

	if s.isLocked(ctx, identityKey) || s.isLocked(ctx, ipKey) {
		slog.Default().WarnContext(ctx, "login lockout active",
			"service", serviceName,
			"module", "application",
			"layer", "application",
			"operation", "login",
			"outcome", "blocked",
			"scope", scope,
		)
		attempt.FailureReason = "LOCKED"
		s.recordAttempt(ctx, attempt)
		return AuthResponse{}, domain.ErrAccountLocked
	}

	account, err := s.lookupInScope(ctx, scope, email, phone)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return AuthResponse{}, storeError("login lookup", err)
		}
		attempt.FailureReason = "USER_NOT_FOUND"
		s.recordAttempt(ctx, attempt)
		return AuthResponse{}, s.loginFailure(ctx, identityKey, ipKey)
	}
	attempt.AccountID = &account.ID

	if err := s.hasher.Compare(account.PasswordHash, req.Password); err != nil {
		attempt.FailureReason = "INVALID_PASSWORD"
		s.recordAttempt(ctx, attempt)
		return AuthResponse{}, s.loginFailure(ctx, identityKey, ipKey)
	}

	if !account.IsActive() {
		attempt.FailureReason = "ACCOUNT_INACTIVE"
		s.recordAttempt(ctx, attempt)
		return AuthResponse{}, domain.ErrAccountInactive
	}

	s.clearLock(ctx, identityKey)

	now := s.nowFn()
	if err := s.accounts.UpdateLastLogin(ctx, account.ID, now); err != nil {
		slog.Default().WarnContext(ctx, "failed to update last login",
			"service", serviceName,
			"module", "application",
			"layer", "application",
			"operation", "login",
			"outcome", "warning",
			"account_id", account.ID,
			"error", err,
		)
	} else {
		account.LastLoginAt = &now
	}

	pair, err := s.tokens.IssuePair(scope, account)
	if err != nil {
		return AuthResponse{}, err
	}

	attempt.Success = true
	s.recordAttempt(ctx, attempt)
	slog.Default().InfoContext(ctx, "login succeeded",
		"service", serviceName,
		"module", "application",
		"layer", "application",
		"operation", "login",
		"outcome", "success",
		"scope", scope,
		"account_id", account.ID,
	)
	return AuthResponse{Account: s.view(scope, account), Authentication: pair}, nil
}

func (s *Service) loginFailure(ctx context.Context, identityKey, ipKey string) error {
	locked := s.recordFailure(ctx, identityKey, s.cfg.FailedLoginThreshold, s.cfg.LockoutDuration)
	if s.recordFailure(ctx, ipKey, s.cfg.LoginIPThreshold, s.cfg.LockoutDuration) {
		locked = true
	}
	if locked {
		slog.Default().WarnContext(ctx, "login lockout triggered",
			"service", serviceName,
			"module", "application",
			"layer", "application",
			"operation", "login",
			"outcome", "blocked",
		)
		return domain.ErrAccountLocked
	}
	return domain.ErrInvalidCredentials
}

// Register creates a self-service user account and returns a token pair.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (AuthResponse, error) {
	return s.createAccount(ctx, domain.ScopeGeneral, domain.RoleUser, eventTypeAccountRegistered, req)
}

// ProvisionAdmin creates an admin account. The caller must present the admin creation key.
func (s *Service) ProvisionAdmin(ctx context.Context, req AdminRegisterRequest) (AuthResponse, error) {
	configured := s.cfg.AdminCreationKey
	if configured == "" || subtle.ConstantTimeCompare([]byte(configured), []byte(req.AdminKey)) != 1 {
		slog.Default().WarnContext(ctx, "admin provisioning rejected",
			"service", serviceName,
			"module", "application",
			"layer", "application",
			"operation", "provision_admin",
			"outcome", "blocked",
		)
		return AuthResponse{}, domain.ErrInvalidAdminKey
	}
	return s.createAccount(ctx, domain.ScopeAdmin, domain.RoleAdmin, eventTypeAdminProvisioned, req.RegisterRequest)
}

func (s *Service) createAccount(ctx context.Context, scope domain.Scope, role domain.Role, eventType string, req RegisterRequest) (AuthResponse, error) {
	name := strings.TrimSpace(req.Name)
	email, phone := normalizeIdentity(req.Email, req.Phone)

	v := &domain.ValidationError{}
	domain.CheckName(v, name)
	domain.CheckContact(v, email, phone)
	domain.CheckPassword(v, "password", "confirmPassword", req.Password, req.ConfirmPassword)
	if err := v.Err(); err != nil {
		return AuthResponse{}, err
	}

	if err := s.ensureUnique(ctx, email, phone); err != nil {
		return AuthResponse{}, err
	}

	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return AuthResponse{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.nowFn()
	accountID := uuid.New()
	event := s.newEvent(eventType, accountID.String(), map[string]any{
		"account_id":    accountID,
		"role":          role,
		"has_email":     email != "",
		"has_phone":     phone != "",
		"registered_at": now,
	})

	account, err := s.accounts.CreateWithOutboxTx(ctx, ports.CreateAccountParams{
		ID:           accountID,
		Name:         name,
		Email:        email,
		Phone:        phone,
		PasswordHash: passwordHash,
		Role:         role,
		Status:       domain.StatusActive,
		CreatedAt:    now,
	}, event)
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return AuthResponse{}, domain.ErrUserExists
		}
		return AuthResponse{}, storeError("create account", err)
	}

	s.sendInitialCodes(ctx, &account)

	pair, err := s.tokens.IssuePair(scope, account)
	if err != nil {
		return AuthResponse{}, err
	}

	slog.Default().InfoContext(ctx, "account created",
		"service", serviceName,
		"module", "application",
		"layer", "application",
		"operation", "register",
		"outcome", "success",
		"scope", scope,
		"account_id", account.ID,
	)
	return AuthResponse{Account: s.view(scope, account), Authentication: pair}, nil
}

func (s *Service) ensureUnique(ctx context.Context, email, phone string) error {
	if email != "" {
		if _, err := s.accounts.GetByEmail(ctx, email); err == nil {
			return domain.ErrUserExists
		} else if !errors.Is(err, domain.ErrNotFound) {
			return storeError("check email uniqueness", err)
		}
	}
	if phone != "" {
		if _, err := s.accounts.GetByPhone(ctx, phone); err == nil {
			return domain.ErrUserExists
		} else if !errors.Is(err, domain.ErrNotFound) {
			return storeError("check phone uniqueness", err)
		}
	}
	return nil
}

// sendInitialCodes issues a code for every contact channel of a new account.
// Registration succeeds even when codes cannot be stored or delivered.
func (s *Service) sendInitialCodes(ctx context.Context, account *domain.Account) {
	type pending struct {
		purpose domain.Purpose
		code    string
	}
	var issued []pending
	for _, purpose := range []domain.Purpose{domain.PurposeEmail, domain.PurposePhone} {
		if account.Contact(purpose) == "" {
			continue
		}
		code, _, err := s.codes.Issue(account, purpose)
		if err != nil {
			slog.Default().WarnContext(ctx, "verification code issue failed",
				"service", serviceName,
				"module", "application",
				"layer", "application",
				"operation", "register",
				"outcome", "warning",
				"purpose", purpose,
				"error", err,
			)
			continue
		}
		issued = append(issued, pending{purpose: purpose, code: code})
	}
	if len(issued) == 0 {
		return
	}
	if err := s.accounts.UpdateVerification(ctx, *account, s.nowFn()); err != nil {
		slog.Default().WarnContext(ctx, "failed to persist verification codes",
			"service", serviceName,
			"module", "application",
			"layer", "application",
			"operation", "register",
			"outcome", "warning",
			"account_id", account.ID,
			"error", err,
		)
		return
	}
	for _, p := range issued {
		s.notify(ctx, verificationNotification(p.purpose, account.Contact(p.purpose), p.code, s.cfg.VerificationCodeTTL))
	}
}

// Refresh exchanges a refresh token for a new token pair.
func (s *Service) Refresh(ctx context.Context, scope domain.Scope, refreshToken string) (AuthResponse, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return AuthResponse{}, domain.ErrRefreshTokenMissing
	}
	claims, err := s.tokens.Verify(scope, refreshToken, ports.TokenTypeRefresh)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidTokenType) {
			return AuthResponse{}, err
		}
		return AuthResponse{}, domain.ErrInvalidRefreshToken
	}

	account, err := s.accounts.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return AuthResponse{}, domain.ErrUserNotFound
		}
		return AuthResponse{}, storeError("refresh lookup", err)
	}
	if !scope.Admits(account.Role) {
		return AuthResponse{}, domain.ErrUserNotFound
	}
	if !account.IsActive() {
		return AuthResponse{}, domain.ErrAccountInactive
	}

	pair, err := s.tokens.IssuePair(scope, account)
	if err != nil {
		return AuthResponse{}, err
	}
	return AuthResponse{Account: s.view(scope, account), Authentication: pair}, nil
}

// Authenticate verifies a bearer access token for scope.
// A valid general token presented to an admin route yields ErrNotAdmin.
func (s *Service) Authenticate(ctx context.Context, scope domain.Scope, accessToken string) (ports.TokenClaims, error) {
	accessToken = strings.TrimSpace(accessToken)
	if accessToken == "" {
		return ports.TokenClaims{}, domain.ErrUnauthorized
	}
	claims, err := s.tokens.Verify(scope, accessToken, ports.TokenTypeAccess)
	if err == nil {
		return claims, nil
	}
	if scope == domain.ScopeAdmin && errors.Is(err, domain.ErrUnauthorized) {
		if _, generalErr := s.tokens.Verify(domain.ScopeGeneral, accessToken, ports.TokenTypeAccess); generalErr == nil {
			return ports.TokenClaims{}, domain.ErrNotAdmin
		}
	}
	return ports.TokenClaims{}, err
}

// Profile returns the current account view for an authenticated subject.
func (s *Service) Profile(ctx context.Context, scope domain.Scope, accountID uuid.UUID) (AccountView, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return AccountView{}, domain.ErrUserNotFound
		}
		return AccountView{}, storeError("profile lookup", err)
	}
	if !scope.Admits(account.Role) {
		return AccountView{}, domain.ErrUserNotFound
	}
	return s.view(scope, account), nil
}

// Logout acknowledges a logout. Tokens are stateless and discarded by the client.
func (s *Service) Logout(ctx context.Context, scope domain.Scope, claims ports.TokenClaims) LogoutResponse {
	now := s.nowFn()
	slog.Default().InfoContext(ctx, "logout acknowledged",
		"service", serviceName,
		"module", "application",
		"layer", "application",
		"operation", "logout",
		"outcome", "success",
		"scope", scope,
		"account_id", claims.Subject,
	)
	return LogoutResponse{LoggedOutAt: now}
}
