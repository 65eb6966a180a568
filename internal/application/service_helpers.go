package application

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/majidtwaha5-svg/maijjd-backend/internal/domain"
	"github.com/majidtwaha5-svg/maijjd-backend/internal/ports"
)

const serviceName = "maijjd-auth"

// lookupAccount resolves an account by email, falling back to phone.
// Both identifiers must already be normalized.
func (s *Service) lookupAccount(ctx context.Context, email, phone string) (domain.Account, error) {
	if email != "" {
		return s.accounts.GetByEmail(ctx, email)
	}
	if phone != "" {
		return s.accounts.GetByPhone(ctx, phone)
	}
	return domain.Account{}, domain.ErrNotFound
}

// lookupInScope hides accounts the scope does not admit behind ErrNotFound.
func (s *Service) lookupInScope(ctx context.Context, scope domain.Scope, email, phone string) (domain.Account, error) {
	account, err := s.lookupAccount(ctx, email, phone)
	if err != nil {
		return domain.Account{}, err
	}
	if !scope.Admits(account.Role) {
		return domain.Account{}, domain.ErrNotFound
	}
	return account, nil
}

func normalizeIdentity(email, phone string) (string, string) {
	return domain.NormalizeEmail(email), domain.NormalizePhone(phone)
}

func identifierOf(email, phone string) string {
	if email != "" {
		return email
	}
	return phone
}

func (s *Service) view(scope domain.Scope, account domain.Account) AccountView {
	return AccountView{
		ID:            account.ID,
		Name:          account.Name,
		Email:         account.Email,
		Phone:         account.Phone,
		Role:          account.Role,
		Status:        account.Status,
		Permissions:   scope.Permissions(account.Role),
		EmailVerified: account.EmailVerified,
		PhoneVerified: account.PhoneVerified,
		CreatedAt:     account.CreatedAt,
		UpdatedAt:     account.UpdatedAt,
		LastLoginAt:   account.LastLoginAt,
	}
}

// isLocked reports an active lock on key. Store errors never lock anyone out.
func (s *Service) isLocked(ctx context.Context, key string) bool {
	if s.lockouts == nil || key == "" {
		return false
	}
	state, err := s.lockouts.Get(ctx, key)
	if err != nil {
		slog.Default().WarnContext(ctx, "lockout state unavailable",
			"service", serviceName,
			"module", "application",
			"layer", "application",
			"operation", "lockout_get",
			"outcome", "warning",
			"key", key,
			"error", err,
		)
		return false
	}
	return state.LockedUntil != nil && state.LockedUntil.After(s.nowFn())
}

// recordFailure bumps the counter for key and reports whether it is now locked.
func (s *Service) recordFailure(ctx context.Context, key string, threshold int, window time.Duration) bool {
	if s.lockouts == nil || key == "" || threshold <= 0 || window <= 0 {
		return false
	}
	now := s.nowFn()
	state, err := s.lockouts.RecordFailure(ctx, key, now, threshold, window)
	if err != nil {
		slog.Default().WarnContext(ctx, "failed to update lockout state",
			"service", serviceName,
			"module", "application",
			"layer", "application",
			"operation", "lockout_record",
			"outcome", "warning",
			"key", key,
			"error", err,
		)
		return false
	}
	return state.LockedUntil != nil && state.LockedUntil.After(now)
}

func (s *Service) clearLock(ctx context.Context, key string) {
	if s.lockouts == nil || key == "" {
		return
	}
	_ = s.lockouts.Clear(ctx, key)
}

// enforceRateLimit counts every call against key and rejects once the threshold is hit.
func (s *Service) enforceRateLimit(ctx context.Context, key string, threshold int, window time.Duration) error {
	if strings.TrimSpace(key) == "" {
		return nil
	}
	if s.isLocked(ctx, key) {
		return domain.ErrRateLimited
	}
	if s.recordFailure(ctx, key, threshold, window) {
		return domain.ErrRateLimited
	}
	return nil
}

// recordAttempt appends a login outcome to the audit log.
func (s *Service) recordAttempt(ctx context.Context, attempt domain.LoginAttempt) {
	if s.loginAttempts == nil {
		return
	}
	attempt.AttemptAt = s.nowFn()
	if err := s.loginAttempts.Insert(ctx, attempt); err != nil {
		slog.Default().WarnContext(ctx, "failed to persist login attempt",
			"service", serviceName,
			"module", "application",
			"layer", "application",
			"operation", "record_login_attempt",
			"outcome", "failure",
			"reason", attempt.FailureReason,
			"error", err,
		)
	}
}

// notify hands a message to the delivery collaborator. Failures are logged, never returned.
func (s *Service) notify(ctx context.Context, n ports.Notification) {
	if s.notifier == nil || n.Recipient == "" {
		return
	}
	if err := s.notifier.Send(ctx, n); err != nil {
		slog.Default().WarnContext(ctx, "notification dispatch failed",
			"service", serviceName,
			"module", "application",
			"layer", "application",
			"operation", "notify",
			"outcome", "failure",
			"channel", n.Channel,
			"kind", n.Kind,
			"error", err,
		)
	}
}

// storeError keeps unavailability visible and wraps anything else as internal.
func storeError(op string, err error) error {
	if errors.Is(err, domain.ErrUnavailable) {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}

// hashToken stores one-way token fingerprints instead of raw secrets.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(token)))
	return hex.EncodeToString(sum[:])
}

// randomHex returns bytesLen random bytes from src, hex encoded.
func randomHex(src io.Reader, bytesLen int) (string, error) {
	raw := make([]byte, bytesLen)
	if _, err := io.ReadFull(src, raw); err != nil {
		return "", err
	}
	return hex.EncodeToString(raw), nil
}
