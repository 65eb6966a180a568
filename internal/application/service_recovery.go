package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/majidtwaha5-svg/maijjd-backend/internal/domain"
	"github.com/majidtwaha5-svg/maijjd-backend/internal/ports"
)

const (
	forgotPasswordMessage      = "If that email exists, a reset link has been sent."
	adminForgotPasswordMessage = "If an admin account exists with this information, a reset link has been sent"
)

// ForgotPassword issues a reset token when the identity resolves to an account in scope.
// The response is identical whether or not the account exists.
func (s *Service) ForgotPassword(ctx context.Context, scope domain.Scope, req ForgotPasswordRequest) (ForgotPasswordResponse, error) {
	email, phone := normalizeIdentity(req.Email, req.Phone)
	if email == "" && phone == "" {
		return ForgotPasswordResponse{}, domain.Invalid("email", "Email or phone number is required")
	}

	res := ForgotPasswordResponse{Message: forgotPasswordMessage}
	if scope == domain.ScopeAdmin {
		res.Message = adminForgotPasswordMessage
	}

	account, err := s.lookupInScope(ctx, scope, email, phone)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			slog.Default().ErrorContext(ctx, "forgot password lookup failed",
				"service", serviceName,
				"module", "application",
				"layer", "application",
				"operation", "forgot_password",
				"outcome", "failure",
				"error", err,
			)
		}
		return res, nil
	}

	grantScope := domain.ScopeForRole(account.Role)
	token, _, err := s.resets.Issue(ctx, ResetIdentity{Email: account.Email, Phone: account.Phone}, grantScope)
	if err != nil {
		slog.Default().ErrorContext(ctx, "reset token issue failed",
			"service", serviceName,
			"module", "application",
			"layer", "application",
			"operation", "forgot_password",
			"outcome", "failure",
			"account_id", account.ID,
			"error", err,
		)
		return res, nil
	}

	s.notify(ctx, resetNotification(account, resetLink(s.cfg.FrontendBaseURL, grantScope, token), s.cfg.ResetTokenTTL))
	slog.Default().InfoContext(ctx, "password reset requested",
		"service", serviceName,
		"module", "application",
		"layer", "application",
		"operation", "forgot_password",
		"outcome", "success",
		"scope", grantScope,
		"account_id", account.ID,
	)
	return res, nil
}

// ResetPassword redeems a reset token and sets a new password.
func (s *Service) ResetPassword(ctx context.Context, scope domain.Scope, req ResetPasswordRequest) (ResetPasswordResponse, error) {
	newPassword := req.NewPassword
	if newPassword == "" {
		newPassword = req.Password
	}
	v := &domain.ValidationError{}
	if strings.TrimSpace(req.Token) == "" {
		v.Add("token", "Reset token is required")
	}
	domain.CheckPassword(v, "newPassword", "confirmPassword", newPassword, req.ConfirmPassword)
	if err := v.Err(); err != nil {
		return ResetPasswordResponse{}, err
	}

	grant, err := s.resets.Consume(ctx, req.Token, scope)
	if err != nil {
		return ResetPasswordResponse{}, err
	}

	account, err := s.lookupAccount(ctx, grant.Email, grant.Phone)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ResetPasswordResponse{}, domain.ErrUserNotFound
		}
		return ResetPasswordResponse{}, storeError("reset lookup", err)
	}
	if domain.ScopeForRole(account.Role) != grant.Scope {
		return ResetPasswordResponse{}, domain.ErrForbiddenScope
	}

	resetAt, err := s.setPassword(ctx, account, newPassword, "self_service")
	if err != nil {
		return ResetPasswordResponse{}, err
	}
	return ResetPasswordResponse{Email: account.Email, Phone: account.Phone, ResetAt: resetAt}, nil
}

// AdminResetUserPassword lets an authenticated admin set the password of another account.
func (s *Service) AdminResetUserPassword(ctx context.Context, actor ports.TokenClaims, req AdminResetUserRequest) (ResetPasswordResponse, error) {
	if actor.Role != string(domain.RoleAdmin) {
		return ResetPasswordResponse{}, domain.ErrNotAdmin
	}
	target := req.Email
	if strings.TrimSpace(target) == "" {
		target = req.TargetEmail
	}
	email, phone := normalizeIdentity(target, req.Phone)
	confirm := req.ConfirmPassword
	if confirm == "" {
		confirm = req.NewPassword
	}
	v := &domain.ValidationError{}
	if email == "" && phone == "" {
		v.Add("email", "Email or phone number is required")
	}
	domain.CheckPassword(v, "newPassword", "confirmPassword", req.NewPassword, confirm)
	if err := v.Err(); err != nil {
		return ResetPasswordResponse{}, err
	}

	account, err := s.lookupAccount(ctx, email, phone)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ResetPasswordResponse{}, domain.ErrUserNotFound
		}
		return ResetPasswordResponse{}, storeError("admin reset lookup", err)
	}

	resetAt, err := s.setPassword(ctx, account, req.NewPassword, "admin:"+actor.Subject.String())
	if err != nil {
		return ResetPasswordResponse{}, err
	}
	return ResetPasswordResponse{Email: account.Email, Phone: account.Phone, ResetAt: resetAt}, nil
}

func (s *Service) setPassword(ctx context.Context, account domain.Account, password, initiator string) (resetAt time.Time, err error) {
	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return resetAt, fmt.Errorf("hash password: %w", err)
	}
	resetAt = s.nowFn()
	if err := s.accounts.UpdatePassword(ctx, account.ID, passwordHash, resetAt); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return resetAt, domain.ErrUserNotFound
		}
		return resetAt, storeError("update password", err)
	}

	for _, scope := range []domain.Scope{domain.ScopeGeneral, domain.ScopeAdmin} {
		for _, identifier := range []string{account.Email, account.Phone} {
			if identifier != "" {
				s.clearLock(ctx, "login:"+string(scope)+":"+identifier)
			}
		}
	}
	s.enqueueEvent(ctx, s.newEvent(eventTypePasswordReset, account.ID.String(), map[string]any{
		"account_id": account.ID,
		"initiator":  initiator,
		"reset_at":   resetAt,
	}))
	slog.Default().InfoContext(ctx, "password updated",
		"service", serviceName,
		"module", "application",
		"layer", "application",
		"operation", "set_password",
		"outcome", "success",
		"account_id", account.ID,
		"initiator", initiator,
	)
	return resetAt, nil
}
