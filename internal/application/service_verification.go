package application

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/majidtwaha5-svg/maijjd-backend/internal/domain"
)

// SendVerification issues a fresh code for one contact channel and dispatches it.
// A second call replaces the code already in flight.
func (s *Service) SendVerification(ctx context.Context, purpose domain.Purpose, req SendVerificationRequest) (SendVerificationResponse, error) {
	email, phone := normalizeIdentity(req.Email, req.Phone)
	identifier := email
	if purpose == domain.PurposePhone {
		identifier = phone
		if phone == "" {
			return SendVerificationResponse{}, domain.Invalid("phone", "Phone number is required")
		}
		if !domain.ValidPhone(phone) {
			return SendVerificationResponse{}, domain.Invalid("phone", "Please provide a valid phone number")
		}
		email = ""
	} else {
		if email == "" {
			return SendVerificationResponse{}, domain.Invalid("email", "Email is required")
		}
		if !domain.ValidEmail(email) {
			return SendVerificationResponse{}, domain.Invalid("email", "Please provide a valid email address")
		}
		phone = ""
	}

	if err := s.enforceRateLimit(ctx, "send:"+string(purpose)+":"+identifier, s.cfg.SendCodeThreshold, s.cfg.SendCodeWindow); err != nil {
		return SendVerificationResponse{}, err
	}

	account, err := s.lookupAccount(ctx, email, phone)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return SendVerificationResponse{}, domain.ErrUserNotFound
		}
		return SendVerificationResponse{}, storeError("verification lookup", err)
	}
	if account.Verified(purpose) {
		return SendVerificationResponse{}, domain.ErrAlreadyVerified
	}

	code, expiresAt, err := s.codes.Issue(&account, purpose)
	if err != nil {
		return SendVerificationResponse{}, err
	}
	if err := s.accounts.UpdateVerification(ctx, account, s.nowFn()); err != nil {
		return SendVerificationResponse{}, storeError("persist verification code", err)
	}

	s.notify(ctx, verificationNotification(purpose, identifier, code, s.cfg.VerificationCodeTTL))
	return SendVerificationResponse{Purpose: purpose, Recipient: identifier, ExpiresAt: expiresAt}, nil
}

// VerifyCode redeems a verification code. Unknown accounts, wrong codes and expired codes
// all produce ErrInvalidOrExpiredCode.
func (s *Service) VerifyCode(ctx context.Context, req VerifyCodeRequest) (VerifyCodeResponse, error) {
	purpose, err := domain.ParsePurpose(req.Type)
	if err != nil {
		return VerifyCodeResponse{}, err
	}
	email, phone := normalizeIdentity(req.Email, req.Phone)
	code := strings.TrimSpace(req.Code)

	v := &domain.ValidationError{}
	if code == "" {
		v.Add("code", "Verification code is required")
	}
	identifier := email
	if purpose == domain.PurposePhone {
		identifier = phone
		email = ""
		if phone == "" {
			v.Add("phone", "Phone number is required")
		}
	} else {
		phone = ""
		if email == "" {
			v.Add("email", "Email is required")
		}
	}
	if err := v.Err(); err != nil {
		return VerifyCodeResponse{}, err
	}

	lockKey := "verify:" + string(purpose) + ":" + identifier
	if s.isLocked(ctx, lockKey) {
		return VerifyCodeResponse{}, domain.ErrRateLimited
	}

	account, err := s.lookupAccount(ctx, email, phone)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return VerifyCodeResponse{}, storeError("verification lookup", err)
		}
		return VerifyCodeResponse{}, s.verifyFailure(ctx, lockKey)
	}
	if !s.codes.Verify(account, purpose, code) {
		return VerifyCodeResponse{}, s.verifyFailure(ctx, lockKey)
	}

	s.codes.Consume(&account, purpose)
	now := s.nowFn()
	if err := s.accounts.UpdateVerification(ctx, account, now); err != nil {
		return VerifyCodeResponse{}, storeError("persist verification", err)
	}
	s.clearLock(ctx, lockKey)

	s.enqueueEvent(ctx, s.newEvent(eventTypeContactVerified, account.ID.String(), map[string]any{
		"account_id":  account.ID,
		"purpose":     purpose,
		"verified_at": now,
	}))
	slog.Default().InfoContext(ctx, "contact verified",
		"service", serviceName,
		"module", "application",
		"layer", "application",
		"operation", "verify_code",
		"outcome", "success",
		"purpose", purpose,
		"account_id", account.ID,
	)
	return VerifyCodeResponse{
		EmailVerified: account.EmailVerified,
		PhoneVerified: account.PhoneVerified,
		VerifiedAt:    now,
	}, nil
}

func (s *Service) verifyFailure(ctx context.Context, lockKey string) error {
	if s.recordFailure(ctx, lockKey, s.cfg.VerifyAttemptThreshold, s.cfg.LockoutDuration) {
		return domain.ErrRateLimited
	}
	return domain.ErrInvalidOrExpiredCode
}
