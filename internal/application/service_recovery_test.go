package application_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/majidtwaha5-svg/maijjd-backend/internal/application"
	"github.com/majidtwaha5-svg/maijjd-backend/internal/domain"
	"github.com/majidtwaha5-svg/maijjd-backend/internal/ports"
)

const newPassword = "BrandNewPass456#"

func resetTokenFrom(t *testing.T, n ports.Notification) string {
	t.Helper()
	idx := strings.Index(n.Text, "token=")
	if idx < 0 {
		t.Fatalf("reset notification carries no token: %q", n.Text)
	}
	token := n.Text[idx+len("token="):]
	if end := strings.IndexAny(token, " \n"); end >= 0 {
		token = token[:end]
	}
	return token
}

func (f *fixture) forgot(t *testing.T, scope domain.Scope, email string) string {
	t.Helper()
	if _, err := f.service.ForgotPassword(context.Background(), scope, application.ForgotPasswordRequest{Email: email}); err != nil {
		t.Fatalf("forgot password failed: %v", err)
	}
	n, ok := f.notifier.last("password_reset")
	if !ok {
		t.Fatalf("expected a reset notification")
	}
	return resetTokenFrom(t, n)
}

func TestPasswordResetRoundTrip(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	reg := f.register(t, "reset@example.com", "")

	token := f.forgot(t, domain.ScopeGeneral, "reset@example.com")
	n, _ := f.notifier.last("password_reset")
	if !strings.Contains(n.Text, "https://app.example.test/reset-password?token=") {
		t.Fatalf("unexpected reset link in %q", n.Text)
	}

	res, err := f.service.ResetPassword(ctx, domain.ScopeGeneral, application.ResetPasswordRequest{
		Token:           token,
		NewPassword:     newPassword,
		ConfirmPassword: newPassword,
	})
	if err != nil {
		t.Fatalf("reset password failed: %v", err)
	}
	if res.Email != "reset@example.com" || res.ResetAt.IsZero() {
		t.Fatalf("unexpected reset response %+v", res)
	}
	if got := f.accounts.get(reg.Account.ID).PasswordHash; got != "hash:"+newPassword {
		t.Fatalf("password was not replaced, hash %q", got)
	}

	if _, err := f.service.Login(ctx, domain.ScopeGeneral, application.LoginRequest{
		Email:    "reset@example.com",
		Password: newPassword,
	}); err != nil {
		t.Fatalf("login with new password failed: %v", err)
	}

	_, err = f.service.ResetPassword(ctx, domain.ScopeGeneral, application.ResetPasswordRequest{
		Token:           token,
		NewPassword:     "AnotherPass789$",
		ConfirmPassword: "AnotherPass789$",
	})
	if !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("a redeemed token must not work twice, got %v", err)
	}

	found := false
	for _, ev := range f.outbox.eventTypes() {
		if ev == "account.password_reset" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected password reset event, got %v", f.outbox.eventTypes())
	}
}

func TestPasswordResetTokenExpires(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.register(t, "late@example.com", "")
	token := f.forgot(t, domain.ScopeGeneral, "late@example.com")

	f.clock.Advance(30*time.Minute + time.Second)
	_, err := f.service.ResetPassword(context.Background(), domain.ScopeGeneral, application.ResetPasswordRequest{
		Token:           token,
		NewPassword:     newPassword,
		ConfirmPassword: newPassword,
	})
	if !errors.Is(err, domain.ErrExpiredToken) {
		t.Fatalf("expected expired token, got %v", err)
	}
}

func TestPasswordResetScopeMismatch(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "member@example.com", "")
	token := f.forgot(t, domain.ScopeGeneral, "member@example.com")

	req := application.ResetPasswordRequest{Token: token, NewPassword: newPassword, ConfirmPassword: newPassword}
	if _, err := f.service.ResetPassword(ctx, domain.ScopeAdmin, req); !errors.Is(err, domain.ErrForbiddenScope) {
		t.Fatalf("general token on admin flow should be forbidden, got %v", err)
	}
	if _, err := f.service.ResetPassword(ctx, domain.ScopeGeneral, req); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("a token presented to the wrong flow is spent, got %v", err)
	}
}

func TestAdminForgotPassword(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "member@example.com", "")
	f.provisionAdmin(t, "admin@example.com")

	res, err := f.service.ForgotPassword(ctx, domain.ScopeAdmin, application.ForgotPasswordRequest{Email: "member@example.com"})
	if err != nil {
		t.Fatalf("admin forgot password failed: %v", err)
	}
	if res.Message != "If an admin account exists with this information, a reset link has been sent" {
		t.Fatalf("unexpected message %q", res.Message)
	}
	if got := f.notifier.count("password_reset"); got != 0 {
		t.Fatalf("non-admin accounts must not receive admin reset links, got %d", got)
	}

	token := f.forgot(t, domain.ScopeAdmin, "admin@example.com")
	n, _ := f.notifier.last("password_reset")
	if !strings.Contains(n.Text, "/admin/reset-password?token=") {
		t.Fatalf("expected admin reset link, got %q", n.Text)
	}
	if _, err := f.service.ResetPassword(ctx, domain.ScopeAdmin, application.ResetPasswordRequest{
		Token:           token,
		Password:        newPassword,
		ConfirmPassword: newPassword,
	}); err != nil {
		t.Fatalf("admin reset failed: %v", err)
	}
}

func TestForgotPasswordDoesNotRevealAccounts(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "exists@example.com", "")

	known, err := f.service.ForgotPassword(ctx, domain.ScopeGeneral, application.ForgotPasswordRequest{Email: "exists@example.com"})
	if err != nil {
		t.Fatalf("forgot password failed: %v", err)
	}
	unknown, err := f.service.ForgotPassword(ctx, domain.ScopeGeneral, application.ForgotPasswordRequest{Email: "ghost@example.com"})
	if err != nil {
		t.Fatalf("forgot password failed: %v", err)
	}
	if known != unknown {
		t.Fatalf("responses differ: %+v vs %+v", known, unknown)
	}
	if got := f.notifier.count("password_reset"); got != 1 {
		t.Fatalf("expected a single reset notification, got %d", got)
	}

	f.accounts.setUnavailable(true)
	down, err := f.service.ForgotPassword(ctx, domain.ScopeGeneral, application.ForgotPasswordRequest{Email: "exists@example.com"})
	if err != nil || down != known {
		t.Fatalf("store outages must not change the response, got %+v, %v", down, err)
	}

	if _, err := f.service.ForgotPassword(ctx, domain.ScopeGeneral, application.ForgotPasswordRequest{}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected validation error without identifier, got %v", err)
	}
}

func TestResetPasswordValidatesBeforeRedeeming(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "weak@example.com", "")
	token := f.forgot(t, domain.ScopeGeneral, "weak@example.com")

	_, err := f.service.ResetPassword(ctx, domain.ScopeGeneral, application.ResetPasswordRequest{
		Token:           token,
		NewPassword:     "weak",
		ConfirmPassword: "weak",
	})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) || !verr.Has("newPassword") {
		t.Fatalf("expected newPassword validation error, got %v", err)
	}

	if _, err := f.service.ResetPassword(ctx, domain.ScopeGeneral, application.ResetPasswordRequest{
		Token:           token,
		NewPassword:     newPassword,
		ConfirmPassword: newPassword,
	}); err != nil {
		t.Fatalf("token should survive a rejected request: %v", err)
	}

	if _, err := f.service.ResetPassword(ctx, domain.ScopeGeneral, application.ResetPasswordRequest{
		Token:           "deadbeef",
		NewPassword:     newPassword,
		ConfirmPassword: newPassword,
	}); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected invalid token, got %v", err)
	}
}

func TestResetClearsLoginLockout(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "unlock@example.com", "")

	for i := 0; i < 5; i++ {
		_, _ = f.service.Login(ctx, domain.ScopeGeneral, application.LoginRequest{Email: "unlock@example.com", Password: "WrongPass123!"})
	}
	token := f.forgot(t, domain.ScopeGeneral, "unlock@example.com")
	if _, err := f.service.ResetPassword(ctx, domain.ScopeGeneral, application.ResetPasswordRequest{
		Token:           token,
		NewPassword:     newPassword,
		ConfirmPassword: newPassword,
	}); err != nil {
		t.Fatalf("reset failed: %v", err)
	}
	if _, err := f.service.Login(ctx, domain.ScopeGeneral, application.LoginRequest{Email: "unlock@example.com", Password: newPassword}); err != nil {
		t.Fatalf("login after reset should not be locked: %v", err)
	}
}

func TestAdminResetUserPassword(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	user := f.register(t, "target@example.com", "")
	admin := f.provisionAdmin(t, "admin@example.com")

	actor, err := f.service.Authenticate(ctx, domain.ScopeAdmin, admin.Authentication.AccessToken)
	if err != nil {
		t.Fatalf("admin authenticate failed: %v", err)
	}
	if _, err := f.service.AdminResetUserPassword(ctx, actor, application.AdminResetUserRequest{
		Email:       "target@example.com",
		NewPassword: newPassword,
	}); err != nil {
		t.Fatalf("admin reset failed: %v", err)
	}
	if got := f.accounts.get(user.Account.ID).PasswordHash; got != "hash:"+newPassword {
		t.Fatalf("password not replaced, hash %q", got)
	}

	if _, err := f.service.AdminResetUserPassword(ctx, actor, application.AdminResetUserRequest{
		Email:       "nobody@example.com",
		NewPassword: newPassword,
	}); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected user not found, got %v", err)
	}
	if _, err := f.service.AdminResetUserPassword(ctx, actor, application.AdminResetUserRequest{
		TargetEmail: " Target@Example.com ",
		NewPassword: "AnotherPass456!",
	}); err != nil {
		t.Fatalf("admin reset by targetEmail failed: %v", err)
	}
	if got := f.accounts.get(user.Account.ID).PasswordHash; got != "hash:AnotherPass456!" {
		t.Fatalf("targetEmail did not select the account, hash %q", got)
	}

	self, err := f.service.Authenticate(ctx, domain.ScopeGeneral, user.Authentication.AccessToken)
	if err != nil {
		t.Fatalf("user authenticate failed: %v", err)
	}
	if _, err := f.service.AdminResetUserPassword(ctx, self, application.AdminResetUserRequest{
		Email:       "admin@example.com",
		NewPassword: newPassword,
	}); !errors.Is(err, domain.ErrNotAdmin) {
		t.Fatalf("expected ErrNotAdmin for a user token, got %v", err)
	}
}
