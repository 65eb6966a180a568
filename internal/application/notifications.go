package application

import (
	"fmt"
	"html"
	"net/url"
	"strings"
	"time"

	"github.com/majidtwaha5-svg/maijjd-backend/internal/domain"
	"github.com/majidtwaha5-svg/maijjd-backend/internal/ports"
)

func verificationNotification(purpose domain.Purpose, recipient, code string, ttl time.Duration) ports.Notification {
	minutes := int(ttl.Minutes())
	if purpose == domain.PurposePhone {
		return ports.Notification{
			Channel:   ports.ChannelSMS,
			Recipient: recipient,
			Text:      fmt.Sprintf("Your Maijjd verification code is %s. It expires in %d minutes.", code, minutes),
			Kind:      "verification_code",
		}
	}
	return ports.Notification{
		Channel:   ports.ChannelEmail,
		Recipient: recipient,
		Subject:   "Verify your email - Maijjd",
		Text: fmt.Sprintf("Your verification code is %s.\n\nThis code expires in %d minutes. "+
			"If you did not create a Maijjd account you can ignore this message.", code, minutes),
		HTML: fmt.Sprintf("<p>Your verification code is <strong>%s</strong>.</p>"+
			"<p>This code expires in %d minutes.</p>", code, minutes),
		Kind: "verification_code",
	}
}

func resetNotification(account domain.Account, link string, ttl time.Duration) ports.Notification {
	minutes := int(ttl.Minutes())
	if account.Email == "" {
		return ports.Notification{
			Channel:   ports.ChannelSMS,
			Recipient: account.Phone,
			Text:      fmt.Sprintf("Reset your Maijjd password within %d minutes: %s", minutes, link),
			Kind:      "password_reset",
		}
	}
	return ports.Notification{
		Channel:   ports.ChannelEmail,
		Recipient: account.Email,
		Subject:   "Password reset - Maijjd",
		Text: fmt.Sprintf("Hello %s,\n\nUse the link below to reset your password. It expires in %d minutes.\n\n%s\n\n"+
			"If you did not request a reset you can ignore this message.", account.Name, minutes, link),
		HTML: fmt.Sprintf(`<p>Hello %s,</p><p><a href="%s">Reset your password</a>. The link expires in %d minutes.</p>`,
			html.EscapeString(account.Name), html.EscapeString(link), minutes),
		Kind: "password_reset",
	}
}

// resetLink builds the frontend URL that carries a reset token.
func resetLink(baseURL string, scope domain.Scope, token string) string {
	path := "/reset-password"
	if scope == domain.ScopeAdmin {
		path = "/admin/reset-password"
	}
	return strings.TrimRight(baseURL, "/") + path + "?token=" + url.QueryEscape(token)
}
