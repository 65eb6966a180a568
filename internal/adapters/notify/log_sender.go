package notify

import (
	"context"
	"log/slog"
	"strings"

	"github.com/majidtwaha5-svg/maijjd-backend/internal/ports"
)

// LogSender records notifications in the log without their content.
// It stands in for a channel that has no delivery backend configured.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, n ports.Notification) error {
	s.logger.InfoContext(ctx, "notification not delivered; no backend configured",
		"module", "notify.log_sender",
		"layer", "adapter",
		"operation", "send",
		"outcome", "skipped",
		"channel", n.Channel,
		"kind", n.Kind,
		"recipient", maskRecipient(n.Recipient),
	)
	return nil
}

// maskRecipient keeps the first character and the domain or last two digits.
func maskRecipient(r string) string {
	if at := strings.LastIndex(r, "@"); at > 0 {
		return r[:1] + "***" + r[at:]
	}
	if len(r) > 4 {
		return r[:1] + "***" + r[len(r)-2:]
	}
	return "***"
}
