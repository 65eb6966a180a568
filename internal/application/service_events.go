package application

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"

	"github.com/majidtwaha5-svg/maijjd-backend/internal/ports"
)

const (
	// eventTypeAccountRegistered is emitted when a self-service account is created.
	eventTypeAccountRegistered = "account.registered"
	// eventTypeAdminProvisioned is emitted when an admin account is minted with the creation key.
	eventTypeAdminProvisioned = "account.admin_provisioned"
	eventTypePasswordReset    = "account.password_reset"
	eventTypeContactVerified  = "account.contact_verified"
)

func (s *Service) newEvent(eventType, partitionKey string, payload map[string]any) ports.OutboxEvent {
	raw, _ := json.Marshal(payload)
	return ports.OutboxEvent{
		EventID:      uuid.New(),
		EventType:    eventType,
		PartitionKey: partitionKey,
		Payload:      raw,
		OccurredAt:   s.nowFn(),
	}
}

// enqueueEvent writes a best-effort outbox record outside of any account transaction.
func (s *Service) enqueueEvent(ctx context.Context, event ports.OutboxEvent) {
	if s.outbox == nil {
		return
	}
	if err := s.outbox.Enqueue(ctx, event); err != nil {
		slog.Default().WarnContext(ctx, "failed to enqueue outbox event",
			"service", serviceName,
			"module", "application",
			"layer", "application",
			"operation", "enqueue_event",
			"outcome", "failure",
			"event_type", event.EventType,
			"error", err,
		)
	}
}
