package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/majidtwaha5-svg/maijjd-backend/internal/domain"
)

// CreateAccountParams carries the fields of a new account.
// The password arrives already hashed; stores never see plaintext.
type CreateAccountParams struct {
	ID           uuid.UUID
	Name         string
	Email        string
	Phone        string
	PasswordHash string
	Role         domain.Role
	Status       domain.Status
	CreatedAt    time.Time
}

// AccountRepository is the credential store.
// Lookups return domain.ErrNotFound for a missing record, domain.ErrConflict for a
// uniqueness violation and domain.ErrUnavailable when the store cannot be reached.
type AccountRepository interface {
	CreateWithOutboxTx(ctx context.Context, params CreateAccountParams, outboxEvent OutboxEvent) (domain.Account, error)
	GetByID(ctx context.Context, accountID uuid.UUID) (domain.Account, error)
	GetByEmail(ctx context.Context, email string) (domain.Account, error)
	GetByPhone(ctx context.Context, phone string) (domain.Account, error)
	UpdateLastLogin(ctx context.Context, accountID uuid.UUID, at time.Time) error
	UpdatePassword(ctx context.Context, accountID uuid.UUID, passwordHash string, at time.Time) error
	// UpdateVerification persists pending codes and verified flags of the account.
	UpdateVerification(ctx context.Context, account domain.Account, at time.Time) error
	Ping(ctx context.Context) error
}

// LoginAttemptRepository appends login outcomes for audit.
type LoginAttemptRepository interface {
	Insert(ctx context.Context, attempt domain.LoginAttempt) error
}

// OutboxEvent is the write-side event payload prior to storage.
// It is adapter-neutral to keep application code independent of broker specifics.
type OutboxEvent struct {
	EventID      uuid.UUID
	EventType    string
	PartitionKey string
	Payload      []byte
	OccurredAt   time.Time
}

// OutboxRecord represents durable outbox state, including retry/error metadata.
type OutboxRecord struct {
	OutboxID       uuid.UUID
	EventType      string
	PartitionKey   string
	Payload        []byte
	RetryCount     int
	LastError      *string
	CreatedAt      time.Time
	PublishedAt    *time.Time
	LastErrorAt    *time.Time
	ClaimToken     *string
	ClaimUntil     *time.Time
	DeadLetteredAt *time.Time
}

// OutboxRepository controls the publish-retry workflow for domain events.
type OutboxRepository interface {
	Enqueue(ctx context.Context, event OutboxEvent) error
	ClaimUnpublished(ctx context.Context, limit int, claimToken string, claimUntil time.Time) ([]OutboxRecord, error)
	MarkPublished(ctx context.Context, outboxID uuid.UUID, claimToken string, at time.Time) error
	MarkFailed(ctx context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error
	MarkDeadLettered(ctx context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error
}
