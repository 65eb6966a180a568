package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/majidtwaha5-svg/maijjd-backend/internal/ports"
)

var errMissingClaimToken = errors.New("outbox claim token is required")

// outboxRepository stores account events in account_events until the worker
// relays them. Rows are leased with a claim token and a lease deadline.
type outboxRepository struct {
	db *gorm.DB
}

func (r *outboxRepository) Enqueue(ctx context.Context, event ports.OutboxEvent) error {
	row := toAccountEventModel(event)
	return mapError("enqueue account event", r.db.WithContext(ctx).Create(&row).Error)
}

// pending selects rows that are neither settled nor under a live lease.
func pending(tx *gorm.DB, now time.Time) *gorm.DB {
	return tx.Model(&accountEventModel{}).
		Where("published_at IS NULL AND dead_lettered_at IS NULL").
		Where("claim_until IS NULL OR claim_until < ?", now)
}

func (r *outboxRepository) ClaimUnpublished(ctx context.Context, limit int, claimToken string, claimUntil time.Time) ([]ports.OutboxRecord, error) {
	if limit <= 0 {
		return nil, nil
	}
	if claimToken == "" {
		return nil, errMissingClaimToken
	}

	var rows []accountEventModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		leasable := pending(tx, time.Now().UTC()).
			Select("outbox_id").
			Order("created_at ASC").
			Limit(limit).
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})

		lease := tx.Model(&accountEventModel{}).
			Where("outbox_id IN (?)", leasable).
			Updates(map[string]any{"claim_token": claimToken, "claim_until": claimUntil})
		if lease.Error != nil || lease.RowsAffected == 0 {
			return lease.Error
		}
		return tx.Where("claim_token = ? AND published_at IS NULL", claimToken).
			Order("created_at ASC").
			Find(&rows).Error
	})
	if err != nil {
		return nil, mapError("claim account events", err)
	}

	records := make([]ports.OutboxRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, toOutboxRecord(row))
	}
	return records, nil
}

func (r *outboxRepository) MarkPublished(ctx context.Context, outboxID uuid.UUID, claimToken string, at time.Time) error {
	return r.settle(ctx, "mark account event published", outboxID, claimToken, map[string]any{
		"published_at": at,
	})
}

func (r *outboxRepository) MarkFailed(ctx context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error {
	return r.settle(ctx, "mark account event failed", outboxID, claimToken, map[string]any{
		"retry_count":   gorm.Expr("retry_count + 1"),
		"last_error":    errMsg,
		"last_error_at": at,
	})
}

func (r *outboxRepository) MarkDeadLettered(ctx context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error {
	return r.settle(ctx, "dead-letter account event", outboxID, claimToken, map[string]any{
		"retry_count":      gorm.Expr("retry_count + 1"),
		"last_error":       errMsg,
		"last_error_at":    at,
		"dead_lettered_at": at,
	})
}

// settle applies changes and releases the lease. A row whose lease was taken
// over by another worker is left untouched.
func (r *outboxRepository) settle(ctx context.Context, op string, outboxID uuid.UUID, claimToken string, changes map[string]any) error {
	changes["claim_token"] = nil
	changes["claim_until"] = nil
	err := r.db.WithContext(ctx).
		Model(&accountEventModel{}).
		Where("outbox_id = ? AND claim_token = ?", outboxID, claimToken).
		Updates(changes).Error
	return mapError(op, err)
}
