package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/majidtwaha5-svg/maijjd-backend/internal/domain"
	"github.com/majidtwaha5-svg/maijjd-backend/internal/ports"
)

type accountRepository struct {
	db *gorm.DB
}

func (r *accountRepository) CreateWithOutboxTx(ctx context.Context, params ports.CreateAccountParams, outboxEvent ports.OutboxEvent) (domain.Account, error) {
	var result domain.Account
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec := accountModel{
			ID:                params.ID,
			Name:              params.Name,
			Email:             nullableString(params.Email),
			Phone:             nullableString(params.Phone),
			PasswordHash:      params.PasswordHash,
			Role:              string(params.Role),
			Status:            string(params.Status),
			VerificationCodes: "{}",
			CreatedAt:         params.CreatedAt,
			UpdatedAt:         params.CreatedAt,
		}
		if err := tx.Create(&rec).Error; err != nil {
			return err
		}

		outboxEvent.PartitionKey = rec.ID.String()
		event := toAccountEventModel(outboxEvent)
		if err := tx.Create(&event).Error; err != nil {
			return err
		}

		account, err := toDomainAccount(rec)
		if err != nil {
			return err
		}
		result = account
		return nil
	})
	if err != nil {
		return domain.Account{}, mapError("create account", err)
	}
	return result, nil
}

func (r *accountRepository) GetByID(ctx context.Context, accountID uuid.UUID) (domain.Account, error) {
	return r.take(ctx, "get account by id", "id = ?", accountID)
}

func (r *accountRepository) GetByEmail(ctx context.Context, email string) (domain.Account, error) {
	return r.take(ctx, "get account by email", "LOWER(email) = LOWER(?)", email)
}

func (r *accountRepository) GetByPhone(ctx context.Context, phone string) (domain.Account, error) {
	return r.take(ctx, "get account by phone", "phone = ?", phone)
}

func (r *accountRepository) take(ctx context.Context, op, query string, args ...any) (domain.Account, error) {
	var rec accountModel
	if err := r.db.WithContext(ctx).Where(query, args...).Take(&rec).Error; err != nil {
		return domain.Account{}, mapError(op, err)
	}
	return toDomainAccount(rec)
}

func (r *accountRepository) UpdateLastLogin(ctx context.Context, accountID uuid.UUID, at time.Time) error {
	return r.update(ctx, "update last login", accountID, map[string]any{
		"last_login_at": at,
	})
}

func (r *accountRepository) UpdatePassword(ctx context.Context, accountID uuid.UUID, passwordHash string, at time.Time) error {
	return r.update(ctx, "update password", accountID, map[string]any{
		"password_hash": passwordHash,
		"updated_at":    at,
	})
}

func (r *accountRepository) UpdateVerification(ctx context.Context, account domain.Account, at time.Time) error {
	codes, err := encodeCodes(account.VerificationCodes)
	if err != nil {
		return err
	}
	return r.update(ctx, "update verification", account.ID, map[string]any{
		"email_verified":     account.EmailVerified,
		"phone_verified":     account.PhoneVerified,
		"verification_codes": codes,
		"updated_at":         at,
	})
}

func (r *accountRepository) update(ctx context.Context, op string, accountID uuid.UUID, fields map[string]any) error {
	res := r.db.WithContext(ctx).
		Model(&accountModel{}).
		Where("id = ?", accountID).
		Updates(fields)
	if res.Error != nil {
		return mapError(op, res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *accountRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return mapError("ping", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		return fmt.Errorf("%w: ping: %v", domain.ErrUnavailable, err)
	}
	return nil
}
