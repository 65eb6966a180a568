package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/majidtwaha5-svg/maijjd-backend/internal/domain"
)

type loginAttemptRepository struct {
	db *gorm.DB
}

func (r *loginAttemptRepository) Insert(ctx context.Context, attempt domain.LoginAttempt) error {
	rec := loginAttemptModel{
		AccountID:     attempt.AccountID,
		Identifier:    attempt.Identifier,
		Scope:         string(attempt.Scope),
		Success:       attempt.Success,
		FailureReason: nullableString(attempt.FailureReason),
		IPAddress:     nullableString(attempt.IPAddress),
		UserAgent:     attempt.UserAgent,
		AttemptAt:     attempt.AttemptAt,
	}
	return mapError("insert login attempt", r.db.WithContext(ctx).Create(&rec).Error)
}
