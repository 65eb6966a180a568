package postgres

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/majidtwaha5-svg/maijjd-backend/internal/domain"
	"github.com/majidtwaha5-svg/maijjd-backend/internal/ports"
)

func toDomainAccount(row accountModel) (domain.Account, error) {
	a := domain.Account{
		ID:            row.ID,
		Name:          row.Name,
		Email:         derefString(row.Email),
		Phone:         derefString(row.Phone),
		PasswordHash:  row.PasswordHash,
		Role:          domain.Role(row.Role),
		Status:        domain.Status(row.Status),
		EmailVerified: row.EmailVerified,
		PhoneVerified: row.PhoneVerified,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
		LastLoginAt:   row.LastLoginAt,
	}
	codes, err := decodeCodes(row.VerificationCodes)
	if err != nil {
		return domain.Account{}, err
	}
	a.VerificationCodes = codes
	return a, nil
}

func toAccountEventModel(event ports.OutboxEvent) accountEventModel {
	payload := string(event.Payload)
	if payload == "" {
		payload = "{}"
	}
	return accountEventModel{
		OutboxID:     event.EventID,
		EventType:    event.EventType,
		PartitionKey: event.PartitionKey,
		Payload:      payload,
		CreatedAt:    event.OccurredAt,
	}
}

func toOutboxRecord(row accountEventModel) ports.OutboxRecord {
	return ports.OutboxRecord{
		OutboxID:       row.OutboxID,
		EventType:      row.EventType,
		PartitionKey:   row.PartitionKey,
		Payload:        []byte(row.Payload),
		RetryCount:     row.RetryCount,
		LastError:      row.LastError,
		CreatedAt:      row.CreatedAt,
		PublishedAt:    row.PublishedAt,
		LastErrorAt:    row.LastErrorAt,
		ClaimToken:     row.ClaimToken,
		ClaimUntil:     row.ClaimUntil,
		DeadLetteredAt: row.DeadLetteredAt,
	}
}

func decodeCodes(raw string) (map[domain.Purpose]domain.VerificationCode, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var codes map[domain.Purpose]domain.VerificationCode
	if err := json.Unmarshal([]byte(raw), &codes); err != nil {
		return nil, fmt.Errorf("decode verification codes: %w", err)
	}
	if len(codes) == 0 {
		return nil, nil
	}
	return codes, nil
}

func encodeCodes(codes map[domain.Purpose]domain.VerificationCode) (string, error) {
	if len(codes) == 0 {
		return "{}", nil
	}
	raw, err := json.Marshal(codes)
	if err != nil {
		return "", fmt.Errorf("encode verification codes: %w", err)
	}
	return string(raw), nil
}

func nullableString(v string) *string {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// isUnavailable reports errors that mean the database could not be reached,
// as opposed to a query the database rejected.
func isUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}
	if pgconn.Timeout(err) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// class 08: connection exception, 57P0x: operator intervention (shutdown)
		return strings.HasPrefix(pgErr.Code, "08") || strings.HasPrefix(pgErr.Code, "57P0")
	}
	return false
}

// mapError translates driver errors into the store contract of ports.AccountRepository.
func mapError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domain.ErrNotFound
	case isUniqueViolation(err):
		return domain.ErrConflict
	case isUnavailable(err):
		return fmt.Errorf("%w: %s: %v", domain.ErrUnavailable, op, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
