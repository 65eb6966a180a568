package postgres

import (
	"time"

	"github.com/google/uuid"
)

type accountModel struct {
	ID                uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	Name              string     `gorm:"column:name"`
	Email             *string    `gorm:"column:email"`
	Phone             *string    `gorm:"column:phone"`
	PasswordHash      string     `gorm:"column:password_hash"`
	Role              string     `gorm:"column:role"`
	Status            string     `gorm:"column:status"`
	EmailVerified     bool       `gorm:"column:email_verified"`
	PhoneVerified     bool       `gorm:"column:phone_verified"`
	VerificationCodes string     `gorm:"column:verification_codes;type:jsonb"`
	CreatedAt         time.Time  `gorm:"column:created_at"`
	UpdatedAt         time.Time  `gorm:"column:updated_at"`
	LastLoginAt       *time.Time `gorm:"column:last_login_at"`
}

func (accountModel) TableName() string { return "accounts" }

type loginAttemptModel struct {
	ID            int64      `gorm:"column:id;primaryKey"`
	AccountID     *uuid.UUID `gorm:"column:account_id"`
	Identifier    string     `gorm:"column:identifier"`
	Scope         string     `gorm:"column:scope"`
	Success       bool       `gorm:"column:success"`
	FailureReason *string    `gorm:"column:failure_reason"`
	IPAddress     *string    `gorm:"column:ip_address"`
	UserAgent     string     `gorm:"column:user_agent"`
	AttemptAt     time.Time  `gorm:"column:attempt_at"`
}

func (loginAttemptModel) TableName() string { return "login_attempts" }

type accountEventModel struct {
	OutboxID       uuid.UUID  `gorm:"column:outbox_id;type:uuid;primaryKey"`
	EventType      string     `gorm:"column:event_type"`
	PartitionKey   string     `gorm:"column:partition_key"`
	Payload        string     `gorm:"column:payload;type:jsonb"`
	CreatedAt      time.Time  `gorm:"column:created_at"`
	PublishedAt    *time.Time `gorm:"column:published_at"`
	RetryCount     int        `gorm:"column:retry_count"`
	LastError      *string    `gorm:"column:last_error"`
	LastErrorAt    *time.Time `gorm:"column:last_error_at"`
	ClaimToken     *string    `gorm:"column:claim_token"`
	ClaimUntil     *time.Time `gorm:"column:claim_until"`
	DeadLetteredAt *time.Time `gorm:"column:dead_lettered_at"`
}

func (accountEventModel) TableName() string { return "account_events" }
