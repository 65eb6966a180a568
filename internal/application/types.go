package application

import (
	"time"

	"github.com/google/uuid"

	"github.com/majidtwaha5-svg/maijjd-backend/internal/domain"
)

// TokenPolicy holds the claims and lifetimes of session tokens for one scope.
type TokenPolicy struct {
	Issuer     string
	Audience   string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type Config struct {
	Tokens           map[domain.Scope]TokenPolicy
	AdminCreationKey string

	VerificationCodeTTL time.Duration
	ResetTokenTTL       time.Duration
	// ResetTokenRetention keeps redeemed-too-late tokens around long enough to
	// report ExpiredToken instead of InvalidToken.
	ResetTokenRetention time.Duration

	FailedLoginThreshold   int
	LoginIPThreshold       int
	LockoutDuration        time.Duration
	VerifyAttemptThreshold int
	SendCodeThreshold      int
	SendCodeWindow         time.Duration

	FrontendBaseURL string
}

// DefaultConfig mirrors the lifetimes the platform has always used.
func DefaultConfig() Config {
	return Config{
		Tokens: map[domain.Scope]TokenPolicy{
			domain.ScopeGeneral: {
				Issuer:     "maijjd-api",
				Audience:   "maijjd-clients",
				AccessTTL:  12 * time.Hour,
				RefreshTTL: 14 * 24 * time.Hour,
			},
			domain.ScopeAdmin: {
				Issuer:     "maijjd",
				Audience:   "maijjd-app",
				AccessTTL:  24 * time.Hour,
				RefreshTTL: 7 * 24 * time.Hour,
			},
		},
		VerificationCodeTTL:    10 * time.Minute,
		ResetTokenTTL:          30 * time.Minute,
		ResetTokenRetention:    24 * time.Hour,
		FailedLoginThreshold:   5,
		LoginIPThreshold:       50,
		LockoutDuration:        15 * time.Minute,
		VerifyAttemptThreshold: 5,
		SendCodeThreshold:      5,
		SendCodeWindow:         time.Hour,
		FrontendBaseURL:        "http://localhost:3000",
	}
}

// AccountView is the only outward representation of an account.
type AccountView struct {
	ID            uuid.UUID     `json:"id"`
	Name          string        `json:"name"`
	Email         string        `json:"email,omitempty"`
	Phone         string        `json:"phone,omitempty"`
	Role          domain.Role   `json:"role"`
	Status        domain.Status `json:"status"`
	Permissions   []string      `json:"permissions"`
	EmailVerified bool          `json:"emailVerified"`
	PhoneVerified bool          `json:"phoneVerified"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
	LastLoginAt   *time.Time    `json:"lastLogin,omitempty"`
}

type TokenPair struct {
	AccessToken      string    `json:"accessToken"`
	RefreshToken     string    `json:"refreshToken"`
	TokenType        string    `json:"tokenType"`
	ExpiresIn        int64     `json:"expiresIn"`
	RefreshExpiresIn int64     `json:"refreshExpiresIn"`
	ExpiresAt        time.Time `json:"expiresAt"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}

type AuthResponse struct {
	Account        AccountView `json:"user"`
	Authentication TokenPair   `json:"authentication"`
}

type LoginRequest struct {
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Password  string `json:"password"`
	IPAddress string `json:"-"`
	UserAgent string `json:"-"`
}

type RegisterRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

type AdminRegisterRequest struct {
	RegisterRequest
	AdminKey string `json:"adminKey"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type LogoutResponse struct {
	LoggedOutAt time.Time `json:"loggedOutAt"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type ForgotPasswordResponse struct {
	Message string `json:"-"`
}

type ResetPasswordRequest struct {
	Token           string `json:"token"`
	NewPassword     string `json:"newPassword"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

type ResetPasswordResponse struct {
	Email   string    `json:"email,omitempty"`
	Phone   string    `json:"phone,omitempty"`
	ResetAt time.Time `json:"resetAt"`
}

type AdminResetUserRequest struct {
	Email string `json:"email"`
	// TargetEmail is accepted in place of Email.
	TargetEmail     string `json:"targetEmail"`
	Phone           string `json:"phone"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

type SendVerificationRequest struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type SendVerificationResponse struct {
	Purpose   domain.Purpose `json:"type"`
	Recipient string         `json:"recipient"`
	ExpiresAt time.Time      `json:"expiresAt"`
}

type VerifyCodeRequest struct {
	Code  string `json:"code"`
	Type  string `json:"type"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type VerifyCodeResponse struct {
	EmailVerified bool      `json:"emailVerified"`
	PhoneVerified bool      `json:"phoneVerified"`
	VerifiedAt    time.Time `json:"verifiedAt"`
}
