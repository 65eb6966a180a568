package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/majidtwaha5-svg/maijjd-backend/internal/domain"
)

const apiVersion = "1.0.0"

type errorBody struct {
	Error     string              `json:"error"`
	Message   string              `json:"message"`
	Code      string              `json:"code"`
	Timestamp string              `json:"timestamp"`
	Details   []domain.FieldError `json:"details,omitempty"`
	Debug     string              `json:"debug,omitempty"`
}

type successBody struct {
	Message  string       `json:"message"`
	Data     any          `json:"data,omitempty"`
	Metadata responseMeta `json:"metadata"`
}

type responseMeta struct {
	Timestamp  string `json:"timestamp"`
	RequestID  string `json:"requestId,omitempty"`
	APIVersion string `json:"apiVersion"`
}

// apiError is the transport rendering of a domain error.
type apiError struct {
	Status  int
	Title   string
	Code    string
	Message string
	Details []domain.FieldError
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func (h *Handler) writeSuccess(w http.ResponseWriter, r *http.Request, operation string, statusCode int, message string, data any) {
	h.metrics.AuthOutcome(operation, "OK")
	writeJSON(w, statusCode, successBody{
		Message: message,
		Data:    data,
		Metadata: responseMeta{
			Timestamp:  h.now().Format(time.RFC3339),
			RequestID:  requestIDFromContext(r.Context()),
			APIVersion: apiVersion,
		},
	})
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	mapped := mapDomainError(err)
	logOperationError(r, operation, mapped, err)
	h.metrics.AuthOutcome(operation, mapped.Code)

	body := errorBody{
		Error:     mapped.Title,
		Message:   mapped.Message,
		Code:      mapped.Code,
		Timestamp: h.now().Format(time.RFC3339),
		Details:   mapped.Details,
	}
	if !h.production && err != nil {
		body.Debug = err.Error()
	}
	writeJSON(w, mapped.Status, body)
}

func writeBareError(w http.ResponseWriter, statusCode int, title, code, message string) {
	writeJSON(w, statusCode, errorBody{
		Error:     title,
		Message:   message,
		Code:      code,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func mapDomainError(err error) apiError {
	var validation *domain.ValidationError
	if errors.As(err, &validation) && len(validation.Fields) > 0 {
		return apiError{
			Status:  http.StatusBadRequest,
			Title:   "Validation Error",
			Code:    "VALIDATION_ERROR",
			Message: validation.Fields[0].Message,
			Details: validation.Fields,
		}
	}

	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return apiError{http.StatusBadRequest, "Validation Error", "VALIDATION_ERROR", "Invalid request", nil}
	case errors.Is(err, domain.ErrInvalidCredentials):
		return apiError{http.StatusUnauthorized, "Authentication Failed", "INVALID_CREDENTIALS", "Invalid email or password", nil}
	case errors.Is(err, domain.ErrAccountInactive):
		return apiError{http.StatusForbidden, "Account Inactive", "ACCOUNT_INACTIVE", "Your account is not active. Please contact support.", nil}
	case errors.Is(err, domain.ErrAccountLocked):
		return apiError{http.StatusTooManyRequests, "Too Many Requests", "ACCOUNT_LOCKED", "Too many failed attempts. Please try again later.", nil}
	case errors.Is(err, domain.ErrRateLimited):
		return apiError{http.StatusTooManyRequests, "Too Many Requests", "RATE_LIMITED", "Too many requests. Please try again later.", nil}
	case errors.Is(err, domain.ErrInvalidToken):
		return apiError{http.StatusBadRequest, "Invalid Token", "INVALID_TOKEN", "Invalid or expired reset token. Please request a new password reset.", nil}
	case errors.Is(err, domain.ErrExpiredToken):
		return apiError{http.StatusBadRequest, "Expired Token", "EXPIRED_TOKEN", "Reset token has expired. Please request a new password reset.", nil}
	case errors.Is(err, domain.ErrForbiddenScope):
		return apiError{http.StatusForbidden, "Forbidden", "FORBIDDEN_SCOPE", "This reset token is not valid for this account type", nil}
	case errors.Is(err, domain.ErrInvalidOrExpiredCode):
		return apiError{http.StatusBadRequest, "Invalid or expired code", "INVALID_OR_EXPIRED_CODE", "The verification code is invalid or has expired", nil}
	case errors.Is(err, domain.ErrRefreshTokenMissing):
		return apiError{http.StatusBadRequest, "Missing Refresh Token", "REFRESH_TOKEN_MISSING", "Refresh token is required", nil}
	case errors.Is(err, domain.ErrInvalidRefreshToken):
		return apiError{http.StatusUnauthorized, "Invalid Refresh Token", "INVALID_REFRESH_TOKEN", "Refresh token is invalid or expired", nil}
	case errors.Is(err, domain.ErrInvalidTokenType):
		return apiError{http.StatusUnauthorized, "Invalid Token Type", "INVALID_TOKEN_TYPE", "Token is not a refresh token", nil}
	case errors.Is(err, domain.ErrSessionExpired):
		return apiError{http.StatusUnauthorized, "Unauthorized", "TOKEN_EXPIRED", "Access token has expired", nil}
	case errors.Is(err, domain.ErrUnauthorized):
		return apiError{http.StatusUnauthorized, "Unauthorized", "UNAUTHORIZED", "Access token is missing or invalid", nil}
	case errors.Is(err, domain.ErrNotAdmin):
		return apiError{http.StatusForbidden, "Forbidden", "NOT_ADMIN_TOKEN", "Admin privileges required", nil}
	case errors.Is(err, domain.ErrInvalidAdminKey):
		return apiError{http.StatusForbidden, "Forbidden", "INVALID_ADMIN_KEY", "Invalid admin creation key", nil}
	case errors.Is(err, domain.ErrUserExists):
		return apiError{http.StatusConflict, "User Already Exists", "USER_EXISTS", "An account with this email or phone number already exists", nil}
	case errors.Is(err, domain.ErrAlreadyVerified):
		return apiError{http.StatusConflict, "Already Verified", "ALREADY_VERIFIED", "This contact has already been verified", nil}
	case errors.Is(err, domain.ErrUserNotFound):
		return apiError{http.StatusNotFound, "User Not Found", "USER_NOT_FOUND", "No account found with the provided information", nil}
	case errors.Is(err, domain.ErrUnavailable):
		return apiError{http.StatusServiceUnavailable, "Database Error", "DATABASE_ERROR", "Service temporarily unavailable. Please try again later.", nil}
	default:
		return apiError{http.StatusInternalServerError, "Internal Server Error", "INTERNAL_ERROR", "An unexpected error occurred. Please try again later.", nil}
	}
}
