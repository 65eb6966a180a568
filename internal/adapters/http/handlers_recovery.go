package http

import (
	"net/http"

	"github.com/majidtwaha5-svg/maijjd-backend/internal/application"
	"github.com/majidtwaha5-svg/maijjd-backend/internal/domain"
)

func (h *Handler) forgotPassword(scope domain.Scope) http.HandlerFunc {
	operation := scopedOperation(scope, "forgot_password")
	return func(w http.ResponseWriter, r *http.Request) {
		var req application.ForgotPasswordRequest
		if err := decodeBody(w, r, &req); err != nil {
			h.writeError(w, r, operation, err)
			return
		}

		res, err := h.service.ForgotPassword(r.Context(), scope, req)
		if err != nil {
			h.writeError(w, r, operation, err)
			return
		}
		h.writeSuccess(w, r, operation, http.StatusOK, res.Message, nil)
	}
}

func (h *Handler) resetPassword(scope domain.Scope) http.HandlerFunc {
	operation := scopedOperation(scope, "reset_password")
	return func(w http.ResponseWriter, r *http.Request) {
		var req application.ResetPasswordRequest
		if err := decodeBody(w, r, &req); err != nil {
			h.writeError(w, r, operation, err)
			return
		}

		res, err := h.service.ResetPassword(r.Context(), scope, req)
		if err != nil {
			h.writeError(w, r, operation, err)
			return
		}
		h.writeSuccess(w, r, operation, http.StatusOK, "Password reset successfully", res)
	}
}

func (h *Handler) adminResetUserPassword(w http.ResponseWriter, r *http.Request) {
	const operation = "admin_reset_user_password"
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		h.writeError(w, r, operation, domain.ErrUnauthorized)
		return
	}
	var req application.AdminResetUserRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, operation, err)
		return
	}

	res, err := h.service.AdminResetUserPassword(r.Context(), claims, req)
	if err != nil {
		h.writeError(w, r, operation, err)
		return
	}
	h.writeSuccess(w, r, operation, http.StatusOK, "Password updated successfully", res)
}
