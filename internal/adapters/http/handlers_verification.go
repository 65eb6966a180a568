package http

import (
	"net/http"

	"github.com/majidtwaha5-svg/maijjd-backend/internal/application"
	"github.com/majidtwaha5-svg/maijjd-backend/internal/domain"
)

func (h *Handler) sendVerification(purpose domain.Purpose) http.HandlerFunc {
	operation := "send_verification_" + string(purpose)
	message := "Verification email sent successfully"
	if purpose == domain.PurposePhone {
		message = "Verification SMS sent successfully"
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req application.SendVerificationRequest
		if err := decodeBody(w, r, &req); err != nil {
			h.writeError(w, r, operation, err)
			return
		}

		res, err := h.service.SendVerification(r.Context(), purpose, req)
		if err != nil {
			h.writeError(w, r, operation, err)
			return
		}
		h.writeSuccess(w, r, operation, http.StatusOK, message, res)
	}
}

func (h *Handler) verifyCode(w http.ResponseWriter, r *http.Request) {
	var req application.VerifyCodeRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, "verify_code", err)
		return
	}

	res, err := h.service.VerifyCode(r.Context(), req)
	if err != nil {
		h.writeError(w, r, "verify_code", err)
		return
	}
	h.writeSuccess(w, r, "verify_code", http.StatusOK, "Verification successful", res)
}
