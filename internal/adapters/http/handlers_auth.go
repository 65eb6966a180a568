package http

import (
	"net/http"

	"github.com/majidtwaha5-svg/maijjd-backend/internal/application"
	"github.com/majidtwaha5-svg/maijjd-backend/internal/domain"
)

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, r, "health", http.StatusOK, "ok", map[string]string{"status": "healthy"})
}

func (h *Handler) ready(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Ready(r.Context()); err != nil {
		h.writeError(w, r, "ready", err)
		return
	}
	h.writeSuccess(w, r, "ready", http.StatusOK, "ready", map[string]string{"status": "ready"})
}

func (h *Handler) login(scope domain.Scope) http.HandlerFunc {
	operation := scopedOperation(scope, "login")
	message := "Login successful"
	if scope == domain.ScopeAdmin {
		message = "Admin login successful"
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req application.LoginRequest
		if err := decodeBody(w, r, &req); err != nil {
			h.writeError(w, r, operation, err)
			return
		}
		req.IPAddress = h.clientIP(r)
		req.UserAgent = r.UserAgent()

		res, err := h.service.Login(r.Context(), scope, req)
		if err != nil {
			h.writeError(w, r, operation, err)
			return
		}
		h.writeSuccess(w, r, operation, http.StatusOK, message, res)
	}
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req application.RegisterRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, "register", err)
		return
	}

	res, err := h.service.Register(r.Context(), req)
	if err != nil {
		h.writeError(w, r, "register", err)
		return
	}
	h.writeSuccess(w, r, "register", http.StatusCreated, "User registered successfully", res)
}

func (h *Handler) provisionAdmin(w http.ResponseWriter, r *http.Request) {
	var req application.AdminRegisterRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, "provision_admin", err)
		return
	}

	res, err := h.service.ProvisionAdmin(r.Context(), req)
	if err != nil {
		h.writeError(w, r, "provision_admin", err)
		return
	}
	h.writeSuccess(w, r, "provision_admin", http.StatusCreated, "Admin account created successfully", res)
}

func (h *Handler) refresh(scope domain.Scope) http.HandlerFunc {
	operation := scopedOperation(scope, "refresh")
	return func(w http.ResponseWriter, r *http.Request) {
		var req application.RefreshRequest
		if err := decodeBody(w, r, &req); err != nil {
			h.writeError(w, r, operation, err)
			return
		}

		res, err := h.service.Refresh(r.Context(), scope, req.RefreshToken)
		if err != nil {
			h.writeError(w, r, operation, err)
			return
		}
		h.writeSuccess(w, r, operation, http.StatusOK, "Tokens refreshed successfully", res)
	}
}

func (h *Handler) profile(scope domain.Scope) http.HandlerFunc {
	operation := scopedOperation(scope, "profile")
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := claimsFromContext(r.Context())
		if !ok {
			h.writeError(w, r, operation, domain.ErrUnauthorized)
			return
		}

		view, err := h.service.Profile(r.Context(), scope, claims.Subject)
		if err != nil {
			h.writeError(w, r, operation, err)
			return
		}
		h.writeSuccess(w, r, operation, http.StatusOK, "Profile retrieved successfully", map[string]any{"user": view})
	}
}

func (h *Handler) logout(scope domain.Scope) http.HandlerFunc {
	operation := scopedOperation(scope, "logout")
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := claimsFromContext(r.Context())
		if !ok {
			h.writeError(w, r, operation, domain.ErrUnauthorized)
			return
		}
		res := h.service.Logout(r.Context(), scope, claims)
		h.writeSuccess(w, r, operation, http.StatusOK, "Logout successful", map[string]any{"logout": res})
	}
}

// scopedOperation names admin flows distinctly in logs and metrics.
func scopedOperation(scope domain.Scope, name string) string {
	if scope == domain.ScopeAdmin {
		return "admin_" + name
	}
	return name
}
