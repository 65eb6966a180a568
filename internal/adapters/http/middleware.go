package http

import (
	"context"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/majidtwaha5-svg/maijjd-backend/internal/domain"
	"github.com/majidtwaha5-svg/maijjd-backend/internal/ports"
)

type ctxKey string

const (
	ctxKeyRequestID ctxKey = "request_id"
	ctxKeyClaims    ctxKey = "auth_claims"

	headerRequestID = "X-Request-Id"
	maxRequestIDLen = 128
)

// requestIDMiddleware propagates a caller supplied X-Request-Id or mints one.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := strings.TrimSpace(r.Header.Get(headerRequestID))
		if reqID == "" || len(reqID) > maxRequestIDLen {
			reqID = uuid.NewString()
		}
		w.Header().Set(headerRequestID, reqID)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKeyRequestID, reqID)))
	})
}

func recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			httpLogger().ErrorContext(r.Context(), "panic recovered",
				"operation", "http_panic_recovery",
				"outcome", "failure",
				"request_id", requestIDFromContext(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"panic", rec,
				"stack", string(debug.Stack()),
			)
			writeBareError(w, http.StatusInternalServerError, "Internal Server Error", "INTERNAL_ERROR", "An unexpected error occurred. Please try again later.")
		}()
		next.ServeHTTP(w, r)
	})
}

// responseRecorder captures the status and size written by downstream handlers.
type responseRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *responseRecorder) WriteHeader(status int) {
	if r.status == 0 {
		r.status = status
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *responseRecorder) Write(payload []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(payload)
	r.bytes += n
	return n, err
}

func (r *responseRecorder) statusCode() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}

// observe writes one access log line per request and feeds the request
// metrics. Both are keyed by the chi route pattern, not the raw path.
func (h *Handler) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &responseRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		elapsed := time.Since(start)
		status := rec.statusCode()
		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		h.metrics.observeRequest(r.Method, route, status, elapsed)

		logger := httpLogger()
		logFn, outcome := logger.InfoContext, "success"
		switch {
		case status >= 500:
			logFn, outcome = logger.ErrorContext, "failure"
		case status >= 400:
			logFn, outcome = logger.WarnContext, "failure"
		}
		logFn(r.Context(), "http request completed",
			"operation", "http_request",
			"outcome", outcome,
			"method", r.Method,
			"route", route,
			"path", r.URL.Path,
			"status_code", status,
			"bytes", rec.bytes,
			"duration_ms", elapsed.Milliseconds(),
			"client_ip", h.clientIP(r),
			"request_id", requestIDFromContext(r.Context()),
		)
	})
}

// requireAuth admits requests carrying an access token valid for scope and
// stores its claims in the request context.
func (h *Handler) requireAuth(scope domain.Scope) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerTokenFromHeader(r.Header.Get("Authorization"))
			if !ok {
				h.writeError(w, r, "authenticate", domain.ErrUnauthorized)
				return
			}
			claims, err := h.service.Authenticate(r.Context(), scope, raw)
			if err != nil {
				h.writeError(w, r, "authenticate", err)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKeyClaims, claims)))
		})
	}
}

func requestIDFromContext(ctx context.Context) string {
	reqID, _ := ctx.Value(ctxKeyRequestID).(string)
	return reqID
}

func claimsFromContext(ctx context.Context) (ports.TokenClaims, bool) {
	claims, ok := ctx.Value(ctxKeyClaims).(ports.TokenClaims)
	return claims, ok
}

// bearerTokenFromHeader accepts "Bearer <token>" with any casing of the scheme.
func bearerTokenFromHeader(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
