package http

import (
	"log/slog"
	"net/http"
)

const serviceName = "maijjd-auth"

func httpLogger() *slog.Logger {
	return slog.Default().With(
		"service", serviceName,
		"module", "http",
		"layer", "adapter",
	)
}

// logOperationError records a failed auth operation. Client errors are
// warnings; only 5xx responses are logged at error level.
func logOperationError(r *http.Request, operation string, mapped apiError, err error) {
	fields := []any{
		"operation", operation,
		"outcome", "failure",
		"method", r.Method,
		"path", r.URL.Path,
		"status_code", mapped.Status,
		"error_code", mapped.Code,
		"request_id", requestIDFromContext(r.Context()),
	}
	if claims, ok := claimsFromContext(r.Context()); ok {
		fields = append(fields, "account_id", claims.Subject.String())
	}
	if err != nil {
		fields = append(fields, "error", err.Error())
	}
	if mapped.Status >= http.StatusInternalServerError {
		httpLogger().ErrorContext(r.Context(), "http operation failed", fields...)
		return
	}
	httpLogger().WarnContext(r.Context(), "http operation failed", fields...)
}
