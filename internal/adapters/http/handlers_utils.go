package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/majidtwaha5-svg/maijjd-backend/internal/domain"
)

const maxBodyBytes = 1 << 20

// decodeBody reads a single JSON object. An empty body decodes to the zero value
// so the flow reports its own missing-field errors.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return domain.Invalid("body", "Request body must be a valid JSON object")
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return domain.Invalid("body", "Request body must contain a single JSON value")
	}
	return nil
}
