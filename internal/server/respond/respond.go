// Package respond writes JSON responses and serializes auth errors with
// their stable codes.
package respond

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"deviceauth/internal/autherr"
)

// ErrorBody is the outward error envelope: a stable machine-readable code
// plus a human-readable message. HTTP status mapping and localization are
// the transport's concern, not the core's.
type ErrorBody struct {
	Code    autherr.Code `json:"code"`
	Message string       `json:"message"`
}

// JSON writes v as JSON with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("response encode failed", "err", err)
	}
}

// Error writes err as a JSON error envelope. Known auth errors keep their
// code and status; anything else is logged and collapsed to INTERNAL_ERROR
// so internals never leak to clients.
func Error(w http.ResponseWriter, err error) {
	var ae *autherr.Error
	if !errors.As(err, &ae) {
		slog.Error("request failed", "err", err)
		ae = autherr.ErrInternal
	}
	JSON(w, ae.Status, ErrorBody{Code: ae.Code, Message: ae.Message})
}
