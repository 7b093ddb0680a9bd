package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/slotshare/internal/marketplace"
	"github.com/dukerupert/slotshare/internal/validate"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error  string            `json:"error"`
	Kind   string            `json:"kind"`
	Fields map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg, Kind: string(marketplace.KindValidation)})
}

var kindStatus = map[marketplace.Kind]int{
	marketplace.KindValidation:  http.StatusBadRequest,
	marketplace.KindConflict:    http.StatusConflict,
	marketplace.KindNotFound:    http.StatusNotFound,
	marketplace.KindForbidden:   http.StatusForbidden,
	marketplace.KindTransient:   http.StatusInternalServerError,
	marketplace.KindUnavailable: http.StatusServiceUnavailable,
}

// writeError maps a workflow error to its status and JSON body. Transient
// errors are logged and their details withheld from the client.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	kind := marketplace.KindOf(err)
	resp := errorResponse{Error: err.Error(), Kind: string(kind)}

	var verr *validate.Error
	switch {
	case errors.As(err, &verr):
		resp.Error = "validation failed"
		resp.Fields = verr.Fields
	case kind == marketplace.KindTransient:
		logger.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		resp.Error = "internal error"
	case kind == marketplace.KindNotFound:
		resp.Error = "not found"
	}
	writeJSON(w, kindStatus[kind], resp)
}

// decodeJSON reads a size-limited JSON body into v, writing a 400 and
// returning false on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeBadRequest(w, "invalid JSON")
		return false
	}
	return true
}
