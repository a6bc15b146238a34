package web

import (
	"encoding/json"
	"net/http"

	"inventory-engine/internal/config"
	"inventory-engine/internal/core"
)

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, message, code string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := errorResponse{
		Error:     message,
		Code:      code,
		RequestID: requestIDFromContext(r.Context()),
	}
	_ = json.NewEncoder(w).Encode(resp)
}

// writeJSON writes a JSON response with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// writeCreated writes a JSON response with status 201.
func writeCreated(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(v)
}

// statusForKind maps a domain error kind to its HTTP status.
func statusForKind(k core.Kind) int {
	switch k {
	case core.KindInvalidArgument:
		return http.StatusBadRequest
	case core.KindNotFound:
		return http.StatusNotFound
	case core.KindConflict:
		return http.StatusConflict
	case core.KindFailedPrecondition:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError maps err to a status. Internal errors are logged and their message is not
// returned to the client.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, funcName string, err error) {
	kind := core.KindOf(err)
	if kind == core.KindInternal {
		config.LogError(h.logger, "web", funcName, r.Method+" "+r.URL.Path,
			map[string]string{"request_id": requestIDFromContext(r.Context())}, err)
		writeError(w, r, "internal server error", kind.String(), http.StatusInternalServerError)
		return
	}
	writeError(w, r, err.Error(), kind.String(), statusForKind(kind))
}
