package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"backoffice.org/internal/apperr"
	"backoffice.org/internal/audit"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"status":  code,
		"message": msg,
	}
	if rid := audit.RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

// writeAppError maps a classified error onto the wire envelope. Anything
// unclassified becomes an opaque 500.
func writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, r, apperr.StatusOf(err), apperr.MessageOf(err))
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}
