package sidecar

import (
	"encoding/json"
	"net/http"

	"github.com/hyperjump/agrafes/internal/apierr"
)

// APIVersion is the contract version reported in every envelope. Bumped
// only when a breaking change to the documented contract ships.
const APIVersion = "1"

// envelopeError is the error object nested in a failure envelope.
type envelopeError struct {
	Type    string      `json:"type"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// respondOK writes a success envelope. fields are merged in alongside the
// fixed ok/api_version/version/status keys; a field named "status" in
// fields overrides the default "ok" status (used for e.g. "accepted").
func (s *Server) respondOK(w http.ResponseWriter, fields map[string]interface{}) {
	body := map[string]interface{}{
		"ok":          true,
		"api_version": APIVersion,
		"version":     s.version,
		"status":      "ok",
	}
	for k, v := range fields {
		body[k] = v
	}
	writeJSON(w, http.StatusOK, body)
}

// respondError writes a failure envelope with the HTTP status and error
// code derived from err's taxonomy (§7).
func (s *Server) respondError(w http.ResponseWriter, err error) {
	status := apierr.HTTPStatus(err)
	body := map[string]interface{}{
		"ok":          false,
		"api_version": APIVersion,
		"version":     s.version,
		"status":      "error",
		"error": envelopeError{
			Type:    apierr.ErrorType(err),
			Message: err.Error(),
		},
		"error_code": apierr.ErrorCode(err),
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
