// Package handlers implements the HTTP endpoints behind the /api surface.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/nsmith5/marksync/internal/domain"
)

// errorResponse is the error envelope shared by every endpoint.
type errorResponse struct {
	Success      bool   `json:"success"`
	Error        string `json:"error"`
	Message      string `json:"message"`
	ResponseTime string `json:"responseTime"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError maps the error to its HTTP status and renders the error
// envelope. The kind string doubles as the machine-readable error code.
func writeError(w http.ResponseWriter, err error, elapsed time.Duration) {
	writeJSON(w, domain.HTTPStatus(err), errorResponse{
		Success:      false,
		Error:        string(domain.KindOf(err)),
		Message:      domain.UserMessage(err),
		ResponseTime: elapsed.String(),
	})
}
