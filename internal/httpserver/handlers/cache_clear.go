package handlers

import (
	"net/http"
	"time"

	"github.com/nsmith5/marksync/internal/httpserver/deps"
)

type cacheClearResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// CacheClear drops the page cache and marks the working set stale. The next
// bookmark request triggers a fresh upstream sync.
func CacheClear(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d.Coordinator.ClearCache(r.Context())
		d.Logger.Info("page cache cleared on request")

		writeJSON(w, http.StatusOK, cacheClearResponse{
			Success:   true,
			Message:   "cache cleared",
			Timestamp: d.Now().Format(time.RFC3339),
		})
	}
}
