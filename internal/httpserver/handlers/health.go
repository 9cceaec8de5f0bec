package handlers

import (
	"net/http"
	"time"

	"github.com/nsmith5/marksync/internal/httpserver/deps"
)

type healthResponse struct {
	Success       bool    `json:"success"`
	Message       string  `json:"message"`
	Timestamp     string  `json:"timestamp"`
	CacheSize     int     `json:"cacheSize"`
	LastSyncTime  string  `json:"lastSyncTime,omitempty"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	Version       string  `json:"version,omitempty"`
	Commit        string  `json:"commit,omitempty"`
	BuildDate     string  `json:"build_date,omitempty"`
	GoVersion     string  `json:"go_version,omitempty"`
}

// Health reports liveness plus the sync state a dashboard cares about.
func Health(d deps.Deps) http.HandlerFunc {
	start := d.StartTime
	return func(w http.ResponseWriter, r *http.Request) {
		now := d.Now()

		var lastSync string
		if t := d.Coordinator.LastSyncTime(); !t.IsZero() {
			lastSync = t.Format(time.RFC3339)
		}

		writeJSON(w, http.StatusOK, healthResponse{
			Success:       true,
			Message:       "ok",
			Timestamp:     now.Format(time.RFC3339),
			CacheSize:     d.Coordinator.CacheSize(),
			LastSyncTime:  lastSync,
			UptimeSeconds: now.Sub(start).Seconds(),
			Version:       d.Version,
			Commit:        d.Commit,
			BuildDate:     d.BuildDate,
			GoVersion:     d.GoVersion,
		})
	}
}
