package handlers

import (
	"net/http"

	"github.com/nsmith5/marksync/internal/httpserver/deps"
)

type configData struct {
	SiteTitle string `json:"siteTitle"`
}

type configResponse struct {
	Success bool       `json:"success"`
	Data    configData `json:"data"`
}

// Config reports the display configuration clients need before rendering.
func Config(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, configResponse{
			Success: true,
			Data:    configData{SiteTitle: d.SiteTitle},
		})
	}
}
