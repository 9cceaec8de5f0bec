package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/nsmith5/marksync/internal/httpserver/deps"
	"github.com/nsmith5/marksync/internal/httpserver/handlers"
	"github.com/nsmith5/marksync/internal/httpserver/mw"
)

func init() { Register(registerConfig) }

func registerConfig(r chi.Router, d deps.Deps) {
	r.With(mw.EnforceHost(d.AllowedHosts, d.Logger)).Get("/api/config", handlers.Config(d))
}
