package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/nsmith5/marksync/internal/httpserver/deps"
	"github.com/nsmith5/marksync/internal/httpserver/handlers"
	"github.com/nsmith5/marksync/internal/httpserver/mw"
)

func init() { Register(registerCache) }

func registerCache(r chi.Router, d deps.Deps) {
	r.With(mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger), mw.EnforceHost(d.AllowedHosts, d.Logger)).Post("/api/cache/clear", handlers.CacheClear(d))
}
