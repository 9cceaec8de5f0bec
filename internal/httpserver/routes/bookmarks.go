package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/nsmith5/marksync/internal/httpserver/deps"
	"github.com/nsmith5/marksync/internal/httpserver/handlers"
	"github.com/nsmith5/marksync/internal/httpserver/mw"
)

func init() { Register(registerBookmarks) }

func registerBookmarks(r chi.Router, d deps.Deps) {
	r.With(mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger), mw.EnforceHost(d.AllowedHosts, d.Logger)).Get("/api/bookmarks", handlers.Bookmarks(d))
}
