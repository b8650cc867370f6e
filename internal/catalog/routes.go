package catalog

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes registers product routes on the provided router. The caller
// wraps them with session middleware; authorization happens per request in
// the service via access decisions.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.get)
		r.Patch("/", h.update)
		r.Delete("/", h.delete)
	})
}
