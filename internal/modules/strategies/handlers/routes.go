package handlers

import "github.com/go-chi/chi/v5"

// RegisterRoutes registers all strategy routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/strategies", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Post("/", h.HandleCreate)

		r.Post("/validate", h.HandleValidate)
		r.Post("/compile", h.HandleCompile)
		r.Post("/describe", h.HandleDescribe)
		r.Post("/import", h.HandleImport)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.HandleGet)
			r.Put("/", h.HandleUpdate)
			r.Delete("/", h.HandleDelete)
			r.Get("/export", h.HandleExport)
		})
	})
}
