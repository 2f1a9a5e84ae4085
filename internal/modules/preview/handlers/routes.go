package handlers

import "github.com/go-chi/chi/v5"

// RegisterRoutes registers all preview routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/preview", func(r chi.Router) {
		r.Post("/indicator", h.HandleIndicator)
	})
}
