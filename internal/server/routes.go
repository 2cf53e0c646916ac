package server

import (
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func setupRoutes(router chi.Router, h *handlers) {
	router.Get("/healthz", h.health)
	router.Handle("/metrics", promhttp.Handler())

	// SSE route (change signals only)
	router.Get("/updates", h.updates)

	router.Route("/api", func(r chi.Router) {
		r.Get("/graph", h.graph)
		r.Get("/coverage", h.coverage)
		r.Get("/notices", h.notices)

		r.Route("/queue", func(r chi.Router) {
			r.Get("/current", h.queueCurrent)
			r.Post("/reload", h.queueReload)
			r.Post("/{action}", h.queueAction)
		})

		r.Route("/batch", func(r chi.Router) {
			r.Get("/", h.batchStatus)
			r.Post("/{command}", h.batchCommand)
		})
	})
}
