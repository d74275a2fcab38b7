package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func (h *Handler) Init() *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(h.withTraceID, h.withLogging, withGZip)

	// routes without authorization
	router.Get("/api/version/", h.getServerVersion)

	router.Group(func(r chi.Router) {
		r.Use(h.auth)

		r.Post("/api/v1/evidence", h.createEvidence)
		r.Get("/api/v1/evidence/{id}", h.getEvidence)
		r.Put("/api/v1/evidence/{id}/bytes", h.uploadBytes)
		r.Post("/api/v1/evidence/{id}/fetch", h.fetchDocument)
		r.Post("/api/v1/evidence/{id}/seal", h.sealEvidence)
		r.Post("/api/v1/evidence/{id}/supersede", h.supersedeEvidence)
		r.Post("/api/v1/evidence/{id}/revoke", h.revokeEvidence)
		r.Get("/api/v1/evidence/{id}/events", h.listEvents)
		r.Get("/api/v1/evidence/{id}/verify", h.verifyEvidence)

		r.Post("/api/v1/bundles", h.createBundle)
		r.Get("/api/v1/bundles/{id}", h.getBundle)
		r.Post("/api/v1/bundles/{id}/items", h.addBundleItem)
		r.Delete("/api/v1/bundles/{id}/items/{objectID}", h.removeBundleItem)
		r.Post("/api/v1/bundles/{id}/seal", h.sealBundle)
		r.Post("/api/v1/bundles/{id}/export", h.exportBundle)
		r.Get("/api/v1/bundles/{id}/verify", h.verifyBundle)

		r.Post("/api/v1/artifacts/verify", h.verifyArtifact)

		r.With(h.bodyHashing).Post("/api/v1/batches", h.submitBatch)
	})

	router.MethodNotAllowed(CheckHTTPMethod(router))

	return router
}
