package api

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты API.
// metrics может быть nil.
func (h *Handler) RegisterRoutes(mux *http.ServeMux, metrics *HTTPMetrics) {
	middlewares := []Middleware{Recovery(h.logger), Logging(h.logger)}
	if metrics != nil {
		middlewares = append(middlewares, Metrics(metrics))
	}
	chain := Chain(middlewares...)

	// Pipelines
	mux.Handle("GET /api/v1/pipelines", chain(http.HandlerFunc(h.ListPipelines)))
	mux.Handle("GET /api/v1/pipelines/{name}", chain(http.HandlerFunc(h.GetPipeline)))
	mux.Handle("POST /api/v1/pipelines/validate", chain(http.HandlerFunc(h.ValidatePipeline)))
	mux.Handle("POST /api/v1/pipelines/{name}/runs", chain(http.HandlerFunc(h.CreateRun)))

	// Runs
	mux.Handle("GET /api/v1/runs", chain(http.HandlerFunc(h.ListRuns)))
	mux.Handle("GET /api/v1/runs/{id}", chain(http.HandlerFunc(h.GetRun)))
	mux.Handle("POST /api/v1/runs/{id}/cancel", chain(http.HandlerFunc(h.CancelRun)))

	// Catalog
	mux.Handle("GET /api/v1/transformers", chain(http.HandlerFunc(h.ListTransformers)))
	mux.Handle("GET /api/v1/skills", chain(http.HandlerFunc(h.ListSkills)))
	mux.Handle("GET /api/v1/schema", chain(http.HandlerFunc(h.GetSchema)))
}
