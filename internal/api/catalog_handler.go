package api

import (
	"net/http"

	"github.com/shaiso/Conduit/internal/flow"
)

// ListTransformers возвращает имена зарегистрированных transformer'ов.
// GET /api/v1/transformers
func (h *Handler) ListTransformers(w http.ResponseWriter, _ *http.Request) {
	names := h.registry.Names()

	result := make([]TransformerResponse, len(names))
	for i, name := range names {
		result[i] = TransformerResponse{Name: name}
	}

	List(w, result, len(result))
}

// ListSkills возвращает дескрипторы skill.
// GET /api/v1/skills
func (h *Handler) ListSkills(w http.ResponseWriter, _ *http.Request) {
	descs := h.skills.Descriptors()
	List(w, descs, len(descs))
}

// GetSchema возвращает JSON Schema определений pipeline.
// GET /api/v1/schema
func (h *Handler) GetSchema(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/schema+json")
	w.WriteHeader(http.StatusOK)
	w.Write(flow.Schema())
}
