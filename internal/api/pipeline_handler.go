package api

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/shaiso/Conduit/internal/flow"
)

// maxDefinitionSize — ограничение тела запроса с определением.
const maxDefinitionSize = 1 << 20

// ListPipelines возвращает все pipeline из каталога.
// GET /api/v1/pipelines
func (h *Handler) ListPipelines(w http.ResponseWriter, _ *http.Request) {
	defs := h.runner.Catalog().List()

	result := make([]PipelineResponse, len(defs))
	for i, def := range defs {
		result[i] = PipelineFromDefinition(def)
	}

	List(w, result, len(result))
}

// GetPipeline возвращает pipeline с шагами.
// GET /api/v1/pipelines/{name}
func (h *Handler) GetPipeline(w http.ResponseWriter, r *http.Request) {
	def, err := h.runner.Catalog().Get(r.PathValue("name"))
	if HandleRepoError(w, h.logger, err, "pipeline not found") {
		return
	}

	Success(w, PipelineDetailResponse{
		PipelineResponse: PipelineFromDefinition(def),
		Steps:            def.Steps,
	})
}

// ValidatePipeline проверяет определение, не добавляя его в каталог.
// POST /api/v1/pipelines/validate
//
// Тело — JSON или YAML (Content-Type: application/yaml).
func (h *Handler) ValidatePipeline(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxDefinitionSize))
	if err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	format := flow.FormatJSON
	if strings.Contains(r.Header.Get("Content-Type"), "yaml") {
		format = flow.FormatYAML
	}

	def, err := flow.Parse(data, format)
	if err == nil {
		err = h.runner.Validate(def)
	}
	if err != nil {
		var vErr *flow.ValidationError
		if errors.As(err, &vErr) {
			ValidationFailed(w, vErr)
			return
		}
		BadRequest(w, err.Error())
		return
	}

	Success(w, ValidateResponse{Valid: true, Name: def.Name})
}
