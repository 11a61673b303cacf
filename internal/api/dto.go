package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Conduit/internal/domain"
	"github.com/shaiso/Conduit/internal/flow"
)

// Pipeline DTOs

// PipelineResponse — краткое описание pipeline.
type PipelineResponse struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Mode        flow.Mode      `json:"mode"`
	StepCount   int            `json:"step_count"`
	Schedule    *flow.Schedule `json:"schedule,omitempty"`
}

// PipelineDetailResponse — pipeline с исходными шагами.
type PipelineDetailResponse struct {
	PipelineResponse
	Steps []any `json:"steps"`
}

// PipelineFromDefinition конвертирует flow.Definition в PipelineResponse.
func PipelineFromDefinition(def *flow.Definition) PipelineResponse {
	return PipelineResponse{
		Name:        def.Name,
		Description: def.Description,
		Mode:        def.Mode,
		StepCount:   len(def.Steps),
		Schedule:    def.Schedule,
	}
}

// ValidateResponse — результат проверки определения.
type ValidateResponse struct {
	Valid bool   `json:"valid"`
	Name  string `json:"name"`
}

// Run DTOs

// CreateRunRequest — запрос на запуск pipeline.
type CreateRunRequest struct {
	Input          any    `json:"input,omitempty"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`

	// Wait — выполнить в процессе API и вернуть результат.
	// Эквивалентно ?wait=true.
	Wait bool `json:"wait,omitempty"`
}

// RunResponse — ответ с run.
type RunResponse struct {
	ID             uuid.UUID        `json:"id"`
	Pipeline       string           `json:"pipeline"`
	Status         domain.RunStatus `json:"status"`
	Input          any              `json:"input,omitempty"`
	Output         any              `json:"output,omitempty"`
	Error          string           `json:"error,omitempty"`
	State          map[string]any   `json:"state,omitempty"`
	StartedAt      *time.Time       `json:"started_at,omitempty"`
	FinishedAt     *time.Time       `json:"finished_at,omitempty"`
	DurationMs     int64            `json:"duration_ms,omitempty"`
	IdempotencyKey string           `json:"idempotency_key,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
}

// RunFromDomain конвертирует domain.Run в RunResponse.
func RunFromDomain(r domain.Run) RunResponse {
	return RunResponse{
		ID:             r.ID,
		Pipeline:       r.Pipeline,
		Status:         r.Status,
		Input:          r.Input,
		Output:         r.Output,
		Error:          r.Error,
		State:          r.State,
		StartedAt:      r.StartedAt,
		FinishedAt:     r.FinishedAt,
		DurationMs:     r.Duration().Milliseconds(),
		IdempotencyKey: r.IdempotencyKey,
		CreatedAt:      r.CreatedAt,
	}
}

// Catalog DTOs

// TransformerResponse — зарегистрированный transformer.
type TransformerResponse struct {
	Name string `json:"name"`
}
