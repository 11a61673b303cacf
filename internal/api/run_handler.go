package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/shaiso/Conduit/internal/domain"
	"github.com/shaiso/Conduit/internal/mq"
	"github.com/shaiso/Conduit/internal/repo"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// ListRuns возвращает список runs с фильтрацией.
// GET /api/v1/runs?pipeline=...&status=...&limit=...&offset=...
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := repo.RunFilter{
		Pipeline: q.Get("pipeline"),
		Limit:    defaultListLimit,
	}

	if s := q.Get("status"); s != "" {
		status, ok := domain.ParseRunStatus(s)
		if !ok {
			BadRequest(w, "invalid status")
			return
		}
		filter.Status = status
	}

	if s := q.Get("limit"); s != "" {
		limit, err := strconv.Atoi(s)
		if err != nil || limit <= 0 {
			BadRequest(w, "invalid limit")
			return
		}
		filter.Limit = min(limit, maxListLimit)
	}

	if s := q.Get("offset"); s != "" {
		offset, err := strconv.Atoi(s)
		if err != nil || offset < 0 {
			BadRequest(w, "invalid offset")
			return
		}
		filter.Offset = offset
	}

	runs, err := h.store.List(r.Context(), filter)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]RunResponse, len(runs))
	for i, run := range runs {
		result[i] = RunFromDomain(run)
	}

	List(w, result, len(result))
}

// CreateRun запускает pipeline.
// POST /api/v1/pipelines/{name}/runs[?wait=true]
//
// Без wait run ставится в очередь (201). С wait run выполняется в
// процессе API и возвращается с результатом (200).
func (h *Handler) CreateRun(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if _, err := h.runner.Catalog().Get(name); HandleRepoError(w, h.logger, err, "pipeline not found") {
		return
	}

	var req CreateRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		BadRequest(w, "invalid request body")
		return
	}

	wait := req.Wait
	if s := r.URL.Query().Get("wait"); s != "" {
		v, err := strconv.ParseBool(s)
		if err != nil {
			BadRequest(w, "invalid wait")
			return
		}
		wait = v
	}

	if req.IdempotencyKey != "" {
		existing, err := h.store.GetByIdempotencyKey(r.Context(), name, req.IdempotencyKey)
		if err == nil {
			Success(w, RunFromDomain(*existing))
			return
		}
		if !errors.Is(err, repo.ErrNotFound) {
			InternalError(w, h.logger, err)
			return
		}
	}

	run := domain.NewRun(name, req.Input)
	run.IdempotencyKey = req.IdempotencyKey

	if err := h.store.Create(r.Context(), run); HandleRepoError(w, h.logger, err, "") {
		return
	}

	if wait {
		// Воркер мог забрать run через polling раньше
		if err := h.store.Claim(r.Context(), run); err == nil {
			h.executeInline(r.Context(), run)
			Success(w, RunFromDomain(*run))
			return
		}
	}

	if h.publisher != nil {
		payload := mq.RunRequestedPayload{RunID: run.ID, Pipeline: run.Pipeline}
		if err := h.publisher.PublishRunRequested(r.Context(), payload); err != nil {
			h.logger.Warn("failed to publish run.requested", "run_id", run.ID, "error", err)
		}
	}

	Created(w, RunFromDomain(*run))
}

// executeInline выполняет run в процессе API и сохраняет итог.
// Ошибка выполнения уже записана в run.
func (h *Handler) executeInline(ctx context.Context, run *domain.Run) {
	_ = h.runner.Execute(ctx, run)

	if err := h.store.Update(context.WithoutCancel(ctx), run); err != nil {
		h.logger.Error("failed to persist inline run", "run_id", run.ID, "error", err)
	}
}

// GetRun возвращает run по ID.
// GET /api/v1/runs/{id}
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid run id")
		return
	}

	run, err := h.store.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "run not found") {
		return
	}

	Success(w, RunFromDomain(*run))
}

// CancelRun отменяет run, который ещё не начал выполняться.
// POST /api/v1/runs/{id}/cancel
func (h *Handler) CancelRun(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid run id")
		return
	}

	run, err := h.store.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "run not found") {
		return
	}

	switch {
	case run.IsFinished():
		InvalidState(w, "run is already finished")
		return
	case run.Status == domain.RunStatusRunning:
		InvalidState(w, "run is already executing")
		return
	}

	run.MarkCancelled()

	if err := h.store.Update(r.Context(), run); err != nil {
		InternalError(w, h.logger, err)
		return
	}

	Success(w, RunFromDomain(*run))
}
