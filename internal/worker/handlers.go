package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Conduit/internal/domain"
	"github.com/shaiso/Conduit/internal/mq"
	"github.com/shaiso/Conduit/internal/pipeline"
	"github.com/shaiso/Conduit/internal/repo"
)

// handleRunRequested обрабатывает событие conduit.run.requested.
func (w *Worker) handleRunRequested(ctx context.Context, d *mq.Delivery) error {
	if d.Event.Type() != mq.EventRunRequested {
		return fmt.Errorf("%w: unexpected event type %s", mq.ErrReject, d.Event.Type())
	}

	payload, err := mq.ParsePayload[mq.RunRequestedPayload](&d.Event)
	if err != nil {
		return fmt.Errorf("%w: %v", mq.ErrReject, err)
	}

	w.logger.Debug("received run.requested event",
		"run_id", payload.RunID,
		"pipeline", payload.Pipeline,
	)

	if err := w.ProcessRun(ctx, payload.RunID); err != nil {
		// Ожидаемые ситуации — ack
		if isSkippable(err) {
			w.logger.Debug("run not processed", "run_id", payload.RunID, "reason", err)
			return nil
		}
		return err
	}
	return nil
}

func isSkippable(err error) bool {
	return errors.Is(err, ErrRunNotFound) || errors.Is(err, ErrRunNotPending)
}

// ProcessRun забирает run, выполняет pipeline, сохраняет итог
// и публикует событие завершения.
//
// Ошибка выполнения pipeline не является ошибкой ProcessRun: она
// записана в run со статусом FAILED.
func (w *Worker) ProcessRun(ctx context.Context, runID uuid.UUID) error {
	run, err := w.store.GetByID(ctx, runID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return fmt.Errorf("get run: %w", err)
	}

	if run.Status != domain.RunStatusPending {
		return ErrRunNotPending
	}
	if err := w.store.Claim(ctx, run); err != nil {
		if errors.Is(err, repo.ErrInvalidState) {
			return ErrRunNotPending
		}
		return fmt.Errorf("claim run: %w", err)
	}

	w.logger.Info("run started", "run_id", run.ID, "pipeline", run.Pipeline)

	w.executeWithRetry(ctx, run)

	// Итог сохраняем даже при остановке воркера
	persistCtx := context.WithoutCancel(ctx)
	if err := w.store.Update(persistCtx, run); err != nil {
		return fmt.Errorf("update run: %w", err)
	}

	w.publishCompletion(persistCtx, run)
	return nil
}

// executeWithRetry повторяет run, пока ошибка retryable и попытки не исчерпаны.
// Каждая попытка начинается со свежего состояния.
func (w *Worker) executeWithRetry(ctx context.Context, run *domain.Run) {
	startedAt := run.StartedAt

	for attempt := 1; ; attempt++ {
		err := w.runner.Execute(ctx, run)
		if err == nil || attempt >= w.maxAttempts || !isRetryable(err) {
			return
		}

		delay := calculateBackoff(attempt, w.retryDelay)
		w.logger.Debug("retrying run",
			"run_id", run.ID,
			"attempt", attempt,
			"delay", delay,
			"error", err,
		)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return
		}

		run.Status = domain.RunStatusRunning
		run.StartedAt = startedAt
		run.FinishedAt = nil
		run.Error = ""
		run.Output = nil
		run.State = nil
	}
}

// isRetryable — ошибка skill, помеченная как повторяемая.
func isRetryable(err error) bool {
	var skillErr *pipeline.SkillInvocationError
	return errors.As(err, &skillErr) && skillErr.Retryable
}

// calculateBackoff: initial * 2^(attempt-1), не больше maxRetryDelay.
func calculateBackoff(attempt int, initial time.Duration) time.Duration {
	delay := initial
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= maxRetryDelay {
			return maxRetryDelay
		}
	}
	return delay
}

func (w *Worker) publishCompletion(ctx context.Context, run *domain.Run) {
	if w.publisher == nil {
		w.logger.Warn("publisher not available, skipping run.completed publish", "run_id", run.ID)
		return
	}

	payload := mq.RunCompletedPayload{
		RunID:      run.ID,
		Pipeline:   run.Pipeline,
		Status:     string(run.Status),
		Error:      run.Error,
		DurationMs: run.Duration().Milliseconds(),
	}
	if err := w.publisher.PublishRunCompleted(ctx, payload); err != nil {
		// Итог уже в БД
		w.logger.Warn("failed to publish run.completed", "run_id", run.ID, "error", err)
	}
}
