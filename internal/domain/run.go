package domain

import (
	"time"

	"github.com/google/uuid"
)

// Run — одно выполнение pipeline.
//
// Run создаётся когда:
// - Пользователь запускает pipeline через API или CLI (enqueue)
// - Scheduler срабатывает по cron из определения pipeline
//
// Выполнение целиком происходит в одном процессе (worker или API с
// wait=true). После завершения в Run сохраняется итоговое значение и
// снимок state.Context.
type Run struct {
	// ID — уникальный идентификатор run.
	ID uuid.UUID `json:"id"`

	// Pipeline — имя определения pipeline из каталога.
	Pipeline string `json:"pipeline"`

	// Status — текущий статус выполнения.
	Status RunStatus `json:"status"`

	// Input — входное значение первого шага.
	Input any `json:"input,omitempty"`

	// Output — результат последнего шага. Заполняется при SUCCEEDED.
	Output any `json:"output,omitempty"`

	// Error — текст ошибки, если run завершился с FAILED.
	Error string `json:"error,omitempty"`

	// State — снимок общего состояния после выполнения.
	State map[string]any `json:"state,omitempty"`

	// StartedAt — время перехода в RUNNING.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// FinishedAt — время завершения (успешного или с ошибкой).
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// IdempotencyKey — ключ для предотвращения дубликатов.
	// Для scheduled runs: "{pipeline}_{unix}".
	IdempotencyKey string `json:"idempotency_key,omitempty"`

	// CreatedAt — время создания run.
	CreatedAt time.Time `json:"created_at"`
}

// NewRun создаёт run в статусе PENDING.
func NewRun(pipeline string, input any) *Run {
	return &Run{
		ID:        uuid.New(),
		Pipeline:  pipeline,
		Status:    RunStatusPending,
		Input:     input,
		CreatedAt: time.Now(),
	}
}

// Duration возвращает продолжительность выполнения.
// Возвращает 0, если run ещё не завершён.
func (r *Run) Duration() time.Duration {
	if r.StartedAt == nil || r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(*r.StartedAt)
}

// IsFinished возвращает true, если run завершён (в любом статусе).
func (r *Run) IsFinished() bool {
	return r.Status.IsTerminal()
}

// MarkRunning переводит run в статус RUNNING.
func (r *Run) MarkRunning() {
	now := time.Now()
	r.Status = RunStatusRunning
	r.StartedAt = &now
}

// MarkSucceeded переводит run в статус SUCCEEDED с результатом.
func (r *Run) MarkSucceeded(output any) {
	now := time.Now()
	r.Status = RunStatusSucceeded
	r.FinishedAt = &now
	r.Output = output
	r.Error = ""
}

// MarkFailed переводит run в статус FAILED с ошибкой.
func (r *Run) MarkFailed(err string) {
	now := time.Now()
	r.Status = RunStatusFailed
	r.FinishedAt = &now
	r.Error = err
}

// MarkCancelled переводит run в статус CANCELLED.
func (r *Run) MarkCancelled() {
	now := time.Now()
	r.Status = RunStatusCancelled
	r.FinishedAt = &now
}
