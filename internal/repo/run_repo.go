package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/Conduit/internal/domain"
)

// uniqueViolation — код ошибки Postgres для нарушения уникальности.
const uniqueViolation = "23505"

const runColumns = `
	id, pipeline, status, input, output, error, state,
	started_at, finished_at, idempotency_key, created_at`

// RunRepo — репозиторий для работы с runs.
type RunRepo struct {
	pool *pgxpool.Pool
}

// NewRunRepo создаёт новый RunRepo.
func NewRunRepo(pool *pgxpool.Pool) *RunRepo {
	return &RunRepo{pool: pool}
}

// Create создаёт новый run.
// Повтор idempotency_key для того же pipeline — ErrAlreadyExists.
func (r *RunRepo) Create(ctx context.Context, run *domain.Run) error {
	inputJSON, err := marshalJSON(run.Input)
	if err != nil {
		return fmt.Errorf("marshal input: %w", err)
	}

	query := `
		INSERT INTO runs (id, pipeline, status, input, idempotency_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = r.pool.Exec(ctx, query,
		run.ID,
		run.Pipeline,
		run.Status,
		inputJSON,
		nullString(run.IdempotencyKey),
		run.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: run %s", ErrAlreadyExists, run.IdempotencyKey)
		}
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// GetByID возвращает run по ID.
func (r *RunRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE id = $1`
	return scanRun(r.pool.QueryRow(ctx, query, id))
}

// GetByIdempotencyKey возвращает run по ключу идемпотентности.
func (r *RunRepo) GetByIdempotencyKey(ctx context.Context, pipeline, key string) (*domain.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE pipeline = $1 AND idempotency_key = $2`
	return scanRun(r.pool.QueryRow(ctx, query, pipeline, key))
}

// List возвращает список runs с фильтрацией, новые первыми.
func (r *RunRepo) List(ctx context.Context, filter RunFilter) ([]domain.Run, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT ` + runColumns + `
		FROM runs
		WHERE ($1::text IS NULL OR pipeline = $1)
		  AND ($2::text IS NULL OR status = $2::run_status)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.pool.Query(ctx, query,
		nullString(filter.Pipeline),
		nullString(string(filter.Status)),
		limit,
		filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// Update сохраняет статус, результат и снимок состояния run.
func (r *RunRepo) Update(ctx context.Context, run *domain.Run) error {
	outputJSON, err := marshalJSON(run.Output)
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	stateJSON, err := marshalJSON(run.State)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	query := `
		UPDATE runs
		SET status = $2, started_at = $3, finished_at = $4, error = $5, output = $6, state = $7
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query,
		run.ID,
		run.Status,
		run.StartedAt,
		run.FinishedAt,
		nullString(run.Error),
		outputJSON,
		stateJSON,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Claim атомарно переводит run из PENDING в RUNNING.
// Если run уже забран другим воркером — ErrInvalidState.
func (r *RunRepo) Claim(ctx context.Context, run *domain.Run) error {
	run.MarkRunning()

	query := `
		UPDATE runs
		SET status = $2, started_at = $3
		WHERE id = $1 AND status = 'PENDING'
	`
	result, err := r.pool.Exec(ctx, query, run.ID, run.Status, run.StartedAt)
	if err != nil {
		return fmt.Errorf("claim run: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: run %s is not pending", ErrInvalidState, run.ID)
	}
	return nil
}

// ListPending возвращает runs в статусе PENDING, старые первыми.
func (r *RunRepo) ListPending(ctx context.Context, limit int) ([]domain.Run, error) {
	query := `SELECT ` + runColumns + `
		FROM runs
		WHERE status = 'PENDING'
		ORDER BY created_at ASC
		LIMIT $1
	`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// --- Helpers ---

// RunFilter — параметры фильтрации runs.
type RunFilter struct {
	Pipeline string
	Status   domain.RunStatus
	Limit    int
	Offset   int
}

// scanRun сканирует одну строку в Run. Подходит и для pgx.Row, и для pgx.Rows.
func scanRun(row pgx.Row) (*domain.Run, error) {
	var run domain.Run
	var inputJSON, outputJSON, stateJSON []byte
	var idempotencyKey *string
	var runError *string

	err := row.Scan(
		&run.ID,
		&run.Pipeline,
		&run.Status,
		&inputJSON,
		&outputJSON,
		&runError,
		&stateJSON,
		&run.StartedAt,
		&run.FinishedAt,
		&idempotencyKey,
		&run.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan run: %w", err)
	}

	if err := unmarshalJSON(inputJSON, &run.Input); err != nil {
		return nil, fmt.Errorf("unmarshal input: %w", err)
	}
	if err := unmarshalJSON(outputJSON, &run.Output); err != nil {
		return nil, fmt.Errorf("unmarshal output: %w", err)
	}
	if err := unmarshalJSON(stateJSON, &run.State); err != nil {
		return nil, fmt.Errorf("unmarshal state: %w", err)
	}

	if idempotencyKey != nil {
		run.IdempotencyKey = *idempotencyKey
	}
	if runError != nil {
		run.Error = *runError
	}

	return &run, nil
}

// marshalJSON возвращает nil для nil значения (NULL в БД).
func marshalJSON(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

func unmarshalJSON(data []byte, v any) error {
	if data == nil {
		return nil
	}
	return json.Unmarshal(data, v)
}

// nullString возвращает nil для пустой строки (для NULL в БД).
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
