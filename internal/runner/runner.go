package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shaiso/Conduit/internal/domain"
	"github.com/shaiso/Conduit/internal/flow"
	"github.com/shaiso/Conduit/internal/pipeline"
	"github.com/shaiso/Conduit/internal/state"
	"github.com/shaiso/Conduit/internal/telemetry"
)

// Runner выполняет runs по определениям из каталога.
//
// Chain для каждого pipeline собирается один раз и переиспользуется:
// Chain не хранит состояния между вызовами, каждому run выдаётся
// свежий state.Context.
type Runner struct {
	catalog *flow.Catalog
	builder flow.Builder
	metrics *telemetry.Metrics
	timeout time.Duration
	logger  *slog.Logger

	mu     sync.Mutex
	chains map[string]*pipeline.Chain
}

// Config — конфигурация Runner.
type Config struct {
	// Catalog — определения pipeline. Обязателен.
	Catalog *flow.Catalog

	// Builder — сборка Chain (реестр, каталог skill, политика).
	Builder flow.Builder

	// Metrics — метрики шагов и runs (опционально).
	Metrics *telemetry.Metrics

	// Timeout — ограничение времени одного run (0 — без ограничения).
	Timeout time.Duration

	Logger *slog.Logger
}

// New создаёт новый Runner.
func New(cfg Config) *Runner {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	catalog := cfg.Catalog
	if catalog == nil {
		catalog = flow.NewCatalog()
	}

	builder := cfg.Builder
	if builder.Logger == nil {
		builder.Logger = logger
	}
	observers := []pipeline.Observer{builder.Observer, pipeline.LogObserver(logger)}
	if cfg.Metrics != nil {
		observers = append(observers, cfg.Metrics)
	}
	builder.Observer = pipeline.Observers(observers...)

	return &Runner{
		catalog: catalog,
		builder: builder,
		metrics: cfg.Metrics,
		timeout: cfg.Timeout,
		logger:  logger,
		chains:  make(map[string]*pipeline.Chain),
	}
}

// Catalog возвращает каталог определений.
func (r *Runner) Catalog() *flow.Catalog {
	return r.catalog
}

// Validate проверяет определение тем же Builder, что собирает Chain.
func (r *Runner) Validate(def *flow.Definition) error {
	return r.builder.Validate(def)
}

// chain возвращает собранный Chain для определения.
func (r *Runner) chain(def *flow.Definition) (*pipeline.Chain, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.chains[def.Name]; ok {
		return c, nil
	}
	c, err := r.builder.Build(def)
	if err != nil {
		return nil, err
	}
	r.chains[def.Name] = c
	return c, nil
}

// Execute выполняет run и записывает в него итог: статус, результат,
// ошибку и снимок состояния. Run, уже помеченный RUNNING (например,
// через RunRepo.Claim), сохраняет своё время старта.
//
// Возвращает ошибку выполнения (nil при SUCCEEDED). Ошибка уже
// отражена в run, вызывающему остаётся только сохранить его.
func (r *Runner) Execute(ctx context.Context, run *domain.Run) error {
	logger := telemetry.WithPipeline(telemetry.WithRunID(r.logger, run.ID.String()), run.Pipeline)
	ctx = telemetry.WithLogger(ctx, logger)

	if run.Status != domain.RunStatusRunning {
		run.MarkRunning()
	}

	def, err := r.catalog.Get(run.Pipeline)
	if err != nil {
		return r.fail(logger, run, err)
	}

	chain, err := r.chain(def)
	if err != nil {
		return r.fail(logger, run, fmt.Errorf("build pipeline: %w", err))
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	logger.Info("run started", "mode", def.Mode)

	sc := state.New()
	out, err := def.Run(ctx, chain, run.Input, sc)
	run.State = sc.Snapshot()

	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
			run.MarkCancelled()
			run.Error = err.Error()
			r.finished(logger, run)
			return err
		}
		return r.fail(logger, run, err)
	}

	run.MarkSucceeded(out)
	r.finished(logger, run)
	return nil
}

func (r *Runner) fail(logger *slog.Logger, run *domain.Run, err error) error {
	run.MarkFailed(err.Error())
	r.finished(logger, run)
	return err
}

func (r *Runner) finished(logger *slog.Logger, run *domain.Run) {
	if r.metrics != nil {
		r.metrics.RunFinished(run.Pipeline, string(run.Status), run.Duration())
	}

	if run.Status == domain.RunStatusSucceeded {
		logger.Info("run succeeded", "duration_ms", run.Duration().Milliseconds())
		return
	}
	logger.Warn("run finished",
		"status", run.Status,
		"duration_ms", run.Duration().Milliseconds(),
		"error", run.Error,
	)
}
