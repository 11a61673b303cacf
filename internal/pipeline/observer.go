package pipeline

import (
	"context"
	"log/slog"
	"time"
)

// StepInfo описывает выполняемый шаг.
type StepInfo struct {
	Kind      Kind
	Name      string
	Namespace string
	Async     bool
}

// Observer получает события о выполнении каждого шага, включая вложенные.
// Вызывается конкурентно из веток Parallel.
type Observer interface {
	StepStarted(ctx context.Context, info StepInfo)
	StepFinished(ctx context.Context, info StepInfo, elapsed time.Duration, err error)
}

type noopObserver struct{}

func (noopObserver) StepStarted(context.Context, StepInfo)                        {}
func (noopObserver) StepFinished(context.Context, StepInfo, time.Duration, error) {}

// multiObserver рассылает события нескольким наблюдателям.
type multiObserver []Observer

func (m multiObserver) StepStarted(ctx context.Context, info StepInfo) {
	for _, o := range m {
		o.StepStarted(ctx, info)
	}
}

func (m multiObserver) StepFinished(ctx context.Context, info StepInfo, elapsed time.Duration, err error) {
	for _, o := range m {
		o.StepFinished(ctx, info, elapsed, err)
	}
}

// Observers объединяет наблюдателей. nil пропускаются.
func Observers(obs ...Observer) Observer {
	var m multiObserver
	for _, o := range obs {
		if o != nil {
			m = append(m, o)
		}
	}
	switch len(m) {
	case 0:
		return noopObserver{}
	case 1:
		return m[0]
	}
	return m
}

// logObserver пишет события шагов в slog на уровне Debug.
type logObserver struct {
	logger *slog.Logger
}

// LogObserver возвращает Observer, логирующий старт и завершение шагов.
func LogObserver(logger *slog.Logger) Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return logObserver{logger: logger}
}

func (o logObserver) StepStarted(ctx context.Context, info StepInfo) {
	o.logger.DebugContext(ctx, "step started",
		"kind", info.Kind,
		"step", info.Name,
		"namespace", info.Namespace,
		"async", info.Async,
	)
}

func (o logObserver) StepFinished(ctx context.Context, info StepInfo, elapsed time.Duration, err error) {
	if err != nil {
		o.logger.DebugContext(ctx, "step failed",
			"kind", info.Kind,
			"step", info.Name,
			"namespace", info.Namespace,
			"duration_ms", elapsed.Milliseconds(),
			"error", err,
		)
		return
	}
	o.logger.DebugContext(ctx, "step completed",
		"kind", info.Kind,
		"step", info.Name,
		"namespace", info.Namespace,
		"duration_ms", elapsed.Milliseconds(),
	)
}
