package pipeline

import (
	"context"
	"slices"

	"github.com/shaiso/Conduit/internal/state"
)

// Predicate — чистая синхронная функция от текущего значения.
type Predicate func(value any) bool

// Branch выбирает путь по предикату.
//
// true → truePath, false → falsePath. Если falsePath не задан,
// значение проходит без изменений. Предикат вызывается синхронно
// в обоих режимах.
type Branch struct {
	predicate Predicate
	truePath  []Step
	falsePath []Step
}

// NewBranch создаёт Branch.
//
// Путь может быть одним шагом, []Step, []any или []string.
// falsePath == nil означает проход без изменений.
func NewBranch(predicate Predicate, truePath, falsePath any) *Branch {
	return &Branch{
		predicate: predicate,
		truePath:  pathOf(truePath),
		falsePath: pathOf(falsePath),
	}
}

// TruePath возвращает копию пути для true.
func (b *Branch) TruePath() []Step {
	return slices.Clone(b.truePath)
}

// FalsePath возвращает копию пути для false или nil.
func (b *Branch) FalsePath() []Step {
	return slices.Clone(b.falsePath)
}

// Run выполняет Branch последовательно с реестром по умолчанию.
func (b *Branch) Run(ctx context.Context, value any, sc *state.Context) (any, error) {
	if sc == nil {
		sc = state.New()
	}
	return b.execute(ctx, newExecutor(false), value, sc)
}

// RunAsync — Run в конкурентном режиме.
func (b *Branch) RunAsync(ctx context.Context, value any, sc *state.Context) (any, error) {
	if sc == nil {
		sc = state.New()
	}
	return b.execute(ctx, newExecutor(true), value, sc)
}

func (b *Branch) execute(ctx context.Context, e *executor, value any, sc *state.Context) (any, error) {
	if b.predicate != nil && b.predicate(value) {
		return e.runSteps(ctx, b.truePath, value, sc)
	}
	if b.falsePath == nil {
		return value, nil
	}
	return e.runSteps(ctx, b.falsePath, value, sc)
}
