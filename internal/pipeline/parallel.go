package pipeline

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/shaiso/Conduit/internal/state"
)

// Parallel выполняет шаги над одним и тем же входом и объединяет результаты.
//
// Шаг i получает state.Context со scope "parallel_{i}", поэтому записи
// веток не пересекаются, а значения предков остаются видимыми.
//
// Последовательный режим: шаги идут по порядку. MergeFirst
// останавливается на первом успешном шаге.
//
// Конкурентный режим: все горутины запускаются до ожидания любой из них,
// ни одна не отменяется. MergeFirst выбирает первый успешный результат
// в порядке шагов после завершения всех.
type Parallel struct {
	steps []Step
	merge Merge
}

// NewParallel создаёт Parallel. Каждый шаг приводится к Step через From.
func NewParallel(merge Merge, items ...any) *Parallel {
	return &Parallel{steps: fromAll(items), merge: merge}
}

// Steps возвращает копию списка шагов.
func (p *Parallel) Steps() []Step {
	return slices.Clone(p.steps)
}

// Merge возвращает стратегию объединения.
func (p *Parallel) Merge() Merge {
	return p.merge
}

// Run выполняет Parallel последовательно с реестром по умолчанию.
func (p *Parallel) Run(ctx context.Context, value any, sc *state.Context) (any, error) {
	if sc == nil {
		sc = state.New()
	}
	return p.execute(ctx, newExecutor(false), value, sc)
}

// RunAsync выполняет шаги конкурентно.
func (p *Parallel) RunAsync(ctx context.Context, value any, sc *state.Context) (any, error) {
	if sc == nil {
		sc = state.New()
	}
	return p.execute(ctx, newExecutor(true), value, sc)
}

// ScopeName возвращает namespace ветки i.
func ScopeName(i int) string {
	return fmt.Sprintf("parallel_%d", i)
}

// outcome — результат одной ветки.
type outcome struct {
	value    any
	err      error
	panicked bool
	panicVal any
}

func (p *Parallel) execute(ctx context.Context, e *executor, value any, sc *state.Context) (any, error) {
	scopes := make([]*state.Context, len(p.steps))
	for i := range p.steps {
		scopes[i] = sc.Scope(ScopeName(i))
	}

	if p.merge.name == MergeNameFirst {
		if e.async {
			return firstSuccess(p.runConcurrent(ctx, e, value, scopes))
		}
		return p.runFirst(ctx, e, value, scopes)
	}

	var results []outcome
	if e.async {
		results = p.runConcurrent(ctx, e, value, scopes)
	} else {
		results = p.runSequential(ctx, e, value, scopes)
	}

	values := make([]any, len(results))
	for i, r := range results {
		if r.err != nil {
			return nil, r.err
		}
		values[i] = r.value
	}

	return p.combine(values)
}

// runFirst выполняет шаги по порядку до первого успешного.
func (p *Parallel) runFirst(ctx context.Context, e *executor, value any, scopes []*state.Context) (any, error) {
	var last error
	for i, s := range p.steps {
		out, err := e.run(ctx, s, value, scopes[i])
		if err == nil {
			return out, nil
		}
		last = err
	}
	return nil, &AllParallelStepsFailedError{Count: len(p.steps), Last: last}
}

// runSequential выполняет все шаги по порядку. Первая ошибка прерывает выполнение.
func (p *Parallel) runSequential(ctx context.Context, e *executor, value any, scopes []*state.Context) []outcome {
	results := make([]outcome, len(p.steps))
	for i, s := range p.steps {
		out, err := e.run(ctx, s, value, scopes[i])
		results[i] = outcome{value: out, err: err}
		if err != nil {
			return results[:i+1]
		}
	}
	return results
}

// runConcurrent запускает каждый шаг в своей горутине и ждёт все.
// Паника в ветке повторяется в вызывающей горутине после завершения остальных.
func (p *Parallel) runConcurrent(ctx context.Context, e *executor, value any, scopes []*state.Context) []outcome {
	results := make([]outcome, len(p.steps))

	var wg sync.WaitGroup
	wg.Add(len(p.steps))
	for i, s := range p.steps {
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					results[i] = outcome{panicked: true, panicVal: r}
				}
			}()
			out, err := e.run(ctx, s, value, scopes[i])
			results[i] = outcome{value: out, err: err}
		}()
	}
	wg.Wait()

	for _, r := range results {
		if r.panicked {
			panic(r.panicVal)
		}
	}
	return results
}

// firstSuccess возвращает первый успешный результат в порядке шагов.
func firstSuccess(results []outcome) (any, error) {
	var last error
	for _, r := range results {
		if r.err == nil {
			return r.value, nil
		}
		last = r.err
	}
	return nil, &AllParallelStepsFailedError{Count: len(results), Last: last}
}

// combine применяет стратегию merge к результатам в порядке шагов.
func (p *Parallel) combine(values []any) (any, error) {
	switch p.merge.name {
	case MergeNameList:
		return values, nil
	case MergeNameCustom:
		if p.merge.fn == nil {
			return nil, &UnknownMergeStrategyError{Name: MergeNameCustom}
		}
		return p.merge.fn(newResults(displayNames(p.steps), values).Map())
	case MergeNameDict, "":
		return newResults(displayNames(p.steps), values), nil
	default:
		return nil, &UnknownMergeStrategyError{Name: p.merge.name}
	}
}
