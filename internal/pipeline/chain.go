package pipeline

import (
	"context"
	"log/slog"
	"slices"

	"github.com/shaiso/Conduit/internal/skill"
	"github.com/shaiso/Conduit/internal/state"
	"github.com/shaiso/Conduit/internal/steps"
)

// Chain — упорядоченный список шагов.
//
// Каждый шаг получает результат предыдущего и тот же state.Context.
// Первая ошибка прерывает выполнение и возвращается без изменений.
// Пустой Chain возвращает вход как есть.
//
// После создания Chain не меняется и может выполняться
// конкурентно с разными state.Context.
type Chain struct {
	steps []Step

	registry *steps.Registry
	policy   skill.Policy
	observer Observer
}

// Option настраивает Chain.
type Option func(*Chain)

// WithRegistry задаёт реестр transformer'ов. По умолчанию steps.Default().
func WithRegistry(r *steps.Registry) Option {
	return func(c *Chain) {
		c.registry = r
	}
}

// WithPolicy задаёт политику для вызовов skill. По умолчанию skill.NoPolicy.
func WithPolicy(p skill.Policy) Option {
	return func(c *Chain) {
		c.policy = p
	}
}

// WithObserver задаёт наблюдателя за шагами.
func WithObserver(o Observer) Option {
	return func(c *Chain) {
		c.observer = o
	}
}

// WithLogger добавляет логирование шагов через slog.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Chain) {
		c.observer = Observers(c.observer, LogObserver(logger))
	}
}

// NewChain создаёт Chain. Каждый аргумент приводится к Step через From.
func NewChain(items ...any) *Chain {
	return &Chain{steps: fromAll(items)}
}

// With возвращает копию Chain с применёнными опциями.
func (c *Chain) With(opts ...Option) *Chain {
	out := c.clone()
	for _, opt := range opts {
		opt(out)
	}
	return out
}

func (c *Chain) clone() *Chain {
	out := *c
	out.steps = slices.Clone(c.steps)
	return &out
}

// Steps возвращает копию списка шагов.
func (c *Chain) Steps() []Step {
	return slices.Clone(c.steps)
}

// Len возвращает количество шагов.
func (c *Chain) Len() int {
	return len(c.steps)
}

// Concat возвращает новый Chain из шагов c, за которыми следуют шаги other.
// Исходные Chain не меняются. Настройки берутся из c.
func (c *Chain) Concat(other *Chain) *Chain {
	out := c.clone()
	if other != nil {
		out.steps = append(out.steps, other.steps...)
	}
	return out
}

// Run выполняет шаги последовательно.
// sc == nil означает новый корневой контекст только для этого вызова.
func (c *Chain) Run(ctx context.Context, value any, sc *state.Context) (any, error) {
	return c.run(ctx, value, sc, false)
}

// RunAsync выполняет шаги в конкурентном режиме: Parallel запускает
// ветки в горутинах, skill вызываются по async пути. Шаги самого
// Chain по-прежнему идут строго по очереди.
func (c *Chain) RunAsync(ctx context.Context, value any, sc *state.Context) (any, error) {
	return c.run(ctx, value, sc, true)
}

func (c *Chain) run(ctx context.Context, value any, sc *state.Context, async bool) (any, error) {
	if sc == nil {
		sc = state.New()
	}
	return newExecutor(async).withChain(c).runSteps(ctx, c.steps, value, sc)
}
