package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/shaiso/Conduit/internal/skill"
	"github.com/shaiso/Conduit/internal/state"
	"github.com/shaiso/Conduit/internal/steps"
)

// executor — окружение выполнения: реестр, политика, наблюдатель.
// Вложенные Branch, Parallel и SubChain наследуют окружение
// охватывающего Chain.
type executor struct {
	registry *steps.Registry
	policy   skill.Policy
	observer Observer
	async    bool
}

func newExecutor(async bool) *executor {
	return &executor{
		policy:   skill.NoPolicy,
		observer: noopObserver{},
		async:    async,
	}
}

// withChain возвращает окружение с настройками вложенного Chain.
// Незаданные настройки наследуются.
func (e *executor) withChain(c *Chain) *executor {
	if c.registry == nil && c.policy == nil && c.observer == nil {
		return e
	}
	out := *e
	if c.registry != nil {
		out.registry = c.registry
	}
	if c.policy != nil {
		out.policy = c.policy
	}
	if c.observer != nil {
		out.observer = c.observer
	}
	return &out
}

func (e *executor) lookup(name string) (steps.Factory, bool) {
	if e.registry == nil {
		return steps.Default().Lookup(name)
	}
	return e.registry.Lookup(name)
}

// run определяет вид шага и выполняет его.
func (e *executor) run(ctx context.Context, s Step, value any, sc *state.Context) (out any, err error) {
	info := StepInfo{
		Kind:      KindOf(s),
		Name:      StepName(s),
		Namespace: sc.Namespace(),
		Async:     e.async,
	}

	e.observer.StepStarted(ctx, info)
	start := time.Now()
	completed := false
	defer func() {
		if !completed {
			err = ErrStepPanicked
		}
		e.observer.StepFinished(ctx, info, time.Since(start), err)
	}()

	out, err = e.dispatch(ctx, s, value, sc)
	completed = true
	return out, err
}

func (e *executor) dispatch(ctx context.Context, s Step, value any, sc *state.Context) (any, error) {
	switch st := s.(type) {
	case *Chain:
		if st == nil {
			return nil, &UnresolvableStepTypeError{Type: fmt.Sprintf("%T", s)}
		}
		return e.withChain(st).runSteps(ctx, st.steps, value, sc)

	case SubChain:
		return e.runSteps(ctx, st, value, sc)

	case *Branch:
		if st == nil {
			return nil, &UnresolvableStepTypeError{Type: fmt.Sprintf("%T", s)}
		}
		return st.execute(ctx, e, value, sc)

	case *Parallel:
		if st == nil {
			return nil, &UnresolvableStepTypeError{Type: fmt.Sprintf("%T", s)}
		}
		return st.execute(ctx, e, value, sc)

	case Name:
		return e.transform(ctx, string(st), nil, value, sc)

	case Params:
		name, ok := st[FunctionKey].(string)
		if !ok || name == "" {
			return nil, &MalformedStepError{Step: st}
		}
		params := make(map[string]any, len(st)-1)
		for k, v := range st {
			if k != FunctionKey {
				params[k] = v
			}
		}
		return e.transform(ctx, name, params, value, sc)

	case SkillStep:
		if st.Skill == nil || isNilValue(st.Skill) {
			return nil, &UnresolvableStepTypeError{Type: "nil skill"}
		}
		return e.invokeSkill(ctx, st, value, sc)

	case TransformerStep:
		if st.Transformer == nil || isNilValue(st.Transformer) {
			return nil, &UnresolvableStepTypeError{Type: "nil transformer"}
		}
		return st.Transformer.Transform(ctx, value, sc)

	case Func:
		if st.Fn == nil {
			return nil, &UnresolvableStepTypeError{Type: "nil func"}
		}
		return st.Fn(ctx, value)

	case unresolvable:
		return nil, &UnresolvableStepTypeError{Type: fmt.Sprintf("%T", st.v)}

	default:
		return nil, &UnresolvableStepTypeError{Type: fmt.Sprintf("%T", s)}
	}
}

// runSteps выполняет шаги последовательно, передавая результат дальше.
// Первая ошибка прерывает выполнение и возвращается как есть.
func (e *executor) runSteps(ctx context.Context, list []Step, value any, sc *state.Context) (any, error) {
	current := value
	for _, s := range list {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out, err := e.run(ctx, s, current, sc)
		if err != nil {
			return nil, err
		}
		current = out
	}
	return current, nil
}

// transform создаёт transformer через Registry и выполняет его.
// Ошибка transformer'а возвращается без обёртки.
func (e *executor) transform(ctx context.Context, name string, params map[string]any, value any, sc *state.Context) (any, error) {
	factory, ok := e.lookup(name)
	if !ok {
		return nil, &UnknownTransformerError{Name: name}
	}
	if params == nil {
		params = map[string]any{}
	}
	t, err := factory(params)
	if err != nil {
		return nil, err
	}
	return t.Transform(ctx, value, sc)
}

// invokeSkill вызывает skill по пути, соответствующему режиму.
func (e *executor) invokeSkill(ctx context.Context, st SkillStep, value any, sc *state.Context) (any, error) {
	in := skill.Input{Value: value, State: sc, Args: st.Args}
	opt := skill.WithPolicy(e.policy)

	var res skill.Result
	if e.async {
		res = st.Skill.InvokeAsync(ctx, in, opt)
	} else {
		res = st.Skill.Invoke(ctx, in, opt)
	}

	if !res.Success {
		return nil, &SkillInvocationError{
			Skill:     st.Skill.Descriptor().Name,
			Message:   res.Error,
			Retryable: res.Retryable,
			Cause:     res.Err(),
		}
	}
	return res.Value, nil
}

// RunStep выполняет один шаг последовательно с реестром по умолчанию.
// sc == nil означает новый корневой контекст для этого вызова.
func RunStep(ctx context.Context, s any, value any, sc *state.Context) (any, error) {
	if sc == nil {
		sc = state.New()
	}
	return newExecutor(false).run(ctx, From(s), value, sc)
}

// RunStepAsync — RunStep в конкурентном режиме.
func RunStepAsync(ctx context.Context, s any, value any, sc *state.Context) (any, error) {
	if sc == nil {
		sc = state.New()
	}
	return newExecutor(true).run(ctx, From(s), value, sc)
}
