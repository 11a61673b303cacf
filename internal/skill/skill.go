package skill

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shaiso/Conduit/internal/state"
	"github.com/shaiso/Conduit/internal/steps"
)

// Input — аргументы вызова skill.
type Input struct {
	// Value — текущее значение pipeline.
	Value any

	// State — разделяемое состояние выполнения. Может быть nil.
	State *state.Context

	// Args — дополнительные именованные аргументы (например, из файла определения).
	Args map[string]any
}

// Func — функция, обёрнутая skill.
//
// Может вернуть steps.TransformResult или *steps.TransformResult —
// такой результат поднимается в Result.
type Func func(ctx context.Context, in Input) (any, error)

// Result — результат одного вызова skill.
// Создаётся заново на каждый вызов.
type Result struct {
	Value      any            `json:"value,omitempty"`
	Error      string         `json:"error,omitempty"`
	Success    bool           `json:"success"`
	DurationMs float64        `json:"duration_ms"`
	Retryable  bool           `json:"retryable"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Err возвращает *ExecutionError для неуспешного результата, иначе nil.
func (r Result) Err() error {
	if r.Success {
		return nil
	}
	name, _ := r.Metadata[MetaSkill].(string)
	return &ExecutionError{Skill: name, Message: r.Error, Retryable: r.Retryable}
}

// Ключи Result.Metadata.
const (
	MetaSkill  = "skill"
	MetaPath   = "path"
	MetaBridge = "bridged"
)

// Пути вызова.
const (
	PathSync  = "sync"
	PathAsync = "async"
)

// Skill — вызываемая единица с объявленными возможностями.
type Skill interface {
	Descriptor() Descriptor

	// Invoke — синхронный путь. Функции с IsAsync выполняются
	// в отдельной горутине и ожидаются.
	Invoke(ctx context.Context, in Input, opts ...Option) Result

	// InvokeAsync — путь для конкурентного выполнения pipeline.
	// Функция вызывается в горутине вызывающего.
	InvokeAsync(ctx context.Context, in Input, opts ...Option) Result
}

// Option настраивает один вызов.
type Option func(*invokeOptions)

type invokeOptions struct {
	policy Policy
}

// WithPolicy задаёт политику для вызова. nil означает NoPolicy.
func WithPolicy(p Policy) Option {
	return func(o *invokeOptions) {
		if p != nil {
			o.policy = p
		}
	}
}

func applyOptions(opts []Option) invokeOptions {
	o := invokeOptions{policy: NoPolicy}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// FuncSkill — Skill поверх Func.
type FuncSkill struct {
	desc Descriptor
	fn   Func
}

// New создаёт skill. Паникует при невалидном дескрипторе или nil fn,
// так как skill создаётся при регистрации.
func New(desc Descriptor, fn Func) *FuncSkill {
	if err := desc.Validate(); err != nil {
		panic(err)
	}
	if fn == nil {
		panic(fmt.Errorf("%w: %s: nil function", ErrInvalidDescriptor, desc.Name))
	}
	return &FuncSkill{desc: desc.clone(), fn: fn}
}

// Descriptor возвращает копию дескриптора.
func (s *FuncSkill) Descriptor() Descriptor {
	return s.desc.clone()
}

// Invoke реализует Skill.
func (s *FuncSkill) Invoke(ctx context.Context, in Input, opts ...Option) Result {
	return s.invoke(ctx, in, PathSync, applyOptions(opts))
}

// InvokeAsync реализует Skill.
func (s *FuncSkill) InvokeAsync(ctx context.Context, in Input, opts ...Option) Result {
	return s.invoke(ctx, in, PathAsync, applyOptions(opts))
}

// outcome — то, что вернула функция.
type outcome struct {
	value any
	err   error
}

func (s *FuncSkill) invoke(ctx context.Context, in Input, path string, o invokeOptions) Result {
	start := time.Now()

	res := Result{
		Metadata: map[string]any{
			MetaSkill: s.desc.Name,
			MetaPath:  path,
		},
	}

	// Политика проверяется до вызова; при нарушении функция не вызывается
	if violations := o.policy.Validate(s.desc.clone()); len(violations) > 0 {
		res.Error = violationMessage(violations)
		res.DurationMs = elapsedMs(start)
		return res
	}

	var out outcome
	if path == PathSync && s.desc.IsAsync {
		res.Metadata[MetaBridge] = true
		out = s.await(ctx, in)
	} else {
		out = s.call(ctx, in)
	}

	value, err := lift(out)
	res.DurationMs = elapsedMs(start)

	if err != nil {
		res.Error = err.Error()
		res.Retryable = s.desc.Idempotent
		return res
	}

	res.Value = value
	res.Success = true
	return res
}

// call выполняет функцию в текущей горутине, перехватывая панику.
func (s *FuncSkill) call(ctx context.Context, in Input) (out outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = outcome{err: fmt.Errorf("panic: %v", r)}
		}
	}()
	v, err := s.fn(ctx, in)
	return outcome{value: v, err: err}
}

// await выполняет функцию в отдельной горутине и ждёт результат.
// Отмена ctx прекращает ожидание, но горутина доживает сама.
func (s *FuncSkill) await(ctx context.Context, in Input) outcome {
	done := make(chan outcome, 1)
	go func() {
		done <- s.call(ctx, in)
	}()

	select {
	case out := <-done:
		return out
	case <-ctx.Done():
		return outcome{err: ctx.Err()}
	}
}

// lift поднимает steps.TransformResult в пару значение/ошибка.
func lift(out outcome) (any, error) {
	if out.err != nil {
		return nil, out.err
	}
	switch v := out.value.(type) {
	case steps.TransformResult:
		return v.Value, v.Err
	case *steps.TransformResult:
		if v == nil {
			return nil, nil
		}
		return v.Value, v.Err
	}
	return out.value, nil
}

func violationMessage(violations []Violation) string {
	parts := make([]string, len(violations))
	for i, v := range violations {
		parts[i] = v.String()
	}
	return fmt.Sprintf("%s: %s", ErrPolicyViolation, strings.Join(parts, "; "))
}

func elapsedMs(start time.Time) float64 {
	return float64(time.Since(start).Nanoseconds()) / float64(time.Millisecond)
}
