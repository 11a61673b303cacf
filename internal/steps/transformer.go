package steps

import (
	"context"
	"errors"
	"fmt"

	"github.com/shaiso/Conduit/internal/state"
)

// Ошибки transformer'ов.
var (
	// ErrTransformerNotFound — transformer не зарегистрирован.
	ErrTransformerNotFound = errors.New("transformer not found")

	// ErrInvalidConfig — невалидные параметры transformer'а.
	ErrInvalidConfig = errors.New("invalid transformer config")

	// ErrInvalidInput — входное значение не подходит transformer'у.
	ErrInvalidInput = errors.New("invalid transformer input")

	// ErrStepCancelled — выполнение отменено через context.
	ErrStepCancelled = errors.New("step execution cancelled")
)

// Transformer — листовой исполнитель шага.
//
// Получает текущее значение pipeline и разделяемое состояние,
// возвращает новое значение. Ошибка возвращается как есть и
// не оборачивается ядром pipeline.
type Transformer interface {
	Transform(ctx context.Context, value any, sc *state.Context) (any, error)
}

// Named — опциональный интерфейс для отображаемого имени transformer'а.
// Используется Parallel для ключей результата при merge "dict".
type Named interface {
	Name() string
}

// Factory создаёт Transformer из параметров шага.
// params никогда не nil.
type Factory func(params map[string]any) (Transformer, error)

// TransformerFunc — адаптер обычной функции к Transformer.
type TransformerFunc func(ctx context.Context, value any, sc *state.Context) (any, error)

// Transform вызывает f.
func (f TransformerFunc) Transform(ctx context.Context, value any, sc *state.Context) (any, error) {
	return f(ctx, value, sc)
}

// named — Transformer с именем.
type named struct {
	Transformer
	name string
}

func (n named) Name() string { return n.name }

// WithName оборачивает Transformer, добавляя ему отображаемое имя.
func WithName(name string, t Transformer) Transformer {
	return named{Transformer: t, name: name}
}

// TransformResult — низкоуровневый результат трансформации (значение + ошибка).
//
// Skill может вернуть TransformResult вместо голого значения —
// тогда контракт skill поднимает его в skill.Result.
type TransformResult struct {
	Value any
	Err   error
}

// OK возвращает true при отсутствии ошибки.
func (r TransformResult) OK() bool {
	return r.Err == nil
}

// Apply выполняет transformer и упаковывает результат.
func Apply(ctx context.Context, t Transformer, value any, sc *state.Context) TransformResult {
	v, err := t.Transform(ctx, value, sc)
	return TransformResult{Value: v, Err: err}
}

// checkContext возвращает ErrStepCancelled, если ctx уже отменён.
func checkContext(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrStepCancelled, ctx.Err())
	default:
		return nil
	}
}
